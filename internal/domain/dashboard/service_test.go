package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinicdesk/clinicdesk/internal/domain/appointments"
	"github.com/clinicdesk/clinicdesk/internal/domain/forms"
	"github.com/clinicdesk/clinicdesk/internal/domain/insurance"
	"github.com/clinicdesk/clinicdesk/internal/domain/patients"
)

func testLogger() zerolog.Logger {
	return zerolog.New(nil).Level(zerolog.Disabled)
}

// fixture wires the dashboard over real JSON-backed repositories seeded
// directly, bypassing domain validation.
type fixture struct {
	svc          *Service
	patients     *patients.JSONRepository
	appointments *appointments.JSONRepository
	forms        *forms.JSONRepository
	insurance    *insurance.JSONRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	log := testLogger()
	f := &fixture{
		patients:     patients.NewJSONRepository(dir),
		appointments: appointments.NewJSONRepository(dir),
		forms:        forms.NewJSONRepository(dir),
		insurance:    insurance.NewJSONRepository(dir),
	}
	f.svc = NewService(
		patients.NewService(f.patients, nil, log),
		appointments.NewService(f.appointments, nil, log),
		forms.NewService(f.forms, "", log),
		insurance.NewService(f.insurance, log),
		log,
	)
	f.svc.now = func() time.Time {
		return time.Date(2026, 9, 10, 12, 0, 0, 0, time.UTC)
	}
	return f
}

func (f *fixture) seed(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	pts := []*patients.Patient{
		{Name: "Jane Doe", DOB: "1985-07-15", Gender: "Female", Phone: "9876543210", Email: "jane@example.org"},
		{Name: "John Roe", DOB: "1952-02-01", Gender: "Male", Phone: "9876543211", Email: "john@example.org"},
		{Name: "Ada Poe", DOB: "1988-11-30", Gender: "Female", Phone: "9876543212", Email: "ada@example.org"},
	}
	for _, p := range pts {
		if err := f.patients.Create(ctx, p); err != nil {
			t.Fatalf("seed patient: %v", err)
		}
	}
	appts := []*appointments.Appointment{
		{PatientID: 1, Date: "2026-09-10", Slot: "09:00-10:00", Status: appointments.StatusUpcoming},
		{PatientID: 1, Date: "2026-09-01", Slot: "10:00-11:00", Status: appointments.StatusCompleted},
		{PatientID: 2, Date: "2026-09-12", Slot: "11:00-12:00", Status: appointments.StatusUpcoming},
		{PatientID: 2, Date: "2026-08-20", Slot: "12:00-13:00", Status: appointments.StatusCancelled},
	}
	for _, a := range appts {
		if err := f.appointments.Create(ctx, a); err != nil {
			t.Fatalf("seed appointment: %v", err)
		}
	}
	fms := []*forms.Form{
		{PatientID: 1, FileName: "intake.pdf", Processed: true},
		{PatientID: 2, FileName: "intake.pdf"},
	}
	for _, fm := range fms {
		if err := f.forms.Create(ctx, fm); err != nil {
			t.Fatalf("seed form: %v", err)
		}
	}
	pols := []*insurance.Policy{
		{PatientID: 1, Carrier: "Blue Shield", MemberID: "BS-1", EffectiveDate: "2026-01-01"},
		{PatientID: 2, Carrier: "Aetna", MemberID: "A-1", EffectiveDate: "2026-01-01"},
	}
	for _, pol := range pols {
		if err := f.insurance.Create(ctx, pol); err != nil {
			t.Fatalf("seed policy: %v", err)
		}
	}
}

func TestSummary(t *testing.T) {
	f := newFixture(t)
	f.seed(t)

	sum, err := f.svc.Summary(context.Background(), "", "")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.TotalPatients != 3 || sum.TotalAppointments != 4 || sum.TotalForms != 2 || sum.TotalPolicies != 2 {
		t.Errorf("unexpected totals: %+v", sum)
	}
	if sum.AppointmentsByStatus[appointments.StatusUpcoming] != 2 ||
		sum.AppointmentsByStatus[appointments.StatusCompleted] != 1 ||
		sum.AppointmentsByStatus[appointments.StatusCancelled] != 1 {
		t.Errorf("unexpected status counts: %v", sum.AppointmentsByStatus)
	}
	if sum.AppointmentsToday != 1 {
		t.Errorf("expected 1 appointment today, got %d", sum.AppointmentsToday)
	}
	if sum.FormsProcessed != 1 || sum.FormsPending != 1 {
		t.Errorf("unexpected form counts: %d/%d", sum.FormsProcessed, sum.FormsPending)
	}
	// Ages on 2026-09-10: Jane 41, John 74, Ada 37.
	if sum.AgeDistribution["40-49"] != 1 || sum.AgeDistribution["70-79"] != 1 || sum.AgeDistribution["30-39"] != 1 {
		t.Errorf("unexpected age distribution: %v", sum.AgeDistribution)
	}
	if sum.AppointmentsPerPatient["1"] != 2 || sum.AppointmentsPerPatient["2"] != 2 {
		t.Errorf("unexpected per-patient counts: %v", sum.AppointmentsPerPatient)
	}
}

func TestSummary_Empty(t *testing.T) {
	f := newFixture(t)
	sum, err := f.svc.Summary(context.Background(), "", "")
	if err != nil {
		t.Fatalf("summary on empty store: %v", err)
	}
	if sum.TotalPatients != 0 || sum.TotalAppointments != 0 {
		t.Errorf("expected zero totals, got %+v", sum)
	}
}

func TestSummary_FilteredByCarrier(t *testing.T) {
	f := newFixture(t)
	f.seed(t)

	// Only John (patient 2, Aetna) matches, so every figure narrows to him.
	sum, err := f.svc.Summary(context.Background(), "", "aetna")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.TotalPatients != 1 {
		t.Errorf("expected 1 patient, got %d", sum.TotalPatients)
	}
	if sum.TotalAppointments != 2 {
		t.Errorf("expected 2 appointments, got %d", sum.TotalAppointments)
	}
	if sum.AppointmentsByStatus[appointments.StatusUpcoming] != 1 ||
		sum.AppointmentsByStatus[appointments.StatusCancelled] != 1 ||
		sum.AppointmentsByStatus[appointments.StatusCompleted] != 0 {
		t.Errorf("unexpected status counts: %v", sum.AppointmentsByStatus)
	}
	if sum.AppointmentsToday != 0 {
		t.Errorf("John has no appointment today, got %d", sum.AppointmentsToday)
	}
	if sum.TotalForms != 1 || sum.FormsProcessed != 0 || sum.FormsPending != 1 {
		t.Errorf("unexpected form counts: %d/%d/%d", sum.TotalForms, sum.FormsProcessed, sum.FormsPending)
	}
	if sum.TotalPolicies != 1 {
		t.Errorf("expected 1 policy, got %d", sum.TotalPolicies)
	}
	// John is 74 on 2026-09-10; no other bucket may appear.
	if len(sum.AgeDistribution) != 1 || sum.AgeDistribution["70-79"] != 1 {
		t.Errorf("unexpected age distribution: %v", sum.AgeDistribution)
	}
	if len(sum.AppointmentsPerPatient) != 1 || sum.AppointmentsPerPatient["2"] != 2 {
		t.Errorf("unexpected per-patient counts: %v", sum.AppointmentsPerPatient)
	}
}

func TestSummary_FilteredByQuery(t *testing.T) {
	f := newFixture(t)
	f.seed(t)

	sum, err := f.svc.Summary(context.Background(), "jane", "")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.TotalPatients != 1 {
		t.Errorf("expected 1 patient, got %d", sum.TotalPatients)
	}
	if sum.TotalAppointments != 2 || sum.AppointmentsToday != 1 {
		t.Errorf("expected Jane's 2 appointments incl. today, got %d/%d",
			sum.TotalAppointments, sum.AppointmentsToday)
	}
	if sum.TotalForms != 1 || sum.FormsProcessed != 1 {
		t.Errorf("expected Jane's processed form only, got %d/%d", sum.TotalForms, sum.FormsProcessed)
	}
	if len(sum.AgeDistribution) != 1 || sum.AgeDistribution["40-49"] != 1 {
		t.Errorf("unexpected age distribution: %v", sum.AgeDistribution)
	}

	none, err := f.svc.Summary(context.Background(), "nobody", "")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if none.TotalPatients != 0 || none.TotalAppointments != 0 || none.TotalForms != 0 || none.TotalPolicies != 0 {
		t.Errorf("expected all-zero summary, got %+v", none)
	}
}

func TestOverview_Filters(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	ctx := context.Background()

	all, err := f.svc.Overview(ctx, "", "")
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(all))
	}
	if all[0].Name != "Jane Doe" || all[0].Appointments != 2 || all[0].Age != 41 {
		t.Errorf("unexpected first row: %+v", all[0])
	}
	if len(all[0].Carriers) != 1 || all[0].Carriers[0] != "Blue Shield" {
		t.Errorf("unexpected carriers: %v", all[0].Carriers)
	}
	if all[2].Appointments != 0 || len(all[2].Carriers) != 0 {
		t.Errorf("patient without activity should have empty row data: %+v", all[2])
	}

	byName, _ := f.svc.Overview(ctx, "jane", "")
	if len(byName) != 1 || byName[0].ID != 1 {
		t.Errorf("name query: expected Jane only, got %+v", byName)
	}

	byCarrier, _ := f.svc.Overview(ctx, "", "aetna")
	if len(byCarrier) != 1 || byCarrier[0].ID != 2 {
		t.Errorf("carrier filter: expected John only, got %+v", byCarrier)
	}

	none, _ := f.svc.Overview(ctx, "jane", "aetna")
	if len(none) != 0 {
		t.Errorf("combined filters should exclude all, got %+v", none)
	}
}

func TestAgeBucket(t *testing.T) {
	cases := []struct {
		age  int
		want string
	}{
		{-1, "unknown"},
		{0, "0-9"},
		{9, "0-9"},
		{10, "10-19"},
		{41, "40-49"},
		{89, "80-89"},
		{90, "90+"},
		{104, "90+"},
	}
	for _, tc := range cases {
		if got := ageBucket(tc.age); got != tc.want {
			t.Errorf("ageBucket(%d) = %s, want %s", tc.age, got, tc.want)
		}
	}
}
