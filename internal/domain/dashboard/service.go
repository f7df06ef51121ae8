// Package dashboard aggregates read-only statistics across the clinic's
// collections for the front-desk overview screens.
package dashboard

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinicdesk/clinicdesk/internal/domain/appointments"
	"github.com/clinicdesk/clinicdesk/internal/domain/forms"
	"github.com/clinicdesk/clinicdesk/internal/domain/insurance"
	"github.com/clinicdesk/clinicdesk/internal/domain/patients"
)

type PatientSource interface {
	List(ctx context.Context) ([]*patients.Patient, error)
}

type AppointmentSource interface {
	List(ctx context.Context, f appointments.Filter) ([]*appointments.Appointment, error)
}

type FormSource interface {
	List(ctx context.Context, f forms.Filter) ([]*forms.Form, error)
}

type PolicySource interface {
	Search(ctx context.Context, carrier string) ([]*insurance.Policy, error)
}

// Summary is the headline figure block. When a search query or carrier
// filter is given, every figure is computed over the matching patients only.
type Summary struct {
	TotalPatients          int            `json:"total_patients"`
	TotalAppointments      int            `json:"total_appointments"`
	TotalForms             int            `json:"total_forms"`
	TotalPolicies          int            `json:"total_policies"`
	AppointmentsByStatus   map[string]int `json:"appointments_by_status"`
	AppointmentsToday      int            `json:"appointments_today"`
	FormsProcessed         int            `json:"forms_processed"`
	FormsPending           int            `json:"forms_pending"`
	AgeDistribution        map[string]int `json:"age_distribution"`
	AppointmentsPerPatient map[string]int `json:"appointments_per_patient"`
}

// PatientRow is one line of the filterable patient overview.
type PatientRow struct {
	ID           int64    `json:"id"`
	Name         string   `json:"name"`
	Age          int      `json:"age"`
	Appointments int      `json:"appointments"`
	Carriers     []string `json:"carriers"`
}

type Service struct {
	patients     PatientSource
	appointments AppointmentSource
	forms        FormSource
	policies     PolicySource
	log          zerolog.Logger
	now          func() time.Time
}

func NewService(p PatientSource, a AppointmentSource, f FormSource, pol PolicySource, log zerolog.Logger) *Service {
	return &Service{patients: p, appointments: a, forms: f, policies: pol, log: log, now: time.Now}
}

// ageBucket maps an age in years onto its decade label.
func ageBucket(age int) string {
	if age < 0 {
		return "unknown"
	}
	if age >= 90 {
		return "90+"
	}
	decade := age / 10 * 10
	return fmt.Sprintf("%d-%d", decade, decade+9)
}

func carriersByPatient(policies []*insurance.Policy) map[int64][]string {
	out := map[int64][]string{}
	for _, pol := range policies {
		out[pol.PatientID] = append(out[pol.PatientID], pol.Carrier)
	}
	return out
}

// matchPatient applies the name/id query and the carrier filter to one
// patient. Empty filters match everything.
func matchPatient(p *patients.Patient, query string, pcarriers []string, carrier string) bool {
	if query != "" &&
		!strings.Contains(strings.ToLower(p.Name), query) &&
		!strings.Contains(fmt.Sprintf("%d", p.ID), query) {
		return false
	}
	if carrier != "" {
		for _, c := range pcarriers {
			if strings.Contains(strings.ToLower(c), carrier) {
				return true
			}
		}
		return false
	}
	return true
}

// filterPatients returns the patients matching the query and carrier filter,
// in collection order.
func filterPatients(pts []*patients.Patient, carriers map[int64][]string, query, carrier string) []*patients.Patient {
	q := strings.ToLower(strings.TrimSpace(query))
	wantCarrier := strings.ToLower(strings.TrimSpace(carrier))
	if q == "" && wantCarrier == "" {
		return pts
	}
	var matched []*patients.Patient
	for _, p := range pts {
		if matchPatient(p, q, carriers[p.ID], wantCarrier) {
			matched = append(matched, p)
		}
	}
	return matched
}

// Summary computes the headline figures over the patients matching the query
// and carrier filter; appointments, forms and policies belonging to excluded
// patients are left out of every count.
func (s *Service) Summary(ctx context.Context, query, carrier string) (*Summary, error) {
	pts, err := s.patients.List(ctx)
	if err != nil {
		return nil, err
	}
	appts, err := s.appointments.List(ctx, appointments.Filter{})
	if err != nil {
		return nil, err
	}
	allForms, err := s.forms.List(ctx, forms.Filter{})
	if err != nil {
		return nil, err
	}
	policies, err := s.policies.Search(ctx, "")
	if err != nil {
		return nil, err
	}

	matched := filterPatients(pts, carriersByPatient(policies), query, carrier)
	include := make(map[int64]bool, len(matched))
	for _, p := range matched {
		include[p.ID] = true
	}

	now := s.now()
	today := now.Format("2006-01-02")
	sum := &Summary{
		TotalPatients:          len(matched),
		AppointmentsByStatus:   map[string]int{},
		AgeDistribution:        map[string]int{},
		AppointmentsPerPatient: map[string]int{},
	}
	for _, a := range appts {
		if !include[a.PatientID] {
			continue
		}
		sum.TotalAppointments++
		sum.AppointmentsByStatus[a.Status]++
		if a.Date == today && a.Status == appointments.StatusUpcoming {
			sum.AppointmentsToday++
		}
		sum.AppointmentsPerPatient[fmt.Sprintf("%d", a.PatientID)]++
	}
	for _, f := range allForms {
		if !include[f.PatientID] {
			continue
		}
		sum.TotalForms++
		if f.Processed {
			sum.FormsProcessed++
		} else {
			sum.FormsPending++
		}
	}
	for _, pol := range policies {
		if include[pol.PatientID] {
			sum.TotalPolicies++
		}
	}
	for _, p := range matched {
		sum.AgeDistribution[ageBucket(p.Age(now))]++
	}
	return sum, nil
}

// Overview returns one row per patient, filterable by a name/id query and by
// insurance carrier. The carrier filter keeps only patients holding at least
// one policy with that carrier.
func (s *Service) Overview(ctx context.Context, query, carrier string) ([]PatientRow, error) {
	pts, err := s.patients.List(ctx)
	if err != nil {
		return nil, err
	}
	appts, err := s.appointments.List(ctx, appointments.Filter{})
	if err != nil {
		return nil, err
	}
	policies, err := s.policies.Search(ctx, "")
	if err != nil {
		return nil, err
	}

	apptCount := map[int64]int{}
	for _, a := range appts {
		apptCount[a.PatientID]++
	}
	carriers := carriersByPatient(policies)
	now := s.now()

	rows := []PatientRow{}
	for _, p := range filterPatients(pts, carriers, query, carrier) {
		pcarriers := carriers[p.ID]
		if pcarriers == nil {
			pcarriers = []string{}
		} else {
			sort.Strings(pcarriers)
		}
		rows = append(rows, PatientRow{
			ID:           p.ID,
			Name:         p.Name,
			Age:          p.Age(now),
			Appointments: apptCount[p.ID],
			Carriers:     pcarriers,
		})
	}
	return rows, nil
}
