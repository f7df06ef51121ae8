package appointments

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinicdesk/clinicdesk/internal/platform/jsonstore"
)

// Reminder kinds, ordered from earliest to latest.
const (
	Reminder60  = "Reminder-60min"
	Reminder30  = "Reminder-30min"
	ReminderDue = "Final-Reminder"
)

// Clinic hours: hourly slots from opening to closing.
const (
	openingHour = 9
	closingHour = 17
)

// autoBookHorizonDays bounds how far ahead auto-booking will look for a free
// slot.
const autoBookHorizonDays = 14

var (
	datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	slotPattern = regexp.MustCompile(`^\d{2}:\d{2}-\d{2}:\d{2}$`)
)

var validStatuses = map[string]bool{
	StatusUpcoming: true, StatusCompleted: true, StatusCancelled: true,
}

var validReminderKinds = map[string]bool{
	Reminder60: true, Reminder30: true, ReminderDue: true,
}

// Filter narrows List results. Zero values mean "no constraint".
type Filter struct {
	PatientID int64
	Status    string
	DateFrom  string
	DateTo    string
}

// Notifier dispatches reminder mail for upcoming appointments. A nil notifier
// disables reminders.
type Notifier interface {
	ScheduleReminders(a *Appointment, email string)
	SendReminder(ctx context.Context, a *Appointment, email, kind string) error
	CancelReminders(appointmentID int64)
}

// PatientDirectory resolves a patient's contact email. Implemented by the
// patients service.
type PatientDirectory interface {
	EmailFor(ctx context.Context, patientID int64) (string, error)
}

type Service struct {
	repo     Repository
	notifier Notifier
	patients PatientDirectory
	log      zerolog.Logger
	now      func() time.Time
}

func NewService(repo Repository, patients PatientDirectory, log zerolog.Logger) *Service {
	return &Service{repo: repo, patients: patients, log: log, now: time.Now}
}

// SetNotifier attaches the reminder dispatcher. It is wired after construction
// because the dispatcher records sent reminders back through this service.
func (s *Service) SetNotifier(n Notifier) { s.notifier = n }

// SetPatients attaches the patient email lookup. Wired after construction
// because the patients service in turn books through this service.
func (s *Service) SetPatients(d PatientDirectory) { s.patients = d }

func validate(a *Appointment) error {
	if a.PatientID <= 0 {
		return &jsonstore.ValidationError{Field: "patient_id", Reason: "must be a positive id"}
	}
	if !datePattern.MatchString(a.Date) {
		return &jsonstore.ValidationError{Field: "date", Reason: "must be YYYY-MM-DD"}
	}
	if _, err := time.Parse("2006-01-02", a.Date); err != nil {
		return &jsonstore.ValidationError{Field: "date", Reason: "not a valid date"}
	}
	if !slotPattern.MatchString(a.Slot) {
		return &jsonstore.ValidationError{Field: "slot", Reason: "must be HH:MM-HH:MM"}
	}
	start, err1 := time.Parse("15:04", a.Slot[:5])
	end, err2 := time.Parse("15:04", a.Slot[6:])
	if err1 != nil || err2 != nil || !start.Before(end) {
		return &jsonstore.ValidationError{Field: "slot", Reason: "start must precede end"}
	}
	if !validStatuses[a.Status] {
		return &jsonstore.ValidationError{Field: "status", Reason: "must be upcoming, completed, or cancelled"}
	}
	return nil
}

// Create validates and stores an appointment, then schedules its reminders
// when it is upcoming and a notifier is configured.
func (s *Service) Create(ctx context.Context, a *Appointment) error {
	if a.Status == "" {
		a.Status = StatusUpcoming
	}
	if err := validate(a); err != nil {
		return err
	}
	if a.RemindersSent == nil {
		a.RemindersSent = []string{}
	}
	now := s.now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now
	if err := s.repo.Create(ctx, a); err != nil {
		return err
	}
	s.log.Info().
		Int64("appointment_id", a.ID).
		Int64("patient_id", a.PatientID).
		Str("date", a.Date).
		Str("slot", a.Slot).
		Msg("appointment created")

	if s.notifier != nil && a.Status == StatusUpcoming {
		s.notifier.ScheduleReminders(a, s.emailFor(ctx, a.PatientID))
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Appointment, error) {
	return s.repo.GetByID(ctx, id)
}

// Update replaces an appointment wholesale, rescheduling or cancelling its
// reminders to match the new status.
func (s *Service) Update(ctx context.Context, a *Appointment) error {
	if err := validate(a); err != nil {
		return err
	}
	current, err := s.repo.GetByID(ctx, a.ID)
	if err != nil {
		return err
	}
	if a.RemindersSent == nil {
		a.RemindersSent = current.RemindersSent
	}
	a.CreatedAt = current.CreatedAt
	a.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, a); err != nil {
		return err
	}
	s.refreshReminders(ctx, a)
	return nil
}

// Patch merges the provided fields into the stored record and validates the
// merged result before persisting it.
func (s *Service) Patch(ctx context.Context, id int64, fields map[string]any) (*Appointment, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	merged, err := jsonstore.Merge[Appointment, *Appointment](*current, fields)
	if err != nil {
		return nil, err
	}
	merged.ID = id
	if err := validate(&merged); err != nil {
		return nil, err
	}
	merged.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, &merged); err != nil {
		return nil, err
	}
	s.refreshReminders(ctx, &merged)
	return &merged, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if s.notifier != nil {
		s.notifier.CancelReminders(id)
	}
	s.log.Info().Int64("appointment_id", id).Msg("appointment deleted")
	return nil
}

// List returns appointments matching the filter, preserving collection order.
// Date bounds are inclusive; ISO dates compare correctly as strings.
func (s *Service) List(ctx context.Context, f Filter) ([]*Appointment, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	var matched []*Appointment
	for _, a := range all {
		if f.PatientID != 0 && a.PatientID != f.PatientID {
			continue
		}
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		if f.DateFrom != "" && a.Date < f.DateFrom {
			continue
		}
		if f.DateTo != "" && a.Date > f.DateTo {
			continue
		}
		matched = append(matched, a)
	}
	return matched, nil
}

// AutoBook books the first free hourly slot for the patient, starting from
// the current time today and rolling forward day by day. It backs the intake
// booking that runs on patient registration.
func (s *Service) AutoBook(ctx context.Context, patientID int64, email string) error {
	now := s.now()
	for offset := 0; offset < autoBookHorizonDays; offset++ {
		day := now.AddDate(0, 0, offset)
		date := day.Format("2006-01-02")

		taken, err := s.takenSlots(ctx, date)
		if err != nil {
			return err
		}
		for hour := openingHour; hour < closingHour; hour++ {
			if offset == 0 && hour <= now.Hour() {
				continue
			}
			slot := fmt.Sprintf("%02d:00-%02d:00", hour, hour+1)
			if taken[slot] {
				continue
			}
			a := &Appointment{
				PatientID: patientID,
				Date:      date,
				Slot:      slot,
				Status:    StatusUpcoming,
				Notes:     "Auto-booked intake appointment",
			}
			return s.Create(ctx, a)
		}
	}
	return fmt.Errorf("no free slot within %d days", autoBookHorizonDays)
}

// takenSlots returns the slots already booked on a date, counting only
// upcoming appointments.
func (s *Service) takenSlots(ctx context.Context, date string) (map[string]bool, error) {
	booked, err := s.List(ctx, Filter{Status: StatusUpcoming, DateFrom: date, DateTo: date})
	if err != nil {
		return nil, err
	}
	taken := make(map[string]bool, len(booked))
	for _, a := range booked {
		taken[a.Slot] = true
	}
	return taken, nil
}

// SendReminder dispatches one reminder immediately, independent of the timer
// schedule. Duplicate kinds for the same appointment are suppressed.
func (s *Service) SendReminder(ctx context.Context, id int64, kind string) error {
	if kind == "" {
		kind = ReminderDue
	}
	if !validReminderKinds[kind] {
		return &jsonstore.ValidationError{Field: "kind", Reason: "unknown reminder kind"}
	}
	if s.notifier == nil {
		return fmt.Errorf("reminders are not configured")
	}
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return s.notifier.SendReminder(ctx, a, s.emailFor(ctx, a.PatientID), kind)
}

// MarkReminderSent records that a reminder kind went out for an appointment.
// It reports false when the kind was already recorded, which the dispatcher
// uses to suppress duplicates.
func (s *Service) MarkReminderSent(ctx context.Context, id int64, kind string) (bool, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	for _, sent := range a.RemindersSent {
		if sent == kind {
			return false, nil
		}
	}
	a.RemindersSent = append(a.RemindersSent, kind)
	a.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, a); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) refreshReminders(ctx context.Context, a *Appointment) {
	if s.notifier == nil {
		return
	}
	s.notifier.CancelReminders(a.ID)
	if a.Status == StatusUpcoming {
		s.notifier.ScheduleReminders(a, s.emailFor(ctx, a.PatientID))
	}
}

func (s *Service) emailFor(ctx context.Context, patientID int64) string {
	if s.patients == nil {
		return ""
	}
	email, err := s.patients.EmailFor(ctx, patientID)
	if err != nil {
		s.log.Warn().Err(err).Int64("patient_id", patientID).Msg("patient email lookup failed")
		return ""
	}
	return email
}
