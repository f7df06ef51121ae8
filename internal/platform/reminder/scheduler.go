// Package reminder drives appointment reminder mail. Each upcoming
// appointment gets three reminders: one hour before, thirty minutes before,
// and one at the start of the slot. Sent kinds are recorded through the
// Recorder so restarts and overlapping timers never double-send.
package reminder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Reminder kinds, ordered from earliest to latest.
const (
	Kind60min = "Reminder-60min"
	Kind30min = "Reminder-30min"
	KindFinal = "Final-Reminder"
)

var offsets = []struct {
	kind   string
	before time.Duration
}{
	{Kind60min, 60 * time.Minute},
	{Kind30min, 30 * time.Minute},
	{KindFinal, 0},
}

// Appointment carries the fields the scheduler needs. Callers map their own
// appointment type onto it.
type Appointment struct {
	ID   int64
	Date string
	Slot string
}

// startTime resolves the slot opening to a local time.
func (a Appointment) startTime() (time.Time, error) {
	start := a.Slot
	if len(start) > 5 {
		start = start[:5]
	}
	return time.ParseInLocation("2006-01-02 15:04", a.Date+" "+start, time.Local)
}

// Recorder durably marks a reminder kind as sent. It reports false when the
// kind was already recorded for that appointment.
type Recorder interface {
	MarkReminderSent(ctx context.Context, appointmentID int64, kind string) (bool, error)
}

type Scheduler struct {
	mailer   Mailer
	recorder Recorder
	log      zerolog.Logger
	now      func() time.Time

	mu     sync.Mutex
	timers map[string]*time.Timer
}

func NewScheduler(mailer Mailer, recorder Recorder, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		mailer:   mailer,
		recorder: recorder,
		log:      log,
		now:      time.Now,
		timers:   map[string]*time.Timer{},
	}
}

func timerKey(id int64, kind string) string {
	return fmt.Sprintf("%d/%s", id, kind)
}

// Schedule arms timers for every reminder whose fire time is still ahead.
// Re-scheduling an appointment replaces its pending timers.
func (s *Scheduler) Schedule(a Appointment, email string) {
	start, err := a.startTime()
	if err != nil {
		s.log.Error().Err(err).Int64("appointment_id", a.ID).Msg("reminder schedule: bad slot")
		return
	}

	s.Cancel(a.ID)
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, off := range offsets {
		fireAt := start.Add(-off.before)
		if !fireAt.After(now) {
			continue
		}
		kind := off.kind
		key := timerKey(a.ID, kind)
		s.timers[key] = time.AfterFunc(fireAt.Sub(now), func() {
			s.mu.Lock()
			delete(s.timers, key)
			s.mu.Unlock()
			if err := s.send(context.Background(), a, email, kind); err != nil {
				s.log.Error().Err(err).
					Int64("appointment_id", a.ID).
					Str("kind", kind).
					Msg("reminder send failed")
			}
		})
	}
	s.log.Debug().Int64("appointment_id", a.ID).Time("start", start).Msg("reminders scheduled")
}

// SendNow fires one reminder immediately, bypassing the timers but not the
// dedupe record.
func (s *Scheduler) SendNow(ctx context.Context, a Appointment, email, kind string) error {
	return s.send(ctx, a, email, kind)
}

// Cancel drops all pending timers for an appointment.
func (s *Scheduler) Cancel(appointmentID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, off := range offsets {
		key := timerKey(appointmentID, off.kind)
		if t, ok := s.timers[key]; ok {
			t.Stop()
			delete(s.timers, key)
		}
	}
}

// Stop drops every pending timer. Called on server shutdown.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, t := range s.timers {
		t.Stop()
		delete(s.timers, key)
	}
}

func (s *Scheduler) send(ctx context.Context, a Appointment, email, kind string) error {
	fresh, err := s.recorder.MarkReminderSent(ctx, a.ID, kind)
	if err != nil {
		return err
	}
	if !fresh {
		s.log.Debug().Int64("appointment_id", a.ID).Str("kind", kind).Msg("reminder already sent")
		return nil
	}
	if email == "" {
		s.log.Warn().Int64("appointment_id", a.ID).Str("kind", kind).Msg("reminder recorded but patient has no email")
		return nil
	}
	subject := fmt.Sprintf("Appointment reminder: %s %s", a.Date, a.Slot)
	body := fmt.Sprintf("%s: your appointment is on %s at %s.", kind, a.Date, a.Slot)
	if err := s.mailer.Send(ctx, email, subject, body); err != nil {
		return err
	}
	s.log.Info().Int64("appointment_id", a.ID).Str("kind", kind).Str("to", email).Msg("reminder sent")
	return nil
}
