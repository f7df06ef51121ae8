package appointments

import "time"

// Appointment statuses.
const (
	StatusUpcoming  = "upcoming"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Appointment is one record in the appointments collection. PatientID is a
// weak reference; appointments outlive patient deletion.
type Appointment struct {
	ID            int64     `json:"id"`
	PatientID     int64     `json:"patient_id"`
	Date          string    `json:"date"`
	Slot          string    `json:"slot"`
	Status        string    `json:"status"`
	Notes         string    `json:"notes,omitempty"`
	RemindersSent []string  `json:"reminders_sent"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// GetID returns the record identifier.
func (a *Appointment) GetID() int64 { return a.ID }

// SetID sets the record identifier.
func (a *Appointment) SetID(id int64) { a.ID = id }
