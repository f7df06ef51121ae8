package insurance

import "time"

// Policy is one insurance coverage record for a patient.
type Policy struct {
	ID            int64     `json:"id"`
	PatientID     int64     `json:"patient_id"`
	Carrier       string    `json:"carrier"`
	MemberID      string    `json:"member_id"`
	GroupNumber   string    `json:"group_number,omitempty"`
	PlanType      string    `json:"plan_type,omitempty"`
	EffectiveDate string    `json:"effective_date"`
	ExpiryDate    string    `json:"expiry_date,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// GetID returns the record identifier.
func (p *Policy) GetID() int64 { return p.ID }

// SetID sets the record identifier.
func (p *Policy) SetID(id int64) { p.ID = id }

// ActiveOn reports whether the policy covers the given date. An empty expiry
// means open-ended coverage.
func (p *Policy) ActiveOn(date string) bool {
	if date < p.EffectiveDate {
		return false
	}
	return p.ExpiryDate == "" || date <= p.ExpiryDate
}
