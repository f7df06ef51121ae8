package patients

import "time"

// InsuranceSummary is the carrier reference carried on the patient record.
// Full insurance records live in their own collection.
type InsuranceSummary struct {
	Carrier  string `json:"carrier"`
	MemberID string `json:"member_id"`
}

// Patient is one record in the patients collection.
type Patient struct {
	ID        int64             `json:"id"`
	Name      string            `json:"name"`
	DOB       string            `json:"dob"`
	Gender    string            `json:"gender"`
	Phone     string            `json:"phone"`
	Email     string            `json:"email"`
	Address   string            `json:"address,omitempty"`
	Insurance *InsuranceSummary `json:"insurance,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// GetID returns the record identifier.
func (p *Patient) GetID() int64 { return p.ID }

// SetID sets the record identifier.
func (p *Patient) SetID(id int64) { p.ID = id }

// Age returns the patient's age in whole years at the given time, or -1 when
// the date of birth cannot be parsed.
func (p *Patient) Age(now time.Time) int {
	dob, err := time.Parse("2006-01-02", p.DOB)
	if err != nil {
		return -1
	}
	years := now.Year() - dob.Year()
	if now.YearDay() < dob.YearDay() {
		years--
	}
	return years
}
