package forms

import "time"

// Form is an uploaded intake document tied to a patient. FilePath points at
// the stored PDF under the upload directory.
type Form struct {
	ID         int64     `json:"id"`
	PatientID  int64     `json:"patient_id"`
	FileName   string    `json:"file_name"`
	FilePath   string    `json:"file_path"`
	PageCount  int       `json:"page_count"`
	UploadDate time.Time `json:"upload_date"`
	Processed  bool      `json:"processed"`
	Notes      string    `json:"notes,omitempty"`
}

// GetID returns the record identifier.
func (f *Form) GetID() int64 { return f.ID }

// SetID sets the record identifier.
func (f *Form) SetID(id int64) { f.ID = id }
