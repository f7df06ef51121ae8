package patients

import (
	"context"
	"net/mail"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinicdesk/clinicdesk/internal/platform/jsonstore"
)

var (
	dobPattern   = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	phonePattern = regexp.MustCompile(`^\d{10}$`)
)

var validGenders = map[string]bool{
	"Male": true, "Female": true, "Other": true,
}

// Booker books an intake appointment for a newly registered patient. It is
// implemented by the appointments service; a nil booker disables auto-booking.
type Booker interface {
	AutoBook(ctx context.Context, patientID int64, email string) error
}

type Service struct {
	repo   Repository
	booker Booker
	log    zerolog.Logger
}

func NewService(repo Repository, booker Booker, log zerolog.Logger) *Service {
	return &Service{repo: repo, booker: booker, log: log}
}

func validate(p *Patient) error {
	name := strings.TrimSpace(p.Name)
	if len(name) < 2 || len(name) > 50 {
		return &jsonstore.ValidationError{Field: "name", Reason: "must be 2-50 characters"}
	}
	if !dobPattern.MatchString(p.DOB) {
		return &jsonstore.ValidationError{Field: "dob", Reason: "must be YYYY-MM-DD"}
	}
	if _, err := time.Parse("2006-01-02", p.DOB); err != nil {
		return &jsonstore.ValidationError{Field: "dob", Reason: "not a valid date"}
	}
	if !validGenders[p.Gender] {
		return &jsonstore.ValidationError{Field: "gender", Reason: "must be Male, Female, or Other"}
	}
	if !phonePattern.MatchString(p.Phone) {
		return &jsonstore.ValidationError{Field: "phone", Reason: "must be 10 digits"}
	}
	if _, err := mail.ParseAddress(p.Email); err != nil {
		return &jsonstore.ValidationError{Field: "email", Reason: "not a valid address"}
	}
	return nil
}

// Create validates and stores a new patient, then books their intake
// appointment when a booker is configured.
func (s *Service) Create(ctx context.Context, p *Patient) error {
	if err := validate(p); err != nil {
		return err
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	if err := s.repo.Create(ctx, p); err != nil {
		return err
	}
	s.log.Info().Int64("patient_id", p.ID).Msg("patient created")

	if s.booker != nil {
		if err := s.booker.AutoBook(ctx, p.ID, p.Email); err != nil {
			// Registration already succeeded; booking failure is reported
			// but does not roll the patient back.
			s.log.Error().Err(err).Int64("patient_id", p.ID).Msg("auto-book failed")
		}
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

// Update replaces a patient record wholesale.
func (s *Service) Update(ctx context.Context, p *Patient) error {
	if err := validate(p); err != nil {
		return err
	}
	p.UpdatedAt = time.Now().UTC()
	return s.repo.Update(ctx, p)
}

// Patch merges the provided fields into the stored record and validates the
// merged result before persisting it.
func (s *Service) Patch(ctx context.Context, id int64, fields map[string]any) (*Patient, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	merged, err := jsonstore.Merge[Patient, *Patient](*current, fields)
	if err != nil {
		return nil, err
	}
	merged.ID = id
	if err := validate(&merged); err != nil {
		return nil, err
	}
	merged.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, &merged); err != nil {
		return nil, err
	}
	return &merged, nil
}

// EmailFor returns a patient's contact email. The appointments service uses
// it to address reminder mail.
func (s *Service) EmailFor(ctx context.Context, id int64) (string, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return p.Email, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info().Int64("patient_id", id).Msg("patient deleted")
	return nil
}

func (s *Service) List(ctx context.Context) ([]*Patient, error) {
	return s.repo.List(ctx)
}

// Search returns patients whose name or id contains the query, case
// insensitively, preserving collection order.
func (s *Service) Search(ctx context.Context, query string) ([]*Patient, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return all, nil
	}
	var matched []*Patient
	for _, p := range all {
		if strings.Contains(strings.ToLower(p.Name), q) ||
			strings.Contains(strconv.FormatInt(p.ID, 10), q) {
			matched = append(matched, p)
		}
	}
	return matched, nil
}
