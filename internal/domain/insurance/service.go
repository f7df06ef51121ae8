package insurance

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinicdesk/clinicdesk/internal/platform/jsonstore"
)

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

type Service struct {
	repo Repository
	log  zerolog.Logger
}

func NewService(repo Repository, log zerolog.Logger) *Service {
	return &Service{repo: repo, log: log}
}

func validate(p *Policy) error {
	if p.PatientID <= 0 {
		return &jsonstore.ValidationError{Field: "patient_id", Reason: "must be a positive id"}
	}
	if strings.TrimSpace(p.Carrier) == "" {
		return &jsonstore.ValidationError{Field: "carrier", Reason: "must not be empty"}
	}
	if strings.TrimSpace(p.MemberID) == "" {
		return &jsonstore.ValidationError{Field: "member_id", Reason: "must not be empty"}
	}
	if !datePattern.MatchString(p.EffectiveDate) {
		return &jsonstore.ValidationError{Field: "effective_date", Reason: "must be YYYY-MM-DD"}
	}
	if _, err := time.Parse("2006-01-02", p.EffectiveDate); err != nil {
		return &jsonstore.ValidationError{Field: "effective_date", Reason: "not a valid date"}
	}
	if p.ExpiryDate != "" {
		if !datePattern.MatchString(p.ExpiryDate) {
			return &jsonstore.ValidationError{Field: "expiry_date", Reason: "must be YYYY-MM-DD"}
		}
		if _, err := time.Parse("2006-01-02", p.ExpiryDate); err != nil {
			return &jsonstore.ValidationError{Field: "expiry_date", Reason: "not a valid date"}
		}
		if p.ExpiryDate < p.EffectiveDate {
			return &jsonstore.ValidationError{Field: "expiry_date", Reason: "must not precede effective_date"}
		}
	}
	return nil
}

func (s *Service) Create(ctx context.Context, p *Policy) error {
	if err := validate(p); err != nil {
		return err
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	if err := s.repo.Create(ctx, p); err != nil {
		return err
	}
	s.log.Info().Int64("policy_id", p.ID).Int64("patient_id", p.PatientID).Str("carrier", p.Carrier).Msg("policy created")
	return nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Policy, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, p *Policy) error {
	if err := validate(p); err != nil {
		return err
	}
	p.UpdatedAt = time.Now().UTC()
	return s.repo.Update(ctx, p)
}

// Patch merges the provided fields into the stored record and validates the
// merged result before persisting it.
func (s *Service) Patch(ctx context.Context, id int64, fields map[string]any) (*Policy, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	merged, err := jsonstore.Merge[Policy, *Policy](*current, fields)
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

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info().Int64("policy_id", id).Msg("policy deleted")
	return nil
}

// ForPatient returns a patient's policies in collection order.
func (s *Service) ForPatient(ctx context.Context, patientID int64) ([]*Policy, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	var matched []*Policy
	for _, p := range all {
		if p.PatientID == patientID {
			matched = append(matched, p)
		}
	}
	return matched, nil
}

// Search returns policies whose carrier contains the query, case
// insensitively, sorted by carrier then id. An empty query returns all
// policies in collection order.
func (s *Service) Search(ctx context.Context, carrier string) ([]*Policy, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(carrier))
	if q == "" {
		return all, nil
	}
	var matched []*Policy
	for _, p := range all {
		if strings.Contains(strings.ToLower(p.Carrier), q) {
			matched = append(matched, p)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		ci, cj := strings.ToLower(matched[i].Carrier), strings.ToLower(matched[j].Carrier)
		if ci != cj {
			return ci < cj
		}
		return matched[i].ID < matched[j].ID
	})
	return matched, nil
}

// Carriers returns the distinct carrier names present in the collection,
// sorted. The dashboard uses it to populate its insurance filter.
func (s *Service) Carriers(ctx context.Context) ([]string, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var carriers []string
	for _, p := range all {
		if !seen[p.Carrier] {
			seen[p.Carrier] = true
			carriers = append(carriers, p.Carrier)
		}
	}
	sort.Strings(carriers)
	return carriers, nil
}
