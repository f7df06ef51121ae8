package appointments

import (
	"context"
	"path/filepath"

	"github.com/clinicdesk/clinicdesk/internal/platform/jsonstore"
)

// JSONRepository persists the appointments collection in
// data/appointments.json.
type JSONRepository struct {
	col *jsonstore.Collection[Appointment, *Appointment]
}

func NewJSONRepository(dataDir string) *JSONRepository {
	return &JSONRepository{
		col: jsonstore.NewCollection[Appointment, *Appointment](filepath.Join(dataDir, "appointments.json")),
	}
}

func (r *JSONRepository) Create(ctx context.Context, a *Appointment) error {
	stored, err := r.col.Create(ctx, *a)
	if err != nil {
		return err
	}
	*a = stored
	return nil
}

func (r *JSONRepository) GetByID(ctx context.Context, id int64) (*Appointment, error) {
	a, err := r.col.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *JSONRepository) Update(ctx context.Context, a *Appointment) error {
	stored, err := r.col.Update(ctx, a.ID, *a)
	if err != nil {
		return err
	}
	*a = stored
	return nil
}

func (r *JSONRepository) Delete(ctx context.Context, id int64) error {
	return r.col.Delete(ctx, id)
}

func (r *JSONRepository) List(ctx context.Context) ([]*Appointment, error) {
	records, err := r.col.Load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*Appointment, len(records))
	for i := range records {
		out[i] = &records[i]
	}
	return out, nil
}
