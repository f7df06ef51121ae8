package patients

import (
	"context"
	"path/filepath"

	"github.com/clinicdesk/clinicdesk/internal/platform/jsonstore"
)

// JSONRepository persists the patients collection in data/patients.json.
type JSONRepository struct {
	col *jsonstore.Collection[Patient, *Patient]
}

func NewJSONRepository(dataDir string) *JSONRepository {
	return &JSONRepository{
		col: jsonstore.NewCollection[Patient, *Patient](filepath.Join(dataDir, "patients.json")),
	}
}

func (r *JSONRepository) Create(ctx context.Context, p *Patient) error {
	stored, err := r.col.Create(ctx, *p)
	if err != nil {
		return err
	}
	*p = stored
	return nil
}

func (r *JSONRepository) GetByID(ctx context.Context, id int64) (*Patient, error) {
	p, err := r.col.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *JSONRepository) Update(ctx context.Context, p *Patient) error {
	stored, err := r.col.Update(ctx, p.ID, *p)
	if err != nil {
		return err
	}
	*p = stored
	return nil
}

func (r *JSONRepository) Delete(ctx context.Context, id int64) error {
	return r.col.Delete(ctx, id)
}

func (r *JSONRepository) List(ctx context.Context) ([]*Patient, error) {
	records, err := r.col.Load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*Patient, len(records))
	for i := range records {
		out[i] = &records[i]
	}
	return out, nil
}
