package forms

import (
	"context"
	"path/filepath"

	"github.com/clinicdesk/clinicdesk/internal/platform/jsonstore"
)

// JSONRepository persists form metadata in data/forms.json. The PDFs
// themselves live on disk under the upload directory.
type JSONRepository struct {
	col *jsonstore.Collection[Form, *Form]
}

func NewJSONRepository(dataDir string) *JSONRepository {
	return &JSONRepository{
		col: jsonstore.NewCollection[Form, *Form](filepath.Join(dataDir, "forms.json")),
	}
}

func (r *JSONRepository) Create(ctx context.Context, f *Form) error {
	stored, err := r.col.Create(ctx, *f)
	if err != nil {
		return err
	}
	*f = stored
	return nil
}

func (r *JSONRepository) GetByID(ctx context.Context, id int64) (*Form, error) {
	f, err := r.col.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *JSONRepository) Update(ctx context.Context, f *Form) error {
	stored, err := r.col.Update(ctx, f.ID, *f)
	if err != nil {
		return err
	}
	*f = stored
	return nil
}

func (r *JSONRepository) Delete(ctx context.Context, id int64) error {
	return r.col.Delete(ctx, id)
}

func (r *JSONRepository) List(ctx context.Context) ([]*Form, error) {
	records, err := r.col.Load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*Form, len(records))
	for i := range records {
		out[i] = &records[i]
	}
	return out, nil
}
