package forms

import "context"

type Repository interface {
	Create(ctx context.Context, f *Form) error
	GetByID(ctx context.Context, id int64) (*Form, error)
	Update(ctx context.Context, f *Form) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]*Form, error)
}
