package insurance

import "context"

type Repository interface {
	Create(ctx context.Context, p *Policy) error
	GetByID(ctx context.Context, id int64) (*Policy, error)
	Update(ctx context.Context, p *Policy) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]*Policy, error)
}
