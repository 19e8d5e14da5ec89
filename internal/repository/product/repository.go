package product

import (
	"context"

	"chatcommerce/internal/domain"
)

// Repository is the product catalog. GetAll must return products in a
// stable catalog order (oldest first): the resolver's tie-break depends
// on it.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	GetAll(ctx context.Context) ([]domain.Product, error)
	InStock(ctx context.Context, id string) (bool, error)
	// DecrementStock atomically decrements by one when stock is positive.
	// It reports whether a decrement happened; stock never goes negative.
	DecrementStock(ctx context.Context, id string) (bool, error)
	Add(ctx context.Context, p domain.Product) error
	Update(ctx context.Context, p domain.Product) error
	Remove(ctx context.Context, id string) error
}
