package order

import (
	"context"

	"chatcommerce/internal/domain"
)

// Repository is the append-only order history. Orders are written once at
// checkout and never updated; /stats and customer history read the
// incremental record instead of rescanning logs.
type Repository interface {
	Create(ctx context.Context, o domain.Order) error
	ListByCustomer(ctx context.Context, customerID string, limit int) ([]domain.Order, error)
	Stats(ctx context.Context) (domain.OrderStats, error)
}
