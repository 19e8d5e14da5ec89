package order

import (
	"context"
	"encoding/json"
	"io"
	"log"

	"chatcommerce/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &postgresRepo{pool: pool, logger: logger}
}

func (r *postgresRepo) Create(ctx context.Context, o domain.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO orders (order_id, customer_id, items, total_usd, total_idr, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
`
	if _, err := r.pool.Exec(ctx, q, o.OrderID, o.CustomerID, items, o.TotalUSD, o.TotalIDR, o.CreatedAt); err != nil {
		r.logger.Printf("order repo: create order_id=%s error=%v", o.OrderID, err)
		return err
	}
	r.logger.Printf("order repo: created order_id=%s customer=%s total_usd=%.2f", o.OrderID, o.CustomerID, o.TotalUSD)
	return nil
}

func (r *postgresRepo) ListByCustomer(ctx context.Context, customerID string, limit int) ([]domain.Order, error) {
	if limit <= 0 {
		limit = 10
	}
	const q = `
SELECT order_id, customer_id, items, total_usd, total_idr, created_at
FROM orders
WHERE customer_id = $1
ORDER BY created_at DESC
LIMIT $2
`
	rows, err := r.pool.Query(ctx, q, customerID, limit)
	if err != nil {
		r.logger.Printf("order repo: list customer=%s error=%v", customerID, err)
		return nil, err
	}
	defer rows.Close()

	var result []domain.Order
	for rows.Next() {
		var (
			o     domain.Order
			items []byte
		)
		if err := rows.Scan(&o.OrderID, &o.CustomerID, &items, &o.TotalUSD, &o.TotalIDR, &o.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(items, &o.Items); err != nil {
			return nil, err
		}
		result = append(result, o)
	}
	return result, rows.Err()
}

func (r *postgresRepo) Stats(ctx context.Context) (domain.OrderStats, error) {
	const q = `
SELECT COUNT(*), COALESCE(SUM(total_usd), 0), COALESCE(SUM(total_idr), 0), COALESCE(MAX(created_at), 'epoch'::timestamptz)
FROM orders
`
	var st domain.OrderStats
	err := r.pool.QueryRow(ctx, q).Scan(&st.Count, &st.RevenueUSD, &st.RevenueIDR, &st.LastOrderAt)
	if err != nil {
		r.logger.Printf("order repo: stats error=%v", err)
		return domain.OrderStats{}, err
	}
	return st, nil
}
