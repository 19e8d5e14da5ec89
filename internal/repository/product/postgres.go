package product

import (
	"context"
	"errors"
	"io"
	"log"

	"chatcommerce/internal/domain"
	"github.com/jackc/pgx/v5"
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

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	const q = `
SELECT id, name, price_usd, stock, COALESCE(category, ''), COALESCE(description, ''), created_at
FROM products
WHERE id = $1
`
	var p domain.Product
	err := r.pool.QueryRow(ctx, q, id).Scan(&p.ID, &p.Name, &p.PriceUSD, &p.Stock, &p.Category, &p.Description, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Printf("product repo: get id=%s error=%v", id, err)
		return nil, err
	}
	return &p, nil
}

func (r *postgresRepo) GetAll(ctx context.Context) ([]domain.Product, error) {
	const q = `
SELECT id, name, price_usd, stock, COALESCE(category, ''), COALESCE(description, ''), created_at
FROM products
ORDER BY created_at ASC, id ASC
`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		r.logger.Printf("product repo: list error=%v", err)
		return nil, err
	}
	defer rows.Close()

	var result []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.PriceUSD, &p.Stock, &p.Category, &p.Description, &p.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		r.logger.Printf("product repo: list rows error=%v", err)
		return nil, err
	}
	return result, nil
}

func (r *postgresRepo) InStock(ctx context.Context, id string) (bool, error) {
	const q = `SELECT stock > 0 FROM products WHERE id = $1`
	var in bool
	err := r.pool.QueryRow(ctx, q, id).Scan(&in)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, domain.ErrNotFound
		}
		return false, err
	}
	return in, nil
}

// DecrementStock relies on the conditional UPDATE for atomicity: the row is
// only touched when stock is still positive, so concurrent deliveries can
// never drive it negative.
func (r *postgresRepo) DecrementStock(ctx context.Context, id string) (bool, error) {
	const q = `UPDATE products SET stock = stock - 1 WHERE id = $1 AND stock > 0`
	ct, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		r.logger.Printf("product repo: decrement id=%s error=%v", id, err)
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

func (r *postgresRepo) Add(ctx context.Context, p domain.Product) error {
	const q = `
INSERT INTO products (id, name, price_usd, stock, category, description)
VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''))
`
	if _, err := r.pool.Exec(ctx, q, p.ID, p.Name, p.PriceUSD, p.Stock, p.Category, p.Description); err != nil {
		r.logger.Printf("product repo: add id=%s error=%v", p.ID, err)
		return err
	}
	r.logger.Printf("product repo: added id=%s", p.ID)
	return nil
}

func (r *postgresRepo) Update(ctx context.Context, p domain.Product) error {
	const q = `
UPDATE products
SET name = $2, price_usd = $3, stock = $4, category = NULLIF($5, ''), description = NULLIF($6, '')
WHERE id = $1
`
	ct, err := r.pool.Exec(ctx, q, p.ID, p.Name, p.PriceUSD, p.Stock, p.Category, p.Description)
	if err != nil {
		r.logger.Printf("product repo: update id=%s error=%v", p.ID, err)
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) Remove(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		r.logger.Printf("product repo: remove id=%s error=%v", id, err)
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	r.logger.Printf("product repo: removed id=%s", id)
	return nil
}
