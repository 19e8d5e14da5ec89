package seed

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"chatcommerce/internal/repository/settings"
)

type productSeed struct {
	ID          string
	Name        string
	PriceUSD    float64
	Stock       int
	Category    string
	Description string
}

// Apply inserts basic seed data for manual testing. It is idempotent via ON CONFLICT.
func Apply(ctx context.Context, pool *pgxpool.Pool) error {
	products := []productSeed{
		{
			ID:          "netflix",
			Name:        "Netflix Premium",
			PriceUSD:    5,
			Stock:       10,
			Category:    "streaming",
			Description: "1 month Netflix Premium account",
		},
		{
			ID:          "spotify",
			Name:        "Spotify Premium",
			PriceUSD:    2,
			Stock:       25,
			Category:    "streaming",
			Description: "1 month Spotify Premium voucher",
		},
		{
			ID:          "youtube",
			Name:        "YouTube Premium",
			PriceUSD:    3,
			Stock:       15,
			Category:    "streaming",
			Description: "1 month YouTube Premium family slot",
		},
	}

	for _, p := range products {
		if err := upsertProduct(ctx, pool, p); err != nil {
			return fmt.Errorf("upsert product %s: %w", p.ID, err)
		}
	}

	if err := ensureSetting(ctx, pool, settings.KeyUSDToIDRRate, fmt.Sprintf("%d", settings.DefaultUSDToIDRRate)); err != nil {
		return fmt.Errorf("ensure setting %s: %w", settings.KeyUSDToIDRRate, err)
	}

	return nil
}

func upsertProduct(ctx context.Context, pool *pgxpool.Pool, p productSeed) error {
	const q = `
INSERT INTO products (id, name, price_usd, stock, category, description)
VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''))
ON CONFLICT (id) DO UPDATE
SET name = EXCLUDED.name,
    price_usd = EXCLUDED.price_usd,
    stock = EXCLUDED.stock,
    category = EXCLUDED.category,
    description = EXCLUDED.description
`
	_, err := pool.Exec(ctx, q, p.ID, p.Name, p.PriceUSD, p.Stock, p.Category, p.Description)
	return err
}

func ensureSetting(ctx context.Context, pool *pgxpool.Pool, key, value string) error {
	const q = `
INSERT INTO settings (key, value)
VALUES ($1, $2)
ON CONFLICT (key) DO NOTHING
`
	_, err := pool.Exec(ctx, q, key, value)
	return err
}
