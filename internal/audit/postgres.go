package audit

import (
	"context"
	"encoding/json"
	"io"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres appends events to the audit_events table.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *log.Logger) *Postgres {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Postgres{pool: pool, logger: logger}
}

func (p *Postgres) Append(ctx context.Context, e Event) error {
	meta, err := json.Marshal(e.Metadata)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO audit_events (id, event, customer_id, occurred_at, metadata)
VALUES ($1, $2, $3, $4, $5)
`
	if _, err := p.pool.Exec(ctx, q, e.ID, e.Event, e.CustomerID, e.OccurredAt, meta); err != nil {
		p.logger.Printf("audit repo: append event=%s customer=%s error=%v", e.Event, e.CustomerID, err)
		return err
	}
	return nil
}
