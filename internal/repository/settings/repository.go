package settings

import "context"

// Well-known keys.
const (
	KeyUSDToIDRRate = "usd_to_idr_rate"
)

// DefaultUSDToIDRRate applies when the key has never been set.
const DefaultUSDToIDRRate = 15800

// Repository is a key/value store for runtime-tunable settings, editable
// through the /settings admin command. Get returns domain.ErrNotFound for
// keys that were never set.
type Repository interface {
	Get(ctx context.Context, key string) (string, error)
	GetAll(ctx context.Context) (map[string]string, error)
	Set(ctx context.Context, key, value string) error
}
