package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"chatcommerce/internal/domain"
)

const (
	// session:{customer_id} -> JSON session blob
	keySession = "session:%s"
	// order:{order_id} -> customer_id (index for approval lookup)
	keyOrderIndex = "order:%s"
)

var (
	// TTLSession is the inactivity window after which a session silently
	// resets to the menu step.
	TTLSession = 30 * time.Minute
	// TTLOrderIndex outlives the session so an admin can still locate a
	// stale order and get a clean "not pending" answer.
	TTLOrderIndex = 48 * time.Hour
)

// Redis stores sessions as JSON blobs with an inactivity TTL. Every write
// refreshes the TTL; an expired key reads back as a fresh menu session.
type Redis struct {
	rdb *redis.Client
}

func NewRedis(rdb *redis.Client) *Redis {
	return &Redis{rdb: rdb}
}

var _ Store = (*Redis)(nil)

func (r *Redis) Get(ctx context.Context, customerID string) (*domain.Session, error) {
	raw, err := r.rdb.Get(ctx, fmt.Sprintf(keySession, customerID)).Result()
	if errors.Is(err, redis.Nil) {
		return fresh(customerID), nil
	}
	if err != nil {
		return nil, err
	}
	var s domain.Session
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", customerID, err)
	}
	return &s, nil
}

func (r *Redis) put(ctx context.Context, s *domain.Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, fmt.Sprintf(keySession, s.CustomerID), raw, TTLSession).Err()
}

func (r *Redis) mutate(ctx context.Context, customerID string, fn func(*domain.Session)) error {
	s, err := r.Get(ctx, customerID)
	if err != nil {
		return err
	}
	fn(s)
	return r.put(ctx, s)
}

func (r *Redis) SetStep(ctx context.Context, customerID string, step domain.Step) error {
	return r.mutate(ctx, customerID, func(s *domain.Session) { s.Step = step })
}

// CompareAndSwapStep runs under WATCH so a concurrent write to the same
// session aborts the transaction and the swap reports false.
func (r *Redis) CompareAndSwapStep(ctx context.Context, customerID string, from, to domain.Step) (bool, error) {
	key := fmt.Sprintf(keySession, customerID)
	swapped := false
	err := r.rdb.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Result()
		s := fresh(customerID)
		if err == nil {
			if uerr := json.Unmarshal([]byte(raw), s); uerr != nil {
				return fmt.Errorf("decode session %s: %w", customerID, uerr)
			}
		} else if !errors.Is(err, redis.Nil) {
			return err
		}
		if s.Step != from {
			return nil
		}
		s.Step = to
		encoded, err := json.Marshal(s)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, TTLSession)
			return nil
		})
		if err == nil {
			swapped = true
		}
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return swapped, nil
}

func (r *Redis) AppendCart(ctx context.Context, customerID string, item domain.CartItem) error {
	return r.mutate(ctx, customerID, func(s *domain.Session) { s.Cart = append(s.Cart, item) })
}

func (r *Redis) ClearCart(ctx context.Context, customerID string) error {
	return r.mutate(ctx, customerID, func(s *domain.Session) { s.Cart = nil })
}

func (r *Redis) SetOrderID(ctx context.Context, customerID, orderID string) error {
	if err := r.rdb.Set(ctx, fmt.Sprintf(keyOrderIndex, orderID), customerID, TTLOrderIndex).Err(); err != nil {
		return err
	}
	return r.mutate(ctx, customerID, func(s *domain.Session) { s.OrderID = orderID })
}

func (r *Redis) SetPayment(ctx context.Context, customerID string, pm *domain.PaymentMethod) error {
	return r.mutate(ctx, customerID, func(s *domain.Session) { s.Payment = pm })
}

func (r *Redis) FindByOrderID(ctx context.Context, orderID string) (*domain.Session, error) {
	customerID, err := r.rdb.Get(ctx, fmt.Sprintf(keyOrderIndex, orderID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	s, err := r.Get(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if s.OrderID != orderID {
		return nil, domain.ErrNotFound
	}
	return s, nil
}

func (r *Redis) CustomerIDs(ctx context.Context) ([]string, error) {
	var (
		cursor uint64
		ids    []string
	)
	prefix := fmt.Sprintf(keySession, "")
	for {
		keys, next, err := r.rdb.Scan(ctx, cursor, prefix+"*", 100).Result()
		if err != nil {
			return nil, err
		}
		for _, k := range keys {
			ids = append(ids, strings.TrimPrefix(k, prefix))
		}
		if next == 0 {
			return ids, nil
		}
		cursor = next
	}
}
