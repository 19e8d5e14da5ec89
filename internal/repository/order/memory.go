package order

import (
	"context"
	"sync"

	"chatcommerce/internal/domain"
)

// Memory keeps order history in-process for tests and standalone mode.
type Memory struct {
	mu     sync.RWMutex
	orders []domain.Order
}

func NewMemory() *Memory {
	return &Memory{}
}

var _ Repository = (*Memory)(nil)

func (m *Memory) Create(_ context.Context, o domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders = append(m.orders, o)
	return nil
}

func (m *Memory) ListByCustomer(_ context.Context, customerID string, limit int) ([]domain.Order, error) {
	if limit <= 0 {
		limit = 10
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Order
	for i := len(m.orders) - 1; i >= 0 && len(out) < limit; i-- {
		if m.orders[i].CustomerID == customerID {
			out = append(out, m.orders[i])
		}
	}
	return out, nil
}

func (m *Memory) Stats(_ context.Context) (domain.OrderStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var st domain.OrderStats
	for _, o := range m.orders {
		st.Count++
		st.RevenueUSD += o.TotalUSD
		st.RevenueIDR += o.TotalIDR
		if o.CreatedAt.After(st.LastOrderAt) {
			st.LastOrderAt = o.CreatedAt
		}
	}
	return st, nil
}
