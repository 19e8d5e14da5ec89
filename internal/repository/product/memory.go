package product

import (
	"context"
	"sync"
	"time"

	"chatcommerce/internal/domain"
)

// Memory is an in-process catalog for tests and standalone mode. Insertion
// order is preserved so GetAll matches the postgres catalog ordering.
type Memory struct {
	mu    sync.RWMutex
	byID  map[string]domain.Product
	order []string
}

func NewMemory() *Memory {
	return &Memory{byID: make(map[string]domain.Product)}
}

var _ Repository = (*Memory)(nil)

func (m *Memory) GetByID(_ context.Context, id string) (*domain.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := p
	return &cp, nil
}

func (m *Memory) GetAll(_ context.Context) ([]domain.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Product, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.byID[id])
	}
	return out, nil
}

func (m *Memory) InStock(_ context.Context, id string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.byID[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	return p.Stock > 0, nil
}

func (m *Memory) DecrementStock(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if p.Stock <= 0 {
		return false, nil
	}
	p.Stock--
	m.byID[id] = p
	return true, nil
}

func (m *Memory) Add(_ context.Context, p domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	if _, exists := m.byID[p.ID]; !exists {
		m.order = append(m.order, p.ID)
	}
	m.byID[p.ID] = p
	return nil
}

func (m *Memory) Update(_ context.Context, p domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.byID[p.ID]
	if !ok {
		return domain.ErrNotFound
	}
	p.CreatedAt = existing.CreatedAt
	m.byID[p.ID] = p
	return nil
}

func (m *Memory) Remove(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.byID, id)
	for i, oid := range m.order {
		if oid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}
