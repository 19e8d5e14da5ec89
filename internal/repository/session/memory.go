package session

import (
	"context"
	"sync"

	"chatcommerce/internal/domain"
)

// Memory is the in-process session store. Sessions are copied on read so
// callers never share mutable state with the map.
type Memory struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
}

func NewMemory() *Memory {
	return &Memory{sessions: make(map[string]*domain.Session)}
}

var _ Store = (*Memory)(nil)

func fresh(customerID string) *domain.Session {
	return &domain.Session{CustomerID: customerID, Step: domain.StepMenu}
}

func copySession(s *domain.Session) *domain.Session {
	cp := *s
	cp.Cart = make([]domain.CartItem, len(s.Cart))
	copy(cp.Cart, s.Cart)
	if s.Payment != nil {
		pm := *s.Payment
		cp.Payment = &pm
	}
	return &cp
}

func (m *Memory) Get(_ context.Context, customerID string) (*domain.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sessions[customerID]; ok {
		return copySession(s), nil
	}
	return fresh(customerID), nil
}

func (m *Memory) ensure(customerID string) *domain.Session {
	if s, ok := m.sessions[customerID]; ok {
		return s
	}
	s := fresh(customerID)
	m.sessions[customerID] = s
	return s
}

func (m *Memory) SetStep(_ context.Context, customerID string, step domain.Step) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensure(customerID).Step = step
	return nil
}

func (m *Memory) CompareAndSwapStep(_ context.Context, customerID string, from, to domain.Step) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.ensure(customerID)
	if s.Step != from {
		return false, nil
	}
	s.Step = to
	return true, nil
}

func (m *Memory) AppendCart(_ context.Context, customerID string, item domain.CartItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.ensure(customerID)
	s.Cart = append(s.Cart, item)
	return nil
}

func (m *Memory) ClearCart(_ context.Context, customerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensure(customerID).Cart = nil
	return nil
}

func (m *Memory) SetOrderID(_ context.Context, customerID, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensure(customerID).OrderID = orderID
	return nil
}

func (m *Memory) SetPayment(_ context.Context, customerID string, pm *domain.PaymentMethod) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensure(customerID).Payment = pm
	return nil
}

func (m *Memory) FindByOrderID(_ context.Context, orderID string) (*domain.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.sessions {
		if s.OrderID == orderID {
			return copySession(s), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *Memory) CustomerIDs(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		out = append(out, id)
	}
	return out, nil
}

// Reset drops a customer's session, emulating an inactivity expiry.
func (m *Memory) Reset(customerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, customerID)
}
