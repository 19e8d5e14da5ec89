package audit

import (
	"context"
	"sync"
)

// Memory is an in-process sink used by tests and standalone mode.
type Memory struct {
	mu     sync.Mutex
	events []Event
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Append(_ context.Context, e Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

// Events returns a copy of everything appended so far.
func (m *Memory) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

// ByEvent filters recorded events by name.
func (m *Memory) ByEvent(name string) []Event {
	var out []Event
	for _, e := range m.Events() {
		if e.Event == name {
			out = append(out, e)
		}
	}
	return out
}
