package audit

import "context"

// Tee fans an event out to several sinks; the first error wins but every
// sink still sees the event.
type Tee []Sink

func (t Tee) Append(ctx context.Context, e Event) error {
	var first error
	for _, s := range t {
		if err := s.Append(ctx, e); err != nil && first == nil {
			first = err
		}
	}
	return first
}
