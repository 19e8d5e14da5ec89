package audit

import (
	"context"
	"io"
	"log"
)

// Recorder decouples request handling from audit durability: Record enqueues
// and returns immediately, a single goroutine drains the inbox into the sink.
// A full inbox drops the event rather than blocking the response path.
type Recorder struct {
	sink    Sink
	inbox   chan Event
	closeCh chan struct{}
	logger  *log.Logger
}

func NewRecorder(sink Sink, buf int, logger *log.Logger) *Recorder {
	if buf <= 0 {
		buf = 256
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Recorder{
		sink:    sink,
		inbox:   make(chan Event, buf),
		closeCh: make(chan struct{}),
		logger:  logger,
	}
}

// Start launches the drain goroutine. Cancel ctx to flush and stop.
func (r *Recorder) Start(ctx context.Context) {
	go func() {
		defer close(r.closeCh)
		for {
			select {
			case <-ctx.Done():
				for {
					select {
					case e := <-r.inbox:
						r.append(e)
					default:
						return
					}
				}
			case e := <-r.inbox:
				r.append(e)
			}
		}
	}()
}

func (r *Recorder) append(e Event) {
	if err := r.sink.Append(context.Background(), e); err != nil {
		r.logger.Printf("audit: append event=%s customer=%s error=%v", e.Event, e.CustomerID, err)
	}
}

// Record enqueues without blocking; drops when the inbox is full.
func (r *Recorder) Record(e Event) {
	select {
	case r.inbox <- e:
	default:
		r.logger.Printf("audit: inbox full, dropped event=%s customer=%s", e.Event, e.CustomerID)
	}
}

// WaitClosed blocks until the drain goroutine has exited.
func (r *Recorder) WaitClosed() { <-r.closeCh }
