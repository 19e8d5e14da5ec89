package guard

import (
	"sync"
	"testing"
	"time"

	"chatcommerce/internal/audit"
)

type stubReporter struct {
	mu     sync.Mutex
	events []audit.Event
}

func (s *stubReporter) Record(e audit.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *stubReporter) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestGuard(cfg Config, rep *stubReporter) (*Guard, *fakeClock) {
	var r reporter
	if rep != nil {
		r = rep
	}
	g := New(cfg, r)
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	g.SetClock(clock.Now)
	return g, clock
}

func TestMessageRateLimitBoundary(t *testing.T) {
	rep := &stubReporter{}
	g, clock := newTestGuard(Config{MessageLimit: 3, MessageWindow: time.Minute}, rep)

	for i := 0; i < 3; i++ {
		if d := g.CanSendMessage("cust"); !d.Allowed {
			t.Fatalf("message %d unexpectedly blocked: %+v", i+1, d)
		}
	}
	d := g.CanSendMessage("cust")
	if d.Allowed {
		t.Fatal("4th message within window should be blocked")
	}
	if d.Reason != "message_rate" || d.Message == "" {
		t.Fatalf("unexpected decision %+v", d)
	}
	if rep.count() != 1 {
		t.Fatalf("expected 1 security event, got %d", rep.count())
	}

	clock.Advance(61 * time.Second)
	if d := g.CanSendMessage("cust"); !d.Allowed {
		t.Fatalf("message after window elapsed should be allowed: %+v", d)
	}
}

func TestMessageRateIsPerCustomer(t *testing.T) {
	g, _ := newTestGuard(Config{MessageLimit: 1, MessageWindow: time.Minute}, nil)
	if d := g.CanSendMessage("a"); !d.Allowed {
		t.Fatalf("first message blocked: %+v", d)
	}
	if d := g.CanSendMessage("b"); !d.Allowed {
		t.Fatalf("other customer blocked by a's window: %+v", d)
	}
	if d := g.CanSendMessage("a"); d.Allowed {
		t.Fatal("a's second message should be blocked")
	}
}

func TestOrderCap(t *testing.T) {
	rep := &stubReporter{}
	g, clock := newTestGuard(Config{OrderLimit: 2, OrderWindow: 24 * time.Hour}, rep)

	for i := 0; i < 2; i++ {
		if d := g.CanPlaceOrder("cust"); !d.Allowed {
			t.Fatalf("order %d unexpectedly blocked", i+1)
		}
		g.RecordOrder("cust")
	}
	if d := g.CanPlaceOrder("cust"); d.Allowed {
		t.Fatal("order beyond daily cap should be blocked")
	}
	if rep.count() != 1 {
		t.Fatalf("expected 1 security event, got %d", rep.count())
	}

	clock.Advance(25 * time.Hour)
	if d := g.CanPlaceOrder("cust"); !d.Allowed {
		t.Fatal("order after window elapsed should be allowed")
	}
}

func TestErrorCooldown(t *testing.T) {
	rep := &stubReporter{}
	g, clock := newTestGuard(Config{ErrorThreshold: 3, Cooldown: 5 * time.Minute}, rep)

	g.RecordError("cust")
	g.RecordError("cust")
	if in, _ := g.InCooldown("cust"); in {
		t.Fatal("cooldown before threshold reached")
	}
	g.RecordError("cust")
	in, msg := g.InCooldown("cust")
	if !in || msg == "" {
		t.Fatalf("expected cooldown after threshold, got in=%v msg=%q", in, msg)
	}
	if rep.count() != 1 {
		t.Fatalf("expected 1 security event, got %d", rep.count())
	}

	clock.Advance(5 * time.Minute)
	if in, _ := g.InCooldown("cust"); in {
		t.Fatal("cooldown should have elapsed")
	}
}

func TestClearErrorsResetsStreak(t *testing.T) {
	g, _ := newTestGuard(Config{ErrorThreshold: 2, Cooldown: time.Minute}, nil)
	g.RecordError("cust")
	g.ClearErrors("cust")
	g.RecordError("cust")
	if in, _ := g.InCooldown("cust"); in {
		t.Fatal("streak should have been reset by ClearErrors")
	}
}
