// Package guard enforces abuse controls: a sliding-window message-rate
// limit, an error cooldown, and a daily order cap. Every rejection is
// reported as a security event before the block message is returned.
package guard

import (
	"fmt"
	"sync"
	"time"

	"chatcommerce/internal/audit"
)

// Config holds the thresholds. Zero limits disable the corresponding check.
type Config struct {
	MessageLimit   int
	MessageWindow  time.Duration
	OrderLimit     int
	OrderWindow    time.Duration
	ErrorThreshold int
	Cooldown       time.Duration
}

// Defaults returns the stock thresholds: 20 messages per minute, 5 orders
// per day, 5-minute cooldown after 3 consecutive handler errors.
func Defaults() Config {
	return Config{
		MessageLimit:   20,
		MessageWindow:  time.Minute,
		OrderLimit:     5,
		OrderWindow:    24 * time.Hour,
		ErrorThreshold: 3,
		Cooldown:       5 * time.Minute,
	}
}

// Decision is the outcome of a guard check.
type Decision struct {
	Allowed bool
	Reason  string
	Message string
}

type reporter interface {
	Record(e audit.Event)
}

// Guard tracks per-customer rate windows and error streaks.
type Guard struct {
	cfg    Config
	report reporter
	now    func() time.Time

	mu            sync.Mutex
	messages      map[string][]time.Time
	orders        map[string][]time.Time
	errStreak     map[string]int
	cooldownUntil map[string]time.Time
}

func New(cfg Config, report reporter) *Guard {
	return &Guard{
		cfg:           cfg,
		report:        report,
		now:           time.Now,
		messages:      make(map[string][]time.Time),
		orders:        make(map[string][]time.Time),
		errStreak:     make(map[string]int),
		cooldownUntil: make(map[string]time.Time),
	}
}

// SetClock replaces the time source, for tests.
func (g *Guard) SetClock(now func() time.Time) { g.now = now }

// CanSendMessage records the inbound message and checks it against the
// trailing message window.
func (g *Guard) CanSendMessage(customerID string) Decision {
	if g.cfg.MessageLimit <= 0 {
		return Decision{Allowed: true}
	}
	g.mu.Lock()
	now := g.now()
	window := prune(g.messages[customerID], now.Add(-g.cfg.MessageWindow))
	window = append(window, now)
	g.messages[customerID] = window
	count := len(window)
	g.mu.Unlock()

	if count <= g.cfg.MessageLimit {
		return Decision{Allowed: true}
	}
	g.security(customerID, "message_rate", map[string]any{
		"limit":  g.cfg.MessageLimit,
		"window": g.cfg.MessageWindow.String(),
		"count":  count,
	})
	wait := g.cfg.MessageWindow.Round(time.Second)
	return Decision{
		Allowed: false,
		Reason:  "message_rate",
		Message: fmt.Sprintf("You are sending messages too quickly. Please wait up to %s and try again.", wait),
	}
}

// CanPlaceOrder checks completed checkouts against the daily cap. It does
// not record anything; call RecordOrder after a successful checkout.
func (g *Guard) CanPlaceOrder(customerID string) Decision {
	if g.cfg.OrderLimit <= 0 {
		return Decision{Allowed: true}
	}
	g.mu.Lock()
	now := g.now()
	window := prune(g.orders[customerID], now.Add(-g.cfg.OrderWindow))
	g.orders[customerID] = window
	count := len(window)
	g.mu.Unlock()

	if count < g.cfg.OrderLimit {
		return Decision{Allowed: true}
	}
	g.security(customerID, "order_cap", map[string]any{
		"limit":  g.cfg.OrderLimit,
		"window": g.cfg.OrderWindow.String(),
		"count":  count,
	})
	return Decision{
		Allowed: false,
		Reason:  "order_cap",
		Message: fmt.Sprintf("Daily order limit reached (%d). Please come back tomorrow.", g.cfg.OrderLimit),
	}
}

// RecordOrder counts a completed checkout toward the daily cap.
func (g *Guard) RecordOrder(customerID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.orders[customerID] = append(g.orders[customerID], g.now())
}

// InCooldown reports whether the customer is blocked by a prior error
// streak, with a user-facing message when blocked.
func (g *Guard) InCooldown(customerID string) (bool, string) {
	g.mu.Lock()
	until, ok := g.cooldownUntil[customerID]
	now := g.now()
	if ok && !now.Before(until) {
		delete(g.cooldownUntil, customerID)
		ok = false
	}
	g.mu.Unlock()

	if !ok {
		return false, ""
	}
	remaining := until.Sub(now).Round(time.Second)
	return true, fmt.Sprintf("Temporarily paused after repeated errors. Try again in %s.", remaining)
}

// RecordError advances the customer's error streak; reaching the threshold
// starts a cooldown and resets the streak.
func (g *Guard) RecordError(customerID string) {
	if g.cfg.ErrorThreshold <= 0 {
		return
	}
	g.mu.Lock()
	g.errStreak[customerID]++
	tripped := g.errStreak[customerID] >= g.cfg.ErrorThreshold
	if tripped {
		g.errStreak[customerID] = 0
		g.cooldownUntil[customerID] = g.now().Add(g.cfg.Cooldown)
	}
	g.mu.Unlock()

	if tripped {
		g.security(customerID, "error_cooldown", map[string]any{
			"threshold": g.cfg.ErrorThreshold,
			"cooldown":  g.cfg.Cooldown.String(),
		})
	}
}

// ClearErrors resets the streak after a successfully handled message.
func (g *Guard) ClearErrors(customerID string) {
	g.mu.Lock()
	delete(g.errStreak, customerID)
	g.mu.Unlock()
}

func (g *Guard) security(customerID, reason string, meta map[string]any) {
	if g.report == nil {
		return
	}
	meta["reason"] = reason
	g.report.Record(audit.New(audit.EventSecurity, customerID, meta))
}

func prune(ts []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(ts) && !ts[i].After(cutoff) {
		i++
	}
	return ts[i:]
}
