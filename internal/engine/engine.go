// Package engine is the conversation state machine: it routes sanitized
// customer input to a step handler, runs the checkout pipeline, verifies
// payment through the gateway, and executes admin approval and delivery.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"chatcommerce/internal/audit"
	"chatcommerce/internal/cache"
	"chatcommerce/internal/domain"
	"chatcommerce/internal/gateway"
	"chatcommerce/internal/guard"
	"chatcommerce/internal/repository/order"
	"chatcommerce/internal/repository/product"
	"chatcommerce/internal/repository/session"
	"chatcommerce/internal/repository/settings"
	"chatcommerce/internal/resolver"
)

// Allowlist authorizes admin commands.
type Allowlist interface {
	IsAdmin(id string) bool
}

// StaticAllowlist is a fixed set of admin ids.
type StaticAllowlist map[string]bool

func NewStaticAllowlist(ids []string) StaticAllowlist {
	out := make(StaticAllowlist, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out
}

func (a StaticAllowlist) IsAdmin(id string) bool { return a[id] }

// Recorder receives audit events without blocking the response path.
type Recorder interface {
	Record(e audit.Event)
}

// Deps are the engine's collaborators. All are required except Logger.
type Deps struct {
	Sessions session.Store
	Catalog  product.Repository
	Orders   order.Repository
	Settings settings.Repository
	Gateway  gateway.Gateway
	Guard    *guard.Guard
	Audit    Recorder
	Admins   Allowlist
	Logger   *log.Logger
}

const catalogCacheKey = "catalog"

// Engine drives one customer conversation per Handle call. Calls for the
// same customer are serialized by a per-customer lock so a double-tap
// cannot interleave a stale step read with a write based on it.
type Engine struct {
	deps Deps

	catalogCache *cache.TTL[[]domain.Product]
	rateCache    *cache.TTL[float64]

	now      func() time.Time
	orderSeq atomic.Uint64

	locksMu sync.Mutex
	locks   map[string]*customerLock
}

// customerLock is refcounted so the map only holds entries for customers
// with a message in flight.
type customerLock struct {
	mu   sync.Mutex
	refs int
}

func New(deps Deps) *Engine {
	if deps.Logger == nil {
		deps.Logger = log.New(io.Discard, "", 0)
	}
	return &Engine{
		deps:         deps,
		catalogCache: cache.NewTTL[[]domain.Product](30 * time.Second),
		rateCache:    cache.NewTTL[float64](time.Minute),
		now:          time.Now,
		locks:        make(map[string]*customerLock),
	}
}

func (e *Engine) lock(customerID string) func() {
	e.locksMu.Lock()
	cl, ok := e.locks[customerID]
	if !ok {
		cl = &customerLock{}
		e.locks[customerID] = cl
	}
	cl.refs++
	e.locksMu.Unlock()
	cl.mu.Lock()
	return func() {
		cl.mu.Unlock()
		e.locksMu.Lock()
		cl.refs--
		if cl.refs == 0 {
			delete(e.locks, customerID)
		}
		e.locksMu.Unlock()
	}
}

// Handle processes one inbound message and always produces a reply; raw
// internal errors never reach the customer.
func (e *Engine) Handle(ctx context.Context, customerID, text string) domain.Reply {
	unlock := e.lock(customerID)
	defer unlock()

	if d := e.deps.Guard.CanSendMessage(customerID); !d.Allowed {
		return domain.Text(d.Message)
	}
	if in, msg := e.deps.Guard.InCooldown(customerID); in {
		return domain.Text(msg)
	}

	input := sanitize(text)
	reply, err := e.routeSafe(ctx, customerID, input)
	if err != nil {
		e.deps.Guard.RecordError(customerID)
		e.deps.Logger.Printf("engine: handle customer=%s input=%q error=%v", customerID, input, err)
		return domain.Text(msgApology)
	}
	e.deps.Guard.ClearErrors(customerID)
	return reply
}

// routeSafe converts handler panics into errors so one bad message cannot
// take the process down.
func (e *Engine) routeSafe(ctx context.Context, customerID, input string) (reply domain.Reply, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return e.route(ctx, customerID, input)
}

func (e *Engine) route(ctx context.Context, customerID, input string) (domain.Reply, error) {
	if input == "" {
		return domain.Text(msgMenu), nil
	}
	lower := strings.ToLower(input)

	// Admin commands short-circuit routing regardless of step.
	if strings.HasPrefix(lower, "/") {
		return e.handleAdmin(ctx, customerID, input)
	}

	sess, err := e.deps.Sessions.Get(ctx, customerID)
	if err != nil {
		return domain.Reply{}, err
	}
	step, known := domain.ParseStep(string(sess.Step))
	if !known {
		e.deps.Logger.Printf("engine: unknown step %q for customer=%s, falling back to menu", sess.Step, customerID)
		e.deps.Audit.Record(audit.New(audit.EventSecurity, customerID, map[string]any{
			"reason": "unknown_step",
			"step":   string(sess.Step),
		}))
		if err := e.deps.Sessions.SetStep(ctx, customerID, domain.StepMenu); err != nil {
			return domain.Reply{}, err
		}
	}

	// Global commands short-circuit step dispatch, but cannot leave the
	// terminal approval step: once a customer has submitted payment proof,
	// their session must stay approvable until an admin acts on it.
	switch lower {
	case "menu", "help":
		if step == domain.StepAwaitingApproval {
			return domain.Text(msgAwaitingApproval), nil
		}
		if err := e.deps.Sessions.SetStep(ctx, customerID, domain.StepMenu); err != nil {
			return domain.Reply{}, err
		}
		return domain.Text(msgMenu), nil
	case "cart":
		if step == domain.StepAwaitingApproval {
			return domain.Text(msgAwaitingApproval), nil
		}
		return e.handleCartCommand(ctx, customerID)
	case "history":
		return e.handleHistory(ctx, customerID)
	}

	switch step {
	case domain.StepMenu:
		return e.handleMenu(ctx, customerID, lower)
	case domain.StepBrowsing:
		return e.handleBrowsing(ctx, customerID, input)
	case domain.StepCheckout:
		return e.handleCheckout(ctx, sess, lower)
	case domain.StepSelectPayment:
		return e.handleSelectPayment(ctx, sess, lower)
	case domain.StepSelectBank:
		return e.handleSelectBank(ctx, sess, lower)
	case domain.StepAwaitingPayment:
		return e.handleAwaitingPayment(ctx, sess, lower)
	case domain.StepAwaitingApproval:
		return domain.Text(msgAwaitingApproval), nil
	}
	return domain.Text(msgMenu), nil
}

func (e *Engine) handleMenu(ctx context.Context, customerID, lower string) (domain.Reply, error) {
	switch lower {
	case "shop", "browse", "products", "buy", "list":
		catalog, err := e.catalog(ctx)
		if err != nil {
			return domain.Reply{}, err
		}
		if err := e.deps.Sessions.SetStep(ctx, customerID, domain.StepBrowsing); err != nil {
			return domain.Reply{}, err
		}
		return domain.Text(renderCatalog(catalog)), nil
	}
	return domain.Text(msgMenu), nil
}

func (e *Engine) handleBrowsing(ctx context.Context, customerID, input string) (domain.Reply, error) {
	catalog, err := e.catalog(ctx)
	if err != nil {
		return domain.Reply{}, err
	}
	p := resolver.Resolve(input, catalog)
	if p == nil {
		return domain.Text(fmt.Sprintf(msgProductNotFound, input)), nil
	}
	item := domain.CartItem{ProductID: p.ID, Name: p.Name, UnitPriceUSD: p.PriceUSD}
	if err := e.deps.Sessions.AppendCart(ctx, customerID, item); err != nil {
		return domain.Reply{}, err
	}
	sess, err := e.deps.Sessions.Get(ctx, customerID)
	if err != nil {
		return domain.Reply{}, err
	}
	return domain.Text(fmt.Sprintf(msgAddedToCart, p.Name, p.PriceUSD, len(sess.Cart), sess.CartTotalUSD())), nil
}

func (e *Engine) handleCartCommand(ctx context.Context, customerID string) (domain.Reply, error) {
	sess, err := e.deps.Sessions.Get(ctx, customerID)
	if err != nil {
		return domain.Reply{}, err
	}
	if len(sess.Cart) == 0 {
		return domain.Text(msgEmptyCart), nil
	}
	if err := e.deps.Sessions.SetStep(ctx, customerID, domain.StepCheckout); err != nil {
		return domain.Reply{}, err
	}
	return domain.Text(renderCart(sess)), nil
}

func (e *Engine) handleCheckout(ctx context.Context, sess *domain.Session, lower string) (domain.Reply, error) {
	switch lower {
	case "checkout", "pay", "confirm":
		return e.runCheckout(ctx, sess)
	case "clear":
		if err := e.deps.Sessions.ClearCart(ctx, sess.CustomerID); err != nil {
			return domain.Reply{}, err
		}
		if err := e.deps.Sessions.SetStep(ctx, sess.CustomerID, domain.StepMenu); err != nil {
			return domain.Reply{}, err
		}
		return domain.Text(msgCartCleared), nil
	}
	return domain.Text(msgCheckoutPrompt), nil
}

func (e *Engine) handleHistory(ctx context.Context, customerID string) (domain.Reply, error) {
	orders, err := e.deps.Orders.ListByCustomer(ctx, customerID, 5)
	if err != nil {
		return domain.Reply{}, err
	}
	return domain.Text(renderHistory(orders)), nil
}

// catalog reads the product list through the TTL cache.
func (e *Engine) catalog(ctx context.Context) ([]domain.Product, error) {
	if cached, ok := e.catalogCache.Get(catalogCacheKey); ok {
		return cached, nil
	}
	all, err := e.deps.Catalog.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	e.catalogCache.Set(catalogCacheKey, all)
	return all, nil
}

// exchangeRate reads usd_to_idr_rate through the TTL cache, falling back
// to the default when unset.
func (e *Engine) exchangeRate(ctx context.Context) (float64, error) {
	if cached, ok := e.rateCache.Get(settings.KeyUSDToIDRRate); ok {
		return cached, nil
	}
	raw, err := e.deps.Settings.Get(ctx, settings.KeyUSDToIDRRate)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return settings.DefaultUSDToIDRRate, nil
		}
		return 0, err
	}
	rate, err := strconv.ParseFloat(raw, 64)
	if err != nil || rate <= 0 {
		e.deps.Logger.Printf("engine: invalid %s=%q, using default", settings.KeyUSDToIDRRate, raw)
		return settings.DefaultUSDToIDRRate, nil
	}
	e.rateCache.Set(settings.KeyUSDToIDRRate, rate)
	return rate, nil
}

func (e *Engine) newOrderID(customerID string) string {
	seq := e.orderSeq.Add(1)
	tail := customerID
	if len(tail) > 4 {
		tail = tail[len(tail)-4:]
	}
	return fmt.Sprintf("ORD-%d-%d-%s", e.now().UnixMilli(), seq, tail)
}

// sanitize trims and collapses internal whitespace; routing lowercases
// separately so product queries keep their original case for display.
func sanitize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
