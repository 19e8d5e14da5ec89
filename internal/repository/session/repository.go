package session

import (
	"context"

	"chatcommerce/internal/domain"
)

// Store holds per-customer conversation state. Get never fails for an
// unknown customer: it returns a fresh session at the menu step, which is
// only persisted once something is written. A store may expire idle
// sessions at any time; callers must re-read per message.
type Store interface {
	Get(ctx context.Context, customerID string) (*domain.Session, error)
	SetStep(ctx context.Context, customerID string, step domain.Step) error
	// CompareAndSwapStep atomically moves the session from one step to
	// another, reporting whether the swap happened. This is the
	// idempotency primitive behind admin approval.
	CompareAndSwapStep(ctx context.Context, customerID string, from, to domain.Step) (bool, error)
	AppendCart(ctx context.Context, customerID string, item domain.CartItem) error
	ClearCart(ctx context.Context, customerID string) error
	SetOrderID(ctx context.Context, customerID, orderID string) error
	SetPayment(ctx context.Context, customerID string, pm *domain.PaymentMethod) error
	// FindByOrderID locates the session currently carrying orderID.
	FindByOrderID(ctx context.Context, orderID string) (*domain.Session, error)
	// CustomerIDs lists every customer with a stored session, for broadcasts.
	CustomerIDs(ctx context.Context) ([]string, error)
}
