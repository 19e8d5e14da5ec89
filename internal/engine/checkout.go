package engine

import (
	"context"
	"errors"
	"fmt"
	"math"

	"chatcommerce/internal/audit"
	"chatcommerce/internal/domain"
)

// runCheckout validates the whole cart, allocates the order id, persists
// the order, and moves the session to payment selection. Any failure
// leaves cart and step untouched so the customer can retry.
func (e *Engine) runCheckout(ctx context.Context, sess *domain.Session) (domain.Reply, error) {
	if len(sess.Cart) == 0 {
		return domain.Text(msgEmptyCart), nil
	}
	if d := e.deps.Guard.CanPlaceOrder(sess.CustomerID); !d.Allowed {
		return domain.Text(d.Message), nil
	}

	// Stock is all-or-nothing: one unavailable item aborts the checkout.
	for _, item := range sess.Cart {
		in, err := e.deps.Catalog.InStock(ctx, item.ProductID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return domain.Reply{}, err
		}
		if err != nil || !in {
			return domain.Text(fmt.Sprintf("%s is out of stock. Remove it with 'clear' and rebuild your cart, or try later.", item.Name)), nil
		}
	}

	rate, err := e.exchangeRate(ctx)
	if err != nil {
		return domain.Reply{}, err
	}
	totalUSD := sess.CartTotalUSD()
	totalIDR := int64(math.Round(totalUSD * rate))

	o := domain.Order{
		OrderID:    e.newOrderID(sess.CustomerID),
		CustomerID: sess.CustomerID,
		Items:      sess.Cart,
		TotalUSD:   totalUSD,
		TotalIDR:   totalIDR,
		CreatedAt:  e.now().UTC(),
	}
	if err := e.deps.Orders.Create(ctx, o); err != nil {
		return domain.Reply{}, err
	}
	if err := e.deps.Sessions.SetOrderID(ctx, sess.CustomerID, o.OrderID); err != nil {
		return domain.Reply{}, err
	}
	if err := e.deps.Sessions.SetStep(ctx, sess.CustomerID, domain.StepSelectPayment); err != nil {
		return domain.Reply{}, err
	}
	e.deps.Guard.RecordOrder(sess.CustomerID)
	e.deps.Audit.Record(audit.New(audit.EventOrderCreated, sess.CustomerID, map[string]any{
		"order_id":  o.OrderID,
		"items":     len(o.Items),
		"total_usd": o.TotalUSD,
		"total_idr": o.TotalIDR,
	}))

	return domain.Text(fmt.Sprintf("%s\nOrder %s: $%.2f (Rp%d).", msgSelectPayment, o.OrderID, totalUSD, totalIDR)), nil
}
