package engine

import (
	"context"
	"fmt"

	"chatcommerce/internal/domain"
	"chatcommerce/internal/gateway"
)

var bankCodes = map[string]bool{"bca": true, "bni": true, "bri": true, "mandiri": true}

func (e *Engine) handleSelectPayment(ctx context.Context, sess *domain.Session, lower string) (domain.Reply, error) {
	switch lower {
	case "qris":
		pm := &domain.PaymentMethod{Kind: domain.PaymentQRIS, InvoiceID: "INV-" + sess.OrderID}
		if err := e.deps.Sessions.SetPayment(ctx, sess.CustomerID, pm); err != nil {
			return domain.Reply{}, err
		}
		if err := e.deps.Sessions.SetStep(ctx, sess.CustomerID, domain.StepAwaitingPayment); err != nil {
			return domain.Reply{}, err
		}
		return domain.Text("Scan the QRIS code sent separately to pay.\n" + msgAwaitingPayment), nil
	case "bank":
		if err := e.deps.Sessions.SetStep(ctx, sess.CustomerID, domain.StepSelectBank); err != nil {
			return domain.Reply{}, err
		}
		return domain.Text(msgSelectBank), nil
	}
	return domain.Text(msgSelectPayment), nil
}

func (e *Engine) handleSelectBank(ctx context.Context, sess *domain.Session, lower string) (domain.Reply, error) {
	if !bankCodes[lower] {
		return domain.Text(msgSelectBank), nil
	}
	pm := &domain.PaymentMethod{Kind: domain.PaymentBank, InvoiceID: "INV-" + sess.OrderID, BankCode: lower}
	if err := e.deps.Sessions.SetPayment(ctx, sess.CustomerID, pm); err != nil {
		return domain.Reply{}, err
	}
	if err := e.deps.Sessions.SetStep(ctx, sess.CustomerID, domain.StepAwaitingPayment); err != nil {
		return domain.Reply{}, err
	}
	return domain.Text(fmt.Sprintf("Transfer to our %s account as instructed.\n%s", lower, msgAwaitingPayment)), nil
}

func (e *Engine) handleAwaitingPayment(ctx context.Context, sess *domain.Session, lower string) (domain.Reply, error) {
	switch lower {
	case "status", "check":
		return e.checkPaymentStatus(ctx, sess), nil
	case "paid", "proof", "done":
		if err := e.deps.Sessions.SetStep(ctx, sess.CustomerID, domain.StepAwaitingApproval); err != nil {
			return domain.Reply{}, err
		}
		return domain.Text(msgAwaitingApproval), nil
	}
	return domain.Text(msgAwaitingPayment), nil
}

// checkPaymentStatus is read-only: it reports the gateway's view and never
// transitions state. Gateway failure leaves the session untouched and
// falls back to manual verification.
func (e *Engine) checkPaymentStatus(ctx context.Context, sess *domain.Session) domain.Reply {
	if sess.Payment == nil || sess.Payment.InvoiceID == "" {
		return domain.Text("No payment method selected yet.\n" + msgSelectPayment)
	}
	status, err := e.deps.Gateway.CheckStatus(ctx, sess.Payment.InvoiceID)
	if err != nil {
		e.deps.Logger.Printf("engine: gateway check customer=%s invoice=%s error=%v", sess.CustomerID, sess.Payment.InvoiceID, err)
		return domain.Text(msgVerifyManually)
	}
	switch status {
	case gateway.StatusSucceeded:
		return domain.Text("Payment received! Reply 'paid' to submit it for admin approval.")
	case gateway.StatusPending:
		return domain.Text("Payment is still pending. Try again in a moment.")
	case gateway.StatusExpired:
		return domain.Text("The invoice expired. Reply 'menu' and check out again.")
	default:
		return domain.Text("Payment failed. Reply 'menu' to start over, or contact support.")
	}
}
