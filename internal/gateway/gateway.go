// Package gateway defines the payment-status verification interface. The
// actual HTTP clients (QRIS, Xendit) live outside this module; the engine
// only depends on CheckStatus.
package gateway

import "context"

// Status is the gateway's view of an invoice.
type Status string

const (
	StatusSucceeded Status = "SUCCEEDED"
	StatusPending   Status = "PENDING"
	StatusFailed    Status = "FAILED"
	StatusExpired   Status = "EXPIRED"
)

// Gateway verifies invoice payment status.
type Gateway interface {
	CheckStatus(ctx context.Context, invoiceID string) (Status, error)
}
