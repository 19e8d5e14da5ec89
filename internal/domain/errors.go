package domain

import "errors"

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")

	// ErrRateLimited indicates the customer exceeded a message or order cap.
	ErrRateLimited = errors.New("rate limited")

	// ErrCooldown indicates the customer is in an error cooldown window.
	ErrCooldown = errors.New("in cooldown")

	// ErrOutOfStock indicates a cart item's product has no remaining stock.
	ErrOutOfStock = errors.New("out of stock")

	// ErrNotPending indicates an approval attempt on an order whose session
	// is not awaiting admin approval.
	ErrNotPending = errors.New("order not pending")

	// ErrUnauthorized indicates a non-admin invoked an admin command.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrGatewayUnavailable indicates the payment gateway could not be
	// reached; the operation is safe to retry.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")

	// ErrValidation indicates a malformed command or argument.
	ErrValidation = errors.New("invalid input")
)
