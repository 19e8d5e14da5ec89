package domain

// Push carries a message for a customer other than the caller, e.g. the
// delivery notice sent to the buyer when an admin approves their order.
type Push struct {
	CustomerID string `json:"customerId"`
	Message    string `json:"message"`
}

// Broadcast is a directive to send one message to many recipients.
type Broadcast struct {
	Message    string   `json:"message"`
	Recipients []string `json:"recipients"`
}

// Reply is the engine's response to one inbound message.
type Reply struct {
	Message   string     `json:"message"`
	Push      *Push      `json:"push,omitempty"`
	Broadcast *Broadcast `json:"broadcast,omitempty"`
}

// Text builds a plain-text reply.
func Text(msg string) Reply {
	return Reply{Message: msg}
}
