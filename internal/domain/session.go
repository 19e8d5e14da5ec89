package domain

// CartItem is a snapshot of a product taken at add-time. The price is frozen
// so later catalog edits do not change a pending cart.
type CartItem struct {
	ProductID    string  `json:"productId"`
	Name         string  `json:"name"`
	UnitPriceUSD float64 `json:"unitPriceUsd"`
}

// PaymentKind selects how the customer intends to pay.
type PaymentKind string

const (
	PaymentQRIS PaymentKind = "qris"
	PaymentBank PaymentKind = "bank"
)

// PaymentMethod records the customer's payment selection. InvoiceID is set
// once a gateway invoice exists; BankCode only for bank transfers.
type PaymentMethod struct {
	Kind      PaymentKind `json:"kind"`
	InvoiceID string      `json:"invoiceId,omitempty"`
	BankCode  string      `json:"bankCode,omitempty"`
}

// Session is the per-customer conversation state. Cart order is insertion
// order and is meaningful for display.
type Session struct {
	CustomerID string         `json:"customerId"`
	Step       Step           `json:"step"`
	Cart       []CartItem     `json:"cart,omitempty"`
	OrderID    string         `json:"orderId,omitempty"`
	Payment    *PaymentMethod `json:"payment,omitempty"`
}

// CartTotalUSD sums the frozen unit prices.
func (s *Session) CartTotalUSD() float64 {
	var total float64
	for _, it := range s.Cart {
		total += it.UnitPriceUSD
	}
	return total
}
