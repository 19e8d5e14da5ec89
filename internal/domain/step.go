package domain

// Step is the discrete conversation state of a customer session.
type Step string

const (
	StepMenu             Step = "menu"
	StepBrowsing         Step = "browsing"
	StepCheckout         Step = "checkout"
	StepSelectPayment    Step = "select_payment"
	StepSelectBank       Step = "select_bank"
	StepAwaitingPayment  Step = "awaiting_payment"
	StepAwaitingApproval Step = "awaiting_admin_approval"
)

var allSteps = map[Step]bool{
	StepMenu:             true,
	StepBrowsing:         true,
	StepCheckout:         true,
	StepSelectPayment:    true,
	StepSelectBank:       true,
	StepAwaitingPayment:  true,
	StepAwaitingApproval: true,
}

// Valid reports whether s is one of the seven defined steps.
func (s Step) Valid() bool {
	return allSteps[s]
}

// ParseStep maps a raw stored value onto the closed step set. Unknown values
// fall back to StepMenu; ok is false so the caller can log the anomaly
// instead of silently accepting a corrupt session.
func ParseStep(raw string) (step Step, ok bool) {
	s := Step(raw)
	if s.Valid() {
		return s, true
	}
	return StepMenu, false
}
