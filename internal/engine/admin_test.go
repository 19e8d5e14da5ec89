package engine

import (
	"context"
	"errors"
	"strings"
	"testing"

	"chatcommerce/internal/audit"
	"chatcommerce/internal/domain"
	"chatcommerce/internal/gateway"
	productrepo "chatcommerce/internal/repository/product"
)

func TestApproveDeliversOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	orderID := f.placeOrder(t, "cust")

	reply := f.handle(t, "admin", "/approve "+orderID)
	if !strings.Contains(reply.Message, "approved and delivered") {
		t.Fatalf("unexpected reply %q", reply.Message)
	}
	if reply.Push == nil || reply.Push.CustomerID != "cust" {
		t.Fatalf("expected delivery push to customer, got %+v", reply.Push)
	}
	if !strings.Contains(reply.Push.Message, orderID) {
		t.Fatalf("push %q missing order id", reply.Push.Message)
	}

	s := f.session(t, "cust")
	if s.Step != domain.StepMenu || len(s.Cart) != 0 {
		t.Fatalf("session not reset after delivery: %+v", s)
	}

	netflix, _ := f.catalog.GetByID(ctx, "netflix")
	spotify, _ := f.catalog.GetByID(ctx, "spotify")
	if netflix.Stock != 9 || spotify.Stock != 4 {
		t.Fatalf("stock = %d/%d, want 9/4", netflix.Stock, spotify.Stock)
	}

	if len(f.sink.ByEvent(audit.EventDelivery)) != 1 {
		t.Fatalf("expected 1 delivery event, got %d", len(f.sink.ByEvent(audit.EventDelivery)))
	}
	if len(f.sink.ByEvent(audit.EventAdminAction)) != 1 {
		t.Fatalf("expected 1 admin action event")
	}
}

func TestApproveIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	orderID := f.placeOrder(t, "cust")

	first := f.handle(t, "admin", "/approve "+orderID)
	if !strings.Contains(first.Message, "approved") {
		t.Fatalf("first approve failed: %q", first.Message)
	}
	second := f.handle(t, "admin", "/approve "+orderID)
	if second.Message != msgOrderNotPending {
		t.Fatalf("second approve = %q, want not-pending", second.Message)
	}
	if second.Push != nil {
		t.Fatal("second approve must not deliver again")
	}

	// Exactly one decrement per item across both calls.
	netflix, _ := f.catalog.GetByID(ctx, "netflix")
	if netflix.Stock != 9 {
		t.Fatalf("stock = %d, want 9 after single delivery", netflix.Stock)
	}
	if got := len(f.sink.ByEvent(audit.EventDelivery)); got != 1 {
		t.Fatalf("delivery events = %d, want 1", got)
	}
}

func TestApproveRejectsNonPendingStep(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	// Customer has an order id but is still at checkout, not awaiting
	// approval.
	f.handle(t, "cust", "shop")
	f.handle(t, "cust", "netflix")
	f.handle(t, "cust", "cart")
	f.handle(t, "cust", "checkout")
	s := f.session(t, "cust")
	if err := f.sessions.SetStep(ctx, "cust", domain.StepCheckout); err != nil {
		t.Fatalf("set step: %v", err)
	}

	reply := f.handle(t, "admin", "/approve "+s.OrderID)
	if reply.Message != msgOrderNotPending {
		t.Fatalf("got %q, want not-pending", reply.Message)
	}
	netflix, _ := f.catalog.GetByID(ctx, "netflix")
	if netflix.Stock != 10 {
		t.Fatalf("stock mutated on rejected approval: %d", netflix.Stock)
	}
}

func TestApproveUnknownOrder(t *testing.T) {
	f := newFixture(t)
	reply := f.handle(t, "admin", "/approve ORD-999")
	if reply.Message != msgOrderNotFound {
		t.Fatalf("got %q, want order-not-found", reply.Message)
	}
}

func TestApproveUsageErrors(t *testing.T) {
	f := newFixture(t)
	for _, cmd := range []string{"/approve", "/approve a b"} {
		reply := f.handle(t, "admin", cmd)
		if !strings.Contains(reply.Message, "Usage") {
			t.Fatalf("%q: got %q, want usage message", cmd, reply.Message)
		}
	}
}

func TestApproveReverifiesPayment(t *testing.T) {
	f := newFixture(t)
	orderID := f.placeOrder(t, "cust")
	f.gw.status = gateway.StatusPending

	reply := f.handle(t, "admin", "/approve "+orderID)
	if !strings.Contains(reply.Message, "not confirmed") {
		t.Fatalf("got %q, want payment-not-confirmed", reply.Message)
	}
	// The order stays claimable: once payment clears, approval succeeds.
	s := f.session(t, "cust")
	if s.Step != domain.StepAwaitingApproval {
		t.Fatalf("step = %s, want awaiting_admin_approval restored", s.Step)
	}

	f.gw.status = gateway.StatusSucceeded
	reply = f.handle(t, "admin", "/approve "+orderID)
	if !strings.Contains(reply.Message, "approved") {
		t.Fatalf("retry after payment cleared failed: %q", reply.Message)
	}
}

func TestApproveGatewayOutageIsRetrySafe(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	orderID := f.placeOrder(t, "cust")
	f.gw.err = errors.New("connection refused")

	reply := f.handle(t, "admin", "/approve "+orderID)
	if reply.Message != msgVerifyManually {
		t.Fatalf("got %q, want verify-manually", reply.Message)
	}
	s := f.session(t, "cust")
	if s.Step != domain.StepAwaitingApproval || len(s.Cart) == 0 {
		t.Fatalf("session mutated during outage: %+v", s)
	}
	netflix, _ := f.catalog.GetByID(ctx, "netflix")
	if netflix.Stock != 10 {
		t.Fatalf("stock mutated during outage: %d", netflix.Stock)
	}

	f.gw.err = nil
	reply = f.handle(t, "admin", "/approve "+orderID)
	if !strings.Contains(reply.Message, "approved") {
		t.Fatalf("retry after outage failed: %q", reply.Message)
	}
}

func TestApproveAbortsWhenProductGone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	orderID := f.placeOrder(t, "cust")
	if err := f.catalog.Remove(ctx, "spotify"); err != nil {
		t.Fatalf("remove: %v", err)
	}

	reply := f.handle(t, "admin", "/approve "+orderID)
	if !strings.Contains(reply.Message, "Not delivered") {
		t.Fatalf("got %q, want delivery abort", reply.Message)
	}
	// No partial effects: netflix untouched, cart intact, order claimable.
	netflix, _ := f.catalog.GetByID(ctx, "netflix")
	if netflix.Stock != 10 {
		t.Fatalf("stock mutated on aborted delivery: %d", netflix.Stock)
	}
	s := f.session(t, "cust")
	if s.Step != domain.StepAwaitingApproval || len(s.Cart) != 2 {
		t.Fatalf("session mutated on aborted delivery: %+v", s)
	}
}

func TestDeliveryStockFloorsAtZero(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, _ := f.catalog.GetByID(ctx, "netflix")
	p.Stock = 1
	if err := f.catalog.Update(ctx, *p); err != nil {
		t.Fatalf("update: %v", err)
	}

	// Two customers order the same single-stock product before either is
	// approved; stock was only checked at checkout, so the second delivery
	// floors at zero instead of going negative.
	var orderIDs []string
	for _, cust := range []string{"cust-a", "cust-b"} {
		f.handle(t, cust, "shop")
		f.handle(t, cust, "netflix")
		f.handle(t, cust, "cart")
		f.handle(t, cust, "checkout")
		f.handle(t, cust, "qris")
		f.handle(t, cust, "paid")
		orderIDs = append(orderIDs, f.session(t, cust).OrderID)
	}
	for _, id := range orderIDs {
		reply := f.handle(t, "admin", "/approve "+id)
		// Flooring at zero is expected behaviour, not a stock failure.
		if strings.Contains(reply.Message, "Stock update failed") {
			t.Fatalf("floor at zero reported as failure: %q", reply.Message)
		}
	}

	p, _ = f.catalog.GetByID(ctx, "netflix")
	if p.Stock != 0 {
		t.Fatalf("stock = %d, want 0 (never negative)", p.Stock)
	}
}

// brokenStockCatalog reads from the real catalog but fails every stock
// decrement, simulating a storage outage mid-delivery.
type brokenStockCatalog struct {
	*productrepo.Memory
}

func (brokenStockCatalog) DecrementStock(context.Context, string) (bool, error) {
	return false, errors.New("db down")
}

func TestApproveReportsStockDecrementFailure(t *testing.T) {
	f := newFixture(t)
	orderID := f.placeOrder(t, "cust")
	f.engine.deps.Catalog = brokenStockCatalog{f.catalog}

	reply := f.handle(t, "admin", "/approve "+orderID)
	if !strings.Contains(reply.Message, "approved and delivered") {
		t.Fatalf("unexpected reply %q", reply.Message)
	}
	if !strings.Contains(reply.Message, "Stock update failed for netflix, spotify") {
		t.Fatalf("reply %q missing stock failure notice", reply.Message)
	}
	if reply.Push == nil {
		t.Fatal("delivery push should still reach the customer")
	}
}

func TestUnauthorizedAdminCommand(t *testing.T) {
	f := newFixture(t)
	reply := f.handle(t, "cust", "/approve ORD-1")
	if reply.Message != msgAccessDenied {
		t.Fatalf("got %q, want access denied", reply.Message)
	}
	found := false
	for _, e := range f.sink.ByEvent(audit.EventSecurity) {
		if e.Metadata["reason"] == "unauthorized_admin_command" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected a security event for the unauthorized attempt")
	}
}

func TestAddEditRemoveProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	reply := f.handle(t, "admin", "/addproduct disney|Disney Plus|3.5|Streaming|7|streaming")
	if !strings.Contains(reply.Message, "Added disney") {
		t.Fatalf("add failed: %q", reply.Message)
	}
	p, err := f.catalog.GetByID(ctx, "disney")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p.PriceUSD != 3.5 || p.Stock != 7 || p.Name != "Disney Plus" {
		t.Fatalf("unexpected product %+v", p)
	}

	reply = f.handle(t, "admin", "/editproduct disney|price|4.25")
	if !strings.Contains(reply.Message, "Updated price") {
		t.Fatalf("edit failed: %q", reply.Message)
	}
	p, _ = f.catalog.GetByID(ctx, "disney")
	if p.PriceUSD != 4.25 {
		t.Fatalf("price = %v, want 4.25", p.PriceUSD)
	}

	reply = f.handle(t, "admin", "/editproduct disney|stock|5")
	if !strings.Contains(reply.Message, "name, price, description") {
		t.Fatalf("expected field validation, got %q", reply.Message)
	}

	reply = f.handle(t, "admin", "/removeproduct disney")
	if !strings.Contains(reply.Message, "Removed disney") {
		t.Fatalf("remove failed: %q", reply.Message)
	}
	if _, err := f.catalog.GetByID(ctx, "disney"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after remove, got %v", err)
	}
}

func TestAddProductValidation(t *testing.T) {
	f := newFixture(t)
	cases := []string{
		"/addproduct disney|Disney Plus|3.5",        // too few fields
		"/addproduct disney|Disney|abc|desc|5|cat",  // bad price
		"/addproduct disney|Disney|3.5|desc|-1|cat", // bad stock
		"/addproduct netflix|Dup|1|desc|1|cat",      // duplicate id
	}
	for _, cmd := range cases {
		reply := f.handle(t, "admin", cmd)
		if strings.Contains(reply.Message, "Added") {
			t.Fatalf("%q unexpectedly succeeded: %q", cmd, reply.Message)
		}
	}
}

func TestStockCommand(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	reply := f.handle(t, "admin", "/stock")
	if !strings.Contains(reply.Message, "netflix: 10") {
		t.Fatalf("stock listing %q", reply.Message)
	}

	reply = f.handle(t, "admin", "/stock netflix 3")
	if !strings.Contains(reply.Message, "set to 3") {
		t.Fatalf("stock set failed: %q", reply.Message)
	}
	p, _ := f.catalog.GetByID(ctx, "netflix")
	if p.Stock != 3 {
		t.Fatalf("stock = %d, want 3", p.Stock)
	}

	reply = f.handle(t, "admin", "/stock netflix -1")
	if !strings.Contains(reply.Message, "non-negative") {
		t.Fatalf("expected quantity validation, got %q", reply.Message)
	}
}

func TestSettingsCommand(t *testing.T) {
	f := newFixture(t)
	reply := f.handle(t, "admin", "/settings usd_to_idr_rate 16000")
	if !strings.Contains(reply.Message, "Set usd_to_idr_rate") {
		t.Fatalf("set failed: %q", reply.Message)
	}
	reply = f.handle(t, "admin", "/settings")
	if !strings.Contains(reply.Message, "usd_to_idr_rate = 16000") {
		t.Fatalf("listing %q", reply.Message)
	}
}

func TestBroadcast(t *testing.T) {
	f := newFixture(t)
	f.handle(t, "cust-a", "shop")
	f.handle(t, "cust-b", "shop")

	reply := f.handle(t, "admin", "/broadcast Big sale tomorrow!")
	if reply.Broadcast == nil {
		t.Fatal("expected a broadcast directive")
	}
	if reply.Broadcast.Message != "Big sale tomorrow!" {
		t.Fatalf("broadcast message %q", reply.Broadcast.Message)
	}
	if len(reply.Broadcast.Recipients) != 2 {
		t.Fatalf("recipients = %v, want both customers", reply.Broadcast.Recipients)
	}
}

func TestStatsAndStatus(t *testing.T) {
	f := newFixture(t)
	reply := f.handle(t, "admin", "/stats")
	if !strings.Contains(reply.Message, "No orders yet") {
		t.Fatalf("empty stats %q", reply.Message)
	}

	f.placeOrder(t, "cust")
	reply = f.handle(t, "admin", "/stats")
	if !strings.Contains(reply.Message, "Orders: 1") || !strings.Contains(reply.Message, "$7.00") {
		t.Fatalf("stats %q", reply.Message)
	}

	reply = f.handle(t, "admin", "/status cust")
	if !strings.Contains(reply.Message, "step=awaiting_admin_approval") {
		t.Fatalf("status %q", reply.Message)
	}
}
