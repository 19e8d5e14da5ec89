package engine

import (
	"fmt"
	"strings"

	"chatcommerce/internal/domain"
)

// User-facing reply text. Kept in one place so the transport layer can
// later swap in localized templates without touching handlers.
const (
	msgMenu = "Welcome! Reply with:\n" +
		"- shop: browse products\n" +
		"- cart: view your cart and check out\n" +
		"- history: your recent orders\n" +
		"- menu: show this menu again"
	msgApology          = "Sorry, something went wrong on our side. Please try again."
	msgEmptyCart        = "Your cart is empty. Reply 'shop' to browse products."
	msgCartCleared      = "Cart cleared. Back to the menu."
	msgCheckoutPrompt   = "Reply 'checkout' to place the order or 'clear' to empty the cart."
	msgProductNotFound  = "Could not find a product matching %q. Reply 'shop' to see the catalog."
	msgAddedToCart      = "Added %s ($%.2f). Cart: %d item(s), $%.2f total. Reply 'cart' to check out."
	msgSelectPayment    = "Order placed! Reply 'qris' to pay by QRIS or 'bank' for bank transfer."
	msgSelectBank       = "Reply with your bank: bca, bni, bri, or mandiri."
	msgAwaitingPayment  = "Reply 'status' to check your payment, or 'paid' once you have sent payment proof."
	msgAwaitingApproval = "Payment proof received. An admin will verify and deliver your order shortly."
	msgVerifyManually   = "Could not verify the payment right now. An admin will check it manually."
	msgAccessDenied     = "Access denied."
	msgOrderNotFound    = "Order not found."
	msgOrderNotPending  = "Order is not pending approval."
)

func renderCatalog(products []domain.Product) string {
	if len(products) == 0 {
		return "The catalog is empty right now. Please check back later."
	}
	var b strings.Builder
	b.WriteString("Available products (reply with a name or id to add it):\n")
	for _, p := range products {
		fmt.Fprintf(&b, "- %s (%s): $%.2f", p.Name, p.ID, p.PriceUSD)
		if p.Stock == 0 {
			b.WriteString(" [out of stock]")
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderCart(sess *domain.Session) string {
	var b strings.Builder
	b.WriteString("Your cart:\n")
	for i, it := range sess.Cart {
		fmt.Fprintf(&b, "%d. %s: $%.2f\n", i+1, it.Name, it.UnitPriceUSD)
	}
	fmt.Fprintf(&b, "Total: $%.2f\n", sess.CartTotalUSD())
	b.WriteString(msgCheckoutPrompt)
	return b.String()
}

func renderHistory(orders []domain.Order) string {
	if len(orders) == 0 {
		return "No orders yet. Reply 'shop' to browse products."
	}
	var b strings.Builder
	b.WriteString("Your recent orders:\n")
	for _, o := range orders {
		fmt.Fprintf(&b, "- %s: $%.2f (Rp%d) on %s\n", o.OrderID, o.TotalUSD, o.TotalIDR, o.CreatedAt.Format("2006-01-02"))
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderDelivery(orderID string, codes []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Your order %s has been approved! Here are your codes:\n", orderID)
	for _, c := range codes {
		fmt.Fprintf(&b, "- %s\n", c)
	}
	b.WriteString("Thank you for shopping with us!")
	return b.String()
}
