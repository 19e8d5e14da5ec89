package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"chatcommerce/internal/audit"
	"chatcommerce/internal/domain"
	"chatcommerce/internal/gateway"
	"chatcommerce/internal/repository/settings"
)

func (e *Engine) handleAdmin(ctx context.Context, callerID, input string) (domain.Reply, error) {
	if !e.deps.Admins.IsAdmin(callerID) {
		e.deps.Audit.Record(audit.New(audit.EventSecurity, callerID, map[string]any{
			"reason":  "unauthorized_admin_command",
			"command": firstWord(input),
		}))
		return domain.Text(msgAccessDenied), nil
	}

	cmd := strings.ToLower(firstWord(input))
	rest := strings.TrimSpace(input[len(cmd):])

	switch cmd {
	case "/approve":
		return e.handleApprove(ctx, callerID, rest)
	case "/stock":
		return e.handleStock(ctx, callerID, rest)
	case "/addproduct":
		return e.handleAddProduct(ctx, callerID, rest)
	case "/removeproduct":
		return e.handleRemoveProduct(ctx, callerID, rest)
	case "/editproduct":
		return e.handleEditProduct(ctx, callerID, rest)
	case "/settings":
		return e.handleSettings(ctx, callerID, rest)
	case "/broadcast":
		return e.handleBroadcast(ctx, callerID, rest)
	case "/stats":
		return e.handleStats(ctx)
	case "/status":
		return e.handleStatus(ctx, rest)
	}
	return domain.Text(fmt.Sprintf("Unknown command %s.", cmd)), nil
}

// handleApprove is the single point where goods change hands. The
// compare-and-swap on the session step both checks precondition and claims
// the order, so a repeated or concurrent /approve loses the swap and gets
// "not pending" instead of a second delivery.
func (e *Engine) handleApprove(ctx context.Context, adminID, args string) (domain.Reply, error) {
	fields := strings.Fields(args)
	if len(fields) != 1 {
		return domain.Text("Usage: /approve <orderId>"), nil
	}
	orderID := fields[0]

	sess, err := e.deps.Sessions.FindByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Text(msgOrderNotFound), nil
		}
		return domain.Reply{}, err
	}

	swapped, err := e.deps.Sessions.CompareAndSwapStep(ctx, sess.CustomerID, domain.StepAwaitingApproval, domain.StepMenu)
	if err != nil {
		return domain.Reply{}, err
	}
	if !swapped {
		return domain.Text(msgOrderNotPending), nil
	}

	// From here on the order is claimed; any abort must hand it back.
	rollback := func() {
		if err := e.deps.Sessions.SetStep(ctx, sess.CustomerID, domain.StepAwaitingApproval); err != nil {
			e.deps.Logger.Printf("engine: approve rollback order=%s error=%v", orderID, err)
		}
	}

	// Second, independent payment check: a forged or stale proof must not
	// pass just because the session reached awaiting_admin_approval.
	if sess.Payment != nil && sess.Payment.InvoiceID != "" {
		status, err := e.deps.Gateway.CheckStatus(ctx, sess.Payment.InvoiceID)
		if err != nil {
			rollback()
			return domain.Text(msgVerifyManually), nil
		}
		if status != gateway.StatusSucceeded {
			rollback()
			return domain.Text(fmt.Sprintf("Payment for %s is not confirmed (status %s). Not delivered.", orderID, status)), nil
		}
	}

	// Produce every delivery code before touching stock: if any item cannot
	// be delivered, nothing is mutated.
	codes := make([]string, 0, len(sess.Cart))
	for i, item := range sess.Cart {
		if _, err := e.deps.Catalog.GetByID(ctx, item.ProductID); err != nil {
			rollback()
			if errors.Is(err, domain.ErrNotFound) {
				return domain.Text(fmt.Sprintf("Cannot deliver %s: product %s is gone from the catalog. Not delivered.", orderID, item.ProductID)), nil
			}
			return domain.Reply{}, err
		}
		codes = append(codes, fmt.Sprintf("%s-%s-%d", item.ProductID, orderID, i+1))
	}

	// A decrement error (unlike the legitimate floor at zero) means the
	// catalog now disagrees with what was delivered; tell the admin so
	// they can correct it with /stock.
	var stockFailures []string
	for _, item := range sess.Cart {
		if _, err := e.deps.Catalog.DecrementStock(ctx, item.ProductID); err != nil {
			e.deps.Logger.Printf("engine: decrement product=%s order=%s error=%v", item.ProductID, orderID, err)
			stockFailures = append(stockFailures, item.ProductID)
		}
	}

	if err := e.deps.Sessions.ClearCart(ctx, sess.CustomerID); err != nil {
		return domain.Reply{}, err
	}

	e.deps.Audit.Record(audit.New(audit.EventAdminAction, adminID, map[string]any{
		"action":   "approve",
		"order_id": orderID,
		"customer": sess.CustomerID,
	}))
	e.deps.Audit.Record(audit.New(audit.EventDelivery, sess.CustomerID, map[string]any{
		"order_id": orderID,
		"items":    len(sess.Cart),
	}))

	msg := fmt.Sprintf("Order %s approved and delivered to %s (%d item(s)).", orderID, sess.CustomerID, len(sess.Cart))
	if len(stockFailures) > 0 {
		msg += fmt.Sprintf(" Stock update failed for %s; fix it with /stock.", strings.Join(stockFailures, ", "))
	}
	return domain.Reply{
		Message: msg,
		Push: &domain.Push{
			CustomerID: sess.CustomerID,
			Message:    renderDelivery(orderID, codes),
		},
	}, nil
}

func (e *Engine) handleStock(ctx context.Context, adminID, args string) (domain.Reply, error) {
	fields := strings.Fields(args)
	switch len(fields) {
	case 0:
		products, err := e.deps.Catalog.GetAll(ctx)
		if err != nil {
			return domain.Reply{}, err
		}
		if len(products) == 0 {
			return domain.Text("Catalog is empty."), nil
		}
		var b strings.Builder
		b.WriteString("Stock levels:\n")
		for _, p := range products {
			fmt.Fprintf(&b, "- %s: %d\n", p.ID, p.Stock)
		}
		return domain.Text(strings.TrimRight(b.String(), "\n")), nil
	case 2:
		qty, err := strconv.Atoi(fields[1])
		if err != nil || qty < 0 {
			return domain.Text("Quantity must be a non-negative integer."), nil
		}
		p, err := e.deps.Catalog.GetByID(ctx, fields[0])
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.Text(fmt.Sprintf("Product %s not found.", fields[0])), nil
			}
			return domain.Reply{}, err
		}
		p.Stock = qty
		if err := e.deps.Catalog.Update(ctx, *p); err != nil {
			return domain.Reply{}, err
		}
		e.catalogCache.Invalidate(catalogCacheKey)
		e.recordAdmin(adminID, "stock", map[string]any{"product": p.ID, "stock": qty})
		return domain.Text(fmt.Sprintf("Stock for %s set to %d.", p.ID, qty)), nil
	}
	return domain.Text("Usage: /stock [<productId> <quantity>]"), nil
}

func (e *Engine) handleAddProduct(ctx context.Context, adminID, args string) (domain.Reply, error) {
	parts := splitPipe(args)
	if len(parts) != 6 {
		return domain.Text("Usage: /addproduct <id>|<name>|<price>|<description>|<stock>|<category>"), nil
	}
	id := strings.ToLower(parts[0])
	price, err := strconv.ParseFloat(parts[2], 64)
	if err != nil || price < 0 {
		return domain.Text("Price must be a non-negative number."), nil
	}
	stock, err := strconv.Atoi(parts[4])
	if err != nil || stock < 0 {
		return domain.Text("Stock must be a non-negative integer."), nil
	}
	if _, err := e.deps.Catalog.GetByID(ctx, id); err == nil {
		return domain.Text(fmt.Sprintf("Product %s already exists.", id)), nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return domain.Reply{}, err
	}
	p := domain.Product{
		ID:          id,
		Name:        parts[1],
		PriceUSD:    price,
		Description: parts[3],
		Stock:       stock,
		Category:    parts[5],
	}
	if err := e.deps.Catalog.Add(ctx, p); err != nil {
		return domain.Reply{}, err
	}
	e.catalogCache.Invalidate(catalogCacheKey)
	e.recordAdmin(adminID, "addproduct", map[string]any{"product": id})
	return domain.Text(fmt.Sprintf("Added %s ($%.2f, stock %d).", id, price, stock)), nil
}

func (e *Engine) handleRemoveProduct(ctx context.Context, adminID, args string) (domain.Reply, error) {
	fields := strings.Fields(args)
	if len(fields) != 1 {
		return domain.Text("Usage: /removeproduct <productId>"), nil
	}
	if err := e.deps.Catalog.Remove(ctx, fields[0]); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Text(fmt.Sprintf("Product %s not found.", fields[0])), nil
		}
		return domain.Reply{}, err
	}
	e.catalogCache.Invalidate(catalogCacheKey)
	e.recordAdmin(adminID, "removeproduct", map[string]any{"product": fields[0]})
	return domain.Text(fmt.Sprintf("Removed %s.", fields[0])), nil
}

func (e *Engine) handleEditProduct(ctx context.Context, adminID, args string) (domain.Reply, error) {
	parts := splitPipe(args)
	if len(parts) != 3 {
		return domain.Text("Usage: /editproduct <id>|<field>|<value>"), nil
	}
	id, field, value := parts[0], strings.ToLower(parts[1]), parts[2]
	p, err := e.deps.Catalog.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Text(fmt.Sprintf("Product %s not found.", id)), nil
		}
		return domain.Reply{}, err
	}
	switch field {
	case "name":
		p.Name = value
	case "price":
		price, err := strconv.ParseFloat(value, 64)
		if err != nil || price < 0 {
			return domain.Text("Price must be a non-negative number."), nil
		}
		p.PriceUSD = price
	case "description":
		p.Description = value
	default:
		return domain.Text("Field must be one of: name, price, description."), nil
	}
	if err := e.deps.Catalog.Update(ctx, *p); err != nil {
		return domain.Reply{}, err
	}
	e.catalogCache.Invalidate(catalogCacheKey)
	e.recordAdmin(adminID, "editproduct", map[string]any{"product": id, "field": field})
	return domain.Text(fmt.Sprintf("Updated %s of %s.", field, id)), nil
}

func (e *Engine) handleSettings(ctx context.Context, adminID, args string) (domain.Reply, error) {
	fields := strings.Fields(args)
	switch len(fields) {
	case 0:
		all, err := e.deps.Settings.GetAll(ctx)
		if err != nil {
			return domain.Reply{}, err
		}
		if len(all) == 0 {
			return domain.Text(fmt.Sprintf("No settings stored. %s defaults to %d.", settings.KeyUSDToIDRRate, settings.DefaultUSDToIDRRate)), nil
		}
		var b strings.Builder
		b.WriteString("Settings:\n")
		for k, v := range all {
			fmt.Fprintf(&b, "- %s = %s\n", k, v)
		}
		return domain.Text(strings.TrimRight(b.String(), "\n")), nil
	case 2:
		if err := e.deps.Settings.Set(ctx, fields[0], fields[1]); err != nil {
			return domain.Reply{}, err
		}
		e.rateCache.Invalidate(fields[0])
		e.recordAdmin(adminID, "settings", map[string]any{"key": fields[0], "value": fields[1]})
		return domain.Text(fmt.Sprintf("Set %s = %s.", fields[0], fields[1])), nil
	}
	return domain.Text("Usage: /settings [<key> <value>]"), nil
}

func (e *Engine) handleBroadcast(ctx context.Context, adminID, args string) (domain.Reply, error) {
	if args == "" {
		return domain.Text("Usage: /broadcast <message>"), nil
	}
	recipients, err := e.deps.Sessions.CustomerIDs(ctx)
	if err != nil {
		return domain.Reply{}, err
	}
	e.recordAdmin(adminID, "broadcast", map[string]any{"recipients": len(recipients)})
	return domain.Reply{
		Message:   fmt.Sprintf("Broadcasting to %d customer(s).", len(recipients)),
		Broadcast: &domain.Broadcast{Message: args, Recipients: recipients},
	}, nil
}

func (e *Engine) handleStats(ctx context.Context) (domain.Reply, error) {
	st, err := e.deps.Orders.Stats(ctx)
	if err != nil {
		return domain.Reply{}, err
	}
	if st.Count == 0 {
		return domain.Text("No orders yet."), nil
	}
	return domain.Text(fmt.Sprintf("Orders: %d. Revenue: $%.2f (Rp%d). Last order: %s.",
		st.Count, st.RevenueUSD, st.RevenueIDR, st.LastOrderAt.Format("2006-01-02 15:04"))), nil
}

func (e *Engine) handleStatus(ctx context.Context, args string) (domain.Reply, error) {
	fields := strings.Fields(args)
	if len(fields) != 1 {
		return domain.Text("Usage: /status <customerId>"), nil
	}
	sess, err := e.deps.Sessions.Get(ctx, fields[0])
	if err != nil {
		return domain.Reply{}, err
	}
	return domain.Text(fmt.Sprintf("Customer %s: step=%s cart=%d item(s) order=%s",
		sess.CustomerID, sess.Step, len(sess.Cart), orDash(sess.OrderID))), nil
}

func (e *Engine) recordAdmin(adminID, action string, meta map[string]any) {
	meta["action"] = action
	e.deps.Audit.Record(audit.New(audit.EventAdminAction, adminID, meta))
}

func firstWord(s string) string {
	if i := strings.IndexByte(s, ' '); i >= 0 {
		return s[:i]
	}
	return s
}

func splitPipe(s string) []string {
	parts := strings.Split(s, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
