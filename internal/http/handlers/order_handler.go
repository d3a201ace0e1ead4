package handlers

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"cellarbook/internal/domain"
	applog "cellarbook/internal/log"
	"cellarbook/internal/services"
	"cellarbook/internal/validate"
)

const orderFormRows = 6

type OrderHandler struct {
	Orders    *services.OrderService
	Customers *services.CustomerService
	Wines     *services.WineService
	Invoices  *services.InvoiceService
}

// GET /orders
func (h *OrderHandler) List(c *fiber.Ctx) error {
	status, p := c.Query("status"), page(c)
	orders, err := h.Orders.List(currentUser(c).ID, status, c.Query("customer"), p, 25)
	if err != nil {
		return fail(c, "orders.list", err)
	}
	return render(c, "orders", fiber.Map{
		"Title": "Orders", "Orders": orders, "Status": status, "Statuses": domain.OrderStatuses, "Page": p,
	})
}

func (h *OrderHandler) form(c *fiber.Ctx, status int, customerID, notes, msg string, short []domain.Shortage) error {
	owner := currentUser(c).ID
	customers, err := h.Customers.List(owner, "", 1, 500)
	if err != nil {
		return fail(c, "orders.form", err)
	}
	wines, err := h.Wines.List(owner, "", "", false, 1, 500)
	if err != nil {
		return fail(c, "orders.form", err)
	}
	return render(c.Status(status), "order_form", fiber.Map{
		"Title":      "New order",
		"Customers":  customers,
		"Wines":      wines,
		"Rows":       make([]struct{}, orderFormRows),
		"CustomerID": customerID,
		"Notes":      notes,
		"Err":        msg,
		"Shortages":  short,
	})
}

// GET /orders/new
func (h *OrderHandler) New(c *fiber.Ctx) error {
	return h.form(c, fiber.StatusOK, c.Query("customer"), "", "", nil)
}

// parseOrderForm reads the repeated wine_id/quantity/discount columns of the
// order form, skipping rows without a wine.
func parseOrderForm(c *fiber.Ctx) (services.OrderInput, error) {
	args := c.Request().PostArgs()
	in := services.OrderInput{
		CustomerID:     string(args.Peek("customer_id")),
		Notes:          string(args.Peek("notes")),
		AllowBackorder: string(args.Peek("allow_backorder")) != "",
	}
	wines := args.PeekMulti("wine_id")
	qtys := args.PeekMulti("quantity")
	discs := args.PeekMulti("discount")
	for i, w := range wines {
		id := strings.TrimSpace(string(w))
		if id == "" {
			continue
		}
		var qty, disc string
		if i < len(qtys) {
			qty = strings.TrimSpace(string(qtys[i]))
		}
		if i < len(discs) {
			disc = string(discs[i])
		}
		n, err := strconv.Atoi(qty)
		if err != nil {
			return in, domain.Invalid("quantity", "enter a whole number of bottles for every wine")
		}
		in.Lines = append(in.Lines, services.LineInput{WineID: id, Quantity: n, Discount: services.Percent(disc)})
	}
	return in, nil
}

// POST /orders
func (h *OrderHandler) Create(c *fiber.Ctx) error {
	in, err := parseOrderForm(c)
	if err == nil {
		var o domain.Order
		o, err = h.Orders.Create(currentUser(c).ID, in)
		if err == nil {
			applog.Audit(c, "orders.create", map[string]any{
				"order_id": o.ID, "total": o.Total.StringFixed(2), "lines": len(o.Lines), "backordered": o.Backordered(),
			})
			return c.Redirect("/orders/" + o.ID)
		}
	}

	var ve *domain.ValidationError
	var se *domain.StockError
	switch {
	case errors.As(err, &ve):
		logFailure(c, "orders.create", fiber.StatusBadRequest, err)
		return h.form(c, fiber.StatusBadRequest, in.CustomerID, in.Notes, ve.Reason, nil)
	case errors.As(err, &se):
		applog.Info(c, "orders.create.short", map[string]any{"shortages": len(se.Shortages)})
		return h.form(c, fiber.StatusConflict, in.CustomerID, in.Notes, "", se.Shortages)
	}
	return fail(c, "orders.create", err)
}

// GET /orders/:id
func (h *OrderHandler) Show(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return fail(c, "orders.show", err)
	}
	owner := currentUser(c).ID
	o, err := h.Orders.Get(owner, id)
	if err != nil {
		return fail(c, "orders.show", err)
	}
	data := fiber.Map{
		"Title":       "Order",
		"Order":       o,
		"Next":        o.Status.Next(),
		"Cancellable": o.Status.CanTransition(domain.OrderCancelled),
	}
	if o.Backordered() && !o.Status.Terminal() {
		short, err := h.Orders.Shortages(owner, o.ID)
		if err != nil {
			return fail(c, "orders.show", err)
		}
		data["Shortages"] = short
	}
	if o.Status == domain.OrderInvoiced {
		inv, err := h.Invoices.ByOrder(owner, o.ID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return fail(c, "orders.show", err)
		}
		if err == nil {
			data["Invoice"] = inv
		}
	}
	return render(c, "order", data)
}

// POST /orders/:id/advance
func (h *OrderHandler) Advance(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return fail(c, "orders.advance", err)
	}
	var from domain.OrderStatus
	if f := c.FormValue("from"); f != "" {
		var ok bool
		if from, ok = validate.OrderStatus(f); !ok {
			return fail(c, "orders.advance", domain.Invalid("from", "unknown order status"))
		}
	}
	res, err := h.Orders.Advance(currentUser(c).ID, id, from)
	if err != nil {
		return fail(c, "orders.advance", err)
	}
	fields := map[string]any{"order_id": id, "status": res.Order.Status}
	if len(res.Shortages) > 0 {
		fields["acknowledged_shortages"] = len(res.Shortages)
	}
	if res.Invoice != nil {
		fields["invoice"] = res.Invoice.Number
	}
	applog.Audit(c, "orders.advance", fields)
	return c.Redirect("/orders/" + id)
}

// POST /orders/:id/cancel
func (h *OrderHandler) Cancel(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return fail(c, "orders.cancel", err)
	}
	if _, err := h.Orders.Cancel(currentUser(c).ID, id); err != nil {
		return fail(c, "orders.cancel", err)
	}
	applog.Audit(c, "orders.cancel", map[string]any{"order_id": id})
	return c.Redirect("/orders/" + id)
}

