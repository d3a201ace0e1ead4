package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"cellarbook/internal/domain"
	applog "cellarbook/internal/log"
	"cellarbook/internal/services"
	"cellarbook/internal/validate"
)

// APIHandler serves /api/v1. Every route except Token runs behind RequireToken.
type APIHandler struct {
	Auth     *services.AuthService
	Tokens   *services.TokenService
	Wines    *services.WineService
	Orders   *services.OrderService
	Invoices *services.InvoiceService
	Dash     *services.DashboardService
}

type tokenRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// POST /api/v1/token
func (h *APIHandler) Token(c *fiber.Ctx) error {
	var req tokenRequest
	if err := c.BodyParser(&req); err != nil {
		return apiFail(c, "api.token", domain.Invalid("body", "expected JSON with email and password"))
	}
	email, ok := validate.Email(req.Email)
	if !ok {
		applog.Security(c, "api.token.fail", map[string]any{"reason": "bad_format"})
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": services.ErrBadCreds.Error()})
	}
	u, err := h.Auth.Authenticate(email, req.Password)
	if err != nil {
		if !errors.Is(err, services.ErrBadCreds) {
			return apiFail(c, "api.token", err)
		}
		applog.Security(c, "api.token.fail", map[string]any{"email": email})
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": services.ErrBadCreds.Error()})
	}
	tok, exp, err := h.Tokens.Issue(u)
	if err != nil {
		return apiFail(c, "api.token", err)
	}
	c.Locals("user", u)
	applog.Audit(c, "api.token.issue", nil)
	return c.JSON(fiber.Map{"token": tok, "token_type": "Bearer", "expires_at": exp.UTC().Format(time.RFC3339)})
}

// GET /api/v1/wines
func (h *APIHandler) ListWines(c *fiber.Ctx) error {
	ws, err := h.Wines.List(currentUser(c).ID, c.Query("q"), c.Query("type"), c.QueryBool("low"), page(c), 100)
	if err != nil {
		return apiFail(c, "api.wines.list", err)
	}
	return c.JSON(fiber.Map{"wines": ws})
}

// GET /api/v1/wines/:id/availability
func (h *APIHandler) Availability(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return apiFail(c, "api.wines.availability", err)
	}
	a, err := h.Wines.Availability(currentUser(c).ID, id)
	if err != nil {
		return apiFail(c, "api.wines.availability", err)
	}
	return c.JSON(a)
}

// GET /api/v1/orders
func (h *APIHandler) ListOrders(c *fiber.Ctx) error {
	orders, err := h.Orders.List(currentUser(c).ID, c.Query("status"), c.Query("customer"), page(c), 100)
	if err != nil {
		return apiFail(c, "api.orders.list", err)
	}
	return c.JSON(fiber.Map{"orders": orders})
}

// POST /api/v1/orders
func (h *APIHandler) CreateOrder(c *fiber.Ctx) error {
	var in services.OrderInput
	if err := c.BodyParser(&in); err != nil {
		return apiFail(c, "api.orders.create", domain.Invalid("body", "expected a JSON order"))
	}
	o, err := h.Orders.Create(currentUser(c).ID, in)
	if err != nil {
		return apiFail(c, "api.orders.create", err)
	}
	applog.Audit(c, "api.orders.create", map[string]any{"order_id": o.ID, "total": o.Total.StringFixed(2)})
	return c.Status(fiber.StatusCreated).JSON(o)
}

// GET /api/v1/orders/:id
func (h *APIHandler) GetOrder(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return apiFail(c, "api.orders.get", err)
	}
	o, err := h.Orders.Get(currentUser(c).ID, id)
	if err != nil {
		return apiFail(c, "api.orders.get", err)
	}
	return c.JSON(o)
}

type advanceRequest struct {
	From string `json:"from"`
}

// POST /api/v1/orders/:id/advance
func (h *APIHandler) AdvanceOrder(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return apiFail(c, "api.orders.advance", err)
	}
	var req advanceRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apiFail(c, "api.orders.advance", domain.Invalid("body", "expected JSON"))
		}
	}
	var from domain.OrderStatus
	if req.From != "" {
		var ok bool
		if from, ok = validate.OrderStatus(req.From); !ok {
			return apiFail(c, "api.orders.advance", domain.Invalid("from", "unknown order status"))
		}
	}
	res, err := h.Orders.Advance(currentUser(c).ID, id, from)
	if err != nil {
		return apiFail(c, "api.orders.advance", err)
	}
	applog.Audit(c, "api.orders.advance", map[string]any{"order_id": id, "status": res.Order.Status})
	return c.JSON(res)
}

// POST /api/v1/orders/:id/cancel
func (h *APIHandler) CancelOrder(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return apiFail(c, "api.orders.cancel", err)
	}
	o, err := h.Orders.Cancel(currentUser(c).ID, id)
	if err != nil {
		return apiFail(c, "api.orders.cancel", err)
	}
	applog.Audit(c, "api.orders.cancel", map[string]any{"order_id": id})
	return c.JSON(o)
}

// GET /api/v1/invoices
func (h *APIHandler) ListInvoices(c *fiber.Ctx) error {
	invs, err := h.Invoices.List(currentUser(c).ID, c.Query("status"), page(c), 100)
	if err != nil {
		return apiFail(c, "api.invoices.list", err)
	}
	return c.JSON(fiber.Map{"invoices": invs})
}

// POST /api/v1/invoices/:id/pay
func (h *APIHandler) PayInvoice(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return apiFail(c, "api.invoices.pay", err)
	}
	inv, err := h.Invoices.MarkPaid(currentUser(c).ID, id)
	if err != nil {
		return apiFail(c, "api.invoices.pay", err)
	}
	applog.Audit(c, "api.invoices.pay", map[string]any{"invoice": inv.Number})
	return c.JSON(inv)
}

// GET /api/v1/dashboard
func (h *APIHandler) Dashboard(c *fiber.Ctx) error {
	d, err := h.Dash.Build(currentUser(c).ID)
	if err != nil {
		return apiFail(c, "api.dashboard", err)
	}
	return c.JSON(d)
}
