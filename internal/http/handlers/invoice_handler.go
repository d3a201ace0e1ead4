package handlers

import (
	"bytes"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"cellarbook/internal/domain"
	applog "cellarbook/internal/log"
	"cellarbook/internal/services"
)

type InvoiceHandler struct {
	Invoices *services.InvoiceService
	Export   *services.ExportService
}

var invoiceStatuses = []domain.InvoiceStatus{domain.InvoicePending, domain.InvoicePaid, domain.InvoiceCancelled}

// GET /invoices
func (h *InvoiceHandler) List(c *fiber.Ctx) error {
	status, p := c.Query("status"), page(c)
	invs, err := h.Invoices.List(currentUser(c).ID, status, p, 25)
	if err != nil {
		return fail(c, "invoices.list", err)
	}
	return render(c, "invoices", fiber.Map{
		"Title": "Invoices", "Invoices": invs, "Status": status, "Statuses": invoiceStatuses, "Page": p,
	})
}

// GET /invoices/:id
func (h *InvoiceHandler) Show(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return fail(c, "invoices.show", err)
	}
	inv, err := h.Invoices.Get(currentUser(c).ID, id)
	if err != nil {
		return fail(c, "invoices.show", err)
	}
	return render(c, "invoice", fiber.Map{"Title": inv.Number, "Invoice": inv, "Open": inv.Status == domain.InvoicePending})
}

// GET /invoices/:id/pdf
func (h *InvoiceHandler) PDF(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return fail(c, "invoices.pdf", err)
	}
	var buf bytes.Buffer
	inv, err := h.Export.InvoicePDF(&buf, currentUser(c), id)
	if err != nil {
		return fail(c, "invoices.pdf", err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s.pdf"`, inv.Number))
	applog.Audit(c, "invoices.pdf", map[string]any{"invoice": inv.Number})
	return c.Send(buf.Bytes())
}

// POST /invoices/:id/pay
func (h *InvoiceHandler) Pay(c *fiber.Ctx) error {
	return h.settle(c, "invoices.pay", h.Invoices.MarkPaid)
}

// POST /invoices/:id/cancel
func (h *InvoiceHandler) Cancel(c *fiber.Ctx) error {
	return h.settle(c, "invoices.cancel", h.Invoices.Cancel)
}

func (h *InvoiceHandler) settle(c *fiber.Ctx, action string, fn func(ownerID, id string) (domain.Invoice, error)) error {
	id, err := idParam(c)
	if err != nil {
		return fail(c, action, err)
	}
	inv, err := fn(currentUser(c).ID, id)
	if err != nil {
		return fail(c, action, err)
	}
	applog.Audit(c, action, map[string]any{"invoice": inv.Number, "status": inv.Status})
	return c.Redirect("/invoices/" + id)
}
