package handlers

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"cellarbook/internal/domain"
	applog "cellarbook/internal/log"
	"cellarbook/internal/services"
)

type WineHandler struct {
	Wines *services.WineService
}

// GET /wines
func (h *WineHandler) List(c *fiber.Ctx) error {
	q, typ, low, p := c.Query("q"), c.Query("type"), c.Query("low") != "", page(c)
	ws, err := h.Wines.List(currentUser(c).ID, q, typ, low, p, 25)
	if err != nil {
		return fail(c, "wines.list", err)
	}
	return render(c, "wines", fiber.Map{
		"Title": "Wines", "Wines": ws, "Q": q, "Type": typ, "Low": low, "Page": p, "Types": domain.WineTypes,
	})
}

func (h *WineHandler) form(c *fiber.Ctx, status int, w *domain.Wine, in services.WineInput, msg string) error {
	data := fiber.Map{"Title": "Wine", "ID": "", "Form": in, "Types": domain.WineTypes, "Action": "/wines", "Err": msg}
	if w != nil {
		data["ID"] = w.ID
		data["Wine"] = w
		data["Action"] = "/wines/" + w.ID
	}
	return render(c.Status(status), "wine_form", data)
}

func inputFor(w domain.Wine) services.WineInput {
	return services.WineInput{
		Name:       w.Name,
		Type:       string(w.Type),
		Region:     w.Region,
		Year:       strconv.Itoa(w.Year),
		Price:      w.Price.StringFixed(2),
		StockAlert: strconv.Itoa(w.StockAlert),
	}
}

// GET /wines/new
func (h *WineHandler) New(c *fiber.Ctx) error {
	return h.form(c, fiber.StatusOK, nil, services.WineInput{Type: string(domain.WineRed)}, "")
}

// POST /wines
func (h *WineHandler) Create(c *fiber.Ctx) error {
	var in services.WineInput
	if err := c.BodyParser(&in); err != nil {
		return fail(c, "wines.create", domain.Invalid("form", "could not read the form"))
	}
	w, err := h.Wines.Create(currentUser(c).ID, in)
	if err != nil {
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			logFailure(c, "wines.create", fiber.StatusBadRequest, err)
			return h.form(c, fiber.StatusBadRequest, nil, in, ve.Reason)
		}
		return fail(c, "wines.create", err)
	}
	applog.Audit(c, "wines.create", map[string]any{"wine_id": w.ID, "stock": w.Stock})
	return c.Redirect("/wines/" + w.ID)
}

// GET /wines/:id
func (h *WineHandler) Show(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return fail(c, "wines.show", err)
	}
	w, err := h.Wines.Get(currentUser(c).ID, id)
	if err != nil {
		return fail(c, "wines.show", err)
	}
	return h.form(c, fiber.StatusOK, &w, inputFor(w), "")
}

// POST /wines/:id
func (h *WineHandler) Update(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return fail(c, "wines.update", err)
	}
	owner := currentUser(c).ID
	var in services.WineInput
	if err := c.BodyParser(&in); err != nil {
		return fail(c, "wines.update", domain.Invalid("form", "could not read the form"))
	}
	if _, err := h.Wines.Update(owner, id, in); err != nil {
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			w, gerr := h.Wines.Get(owner, id)
			if gerr != nil {
				return fail(c, "wines.update", gerr)
			}
			logFailure(c, "wines.update", fiber.StatusBadRequest, err)
			return h.form(c, fiber.StatusBadRequest, &w, in, ve.Reason)
		}
		return fail(c, "wines.update", err)
	}
	applog.Audit(c, "wines.update", map[string]any{"wine_id": id})
	return c.Redirect("/wines/" + id)
}

// POST /wines/:id/stock
func (h *WineHandler) Adjust(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return fail(c, "wines.stock", err)
	}
	delta, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(c.FormValue("delta")), "+"))
	if err != nil || delta < -100000 || delta > 100000 {
		return fail(c, "wines.stock", domain.Invalid("delta", "enter a whole number of bottles"))
	}
	level, err := h.Wines.AdjustStock(currentUser(c).ID, id, delta)
	if err != nil {
		return fail(c, "wines.stock", err)
	}
	applog.Audit(c, "wines.stock.adjust", map[string]any{"wine_id": id, "delta": delta, "stock": level})
	return c.Redirect("/wines/" + id)
}

// POST /wines/:id/delete
func (h *WineHandler) Delete(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return fail(c, "wines.delete", err)
	}
	if err := h.Wines.Delete(currentUser(c).ID, id); err != nil {
		return fail(c, "wines.delete", err)
	}
	applog.Audit(c, "wines.delete", map[string]any{"wine_id": id})
	return c.Redirect("/wines")
}
