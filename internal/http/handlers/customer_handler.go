package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"cellarbook/internal/domain"
	applog "cellarbook/internal/log"
	"cellarbook/internal/services"
)

type CustomerHandler struct {
	Customers *services.CustomerService
	Orders    *services.OrderService
}

// GET /customers
func (h *CustomerHandler) List(c *fiber.Ctx) error {
	q, p := c.Query("q"), page(c)
	cs, err := h.Customers.List(currentUser(c).ID, q, p, 25)
	if err != nil {
		return fail(c, "customers.list", err)
	}
	return render(c, "customers", fiber.Map{"Title": "Customers", "Customers": cs, "Q": q, "Page": p})
}

func (h *CustomerHandler) form(c *fiber.Ctx, status int, id string, in services.CustomerInput, msg string) error {
	action := "/customers"
	if id != "" {
		action += "/" + id
	}
	return render(c.Status(status), "customer_form", fiber.Map{"Title": "Customer", "ID": id, "Form": in, "Action": action, "Err": msg})
}

// GET /customers/new
func (h *CustomerHandler) New(c *fiber.Ctx) error {
	return h.form(c, fiber.StatusOK, "", services.CustomerInput{}, "")
}

// POST /customers
func (h *CustomerHandler) Create(c *fiber.Ctx) error {
	var in services.CustomerInput
	if err := c.BodyParser(&in); err != nil {
		return fail(c, "customers.create", domain.Invalid("form", "could not read the form"))
	}
	cust, err := h.Customers.Create(currentUser(c).ID, in)
	if err != nil {
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			logFailure(c, "customers.create", fiber.StatusBadRequest, err)
			return h.form(c, fiber.StatusBadRequest, "", in, ve.Reason)
		}
		return fail(c, "customers.create", err)
	}
	applog.Audit(c, "customers.create", map[string]any{"customer_id": cust.ID})
	return c.Redirect("/customers/" + cust.ID)
}

// GET /customers/:id
func (h *CustomerHandler) Show(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return fail(c, "customers.show", err)
	}
	owner := currentUser(c).ID
	cust, err := h.Customers.Get(owner, id)
	if err != nil {
		return fail(c, "customers.show", err)
	}
	orders, err := h.Orders.List(owner, "", cust.ID, 1, 50)
	if err != nil {
		return fail(c, "customers.show", err)
	}
	return render(c, "customer", fiber.Map{"Title": cust.Name, "Customer": cust, "Orders": orders})
}

// GET /customers/:id/edit
func (h *CustomerHandler) Edit(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return fail(c, "customers.edit", err)
	}
	cust, err := h.Customers.Get(currentUser(c).ID, id)
	if err != nil {
		return fail(c, "customers.edit", err)
	}
	in := services.CustomerInput{Name: cust.Name, Email: cust.Email, Phone: cust.Phone, Address: cust.Address, City: cust.City, Notes: cust.Notes}
	return h.form(c, fiber.StatusOK, cust.ID, in, "")
}

// POST /customers/:id
func (h *CustomerHandler) Update(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return fail(c, "customers.update", err)
	}
	var in services.CustomerInput
	if err := c.BodyParser(&in); err != nil {
		return fail(c, "customers.update", domain.Invalid("form", "could not read the form"))
	}
	if _, err := h.Customers.Update(currentUser(c).ID, id, in); err != nil {
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			logFailure(c, "customers.update", fiber.StatusBadRequest, err)
			return h.form(c, fiber.StatusBadRequest, id, in, ve.Reason)
		}
		return fail(c, "customers.update", err)
	}
	applog.Audit(c, "customers.update", map[string]any{"customer_id": id})
	return c.Redirect("/customers/" + id)
}

// POST /customers/:id/delete
func (h *CustomerHandler) Delete(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return fail(c, "customers.delete", err)
	}
	if err := h.Customers.Delete(currentUser(c).ID, id); err != nil {
		return fail(c, "customers.delete", err)
	}
	applog.Audit(c, "customers.delete", map[string]any{"customer_id": id})
	return c.Redirect("/customers")
}
