package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"cellarbook/internal/domain"
	applog "cellarbook/internal/log"
	"cellarbook/internal/validate"
)

func render(c *fiber.Ctx, tmpl string, data fiber.Map) error {
	if data == nil {
		data = fiber.Map{}
	}
	if u := currentUser(c); u != nil {
		data["User"] = u
	}
	if tok, _ := c.Locals("csrf").(string); tok != "" {
		data["CSRFToken"] = tok
	} else if tok := c.Cookies("csrf_"); tok != "" {
		data["CSRFToken"] = tok
	}
	return c.Render(tmpl, data)
}

// statusFor maps domain errors onto an HTTP status and a message that is safe
// to show; anything unexpected becomes a generic 500.
func statusFor(err error) (int, string) {
	var ve *domain.ValidationError
	var se *domain.StockError
	switch {
	case errors.As(err, &ve):
		return fiber.StatusBadRequest, ve.Reason
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound, "Not found"
	case errors.As(err, &se):
		return fiber.StatusConflict, se.Error()
	case errors.Is(err, domain.ErrInvalidTransition):
		return fiber.StatusConflict, "That step is not allowed in the current status"
	case errors.Is(err, domain.ErrConflict):
		return fiber.StatusConflict, "The record changed in the meantime; reload and try again"
	case errors.Is(err, domain.ErrInUse):
		return fiber.StatusConflict, "The record is still used by orders or invoices"
	case errors.Is(err, domain.ErrDuplicate):
		return fiber.StatusConflict, "That record already exists"
	}
	return fiber.StatusInternalServerError, "Something went wrong. Please try again."
}

func logFailure(c *fiber.Ctx, action string, status int, err error) {
	switch {
	case status >= fiber.StatusInternalServerError:
		applog.Error(c, action, err, nil)
	case status == fiber.StatusBadRequest:
		applog.Security(c, "validation.fail", map[string]any{"action": action, "reason": err.Error()})
	default:
		applog.Info(c, action+".rejected", map[string]any{"reason": err.Error()})
	}
}

// fail renders the error page for err.
func fail(c *fiber.Ctx, action string, err error) error {
	status, msg := statusFor(err)
	logFailure(c, action, status, err)
	return render(c.Status(status), "notfound", fiber.Map{"Message": msg})
}

// apiFail is the JSON counterpart of fail; stock errors carry the shortages.
func apiFail(c *fiber.Ctx, action string, err error) error {
	status, msg := statusFor(err)
	logFailure(c, action, status, err)
	body := fiber.Map{"error": msg}
	var se *domain.StockError
	if errors.As(err, &se) {
		body["shortages"] = se.Shortages
	}
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		body["field"] = ve.Field
	}
	return c.Status(status).JSON(body)
}

func page(c *fiber.Ctx) int { return validate.Page(c.Query("page")) }

// idParam returns the :id route parameter, or ErrNotFound for malformed ids.
func idParam(c *fiber.Ctx) (string, error) {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return "", domain.ErrNotFound
	}
	return id, nil
}
