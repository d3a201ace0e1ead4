package handlers

import (
	"github.com/gofiber/fiber/v2"

	"cellarbook/internal/services"
)

type DashboardHandler struct {
	Dash *services.DashboardService
}

// GET /
func (h *DashboardHandler) Home(c *fiber.Ctx) error {
	d, err := h.Dash.Build(currentUser(c).ID)
	if err != nil {
		return fail(c, "dashboard.load", err)
	}
	return render(c, "dashboard", fiber.Map{"Title": "Dashboard", "Dash": d})
}
