package handlers

import (
	"github.com/gofiber/fiber/v2"

	"cellarbook/internal/domain"
	applog "cellarbook/internal/log"
	"cellarbook/internal/repos"
)

type AdminHandler struct {
	Users *repos.UserRepo
}

// GET /admin/users
func (h *AdminHandler) UsersPage(c *fiber.Ctx) error {
	users, err := h.Users.List()
	if err != nil {
		return fail(c, "admin.users.list", err)
	}
	return render(c, "admin_users", fiber.Map{"Title": "Users", "Users": users})
}

// DeleteUser removes a user together with everything they own.
func (h *AdminHandler) DeleteUser(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return fail(c, "admin.users.delete", err)
	}
	if id == currentUser(c).ID {
		return fail(c, "admin.users.delete", domain.Invalid("id", "you cannot delete your own account"))
	}
	if err := h.Users.DeleteUserCascade(id); err != nil {
		return fail(c, "admin.users.delete", err)
	}
	applog.Audit(c, "admin.users.delete", map[string]any{"user_id": id})
	return c.Redirect("/admin/users")
}
