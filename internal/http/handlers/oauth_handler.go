package handlers

import (
	"crypto/subtle"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"cellarbook/internal/log"
	"cellarbook/internal/services"
)

const stateCookie = "oauth_state"

type OAuthHandler struct {
	Auth   *services.AuthService
	OAuth  *services.OAuthService
	Secure bool
}

func oauthProviderName(s *services.OAuthService) string {
	if s == nil || s.Provider == "" {
		return "single sign-on"
	}
	return s.Provider
}

// Start redirects to the provider with a one-time state kept in a cookie.
func (h *OAuthHandler) Start(c *fiber.Ctx) error {
	state := uuid.NewString()
	url, err := h.OAuth.AuthURL(state)
	if err != nil {
		return render(c.Status(fiber.StatusNotFound), "notfound", fiber.Map{"Message": "Single sign-on is not configured"})
	}
	c.Cookie(&fiber.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/auth",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Secure:   h.Secure,
		Expires:  time.Now().Add(10 * time.Minute),
	})
	return c.Redirect(url)
}

func (h *OAuthHandler) Callback(c *fiber.Ctx) error {
	want := c.Cookies(stateCookie)
	got := c.Query("state")
	c.Cookie(&fiber.Cookie{Name: stateCookie, Value: "", Path: "/auth", HTTPOnly: true, Expires: time.Now().Add(-time.Hour)})

	if want == "" || subtle.ConstantTimeCompare([]byte(want), []byte(got)) != 1 {
		log.Security(c, "auth.oauth.state_mismatch", nil)
		return render(c.Status(fiber.StatusBadRequest), "notfound", fiber.Map{"Message": "Sign-in expired. Please try again."})
	}
	if e := c.Query("error"); e != "" {
		log.Security(c, "auth.oauth.denied", map[string]any{"error": e})
		return c.Redirect("/login")
	}
	code := c.Query("code")
	if code == "" {
		return render(c.Status(fiber.StatusBadRequest), "notfound", fiber.Map{"Message": "Sign-in failed. Please try again."})
	}

	u, err := h.OAuth.Complete(c.UserContext(), code)
	if err != nil {
		log.Error(c, "auth.oauth.fail", err, map[string]any{"provider": h.OAuth.Provider})
		return render(c.Status(fiber.StatusUnauthorized), "notfound", fiber.Map{"Message": "Sign-in failed. Please try again."})
	}
	if err := h.Auth.StartSession(newSession(c, h.Secure), u); err != nil {
		return fail(c, "auth.oauth.session", err)
	}
	log.Audit(c, "auth.oauth.success", map[string]any{"email": u.Email, "provider": h.OAuth.Provider})
	return c.Redirect("/")
}
