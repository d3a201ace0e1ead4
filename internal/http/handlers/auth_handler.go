package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"cellarbook/internal/domain"
	"cellarbook/internal/log"
	"cellarbook/internal/services"
	"cellarbook/internal/validate"
)

type AuthHandler struct {
	Auth   *services.AuthService
	OAuth  *services.OAuthService
	Secure bool
}

// newSession always issues a fresh session id so a pre-login id cannot be fixated.
func newSession(c *fiber.Ctx, secure bool) string {
	sid := uuid.NewString()
	setSessionCookie(c, sid, secure)
	return sid
}

func setSessionCookie(c *fiber.Ctx, sid string, secure bool) {
	c.Cookie(&fiber.Cookie{
		Name:     "sid",
		Value:    sid,
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Secure:   secure,
		Expires:  time.Now().Add(7 * 24 * time.Hour),
	})
}

func (h *AuthHandler) loginPage(c *fiber.Ctx, status int, email, msg string) error {
	return render(c.Status(status), "login", fiber.Map{
		"Title":         "Log in",
		"Err":           msg,
		"Email":         email,
		"OAuth":         h.OAuth.Enabled(),
		"OAuthProvider": oauthProviderName(h.OAuth),
	})
}

func (h *AuthHandler) LoginForm(c *fiber.Ctx) error {
	if currentUser(c) != nil {
		return c.Redirect("/")
	}
	return h.loginPage(c, fiber.StatusOK, "", "")
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	email, ok := validate.Email(c.FormValue("email"))
	pass := c.FormValue("password")
	if !ok {
		log.Security(c, "auth.login.fail", map[string]any{"reason": "bad_format"})
		return h.loginPage(c, fiber.StatusUnauthorized, "", "Invalid email or password")
	}
	if !validate.Password(pass) {
		log.Security(c, "auth.login.fail", map[string]any{"email": email, "reason": "bad_password_format"})
		return h.loginPage(c, fiber.StatusUnauthorized, email, "Invalid email or password")
	}

	// The cookie is only replaced once the credentials check out.
	sid := uuid.NewString()
	if _, err := h.Auth.Login(sid, email, pass); err != nil {
		if !errors.Is(err, services.ErrBadCreds) {
			log.Error(c, "auth.login.error", err, nil)
		}
		log.Security(c, "auth.login.fail", map[string]any{"email": email})
		return h.loginPage(c, fiber.StatusUnauthorized, email, "Invalid email or password")
	}

	setSessionCookie(c, sid, h.Secure)
	log.Audit(c, "auth.login.success", map[string]any{"email": email})
	return c.Redirect("/")
}

func (h *AuthHandler) RegisterForm(c *fiber.Ctx) error {
	return render(c, "register", fiber.Map{"Title": "Register"})
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	email, name, pass := c.FormValue("email"), c.FormValue("name"), c.FormValue("password")
	u, err := h.Auth.Register(email, name, pass)
	if err != nil {
		status, msg := statusFor(err)
		if errors.Is(err, domain.ErrDuplicate) {
			msg = "An account with that email already exists"
		}
		logFailure(c, "auth.register", status, err)
		return render(c.Status(status), "register", fiber.Map{"Title": "Register", "Err": msg, "Email": email, "Name": name})
	}
	if err := h.Auth.StartSession(newSession(c, h.Secure), u); err != nil {
		return fail(c, "auth.register.session", err)
	}
	log.Audit(c, "auth.register", map[string]any{"email": u.Email, "user": u.ID})
	return c.Redirect("/")
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if sid := c.Cookies("sid"); sid != "" {
		_ = h.Auth.Logout(sid)
	}
	c.Cookie(&fiber.Cookie{
		Name:     "sid",
		Value:    "",
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Secure:   h.Secure,
		Expires:  time.Now().Add(-1 * time.Hour),
	})
	log.Audit(c, "auth.logout", nil)
	return c.Redirect("/login")
}
