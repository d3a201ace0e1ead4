// Package server assembles the Fiber application: middleware, page routes
// and the bearer-token JSON API.
package server

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/jmoiron/sqlx"

	"cellarbook/internal/config"
	"cellarbook/internal/http/handlers"
	applog "cellarbook/internal/log"
	"cellarbook/internal/web"
)

// Limits caps request rates; zero fields fall back to DefaultLimits.
type Limits struct {
	Global int // per IP per minute
	Login  int // per IP per 10 minutes
	API    int // per IP per minute
}

var DefaultLimits = Limits{Global: 120, Login: 5, API: 60}

func isAPI(c *fiber.Ctx) bool { return strings.HasPrefix(c.Path(), "/api/") }

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "Something went wrong. Please try again."
	var fe *fiber.Error
	if errors.As(err, &fe) && fe.Code < fiber.StatusInternalServerError {
		code, msg = fe.Code, fe.Message
	} else {
		applog.Error(c, "server.error", err, nil)
	}
	if isAPI(c) {
		return c.Status(code).JSON(fiber.Map{"error": msg})
	}
	if rerr := c.Status(code).Render("notfound", fiber.Map{"Message": msg}); rerr != nil {
		return c.Status(code).SendString(msg)
	}
	return nil
}

// New builds the application on top of an opened database.
func New(db *sqlx.DB, cfg config.Config, lim Limits) *fiber.App {
	if lim.Global == 0 {
		lim.Global = DefaultLimits.Global
	}
	if lim.Login == 0 {
		lim.Login = DefaultLimits.Login
	}
	if lim.API == 0 {
		lim.API = DefaultLimits.API
	}
	deps := handlers.NewDeps(db, cfg)

	app := fiber.New(fiber.Config{
		Views:        web.Engine(),
		BodyLimit:    1 << 20,
		ErrorHandler: errorHandler,
	})

	// ---------- Middlewares ----------
	app.Use(requestid.New())
	app.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} ${method} ${path} ${latency}\n",
	}))
	app.Use(helmet.New())
	// Attach user to context if logged in (for templates and logs)
	app.Use(func(c *fiber.Ctx) error {
		if sid := c.Cookies("sid"); sid != "" {
			if u, err := deps.Auth.CurrentUser(sid); err == nil && u != nil {
				c.Locals("user", u)
			}
		}
		return c.Next()
	})
	app.Use(limiter.New(limiter.Config{
		Max:        lim.Global,
		Expiration: time.Minute,
		Next:       func(c *fiber.Ctx) bool { return c.Path() == "/healthz" },
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.global.hit", nil)
			return fiber.NewError(fiber.StatusTooManyRequests, "Too many requests. Please slow down.")
		},
	}))
	app.Use(csrf.New(csrf.Config{
		KeyLookup:      "form:csrf",
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		CookieSecure:   cfg.CookieSecure,
		CookieHTTPOnly: true,
		Expiration:     2 * time.Hour,
		ContextKey:     "csrf",
		Next:           isAPI,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			applog.Security(c, "csrf.fail", map[string]any{"reason": err.Error()})
			return c.Status(fiber.StatusForbidden).Render("notfound", fiber.Map{"Message": "Security check failed. Please refresh and try again."})
		},
	}))

	// ---------- Public ----------
	app.Get("/healthz", func(c *fiber.Ctx) error {
		if err := db.PingContext(c.UserContext()); err != nil {
			applog.Error(c, "health.db", err, nil)
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"ok": false})
		}
		return c.JSON(fiber.Map{"ok": true})
	})

	authH := deps.AuthHandler
	app.Get("/login", authH.LoginForm)
	app.Post("/login", limiter.New(limiter.Config{
		Max:        lim.Login,
		Expiration: 10 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP() + "|login"
		},
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.login.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).Render("login", fiber.Map{"Err": "Too many attempts. Please try again later."})
		},
	}), authH.Login)
	app.Get("/register", authH.RegisterForm)
	app.Post("/register", authH.Register)
	app.Post("/logout", authH.Logout)
	app.Get("/auth/oauth", deps.OAuthHandler.Start)
	app.Get("/auth/oauth/callback", deps.OAuthHandler.Callback)

	// ---------- JSON API ----------
	api := app.Group("/api/v1", cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		MaxAge:       600,
	}), limiter.New(limiter.Config{
		Max:        lim.API,
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP() + "|api"
		},
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.api.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate limit exceeded, retry soon"})
		},
	}))
	apiH := deps.APIHandler
	api.Post("/token", apiH.Token)
	secured := api.Group("", handlers.RequireToken(deps.Tokens))
	secured.Get("/wines", apiH.ListWines)
	secured.Get("/wines/:id/availability", apiH.Availability)
	secured.Get("/orders", apiH.ListOrders)
	secured.Post("/orders", apiH.CreateOrder)
	secured.Get("/orders/:id", apiH.GetOrder)
	secured.Post("/orders/:id/advance", apiH.AdvanceOrder)
	secured.Post("/orders/:id/cancel", apiH.CancelOrder)
	secured.Get("/invoices", apiH.ListInvoices)
	secured.Post("/invoices/:id/pay", apiH.PayInvoice)
	secured.Get("/dashboard", apiH.Dashboard)

	// ---------- Signed-in pages ----------
	user := handlers.RequireUser(deps.Auth)
	app.Get("/", user, deps.DashboardHandler.Home)

	cust := app.Group("/customers", user)
	cust.Get("/", deps.CustomerHandler.List)
	cust.Get("/new", deps.CustomerHandler.New)
	cust.Post("/", deps.CustomerHandler.Create)
	cust.Get("/:id", deps.CustomerHandler.Show)
	cust.Get("/:id/edit", deps.CustomerHandler.Edit)
	cust.Post("/:id", deps.CustomerHandler.Update)
	cust.Post("/:id/delete", deps.CustomerHandler.Delete)

	wines := app.Group("/wines", user)
	wines.Get("/", deps.WineHandler.List)
	wines.Get("/new", deps.WineHandler.New)
	wines.Post("/", deps.WineHandler.Create)
	wines.Get("/:id", deps.WineHandler.Show)
	wines.Post("/:id", deps.WineHandler.Update)
	wines.Post("/:id/stock", deps.WineHandler.Adjust)
	wines.Post("/:id/delete", deps.WineHandler.Delete)

	orders := app.Group("/orders", user)
	orders.Get("/", deps.OrderHandler.List)
	orders.Get("/new", deps.OrderHandler.New)
	orders.Post("/", deps.OrderHandler.Create)
	orders.Get("/:id", deps.OrderHandler.Show)
	orders.Post("/:id/advance", deps.OrderHandler.Advance)
	orders.Post("/:id/cancel", deps.OrderHandler.Cancel)

	invoices := app.Group("/invoices", user)
	invoices.Get("/", deps.InvoiceHandler.List)
	invoices.Get("/:id", deps.InvoiceHandler.Show)
	invoices.Get("/:id/pdf", deps.InvoiceHandler.PDF)
	invoices.Post("/:id/pay", deps.InvoiceHandler.Pay)
	invoices.Post("/:id/cancel", deps.InvoiceHandler.Cancel)

	app.Get("/export/:kind", user, deps.ExportHandler.CSV)

	admin := app.Group("/admin", handlers.RequireAdmin(deps.Auth))
	admin.Get("/users", deps.AdminHandler.UsersPage)
	admin.Post("/users/:id/delete", deps.AdminHandler.DeleteUser)

	app.Use(func(c *fiber.Ctx) error {
		if isAPI(c) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
		}
		return c.Status(fiber.StatusNotFound).Render("notfound", fiber.Map{"Message": "Page not found"})
	})

	return app
}
