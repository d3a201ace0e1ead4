package handlers

import (
	"github.com/jmoiron/sqlx"

	"cellarbook/internal/config"
	"cellarbook/internal/repos"
	"cellarbook/internal/services"
)

// Deps wires repositories and services into every handler the router needs.
type Deps struct {
	Auth   *services.AuthService
	Tokens *services.TokenService

	AuthHandler      *AuthHandler
	OAuthHandler     *OAuthHandler
	DashboardHandler *DashboardHandler
	CustomerHandler  *CustomerHandler
	WineHandler      *WineHandler
	OrderHandler     *OrderHandler
	InvoiceHandler   *InvoiceHandler
	ExportHandler    *ExportHandler
	AdminHandler     *AdminHandler
	APIHandler       *APIHandler
}

func NewDeps(db *sqlx.DB, cfg config.Config) *Deps {
	userRepo := repos.NewUserRepo(db)
	customerRepo := repos.NewCustomerRepo(db)
	wineRepo := repos.NewWineRepo(db)
	orderRepo := repos.NewOrderRepo(db)
	invoiceRepo := repos.NewInvoiceRepo(db)
	dashRepo := repos.NewDashboardRepo(db)

	authSvc := &services.AuthService{Users: userRepo}
	tokenSvc := services.NewTokenService(cfg.JWTSecret, cfg.JWTTTL, userRepo)
	oauthSvc := services.NewOAuthService(cfg.OAuth(), userRepo)
	customerSvc := services.NewCustomerService(customerRepo)
	wineSvc := services.NewWineService(wineRepo)
	invoiceSvc := services.NewInvoiceService(invoiceRepo, cfg.InvoiceDueDays)
	orderSvc := services.NewOrderService(orderRepo, wineRepo, customerRepo, invoiceSvc)
	dashSvc := services.NewDashboardService(dashRepo, wineRepo)
	exportSvc := services.NewExportService(customerRepo, wineRepo, orderRepo, invoiceRepo)

	return &Deps{
		Auth:   authSvc,
		Tokens: tokenSvc,

		AuthHandler:      &AuthHandler{Auth: authSvc, OAuth: oauthSvc, Secure: cfg.CookieSecure},
		OAuthHandler:     &OAuthHandler{Auth: authSvc, OAuth: oauthSvc, Secure: cfg.CookieSecure},
		DashboardHandler: &DashboardHandler{Dash: dashSvc},
		CustomerHandler:  &CustomerHandler{Customers: customerSvc, Orders: orderSvc},
		WineHandler:      &WineHandler{Wines: wineSvc},
		OrderHandler:     &OrderHandler{Orders: orderSvc, Customers: customerSvc, Wines: wineSvc, Invoices: invoiceSvc},
		InvoiceHandler:   &InvoiceHandler{Invoices: invoiceSvc, Export: exportSvc},
		ExportHandler:    &ExportHandler{Export: exportSvc},
		AdminHandler:     &AdminHandler{Users: userRepo},
		APIHandler: &APIHandler{
			Auth: authSvc, Tokens: tokenSvc, Wines: wineSvc,
			Orders: orderSvc, Invoices: invoiceSvc, Dash: dashSvc,
		},
	}
}
