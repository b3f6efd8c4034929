package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/member-portal/internal/api/http/handlers"
	"github.com/spec-kit/member-portal/internal/auth"
	"github.com/spec-kit/member-portal/internal/domain"
	"github.com/spec-kit/member-portal/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health        *handlers.HealthHandler
	Pages         *handlers.PagesHandler
	Auth          *handlers.AuthHandler
	Account       *handlers.AccountHandler
	Organizations *handlers.OrganizationsHandler
	Gate          *auth.Gate
	Roles         auth.OrganizationRoles
	Metrics       *observability.Metrics
}

// NewApp builds the fiber app. Immutable is required: handlers keep bound
// form values past the request (stored users, queued notification events)
// and fasthttp reuses the request buffer otherwise.
func NewApp(appName string, views fiber.Views, quiet bool) *fiber.App {
	return fiber.New(fiber.Config{
		AppName:               appName,
		Views:                 views,
		Immutable:             true,
		DisableStartupMessage: quiet,
	})
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Metrics.Registry(), promhttp.HandlerOpts{})))
	}

	optional := cfg.Gate.OptionalUser()
	app.Get("/", optional, cfg.Pages.Index)
	app.Get("/login", optional, cfg.Pages.Login)
	app.Get("/register", optional, cfg.Pages.Register)
	app.Get("/forgot_password", optional, cfg.Pages.ForgotPassword)
	app.Get("/about", optional, cfg.Pages.About)
	app.Get("/privacy_policy", optional, cfg.Pages.PrivacyPolicy)
	app.Get("/terms_of_service", optional, cfg.Pages.TermsOfService)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Get("/logout", optional, cfg.Auth.Logout)
	authGroup.Post("/forgot_password", cfg.Auth.ForgotPassword)
	authGroup.Get("/reset_password", optional, cfg.Auth.ResetPasswordPage)
	authGroup.Post("/reset_password", cfg.Auth.ResetPassword)

	required := cfg.Gate.RequireUser()
	app.Get("/dashboard", required, cfg.Pages.Dashboard)
	app.Get("/profile", required, cfg.Pages.Profile)
	app.Post("/profile", required, cfg.Account.UpdateProfile)
	app.Post("/profile/delete", required, cfg.Account.DeleteAccount)

	app.Post("/organizations", required, cfg.Organizations.Create)
	app.Get("/organizations/:id", required, auth.RequireOrganizationRole(cfg.Roles), cfg.Organizations.Show)
	ownerOnly := auth.RequireOrganizationRole(cfg.Roles, domain.RoleOwner)
	app.Post("/organizations/:id", required, ownerOnly, cfg.Organizations.Rename)
	app.Post("/organizations/:id/roles", required, ownerOnly, cfg.Organizations.CreateRole)
	app.Post("/organizations/:id/members", required, ownerOnly, cfg.Organizations.AddMember)
}
