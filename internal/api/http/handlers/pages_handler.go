package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/member-portal/internal/auth"
	"github.com/spec-kit/member-portal/internal/service"
)

// PagesHandler serves the static and account pages.
type PagesHandler struct {
	orgs *service.OrganizationService
}

// NewPagesHandler constructs handler.
func NewPagesHandler(orgs *service.OrganizationService) *PagesHandler {
	return &PagesHandler{orgs: orgs}
}

// Index handles GET /.
func (h *PagesHandler) Index(c *fiber.Ctx) error {
	return guestOnly(c, "index", "Home", nil)
}

// Login handles GET /login.
func (h *PagesHandler) Login(c *fiber.Ctx) error {
	data := fiber.Map{}
	if c.Query("reset") == "1" {
		data["Notice"] = "Your password was updated. Log in with the new password."
	}
	return guestOnly(c, "login", "Log in", data)
}

// Register handles GET /register.
func (h *PagesHandler) Register(c *fiber.Ctx) error {
	return guestOnly(c, "register", "Register", nil)
}

// ForgotPassword handles GET /forgot_password.
func (h *PagesHandler) ForgotPassword(c *fiber.Ctx) error {
	return guestOnly(c, "forgot_password", "Forgot password", fiber.Map{"Email": c.Query("email")})
}

// About handles GET /about.
func (h *PagesHandler) About(c *fiber.Ctx) error {
	return c.Render("about", page(c, "About", nil))
}

// PrivacyPolicy handles GET /privacy_policy.
func (h *PagesHandler) PrivacyPolicy(c *fiber.Ctx) error {
	return c.Render("privacy_policy", page(c, "Privacy policy", nil))
}

// TermsOfService handles GET /terms_of_service.
func (h *PagesHandler) TermsOfService(c *fiber.Ctx) error {
	return c.Render("terms_of_service", page(c, "Terms of service", nil))
}

// Dashboard handles GET /dashboard.
func (h *PagesHandler) Dashboard(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	orgs, err := h.orgs.ListForUser(c.UserContext(), user)
	if err != nil {
		return err
	}
	return c.Render("dashboard", page(c, "Dashboard", fiber.Map{"Organizations": orgs}))
}

// Profile handles GET /profile.
func (h *PagesHandler) Profile(c *fiber.Ctx) error {
	if _, err := currentUser(c); err != nil {
		return err
	}
	return c.Render("profile", page(c, "Profile", nil))
}

// guestOnly renders a page meant for visitors; members go to their dashboard.
func guestOnly(c *fiber.Ctx, view, title string, data fiber.Map) error {
	if _, ok := auth.UserFromContext(c); ok {
		return c.Redirect("/dashboard", fiber.StatusFound)
	}
	return c.Render(view, page(c, title, data))
}
