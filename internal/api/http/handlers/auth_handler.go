package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/member-portal/internal/api/dto"
	"github.com/spec-kit/member-portal/internal/auth"
	"github.com/spec-kit/member-portal/internal/service"
	apperrors "github.com/spec-kit/member-portal/pkg/util/errorutil"
)

var errPasswordMismatch = apperrors.NewValidationError("passwords do not match", map[string]any{"confirm_password": "mismatch"})

// AuthHandler exposes the sign-up, sign-in and password reset forms.
type AuthHandler struct {
	auth *service.AuthService
	gate *auth.Gate
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService, gate *auth.Gate) *AuthHandler {
	return &AuthHandler{auth: authService, gate: gate}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var form dto.RegisterForm
	if err := parseForm(c, &form); err != nil {
		return err
	}
	back := fiber.Map{"Name": form.Name, "Email": form.Email}
	if form.ConfirmPassword != "" && form.ConfirmPassword != form.Password {
		return renderFormError(c, "register", "Register", errPasswordMismatch, back)
	}

	_, pair, err := h.auth.RegisterUser(c.UserContext(), form.Name, form.Email, form.Password)
	if err != nil {
		return renderFormError(c, "register", "Register", err, back)
	}
	h.gate.SetSessionCookies(c, pair)
	return c.Redirect("/dashboard", fiber.StatusSeeOther)
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var form dto.LoginForm
	if err := parseForm(c, &form); err != nil {
		return err
	}

	_, pair, err := h.auth.LoginUser(c.UserContext(), form.Email, form.Password, c.IP())
	if err != nil {
		return renderFormError(c, "login", "Log in", err, fiber.Map{"Email": form.Email})
	}
	h.gate.SetSessionCookies(c, pair)
	return c.Redirect("/dashboard", fiber.StatusSeeOther)
}

// Logout handles GET /auth/logout.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	user, _ := auth.UserFromContext(c)
	if err := h.auth.Logout(c.UserContext(), user); err != nil {
		return err
	}
	h.gate.ClearSessionCookies(c)
	return c.Redirect("/", fiber.StatusSeeOther)
}

// ForgotPassword handles POST /auth/forgot_password. The response is the
// same whether or not the address belongs to an account.
func (h *AuthHandler) ForgotPassword(c *fiber.Ctx) error {
	var form dto.ForgotPasswordForm
	if err := parseForm(c, &form); err != nil {
		return err
	}
	email := service.NormalizeEmail(form.Email)
	if email == "" {
		err := apperrors.NewValidationError("email is required", map[string]any{"email": "required"})
		return renderFormError(c, "forgot_password", "Forgot password", err, nil)
	}

	if _, err := h.auth.RequestPasswordReset(c.UserContext(), email); err != nil {
		return err
	}
	return c.Render("forgot_password", page(c, "Forgot password", fiber.Map{"Sent": true, "Email": email}))
}

// ResetPasswordPage handles GET /auth/reset_password?email=&token=.
func (h *AuthHandler) ResetPasswordPage(c *fiber.Ctx) error {
	var q dto.ResetPasswordQuery
	if err := c.QueryParser(&q); err != nil {
		return apperrors.NewBadRequest("invalid query")
	}

	if _, _, err := h.auth.ValidateResetToken(c.UserContext(), q.Email, q.Token); err != nil {
		return renderFormError(c, "reset_password", "Reset password", err, fiber.Map{"Valid": false})
	}
	return c.Render("reset_password", page(c, "Reset password", fiber.Map{
		"Valid": true,
		"Email": q.Email,
		"Token": q.Token,
	}))
}

// ResetPassword handles POST /auth/reset_password.
func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var form dto.ResetPasswordForm
	if err := parseForm(c, &form); err != nil {
		return err
	}
	back := fiber.Map{"Valid": true, "Email": form.Email, "Token": form.Token}
	if form.ConfirmPassword != "" && form.ConfirmPassword != form.Password {
		return renderFormError(c, "reset_password", "Reset password", errPasswordMismatch, back)
	}

	err := h.auth.ConfirmPasswordReset(c.UserContext(), form.Email, form.Token, form.Password)
	if errors.Is(err, service.ErrInvalidResetToken) {
		back["Valid"] = false
	}
	if err != nil {
		return renderFormError(c, "reset_password", "Reset password", err, back)
	}
	return c.Redirect("/login?reset=1", fiber.StatusSeeOther)
}
