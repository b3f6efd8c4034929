package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/member-portal/internal/api/dto"
	"github.com/spec-kit/member-portal/internal/auth"
	"github.com/spec-kit/member-portal/internal/service"
)

// AccountHandler lets the signed-in user manage their own account.
type AccountHandler struct {
	auth *service.AuthService
	gate *auth.Gate
}

// NewAccountHandler constructs handler.
func NewAccountHandler(authService *service.AuthService, gate *auth.Gate) *AccountHandler {
	return &AccountHandler{auth: authService, gate: gate}
}

// UpdateProfile handles POST /profile.
func (h *AccountHandler) UpdateProfile(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var form dto.ProfileForm
	if err := parseForm(c, &form); err != nil {
		return err
	}

	if _, err := h.auth.UpdateProfile(c.UserContext(), user, form.Name); err != nil {
		return renderFormError(c, "profile", "Profile", err, nil)
	}
	return c.Redirect("/profile", fiber.StatusSeeOther)
}

// DeleteAccount handles POST /profile/delete.
func (h *AccountHandler) DeleteAccount(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var form dto.DeleteAccountForm
	if err := parseForm(c, &form); err != nil {
		return err
	}

	if err := h.auth.DeleteAccount(c.UserContext(), user, form.Password); err != nil {
		return renderFormError(c, "profile", "Profile", err, nil)
	}
	h.gate.ClearSessionCookies(c)
	return c.Redirect("/", fiber.StatusSeeOther)
}
