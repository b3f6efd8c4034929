package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/member-portal/internal/auth"
	"github.com/spec-kit/member-portal/internal/domain"
	apperrors "github.com/spec-kit/member-portal/pkg/util/errorutil"
)

// page builds the template binding shared by every view.
func page(c *fiber.Ctx, title string, data fiber.Map) fiber.Map {
	if data == nil {
		data = fiber.Map{}
	}
	data["Title"] = title
	if _, set := data["User"]; !set {
		if user, ok := auth.UserFromContext(c); ok {
			data["User"] = user
		}
	}
	return data
}

// renderFormError re-renders a form with the error message and its status.
// Server-side failures are returned to the error middleware instead.
func renderFormError(c *fiber.Ctx, view, title string, err error, data fiber.Map) error {
	domainErr := apperrors.ToDomainError(err)
	if domainErr.HTTPStatus >= fiber.StatusInternalServerError {
		return err
	}
	data = page(c, title, data)
	data["Error"] = domainErr.Message
	return c.Status(domainErr.HTTPStatus).Render(view, data)
}

func currentUser(c *fiber.Ctx) (*domain.User, error) {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return user, nil
}

func parseForm(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return apperrors.NewBadRequest("invalid form payload")
	}
	return nil
}
