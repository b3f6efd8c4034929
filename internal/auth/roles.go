package auth

import (
	"context"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/member-portal/pkg/util/errorutil"
)

// OrganizationRoles reports the roles a user holds inside one organization.
type OrganizationRoles interface {
	RolesInOrganization(ctx context.Context, userID, organizationID string) ([]string, error)
}

// RequireOrganizationRole ensures the current user holds one of the allowed
// roles in the organization named by the :id route parameter. Must run after
// RequireUser. Non-members get a 404 so organization ids are not probeable.
func RequireOrganizationRole(orgs OrganizationRoles, allowed ...string) fiber.Handler {
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		user, ok := UserFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}

		roles, err := orgs.RolesInOrganization(c.UserContext(), user.ID, c.Params("id"))
		if err != nil {
			return apperrors.MapError(err)
		}
		if len(roles) == 0 {
			return apperrors.NewNotFound("organization", nil)
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		for _, role := range roles {
			if _, exists := allowedSet[role]; exists {
				return c.Next()
			}
		}
		return apperrors.NewForbidden("insufficient role")
	}
}
