package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/member-portal/internal/domain"
	apperrors "github.com/spec-kit/member-portal/pkg/util/errorutil"
)

type fakeOrgRoles map[string][]string

func (f fakeOrgRoles) RolesInOrganization(_ context.Context, userID, organizationID string) ([]string, error) {
	if organizationID == "broken" {
		return nil, errors.New("db down")
	}
	return f[userID+"/"+organizationID], nil
}

func TestRequireOrganizationRole(t *testing.T) {
	roles := fakeOrgRoles{
		"u1/org-1": {domain.RoleOwner},
		"u1/org-2": {domain.RoleMember},
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.SendStatus(apperrors.ToDomainError(err).HTTPStatus)
		},
	})
	app.Post("/organizations/:id/roles",
		func(c *fiber.Ctx) error {
			if c.Get("X-User") != "" {
				c.Locals(userKey, &domain.User{ID: c.Get("X-User")})
			}
			return c.Next()
		},
		RequireOrganizationRole(roles, domain.RoleOwner),
		func(c *fiber.Ctx) error { return c.SendStatus(http.StatusCreated) },
	)

	tests := []struct {
		name string
		user string
		org  string
		want int
	}{
		{"owner", "u1", "org-1", http.StatusCreated},
		{"member lacks role", "u1", "org-2", http.StatusForbidden},
		{"non member", "u1", "org-3", http.StatusNotFound},
		{"anonymous", "", "org-1", http.StatusUnauthorized},
		{"lookup failure", "u1", "broken", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/organizations/"+tt.org+"/roles", nil)
			if tt.user != "" {
				req.Header.Set("X-User", tt.user)
			}
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}
