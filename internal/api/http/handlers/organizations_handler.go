package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/member-portal/internal/api/dto"
	"github.com/spec-kit/member-portal/internal/domain"
	"github.com/spec-kit/member-portal/internal/service"
)

// OrganizationsHandler serves organization pages and forms.
type OrganizationsHandler struct {
	orgs *service.OrganizationService
}

// NewOrganizationsHandler constructs handler.
func NewOrganizationsHandler(orgs *service.OrganizationService) *OrganizationsHandler {
	return &OrganizationsHandler{orgs: orgs}
}

// Show handles GET /organizations/:id.
func (h *OrganizationsHandler) Show(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	org, err := h.orgs.GetForMember(c.UserContext(), user, c.Params("id"))
	if err != nil {
		return err
	}
	return c.Render("organization", page(c, org.Name, fiber.Map{
		"Organization": org,
		"IsOwner":      isOwner(org, user.ID),
	}))
}

// Create handles POST /organizations.
func (h *OrganizationsHandler) Create(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var form dto.OrganizationForm
	if err := parseForm(c, &form); err != nil {
		return err
	}

	org, err := h.orgs.CreateOrganization(c.UserContext(), user, form.Name)
	if err != nil {
		orgs, listErr := h.orgs.ListForUser(c.UserContext(), user)
		if listErr != nil {
			return listErr
		}
		return renderFormError(c, "dashboard", "Dashboard", err, fiber.Map{"Organizations": orgs})
	}
	return c.Redirect("/organizations/"+org.ID, fiber.StatusSeeOther)
}

// CreateRole handles POST /organizations/:id/roles.
func (h *OrganizationsHandler) CreateRole(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var form dto.RoleForm
	if err := parseForm(c, &form); err != nil {
		return err
	}

	id := c.Params("id")
	if _, err := h.orgs.CreateRole(c.UserContext(), user, id, form.Name); err != nil {
		return err
	}
	return c.Redirect("/organizations/"+id, fiber.StatusSeeOther)
}

// Rename handles POST /organizations/:id.
func (h *OrganizationsHandler) Rename(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var form dto.OrganizationForm
	if err := parseForm(c, &form); err != nil {
		return err
	}

	id := c.Params("id")
	if _, err := h.orgs.RenameOrganization(c.UserContext(), user, id, form.Name); err != nil {
		return err
	}
	return c.Redirect("/organizations/"+id, fiber.StatusSeeOther)
}

// AddMember handles POST /organizations/:id/members.
func (h *OrganizationsHandler) AddMember(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var form dto.MemberForm
	if err := parseForm(c, &form); err != nil {
		return err
	}

	id := c.Params("id")
	if _, err := h.orgs.AddMember(c.UserContext(), user, id, form.Email, form.Role); err != nil {
		return err
	}
	return c.Redirect("/organizations/"+id, fiber.StatusSeeOther)
}

func isOwner(org *domain.Organization, userID string) bool {
	for _, m := range org.Members {
		if m.UserID != userID {
			continue
		}
		for _, r := range m.Roles {
			if r == domain.RoleOwner {
				return true
			}
		}
	}
	return false
}
