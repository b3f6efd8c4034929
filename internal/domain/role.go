package domain

import "time"

// Default roles created with every organization.
const (
	RoleOwner  = "Owner"
	RoleMember = "Member"
)

// Role is a named permission group scoped to one organization.
type Role struct {
	ID             string
	OrganizationID string
	Name           string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Membership ties a user to an organization through one role.
type Membership struct {
	OrganizationID   string
	OrganizationName string
	RoleID           string
	RoleName         string
}
