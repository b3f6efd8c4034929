package dto

// OrganizationForm creates an organization.
type OrganizationForm struct {
	Name string `json:"name" form:"name"`
}

// RoleForm adds a role to an organization.
type RoleForm struct {
	Name string `json:"name" form:"name"`
}

// MemberForm grants an existing account a role.
type MemberForm struct {
	Email string `json:"email" form:"email"`
	Role  string `json:"role" form:"role"`
}
