package domain

import "time"

// Organization groups members; membership is expressed through roles.
type Organization struct {
	ID        string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
	Roles     []Role
	Members   []Member
}

// Member is a user as seen from inside an organization.
type Member struct {
	UserID string
	Name   string
	Email  string
	Roles  []string
}
