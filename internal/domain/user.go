package domain

import "time"

// User is an account holder. Deleted accounts are kept for auditing and
// never resolve as an authenticated user.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Deleted      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Active reports whether the account may sign in.
func (u *User) Active() bool {
	return u != nil && !u.Deleted
}
