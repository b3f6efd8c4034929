package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/member-portal/internal/domain"
	"github.com/spec-kit/member-portal/internal/repository"
)

// AccountDirectory adapts the repositories to auth.AccountLookup.
type AccountDirectory struct {
	users repository.UserRepository
	roles repository.RoleRepository
}

// NewAccountDirectory builds the adapter.
func NewAccountDirectory(users repository.UserRepository, roles repository.RoleRepository) *AccountDirectory {
	return &AccountDirectory{users: users, roles: roles}
}

// FindBySubject loads the account named by a token subject; (nil, nil) if none.
func (d *AccountDirectory) FindBySubject(ctx context.Context, subject string) (*domain.User, error) {
	user, err := d.users.GetByID(ctx, subject)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Memberships lists the account's organization roles.
func (d *AccountDirectory) Memberships(ctx context.Context, userID string) ([]domain.Membership, error) {
	return d.roles.Memberships(ctx, userID)
}
