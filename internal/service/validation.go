package service

import (
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/spec-kit/member-portal/internal/auth"
	apperrors "github.com/spec-kit/member-portal/pkg/util/errorutil"
)

const (
	maxNameLength  = 100
	maxEmailLength = 254
)

// NormalizeEmail lowercases and trims an address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateName(field, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperrors.NewValidationError(field+" is required", map[string]any{field: "required"})
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return "", apperrors.NewValidationError(field+" is too long", map[string]any{field: "max 100 characters"})
	}
	return name, nil
}

func validateEmail(email string) (string, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return "", apperrors.NewValidationError("email is required", map[string]any{"email": "required"})
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || len(email) > maxEmailLength {
		return "", apperrors.NewValidationError("email is not a valid address", map[string]any{"email": "invalid"})
	}
	return email, nil
}

func validatePassword(password string) error {
	if err := auth.ValidatePassword(password); err != nil {
		return apperrors.NewValidationError(err.Error(), map[string]any{"password": err.Error()})
	}
	return nil
}
