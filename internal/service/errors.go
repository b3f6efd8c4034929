package service

import (
	"net/http"

	apperrors "github.com/spec-kit/member-portal/pkg/util/errorutil"
)

// Errors surfaced to the web layer. They are DomainError values so the
// error middleware renders them without further mapping.
var (
	ErrInvalidCredentials = apperrors.NewDomainError("INVALID_CREDENTIALS", "Invalid credentials", http.StatusBadRequest, nil)
	ErrEmailTaken         = apperrors.NewDomainError("EMAIL_TAKEN", "Email already registered", http.StatusBadRequest, nil)
	ErrTooManyAttempts    = apperrors.NewDomainError("TOO_MANY_ATTEMPTS", "Too many failed login attempts, try again later", http.StatusTooManyRequests, nil)
	ErrInvalidResetToken  = apperrors.NewDomainError("INVALID_RESET_TOKEN", "This password reset link is invalid or has expired", http.StatusBadRequest, nil)
	ErrWrongPassword      = apperrors.NewDomainError("WRONG_PASSWORD", "Password is incorrect", http.StatusUnprocessableEntity, nil)
)
