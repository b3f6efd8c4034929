package auth

import (
	"errors"
	"fmt"
)

var ErrNoCredentials = errors.New("no session cookies")

// SessionState is the outcome of resolving one request's cookies.
type SessionState int

const (
	Unauthenticated SessionState = iota
	Authenticated
	// NeedsRefresh means the access token expired while the refresh token is
	// still good. It is a signal for the request gate, not a failure.
	NeedsRefresh
)

func (s SessionState) String() string {
	switch s {
	case Authenticated:
		return "authenticated"
	case NeedsRefresh:
		return "needs_refresh"
	default:
		return "unauthenticated"
	}
}

// Resolution carries the decoded claims for Authenticated (access claims)
// and NeedsRefresh (refresh claims), or the failure reason otherwise.
type Resolution struct {
	State  SessionState
	Claims *Claims
	Reason error
}

// SessionVerifier maps a pair of cookie values onto a SessionState.
type SessionVerifier struct {
	codec *TokenCodec
}

// NewSessionVerifier constructs a verifier.
func NewSessionVerifier(codec *TokenCodec) *SessionVerifier {
	return &SessionVerifier{codec: codec}
}

// Resolve decides what the request's tokens amount to. A forged access token
// is terminal even when the refresh token is valid.
func (v *SessionVerifier) Resolve(accessToken, refreshToken string) Resolution {
	if accessToken == "" && refreshToken == "" {
		return Resolution{State: Unauthenticated, Reason: ErrNoCredentials}
	}

	// The access cookie expires in the browser together with its token, so a
	// missing access cookie is handled like an expired one.
	if accessToken != "" {
		claims, err := v.codec.Decode(accessToken, AccessToken)
		if err == nil {
			return Resolution{State: Authenticated, Claims: claims}
		}
		if !errors.Is(err, ErrExpired) {
			return Resolution{State: Unauthenticated, Reason: err}
		}
	}

	if refreshToken == "" {
		return Resolution{State: Unauthenticated, Reason: fmt.Errorf("%w: no refresh token", ErrExpired)}
	}
	refreshClaims, err := v.codec.Decode(refreshToken, RefreshToken)
	if err != nil {
		return Resolution{State: Unauthenticated, Reason: fmt.Errorf("refresh token: %w", err)}
	}
	return Resolution{State: NeedsRefresh, Claims: refreshClaims}
}
