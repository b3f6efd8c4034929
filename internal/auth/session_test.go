package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionVerifierStates(t *testing.T) {
	codec, clock := newTestCodec("secret-one")
	forger := NewTokenCodec("secret-two", WithClock(clock.Now))
	verifier := NewSessionVerifier(codec)

	issue := func(c *TokenCodec, kind TokenKind, ttl time.Duration) string {
		t.Helper()
		token, _, err := c.Issue(testIdentity(), kind, ttl)
		require.NoError(t, err)
		return token
	}

	// Tokens minted an hour ago: the short access token is expired by now.
	clock.Advance(-time.Hour)
	expiredAccess := issue(codec, AccessToken, time.Minute)
	expiredRefresh := issue(codec, RefreshToken, time.Minute)
	clock.Advance(time.Hour)

	validAccess := issue(codec, AccessToken, 15*time.Minute)
	validRefresh := issue(codec, RefreshToken, 5*24*time.Hour)
	forgedAccess := issue(forger, AccessToken, 15*time.Minute)
	forgedRefresh := issue(forger, RefreshToken, 5*24*time.Hour)

	tests := []struct {
		name      string
		access    string
		refresh   string
		want      SessionState
		wantErr   error
		wantClaim TokenKind
	}{
		{name: "no cookies", want: Unauthenticated, wantErr: ErrNoCredentials},
		{name: "valid access", access: validAccess, refresh: validRefresh, want: Authenticated, wantClaim: AccessToken},
		{name: "valid access without refresh", access: validAccess, want: Authenticated, wantClaim: AccessToken},
		{name: "expired access, valid refresh", access: expiredAccess, refresh: validRefresh, want: NeedsRefresh, wantClaim: RefreshToken},
		{name: "missing access, valid refresh", refresh: validRefresh, want: NeedsRefresh, wantClaim: RefreshToken},
		{name: "expired access, expired refresh", access: expiredAccess, refresh: expiredRefresh, want: Unauthenticated, wantErr: ErrExpired},
		{name: "expired access, forged refresh", access: expiredAccess, refresh: forgedRefresh, want: Unauthenticated, wantErr: ErrInvalidSignature},
		{name: "expired access, no refresh", access: expiredAccess, want: Unauthenticated, wantErr: ErrExpired},
		{name: "forged access, valid refresh", access: forgedAccess, refresh: validRefresh, want: Unauthenticated, wantErr: ErrInvalidSignature},
		{name: "corrupted access, no refresh", access: "corrupted" + validAccess, want: Unauthenticated, wantErr: ErrInvalidSignature},
		{name: "refresh token in access slot", access: validRefresh, refresh: validRefresh, want: Unauthenticated, wantErr: ErrWrongTokenKind},
		{name: "access token in refresh slot", access: expiredAccess, refresh: validAccess, want: Unauthenticated, wantErr: ErrWrongTokenKind},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := verifier.Resolve(tt.access, tt.refresh)

			assert.Equal(t, tt.want, res.State, "state %s", res.State)
			if tt.wantErr != nil {
				assert.ErrorIs(t, res.Reason, tt.wantErr)
				assert.Nil(t, res.Claims)
				return
			}
			require.NoError(t, res.Reason)
			require.NotNil(t, res.Claims)
			assert.Equal(t, tt.wantClaim, res.Claims.Kind)
			assert.Equal(t, testIdentity().Subject, res.Claims.Subject)
		})
	}
}

func TestSessionStateString(t *testing.T) {
	assert.Equal(t, "authenticated", Authenticated.String())
	assert.Equal(t, "needs_refresh", NeedsRefresh.String())
	assert.Equal(t, "unauthenticated", Unauthenticated.String())
}
