package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/member-portal/internal/domain"
)

type fakeAccounts struct {
	mu          sync.Mutex
	users       map[string]*domain.User
	memberships map[string][]domain.Membership
	err         error
	lookups     int
}

func newFakeAccounts(users ...*domain.User) *fakeAccounts {
	f := &fakeAccounts{
		users:       make(map[string]*domain.User),
		memberships: make(map[string][]domain.Membership),
	}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeAccounts) FindBySubject(_ context.Context, subject string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	if f.err != nil {
		return nil, f.err
	}
	return f.users[subject], nil
}

func (f *fakeAccounts) Memberships(_ context.Context, userID string) ([]domain.Membership, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.memberships[userID], nil
}

var testTTLs = TokenTTLs{Access: 15 * time.Minute, Refresh: 5 * 24 * time.Hour}

func testUser() *domain.User {
	return &domain.User{ID: testIdentity().Subject, Name: "Ada", Email: "ada@example.com"}
}

func refreshClaimsFor(t *testing.T, codec *TokenCodec, id Identity) *Claims {
	t.Helper()
	token, _, err := codec.Issue(id, RefreshToken, testTTLs.Refresh)
	require.NoError(t, err)
	claims, err := codec.Decode(token, RefreshToken)
	require.NoError(t, err)
	return claims
}

func TestRefreshMintsFreshPair(t *testing.T) {
	codec, _ := newTestCodec("secret-one")
	accounts := newFakeAccounts(testUser())
	accounts.memberships[testUser().ID] = []domain.Membership{
		{OrganizationID: "org-2", RoleName: "Member"},
		{OrganizationID: "org-1", RoleName: "Owner"},
	}
	refresher := NewRefresher(codec, accounts, testTTLs)

	claims := refreshClaimsFor(t, codec, Identity{Subject: testUser().ID, Email: "ada@example.com"})

	pair, user, err := refresher.Refresh(context.Background(), claims)
	require.NoError(t, err)
	assert.Equal(t, testUser().ID, user.ID)

	access, err := codec.Decode(pair.AccessToken, AccessToken)
	require.NoError(t, err)
	refresh, err := codec.Decode(pair.RefreshToken, RefreshToken)
	require.NoError(t, err)

	assert.Equal(t, access.Identity(), refresh.Identity())
	assert.Equal(t, []string{"Member", "Owner"}, access.Roles)
	assert.Equal(t, []string{"org-1", "org-2"}, access.Organizations)
	assert.NotEqual(t, claims.ID, refresh.ID)
}

func TestRefreshRejectsGoneAccounts(t *testing.T) {
	codec, _ := newTestCodec("secret-one")

	deleted := testUser()
	deleted.Deleted = true

	for name, accounts := range map[string]*fakeAccounts{
		"deleted": newFakeAccounts(deleted),
		"unknown": newFakeAccounts(),
	} {
		t.Run(name, func(t *testing.T) {
			refresher := NewRefresher(codec, accounts, testTTLs)
			pair, user, err := refresher.Refresh(context.Background(), refreshClaimsFor(t, codec, testIdentity()))

			assert.ErrorIs(t, err, ErrAccountGone)
			assert.Nil(t, pair)
			assert.Nil(t, user)
		})
	}
}

func TestRefreshPropagatesLookupFailure(t *testing.T) {
	codec, _ := newTestCodec("secret-one")
	accounts := newFakeAccounts(testUser())
	accounts.err = errors.New("db down")
	refresher := NewRefresher(codec, accounts, testTTLs)

	_, _, err := refresher.Refresh(context.Background(), refreshClaimsFor(t, codec, testIdentity()))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAccountGone)
	assert.Contains(t, err.Error(), "db down")
}

func TestRefreshRequiresRefreshClaims(t *testing.T) {
	codec, _ := newTestCodec("secret-one")
	refresher := NewRefresher(codec, newFakeAccounts(testUser()), testTTLs)

	token, _, err := codec.Issue(testIdentity(), AccessToken, time.Minute)
	require.NoError(t, err)
	accessClaims, err := codec.Decode(token, AccessToken)
	require.NoError(t, err)

	_, _, err = refresher.Refresh(context.Background(), accessClaims)
	assert.ErrorIs(t, err, ErrWrongTokenKind)

	_, _, err = refresher.Refresh(context.Background(), nil)
	assert.ErrorIs(t, err, ErrWrongTokenKind)
}

func TestIdentityForWithoutMemberships(t *testing.T) {
	id := IdentityFor(testUser(), nil)

	assert.Equal(t, testUser().ID, id.Subject)
	assert.Equal(t, "ada@example.com", id.Email)
	assert.Nil(t, id.Roles)
	assert.Nil(t, id.Organizations)
}
