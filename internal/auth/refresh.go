package auth

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/spec-kit/member-portal/internal/domain"
)

var ErrAccountGone = errors.New("account deleted or unknown")

// AccountLookup is the data-layer view the session code needs. FindBySubject
// returns (nil, nil) when no account matches.
type AccountLookup interface {
	FindBySubject(ctx context.Context, subject string) (*domain.User, error)
	Memberships(ctx context.Context, userID string) ([]domain.Membership, error)
}

// Refresher mints token pairs from the current state of an account.
type Refresher struct {
	codec    *TokenCodec
	accounts AccountLookup
	ttls     TokenTTLs
}

// NewRefresher constructs a refresher.
func NewRefresher(codec *TokenCodec, accounts AccountLookup, ttls TokenTTLs) *Refresher {
	return &Refresher{codec: codec, accounts: accounts, ttls: ttls}
}

// Refresh re-validates the refresh token's account and mints a new pair.
func (r *Refresher) Refresh(ctx context.Context, claims *Claims) (*TokenPair, *domain.User, error) {
	if claims == nil || claims.Kind != RefreshToken {
		return nil, nil, ErrWrongTokenKind
	}

	user, err := r.accounts.FindBySubject(ctx, claims.Subject)
	if err != nil {
		return nil, nil, fmt.Errorf("load account: %w", err)
	}
	if !user.Active() {
		return nil, nil, ErrAccountGone
	}

	pair, err := r.IssueFor(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return pair, user, nil
}

// IssueFor mints the pair handed out at login and registration.
func (r *Refresher) IssueFor(ctx context.Context, user *domain.User) (*TokenPair, error) {
	if !user.Active() {
		return nil, ErrAccountGone
	}
	memberships, err := r.accounts.Memberships(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("load memberships: %w", err)
	}
	return r.codec.IssuePair(IdentityFor(user, memberships), r.ttls)
}

// IdentityFor derives token claims from an account and its memberships.
func IdentityFor(user *domain.User, memberships []domain.Membership) Identity {
	id := Identity{Subject: user.ID, Email: user.Email}

	roles := make(map[string]struct{})
	orgs := make(map[string]struct{})
	for _, m := range memberships {
		roles[m.RoleName] = struct{}{}
		orgs[m.OrganizationID] = struct{}{}
	}
	id.Roles = sortedKeys(roles)
	id.Organizations = sortedKeys(orgs)
	return id
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
