package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/member-portal/internal/auth"
	"github.com/spec-kit/member-portal/internal/config"
	"github.com/spec-kit/member-portal/internal/events"
	"github.com/spec-kit/member-portal/internal/ratelimit"
	"github.com/spec-kit/member-portal/internal/repository"
	"github.com/spec-kit/member-portal/internal/repository/repotest"
	apperrors "github.com/spec-kit/member-portal/pkg/util/errorutil"
)

const testPassword = "correct horse 1"

type authFixture struct {
	store     *repotest.Store
	svc       *AuthService
	codec     *auth.TokenCodec
	directory *AccountDirectory
	limiter   *fakeLimiter
	published []events.Event
	now       time.Time
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	f := &authFixture{
		store:   repotest.NewStore(),
		codec:   auth.NewTokenCodec("service-test-secret"),
		limiter: newFakeLimiter(3),
		now:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.directory = NewAccountDirectory(f.store.Users(), f.store.Roles())

	dispatcher := events.NewInMemoryDispatcher()
	for _, et := range []events.EventType{
		events.EventAccountRegistered,
		events.EventPasswordResetRequested,
		events.EventPasswordResetCompleted,
		events.EventAccountDeleted,
	} {
		dispatcher.Subscribe(et, func(_ context.Context, e events.Event) error {
			f.published = append(f.published, e)
			return nil
		})
	}

	cfg := config.Config{Auth: config.AuthConfig{BcryptCost: bcrypt.MinCost, PasswordResetTTLMinutes: 30}}
	f.svc = NewAuthService(cfg, AuthDependencies{
		UserRepo:          f.store.Users(),
		PasswordResetRepo: f.store.PasswordResets(),
		Refresher:         auth.NewRefresher(f.codec, f.directory, auth.TokenTTLs{Access: 15 * time.Minute, Refresh: 24 * time.Hour}),
		Limiter:           f.limiter,
		Dispatcher:        dispatcher,
		Clock:             func() time.Time { return f.now },
	})
	return f
}

func (f *authFixture) eventTypes() []events.EventType {
	types := make([]events.EventType, 0, len(f.published))
	for _, e := range f.published {
		types = append(types, e.Type)
	}
	return types
}

func TestRegisterUserIssuesSession(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	user, pair, err := f.svc.RegisterUser(ctx, "  Ada Lovelace ", " Ada@Example.com", testPassword)
	require.NoError(t, err)

	assert.Equal(t, "Ada Lovelace", user.Name)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.NotEqual(t, testPassword, user.PasswordHash)

	claims, err := f.codec.Decode(pair.AccessToken, auth.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.Subject)
	assert.Equal(t, "ada@example.com", claims.Email)

	_, err = f.codec.Decode(pair.RefreshToken, auth.RefreshToken)
	require.NoError(t, err)

	require.Equal(t, []events.EventType{events.EventAccountRegistered}, f.eventTypes())
	assert.Equal(t, user.ID, f.published[0].UserID)
}

func TestRegisterUserRejectsDuplicateEmail(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, _, err := f.svc.RegisterUser(ctx, "Ada", "ada@example.com", testPassword)
	require.NoError(t, err)

	_, _, err = f.svc.RegisterUser(ctx, "Impostor", "ADA@example.com ", testPassword)
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegisterUserValidation(t *testing.T) {
	tests := []struct {
		name, user, email, password string
		field                       string
	}{
		{name: "missing name", user: " ", email: "ada@example.com", password: testPassword, field: "name"},
		{name: "missing email", user: "Ada", email: "", password: testPassword, field: "email"},
		{name: "malformed email", user: "Ada", email: "ada-at-example", password: testPassword, field: "email"},
		{name: "display-name email", user: "Ada", email: "Ada <ada@example.com>", password: testPassword, field: "email"},
		{name: "short password", user: "Ada", email: "ada@example.com", password: "a1", field: "password"},
		{name: "password without digit", user: "Ada", email: "ada@example.com", password: "onlyletters", field: "password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAuthFixture(t)
			_, _, err := f.svc.RegisterUser(context.Background(), tt.user, tt.email, tt.password)
			require.Error(t, err)

			domainErr := apperrors.ToDomainError(err)
			assert.Equal(t, http.StatusUnprocessableEntity, domainErr.HTTPStatus)
			assert.Contains(t, domainErr.Details, tt.field)
			assert.Empty(t, f.published)
		})
	}
}

func TestLoginUser(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	registered, _, err := f.svc.RegisterUser(ctx, "Ada", "ada@example.com", testPassword)
	require.NoError(t, err)

	user, pair, err := f.svc.LoginUser(ctx, "ADA@example.com", testPassword, "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)
	require.NotNil(t, pair)

	for name, tc := range map[string]struct{ email, password string }{
		"wrong password": {"ada@example.com", "wrong password 1"},
		"unknown email":  {"grace@example.com", testPassword},
		"empty password": {"ada@example.com", ""},
	} {
		t.Run(name, func(t *testing.T) {
			user, pair, err := f.svc.LoginUser(ctx, tc.email, tc.password, "10.0.0.1")
			assert.ErrorIs(t, err, ErrInvalidCredentials)
			assert.Nil(t, user)
			assert.Nil(t, pair)
		})
	}
}

func TestLoginUserThrottlesAfterFailures(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, _, err := f.svc.RegisterUser(ctx, "Ada", "ada@example.com", testPassword)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, _, err := f.svc.LoginUser(ctx, "ada@example.com", "wrong password 1", "10.0.0.1")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}

	_, _, err = f.svc.LoginUser(ctx, "ada@example.com", testPassword, "10.0.0.1")
	assert.ErrorIs(t, err, ErrTooManyAttempts)
	assert.Equal(t, http.StatusTooManyRequests, apperrors.ToDomainError(err).HTTPStatus)
}

func TestLoginUserSuccessResetsLimiter(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, _, err := f.svc.RegisterUser(ctx, "Ada", "ada@example.com", testPassword)
	require.NoError(t, err)

	_, _, err = f.svc.LoginUser(ctx, "ada@example.com", "wrong password 1", "")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, 1, f.limiter.failures["ada@example.com"])

	_, _, err = f.svc.LoginUser(ctx, "ada@example.com", testPassword, "")
	require.NoError(t, err)
	assert.Zero(t, f.limiter.failures["ada@example.com"])
}

func TestLoginUserFailsOpenWhenLimiterDown(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, _, err := f.svc.RegisterUser(ctx, "Ada", "ada@example.com", testPassword)
	require.NoError(t, err)

	f.limiter.checkErr = ratelimit.ErrLimiterUnavailable
	_, _, err = f.svc.LoginUser(ctx, "ada@example.com", testPassword, "10.0.0.1")
	assert.NoError(t, err)
}

func TestPasswordResetFlow(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	user, _, err := f.svc.RegisterUser(ctx, "Ada", "ada@example.com", testPassword)
	require.NoError(t, err)

	token, err := f.svc.RequestPasswordReset(ctx, "ADA@example.com")
	require.NoError(t, err)
	require.NotNil(t, token)
	assert.Equal(t, f.now.Add(30*time.Minute), token.ExpiresAt)

	require.Len(t, f.published, 2)
	payload, ok := f.published[1].Payload.(events.PasswordResetRequestedPayload)
	require.True(t, ok)
	assert.Equal(t, token.Token, payload.Token)

	owner, _, err := f.svc.ValidateResetToken(ctx, "ada@example.com", token.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, owner.ID)

	require.NoError(t, f.svc.ConfirmPasswordReset(ctx, "ada@example.com", token.Token, "new password 2"))

	_, _, err = f.svc.LoginUser(ctx, "ada@example.com", testPassword, "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = f.svc.LoginUser(ctx, "ada@example.com", "new password 2", "")
	assert.NoError(t, err)

	err = f.svc.ConfirmPasswordReset(ctx, "ada@example.com", token.Token, "third password 3")
	assert.ErrorIs(t, err, ErrInvalidResetToken)
	assert.Contains(t, f.eventTypes(), events.EventPasswordResetCompleted)
}

type failingRedeem struct {
	repository.PasswordResetRepository
}

func (failingRedeem) Redeem(context.Context, string, string, string) error {
	return errors.New("connection reset")
}

func TestPasswordResetFailureKeepsTokenAndPassword(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, _, err := f.svc.RegisterUser(ctx, "Ada", "ada@example.com", testPassword)
	require.NoError(t, err)
	token, err := f.svc.RequestPasswordReset(ctx, "ada@example.com")
	require.NoError(t, err)

	f.svc.resets = failingRedeem{f.store.PasswordResets()}
	err = f.svc.ConfirmPasswordReset(ctx, "ada@example.com", token.Token, "new password 2")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidResetToken)
	assert.NotContains(t, f.eventTypes(), events.EventPasswordResetCompleted)

	f.svc.resets = f.store.PasswordResets()
	_, _, err = f.svc.LoginUser(ctx, "ada@example.com", testPassword, "")
	require.NoError(t, err, "old password still works")
	require.NoError(t, f.svc.ConfirmPasswordReset(ctx, "ada@example.com", token.Token, "new password 2"), "token still usable")
}

func TestPasswordResetUnknownEmailIsSilent(t *testing.T) {
	f := newAuthFixture(t)

	token, err := f.svc.RequestPasswordReset(context.Background(), "nobody@example.com")
	assert.NoError(t, err)
	assert.Nil(t, token)
	assert.Empty(t, f.published)
}

func TestPasswordResetTokenRejections(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, _, err := f.svc.RegisterUser(ctx, "Ada", "ada@example.com", testPassword)
	require.NoError(t, err)
	_, _, err = f.svc.RegisterUser(ctx, "Grace", "grace@example.com", testPassword)
	require.NoError(t, err)

	token, err := f.svc.RequestPasswordReset(ctx, "ada@example.com")
	require.NoError(t, err)

	_, _, err = f.svc.ValidateResetToken(ctx, "grace@example.com", token.Token)
	assert.ErrorIs(t, err, ErrInvalidResetToken, "token bound to another account")

	_, _, err = f.svc.ValidateResetToken(ctx, "ada@example.com", "not-a-token")
	assert.ErrorIs(t, err, ErrInvalidResetToken)

	_, _, err = f.svc.ValidateResetToken(ctx, "", token.Token)
	assert.ErrorIs(t, err, ErrInvalidResetToken)

	err = f.svc.ConfirmPasswordReset(ctx, "ada@example.com", token.Token, "short")
	assert.Equal(t, http.StatusUnprocessableEntity, apperrors.ToDomainError(err).HTTPStatus)

	f.now = f.now.Add(30 * time.Minute)
	_, _, err = f.svc.ValidateResetToken(ctx, "ada@example.com", token.Token)
	assert.ErrorIs(t, err, ErrInvalidResetToken, "expired token")
}

func TestUpdateProfile(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	user, _, err := f.svc.RegisterUser(ctx, "Ada", "ada@example.com", testPassword)
	require.NoError(t, err)

	updated, err := f.svc.UpdateProfile(ctx, user, " Countess Lovelace ")
	require.NoError(t, err)
	assert.Equal(t, "Countess Lovelace", updated.Name)
	assert.Equal(t, "Ada", user.Name)

	stored, err := f.store.Users().GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Countess Lovelace", stored.Name)

	_, err = f.svc.UpdateProfile(ctx, user, "")
	assert.Error(t, err)
}

func TestDeleteAccount(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	user, _, err := f.svc.RegisterUser(ctx, "Ada", "ada@example.com", testPassword)
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.DeleteAccount(ctx, user, "wrong password 1"), ErrWrongPassword)

	require.NoError(t, f.svc.DeleteAccount(ctx, user, testPassword))

	found, err := f.directory.FindBySubject(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, found.Active())

	_, _, err = f.svc.LoginUser(ctx, "ada@example.com", testPassword, "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	reset, err := f.svc.RequestPasswordReset(ctx, "ada@example.com")
	assert.NoError(t, err)
	assert.Nil(t, reset)

	assert.Equal(t, []events.EventType{events.EventAccountRegistered, events.EventAccountDeleted}, f.eventTypes())
}

func TestAccountDirectoryUnknownSubject(t *testing.T) {
	directory := NewAccountDirectory(repotest.NewStore().Users(), repotest.NewStore().Roles())

	user, err := directory.FindBySubject(context.Background(), "missing")
	assert.NoError(t, err)
	assert.Nil(t, user)
}
