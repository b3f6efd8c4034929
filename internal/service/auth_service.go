package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/spec-kit/member-portal/internal/auth"
	"github.com/spec-kit/member-portal/internal/config"
	"github.com/spec-kit/member-portal/internal/domain"
	"github.com/spec-kit/member-portal/internal/events"
	"github.com/spec-kit/member-portal/internal/observability"
	"github.com/spec-kit/member-portal/internal/ratelimit"
	"github.com/spec-kit/member-portal/internal/repository"
)

const uniqueViolation = "23505"

// LoginThrottle limits repeated failed logins. *ratelimit.LoginLimiter
// satisfies it.
type LoginThrottle interface {
	Check(ctx context.Context, email, ip string) error
	Fail(ctx context.Context, email, ip string) error
	Reset(ctx context.Context, email string) error
}

// AuthService coordinates registration, login, password reset and account
// lifecycle flows.
type AuthService struct {
	users      repository.UserRepository
	resets     repository.PasswordResetRepository
	hasher     *auth.PasswordHasher
	refresher  *auth.Refresher
	limiter    LoginThrottle
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
	resetTTL   time.Duration
	now        func() time.Time
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	UserRepo          repository.UserRepository
	PasswordResetRepo repository.PasswordResetRepository
	Refresher         *auth.Refresher
	Limiter           LoginThrottle
	Dispatcher        events.Dispatcher
	Logger            *zap.Logger
	Metrics           *observability.Metrics
	Clock             func() time.Time
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Clock
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &AuthService{
		users:      deps.UserRepo,
		resets:     deps.PasswordResetRepo,
		hasher:     auth.NewPasswordHasher(cfg.Auth.BcryptCost),
		refresher:  deps.Refresher,
		limiter:    deps.Limiter,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		metrics:    deps.Metrics,
		resetTTL:   cfg.Auth.PasswordResetTTL(),
		now:        now,
	}
}

// RegisterUser creates a new account and signs it in.
func (s *AuthService) RegisterUser(ctx context.Context, name, email, password string) (*domain.User, *auth.TokenPair, error) {
	name, err := validateName("name", name)
	if err != nil {
		return nil, nil, err
	}
	email, err = validateEmail(email)
	if err != nil {
		return nil, nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, nil, err
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, nil, ErrEmailTaken
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, nil, err
	}

	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, nil, ErrEmailTaken
		}
		return nil, nil, err
	}

	pair, err := s.refresher.IssueFor(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	s.metrics.RecordAuth(observability.AuthRegistered)
	s.logger.Info("account registered", zap.String("user_id", user.ID))
	s.publish(ctx, events.NewEvent(events.EventAccountRegistered, user.ID, events.AccountRegisteredPayload{
		Name:  user.Name,
		Email: user.Email,
	}))
	return user, pair, nil
}

// LoginUser authenticates an account by e-mail and password. ip feeds the
// per-client throttle and may be empty.
func (s *AuthService) LoginUser(ctx context.Context, email, password, ip string) (*domain.User, *auth.TokenPair, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, nil, ErrInvalidCredentials
	}

	if err := s.checkThrottle(ctx, email, ip); err != nil {
		return nil, nil, err
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, err
	}
	if !user.Active() {
		s.hasher.VerifyMissing(password)
		s.recordFailure(ctx, email, ip)
		return nil, nil, ErrInvalidCredentials
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		s.recordFailure(ctx, email, ip)
		return nil, nil, ErrInvalidCredentials
	}

	pair, err := s.refresher.IssueFor(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	if s.limiter != nil {
		if err := s.limiter.Reset(ctx, email); err != nil {
			s.logger.Warn("login limiter reset failed", zap.Error(err))
		}
	}
	s.metrics.RecordAuth(observability.AuthLoginSucceeded)
	s.logger.Info("login succeeded", zap.String("user_id", user.ID))
	return user, pair, nil
}

// Logout is a no-op for stateless tokens; the handler clears the cookies.
func (s *AuthService) Logout(_ context.Context, user *domain.User) error {
	if user != nil {
		s.logger.Info("logout", zap.String("user_id", user.ID))
	}
	return nil
}

// RequestPasswordReset stores a reset token for the account and publishes
// the event that e-mails the link. Unknown addresses succeed silently and
// return a nil token.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (*repository.PasswordResetToken, error) {
	email = NormalizeEmail(email)
	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, pgx.ErrNoRows) {
		s.logger.Debug("password reset for unknown email")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !user.Active() {
		return nil, nil
	}

	token := &repository.PasswordResetToken{
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: s.now().Add(s.resetTTL),
	}
	if err := s.resets.Create(ctx, token); err != nil {
		return nil, err
	}

	s.publish(ctx, events.NewEvent(events.EventPasswordResetRequested, user.ID, events.PasswordResetRequestedPayload{
		Email:     user.Email,
		Token:     token.Token,
		ExpiresAt: token.ExpiresAt,
	}))
	return token, nil
}

// ValidateResetToken checks that token is usable and belongs to email.
func (s *AuthService) ValidateResetToken(ctx context.Context, email, token string) (*domain.User, *repository.PasswordResetToken, error) {
	email = NormalizeEmail(email)
	if email == "" || strings.TrimSpace(token) == "" {
		return nil, nil, ErrInvalidResetToken
	}

	stored, err := s.resets.GetByToken(ctx, token)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, ErrInvalidResetToken
	}
	if err != nil {
		return nil, nil, err
	}
	if !stored.Usable(s.now()) {
		return nil, nil, ErrInvalidResetToken
	}

	user, err := s.users.GetByID(ctx, stored.UserID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, ErrInvalidResetToken
	}
	if err != nil {
		return nil, nil, err
	}
	if !user.Active() || user.Email != email {
		return nil, nil, ErrInvalidResetToken
	}
	return user, stored, nil
}

// ConfirmPasswordReset consumes the token and sets a new password.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, email, token, newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	user, stored, err := s.ValidateResetToken(ctx, email, token)
	if err != nil {
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.resets.Redeem(ctx, stored.ID, user.ID, hash); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrInvalidResetToken
		}
		return fmt.Errorf("store new password: %w", err)
	}
	user.PasswordHash = hash

	s.metrics.RecordAuth(observability.AuthPasswordReset)
	s.logger.Info("password reset completed", zap.String("user_id", user.ID))
	s.publish(ctx, events.NewEvent(events.EventPasswordResetCompleted, user.ID, events.PasswordResetCompletedPayload{Email: user.Email}))
	return nil
}

// UpdateProfile changes the display name.
func (s *AuthService) UpdateProfile(ctx context.Context, user *domain.User, name string) (*domain.User, error) {
	name, err := validateName("name", name)
	if err != nil {
		return nil, err
	}
	updated := *user
	updated.Name = name
	if err := s.users.Update(ctx, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteAccount soft-deletes the account after re-checking the password.
// Outstanding tokens stop resolving on their next use.
func (s *AuthService) DeleteAccount(ctx context.Context, user *domain.User, password string) error {
	if !s.hasher.Verify(password, user.PasswordHash) {
		return ErrWrongPassword
	}
	if err := s.users.SoftDelete(ctx, user.ID); err != nil {
		return err
	}

	s.metrics.RecordAuth(observability.AuthAccountDeleted)
	s.logger.Info("account deleted", zap.String("user_id", user.ID))
	s.publish(ctx, events.NewEvent(events.EventAccountDeleted, user.ID, events.AccountDeletedPayload{Email: user.Email}))
	return nil
}

func (s *AuthService) checkThrottle(ctx context.Context, email, ip string) error {
	if s.limiter == nil {
		return nil
	}
	err := s.limiter.Check(ctx, email, ip)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ratelimit.ErrLoginThrottled):
		s.metrics.RecordAuth(observability.AuthLoginThrottled)
		s.logger.Warn("login throttled", zap.String("ip", ip))
		return ErrTooManyAttempts
	default:
		// Fail open when Redis is unreachable.
		s.logger.Warn("login limiter unavailable", zap.Error(err))
		return nil
	}
}

func (s *AuthService) recordFailure(ctx context.Context, email, ip string) {
	s.metrics.RecordAuth(observability.AuthLoginFailed)
	s.logger.Info("login failed", zap.String("ip", ip))
	if s.limiter == nil {
		return
	}
	if err := s.limiter.Fail(ctx, email, ip); err != nil {
		s.logger.Warn("login limiter update failed", zap.Error(err))
	}
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}
