package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/member-portal/internal/domain"
	"github.com/spec-kit/member-portal/internal/observability"
)

const (
	AccessCookie  = "access_token"
	RefreshCookie = "refresh_token"

	userKey      = "auth_user"
	refreshedKey = "auth_refreshed"
)

var (
	ErrAuthenticationRequired = errors.New("authentication required")
	ErrRefreshLoopDetected    = errors.New("token refresh already performed for this request")

	errRedirectAfterRefresh = errors.New("session refreshed, redirect to original url")
)

// GateConfig controls cookie attributes and failure handling.
type GateConfig struct {
	LoginPath    string
	CookieSecure bool
	// RefreshRedirect answers a refreshed request with a 307 back to the same
	// URL instead of continuing to the handler in place.
	RefreshRedirect bool
}

// Gate resolves the current user from session cookies for route handlers.
type Gate struct {
	verifier  *SessionVerifier
	refresher *Refresher
	accounts  AccountLookup
	cfg       GateConfig
	logger    *zap.Logger
	metrics   *observability.Metrics
}

// NewGate constructs the request gate.
func NewGate(verifier *SessionVerifier, refresher *Refresher, accounts AccountLookup, cfg GateConfig, logger *zap.Logger, metrics *observability.Metrics) *Gate {
	if cfg.LoginPath == "" {
		cfg.LoginPath = "/login"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{
		verifier:  verifier,
		refresher: refresher,
		accounts:  accounts,
		cfg:       cfg,
		logger:    logger,
		metrics:   metrics,
	}
}

// RequireUser lets only authenticated users through; everyone else is sent
// to the login page with their session cookies cleared.
func (g *Gate) RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		_, err := g.CurrentUser(c)
		switch {
		case err == nil:
			return c.Next()
		case errors.Is(err, errRedirectAfterRefresh):
			return c.Redirect(c.OriginalURL(), fiber.StatusTemporaryRedirect)
		case errors.Is(err, ErrAuthenticationRequired):
			return c.Redirect(g.cfg.LoginPath, fiber.StatusSeeOther)
		default:
			return err
		}
	}
}

// OptionalUser resolves the user when possible and otherwise continues as a guest.
func (g *Gate) OptionalUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		_, err := g.CurrentUserOrNil(c)
		if errors.Is(err, errRedirectAfterRefresh) {
			return c.Redirect(c.OriginalURL(), fiber.StatusTemporaryRedirect)
		}
		if err != nil {
			return err
		}
		return c.Next()
	}
}

// CurrentUser returns the authenticated user or an error wrapping
// ErrAuthenticationRequired.
func (g *Gate) CurrentUser(c *fiber.Ctx) (*domain.User, error) {
	if user, ok := UserFromContext(c); ok {
		return user, nil
	}

	access, refresh := c.Cookies(AccessCookie), c.Cookies(RefreshCookie)
	for {
		res := g.verifier.Resolve(access, refresh)

		switch res.State {
		case Authenticated:
			user, err := g.accounts.FindBySubject(c.UserContext(), res.Claims.Subject)
			if err != nil {
				return nil, fmt.Errorf("load account: %w", err)
			}
			if !user.Active() {
				return nil, g.reject(c, ErrAccountGone)
			}
			c.Locals(userKey, user)
			return user, nil

		case NeedsRefresh:
			if refreshed, _ := c.Locals(refreshedKey).(bool); refreshed {
				g.metrics.RecordAuth(observability.AuthRefreshLoop)
				g.logger.Warn("second token refresh in one request", zap.String("subject", res.Claims.Subject), zap.String("path", c.Path()))
				return nil, g.reject(c, ErrRefreshLoopDetected)
			}
			c.Locals(refreshedKey, true)

			pair, user, err := g.refresher.Refresh(c.UserContext(), res.Claims)
			if err != nil {
				g.metrics.RecordAuth(observability.AuthRefreshFailed)
				if errors.Is(err, ErrAccountGone) {
					return nil, g.reject(c, err)
				}
				return nil, fmt.Errorf("refresh session: %w", err)
			}
			g.SetSessionCookies(c, pair)
			g.metrics.RecordAuth(observability.AuthRefreshed)
			g.logger.Info("session refreshed", zap.String("user_id", user.ID), zap.String("path", c.Path()))

			if g.cfg.RefreshRedirect {
				return nil, errRedirectAfterRefresh
			}
			access, refresh = pair.AccessToken, pair.RefreshToken

		default:
			return nil, g.reject(c, res.Reason)
		}
	}
}

// CurrentUserOrNil is CurrentUser for pages that also serve guests.
func (g *Gate) CurrentUserOrNil(c *fiber.Ctx) (*domain.User, error) {
	user, err := g.CurrentUser(c)
	if errors.Is(err, ErrAuthenticationRequired) {
		return nil, nil
	}
	return user, err
}

// SetSessionCookies writes both tokens as HttpOnly, SameSite=Strict cookies.
func (g *Gate) SetSessionCookies(c *fiber.Ctx, pair *TokenPair) {
	c.Cookie(g.cookie(AccessCookie, pair.AccessToken, pair.AccessExpiresAt))
	c.Cookie(g.cookie(RefreshCookie, pair.RefreshToken, pair.RefreshExpiresAt))
}

// ClearSessionCookies expires both session cookies in the browser.
func (g *Gate) ClearSessionCookies(c *fiber.Ctx) {
	expired := time.Unix(0, 0)
	c.Cookie(g.cookie(AccessCookie, "", expired))
	c.Cookie(g.cookie(RefreshCookie, "", expired))
}

func (g *Gate) cookie(name, value string, expires time.Time) *fiber.Cookie {
	return &fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		Secure:   g.cfg.CookieSecure,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteStrictMode,
	}
}

func (g *Gate) reject(c *fiber.Ctx, reason error) error {
	if reason == nil {
		reason = ErrNoCredentials
	}
	if !errors.Is(reason, ErrNoCredentials) {
		g.metrics.RecordAuth(observability.AuthRejected)
		g.logger.Debug("session rejected", zap.Error(reason), zap.String("path", c.Path()))
	}
	if c.Cookies(AccessCookie) != "" || c.Cookies(RefreshCookie) != "" {
		g.ClearSessionCookies(c)
	}
	return fmt.Errorf("%w: %w", ErrAuthenticationRequired, reason)
}

// UserFromContext returns the user stored by the gate for this request.
func UserFromContext(c *fiber.Ctx) (*domain.User, bool) {
	user, ok := c.Locals(userKey).(*domain.User)
	return user, ok && user != nil
}
