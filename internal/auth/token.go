package auth

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenKind separates access tokens from refresh tokens so one can never
// stand in for the other.
type TokenKind string

const (
	AccessToken  TokenKind = "access"
	RefreshToken TokenKind = "refresh"
)

var (
	ErrInvalidSignature = errors.New("token signature invalid")
	ErrExpired          = errors.New("token expired")
	ErrWrongTokenKind   = errors.New("token kind mismatch")
	ErrInvalidTTL       = errors.New("token ttl must be at least one second")
)

// Identity is what a token asserts about its bearer.
type Identity struct {
	Subject       string
	Email         string
	Roles         []string
	Organizations []string
}

// Claims describes JWT payload.
type Claims struct {
	Email         string    `json:"email,omitempty"`
	Roles         []string  `json:"roles,omitempty"`
	Organizations []string  `json:"orgs,omitempty"`
	Kind          TokenKind `json:"typ"`
	jwt.RegisteredClaims
}

// Identity returns the bearer identity carried by the claims.
func (c *Claims) Identity() Identity {
	return Identity{
		Subject:       c.Subject,
		Email:         c.Email,
		Roles:         c.Roles,
		Organizations: c.Organizations,
	}
}

// TokenPair is the access/refresh couple handed to the browser.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// TokenTTLs holds the lifetime of each token class.
type TokenTTLs struct {
	Access  time.Duration
	Refresh time.Duration
}

// TokenCodec issues and decodes HS256 tokens.
type TokenCodec struct {
	secret []byte
	now    func() time.Time
}

// CodecOption customises a TokenCodec.
type CodecOption func(*TokenCodec)

// WithClock replaces the wall clock used for issuing and expiry checks.
func WithClock(now func() time.Time) CodecOption {
	return func(tc *TokenCodec) {
		if now != nil {
			tc.now = now
		}
	}
}

// NewTokenCodec builds a codec signing with secret.
func NewTokenCodec(secret string, opts ...CodecOption) *TokenCodec {
	tc := &TokenCodec{
		secret: []byte(secret),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(tc)
	}
	return tc
}

// Issue signs a token of the given kind for id, valid for ttl.
func (tc *TokenCodec) Issue(id Identity, kind TokenKind, ttl time.Duration) (string, time.Time, error) {
	// JWT timestamps have second precision; anything shorter would give exp == iat.
	if ttl < time.Second {
		return "", time.Time{}, ErrInvalidTTL
	}
	if id.Subject == "" {
		return "", time.Time{}, errors.New("token subject required")
	}

	issuedAt := tc.now().UTC().Truncate(time.Second)
	expiresAt := issuedAt.Add(ttl).Truncate(time.Second)

	claims := &Claims{
		Email:         id.Email,
		Roles:         id.Roles,
		Organizations: id.Organizations,
		Kind:          kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   id.Subject,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tc.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// IssuePair mints an access and a refresh token for the same identity.
func (tc *TokenCodec) IssuePair(id Identity, ttls TokenTTLs) (*TokenPair, error) {
	access, accessExp, err := tc.Issue(id, AccessToken, ttls.Access)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	refresh, refreshExp, err := tc.Issue(id, RefreshToken, ttls.Refresh)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}
	return &TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// Decode verifies the signature of tokenStr and only then checks expiry and
// kind. Any structural or signature problem yields ErrInvalidSignature.
func (tc *TokenCodec) Decode(tokenStr string, kind TokenKind) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	claims := &Claims{}
	if _, err := parser.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (interface{}, error) {
		return tc.secret, nil
	}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	if claims.ExpiresAt == nil || claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject or expiry", ErrInvalidSignature)
	}
	if !tc.now().Before(claims.ExpiresAt.Time) {
		return nil, ErrExpired
	}
	if claims.Kind != kind {
		return nil, ErrWrongTokenKind
	}
	return claims, nil
}
