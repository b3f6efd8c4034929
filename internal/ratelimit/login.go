// Package ratelimit throttles failed sign-in attempts with Redis counters.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrLoginThrottled means the e-mail or client address used up its budget.
	ErrLoginThrottled = errors.New("too many failed login attempts")
	// ErrLimiterUnavailable indicates the Redis backend could not be reached.
	ErrLimiterUnavailable = errors.New("login limiter unavailable")
)

// LoginConfig sets the failure budget per window.
type LoginConfig struct {
	MaxAttempts int
	Cooldown    time.Duration
}

// LoginLimiter counts failed logins per e-mail and per client IP. Each
// counter expires Cooldown after its first failure.
type LoginLimiter struct {
	redis  redis.UniversalClient
	config LoginConfig
}

// NewLoginLimiter builds a limiter on top of an existing client.
func NewLoginLimiter(client redis.UniversalClient, cfg LoginConfig) *LoginLimiter {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 15 * time.Minute
	}
	return &LoginLimiter{redis: client, config: cfg}
}

// Check returns ErrLoginThrottled when either counter reached the budget.
func (l *LoginLimiter) Check(ctx context.Context, email, ip string) error {
	for _, key := range l.keys(email, ip) {
		count, err := l.redis.Get(ctx, key).Int64()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
		}
		if count >= int64(l.config.MaxAttempts) {
			return ErrLoginThrottled
		}
	}
	return nil
}

// Fail records one failed attempt against both counters.
func (l *LoginLimiter) Fail(ctx context.Context, email, ip string) error {
	for _, key := range l.keys(email, ip) {
		count, err := l.redis.Incr(ctx, key).Result()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
		}
		if count == 1 {
			if err := l.redis.Expire(ctx, key, l.config.Cooldown).Err(); err != nil {
				return fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
			}
		}
	}
	return nil
}

// Reset clears the e-mail counter after a successful login. The IP counter
// is left to expire so one good account cannot launder a spraying client.
func (l *LoginLimiter) Reset(ctx context.Context, email string) error {
	if email == "" {
		return nil
	}
	if err := l.redis.Del(ctx, emailKey(email)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
	}
	return nil
}

func (l *LoginLimiter) keys(email, ip string) []string {
	keys := make([]string, 0, 2)
	if email != "" {
		keys = append(keys, emailKey(email))
	}
	if ip != "" {
		keys = append(keys, "login:ip:"+ip)
	}
	return keys
}

func emailKey(email string) string {
	return "login:email:" + strings.ToLower(strings.TrimSpace(email))
}
