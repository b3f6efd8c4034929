package service

import (
	"context"
	"sync"

	"github.com/spec-kit/member-portal/internal/ratelimit"
)

// fakeLimiter counts failures in memory.
type fakeLimiter struct {
	mu       sync.Mutex
	max      int
	failures map[string]int
	checkErr error
}

func newFakeLimiter(max int) *fakeLimiter {
	return &fakeLimiter{max: max, failures: make(map[string]int)}
}

func (l *fakeLimiter) Check(_ context.Context, email, _ string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.checkErr != nil {
		return l.checkErr
	}
	if l.failures[email] >= l.max {
		return ratelimit.ErrLoginThrottled
	}
	return nil
}

func (l *fakeLimiter) Fail(_ context.Context, email, _ string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failures[email]++
	return nil
}

func (l *fakeLimiter) Reset(_ context.Context, email string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.failures, email)
	return nil
}
