package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aryan0dhankhar/deliveryhub/internal/reliability/circuitbreaker"
)

// Counters is the subset of the Redis client the throttle needs
type Counters interface {
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	GetInt(ctx context.Context, key string) (int64, error)
	Delete(ctx context.Context, key string) error
}

// LoginThrottle locks an email out after repeated failed logins. Counts live
// in Redis so every replica sees the same lockout.
type LoginThrottle struct {
	store       Counters
	maxFailures int64
	lockout     time.Duration
	logger      *slog.Logger
}

// NewLoginThrottle creates a throttle allowing maxFailures failures per lockout window
func NewLoginThrottle(store Counters, maxFailures int, lockout time.Duration, logger *slog.Logger) *LoginThrottle {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoginThrottle{store: store, maxFailures: int64(maxFailures), lockout: lockout, logger: logger}
}

func throttleKey(email string) string {
	return "login:failures:" + strings.ToLower(email)
}

// Locked reports whether email has used up its failures. Store errors fail open.
func (t *LoginThrottle) Locked(ctx context.Context, email string) bool {
	n, err := t.store.GetInt(ctx, throttleKey(email))
	if err != nil {
		t.logger.Warn("login throttle unavailable", slog.String("error", err.Error()))
		return false
	}
	return n >= t.maxFailures
}

// Fail records a failed attempt
func (t *LoginThrottle) Fail(ctx context.Context, email string) error {
	n, err := t.store.IncrWithTTL(ctx, throttleKey(email), t.lockout)
	if err != nil {
		return fmt.Errorf("failed to record login failure: %w", err)
	}
	if n == t.maxFailures {
		t.logger.Warn("login locked out",
			slog.String("email", email),
			slog.Duration("lockout", t.lockout),
		)
	}
	return nil
}

// Reset clears the failure count after a successful login
func (t *LoginThrottle) Reset(ctx context.Context, email string) error {
	return t.store.Delete(ctx, throttleKey(email))
}

// GuardedCounters short-circuits calls to store while breaker is open, so a
// Redis outage costs one timeout per cool-down instead of one per login.
type GuardedCounters struct {
	store   Counters
	breaker *circuitbreaker.CircuitBreaker
}

// NewGuardedCounters wraps store with breaker
func NewGuardedCounters(store Counters, breaker *circuitbreaker.CircuitBreaker) *GuardedCounters {
	return &GuardedCounters{store: store, breaker: breaker}
}

func (g *GuardedCounters) IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	var n int64
	err := g.breaker.Do(func() (err error) {
		n, err = g.store.IncrWithTTL(ctx, key, ttl)
		return err
	})
	return n, err
}

func (g *GuardedCounters) GetInt(ctx context.Context, key string) (int64, error) {
	var n int64
	err := g.breaker.Do(func() (err error) {
		n, err = g.store.GetInt(ctx, key)
		return err
	})
	return n, err
}

func (g *GuardedCounters) Delete(ctx context.Context, key string) error {
	return g.breaker.Do(func() error { return g.store.Delete(ctx, key) })
}
