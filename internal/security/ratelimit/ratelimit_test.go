package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryan0dhankhar/deliveryhub/internal/reliability/circuitbreaker"
)

func TestLimiter_Window(t *testing.T) {
	l := NewLimiter(2, time.Minute)
	defer l.Stop()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("org-1"))
	assert.True(t, l.Allow("org-1"))
	assert.False(t, l.Allow("org-1"))
	assert.True(t, l.Allow("org-2"))

	now = now.Add(61 * time.Second)
	assert.True(t, l.Allow("org-1"))
}

func TestLimiter_EmptyKeyUnlimited(t *testing.T) {
	l := NewLimiter(1, time.Minute)
	defer l.Stop()
	for i := 0; i < 5; i++ {
		assert.True(t, l.Allow(""))
	}
}

func TestLimiter_StrictSeparateBucket(t *testing.T) {
	l := NewLimiter(1, time.Minute)
	defer l.Stop()
	assert.True(t, l.Allow("10.0.0.1"))
	assert.True(t, l.AllowStrict("10.0.0.1", 1, time.Minute))
	assert.False(t, l.AllowStrict("10.0.0.1", 1, time.Minute))
}

type memCounters struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func (m *memCounters) IncrWithTTL(_ context.Context, key string, _ time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	m.counts[key]++
	return m.counts[key], nil
}

func (m *memCounters) GetInt(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[key], m.err
}

func (m *memCounters) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.counts, key)
	return m.err
}

func TestLoginThrottle_LocksAfterMaxFailures(t *testing.T) {
	ctx := context.Background()
	store := &memCounters{counts: map[string]int64{}}
	th := NewLoginThrottle(store, 3, 15*time.Minute, nil)

	for i := 0; i < 3; i++ {
		assert.False(t, th.Locked(ctx, "Ann@Example.com"))
		require.NoError(t, th.Fail(ctx, "ann@example.com"))
	}
	assert.True(t, th.Locked(ctx, "ANN@example.com"))

	require.NoError(t, th.Reset(ctx, "ann@example.com"))
	assert.False(t, th.Locked(ctx, "ann@example.com"))
}

func TestLoginThrottle_FailsOpen(t *testing.T) {
	store := &memCounters{counts: map[string]int64{}, err: errors.New("redis down")}
	th := NewLoginThrottle(store, 1, time.Minute, nil)

	assert.False(t, th.Locked(context.Background(), "a@b.io"))
	assert.Error(t, th.Fail(context.Background(), "a@b.io"))
}

type countingCounters struct {
	memCounters
	calls int
}

func (c *countingCounters) GetInt(ctx context.Context, key string) (int64, error) {
	c.calls++
	return c.memCounters.GetInt(ctx, key)
}

func TestGuardedCounters_OpenBreakerSkipsStore(t *testing.T) {
	store := &countingCounters{memCounters: memCounters{counts: map[string]int64{}, err: errors.New("redis down")}}
	guarded := NewGuardedCounters(store, circuitbreaker.NewCircuitBreaker(2, 1, time.Hour))
	th := NewLoginThrottle(guarded, 3, time.Minute, nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		assert.False(t, th.Locked(ctx, "a@b.io"))
	}
	assert.Equal(t, 2, store.calls)

	_, err := guarded.GetInt(ctx, "k")
	assert.ErrorIs(t, err, circuitbreaker.ErrOpen)
}
