package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	c, err := NewClient(context.Background(), "redis://"+srv.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c, srv
}

func TestIncrWithTTL_WindowStartsAtFirstHit(t *testing.T) {
	c, srv := newTestClient(t)
	ctx := context.Background()

	n, err := c.IncrWithTTL(ctx, "login:a", 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, 10*time.Minute, srv.TTL("login:a"))

	srv.FastForward(4 * time.Minute)
	n, err = c.IncrWithTTL(ctx, "login:a", 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, 6*time.Minute, srv.TTL("login:a"))

	srv.FastForward(7 * time.Minute)
	got, err := c.GetInt(ctx, "login:a")
	require.NoError(t, err)
	assert.Zero(t, got)
}

func TestIncrWithTTL_RepairsKeyWithoutExpiry(t *testing.T) {
	c, srv := newTestClient(t)
	require.NoError(t, srv.Set("login:b", "3"))

	n, err := c.IncrWithTTL(context.Background(), "login:b", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	assert.Equal(t, time.Minute, srv.TTL("login:b"))
}

func TestDelete(t *testing.T) {
	c, srv := newTestClient(t)
	ctx := context.Background()
	_, err := c.IncrWithTTL(ctx, "login:c", time.Minute)
	require.NoError(t, err)

	require.NoError(t, c.Delete(ctx, "login:c"))
	assert.False(t, srv.Exists("login:c"))
}
