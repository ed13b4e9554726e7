package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryan0dhankhar/deliveryhub/internal/domain"
)

type countingUsers struct {
	users map[string]*domain.User
	calls int
}

func (c *countingUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	c.calls++
	u, ok := c.users[email]
	if !ok {
		return nil, domain.NotFound("user not found")
	}
	return u, nil
}

func TestResolve_CachesHits(t *testing.T) {
	users := &countingUsers{users: map[string]*domain.User{
		"ann@example.com": {ID: "u1", Email: "ann@example.com", OrganizationID: "o1", Access: domain.AccessAdmin, IsActive: true},
	}}
	r := NewResolver(users, nil)

	id, err := r.Resolve(context.Background(), "ann@example.com")
	require.NoError(t, err)
	assert.Equal(t, "o1", id.OrganizationID)
	assert.Equal(t, domain.AccessAdmin, id.Access)

	_, err = r.Resolve(context.Background(), "ann@example.com")
	require.NoError(t, err)
	assert.Equal(t, 1, users.calls)

	r.Forget("ann@example.com")
	_, err = r.Resolve(context.Background(), "ann@example.com")
	require.NoError(t, err)
	assert.Equal(t, 2, users.calls)
}

func TestResolve_UnknownOrInactive(t *testing.T) {
	users := &countingUsers{users: map[string]*domain.User{
		"bob@example.com": {ID: "u2", Email: "bob@example.com", IsActive: false},
	}}
	r := NewResolver(users, nil)

	_, err := r.Resolve(context.Background(), "ghost@example.com")
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)

	_, err = r.Resolve(context.Background(), "bob@example.com")
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestContextRoundTrip(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))
	id := &domain.Identity{UserID: "u"}
	assert.Same(t, id, FromContext(WithIdentity(context.Background(), id)))
}
