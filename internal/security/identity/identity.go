// Package identity resolves a verified token to the user behind it and
// carries that user through the request context.
package identity

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aryan0dhankhar/deliveryhub/internal/domain"
	"github.com/aryan0dhankhar/deliveryhub/pkg/cache"
)

// CacheTTL bounds how long a role or activation change can go unnoticed
const CacheTTL = 30 * time.Second

type ctxKey struct{}

// WithIdentity stores id in ctx
func WithIdentity(ctx context.Context, id *domain.Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the caller, or nil on unauthenticated requests
func FromContext(ctx context.Context) *domain.Identity {
	id, _ := ctx.Value(ctxKey{}).(*domain.Identity)
	return id
}

// UserLookup finds users by email
type UserLookup interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// Resolver loads the user named by a token subject, caching hits briefly
type Resolver struct {
	users  UserLookup
	cache  *cache.Cache[*domain.Identity]
	logger *slog.Logger
}

func NewResolver(users UserLookup, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{users: users, cache: cache.New[*domain.Identity](CacheTTL), logger: logger}
}

// Resolve returns the identity for email. An unknown or inactive user is Unauthenticated.
func (r *Resolver) Resolve(ctx context.Context, email string) (*domain.Identity, error) {
	if id, ok := r.cache.Get(email); ok {
		return id, nil
	}
	user, err := r.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.Unauthenticated("could not validate credentials")
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, domain.Unauthenticated("user is not active")
	}
	id := &domain.Identity{
		UserID:         user.ID,
		Email:          user.Email,
		OrganizationID: user.OrganizationID,
		Access:         user.Access,
	}
	r.cache.Set(email, id)
	return id, nil
}

// Forget drops a cached identity after the user changes
func (r *Resolver) Forget(email string) {
	r.cache.Delete(email)
}
