package domain

import (
	"context"
	"time"
)

// AccessRole is a user's role within their organization
type AccessRole string

const (
	AccessAdmin     AccessRole = "admin"
	AccessDeveloper AccessRole = "developer"
	AccessViewer    AccessRole = "viewer"
)

// Valid reports whether r is a known role
func (r AccessRole) Valid() bool {
	return r == AccessAdmin || r == AccessDeveloper || r == AccessViewer
}

// User represents an account inside an organization
type User struct {
	ID             string // UUID
	OrganizationID string
	FirstName      string
	LastName       string
	Email          string // Unique, stored lowercase
	Access         AccessRole
	IsActive       bool
	PasswordHash   string // Bcrypt hashed password (not returned in API)
	InvitedBy      *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	LastLogin      *time.Time
}

// UserRepository defines data access for users
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByFirstName(ctx context.Context, firstName string) (*User, error)
	Update(ctx context.Context, user *User) error
	ListByOrganization(ctx context.Context, organizationID string) ([]*User, error)
}

// Organization is the tenant that owns users, sources and destinations
type Organization struct {
	ID          string // UUID
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	IsActive    bool
}

// OrganizationRepository defines data access for organizations
type OrganizationRepository interface {
	Create(ctx context.Context, org *Organization) error
	GetByID(ctx context.Context, id string) (*Organization, error)
}

// Identity is the authenticated caller of a request
type Identity struct {
	UserID         string
	Email          string
	OrganizationID string
	Access         AccessRole
}
