package domain

import (
	"context"
	"time"
)

// Status is the operator-controlled state of a source or destination
type Status string

const (
	StatusActive   Status = "Active"
	StatusInactive Status = "Inactive"
)

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	return s == StatusActive || s == StatusInactive
}

// Endpoint is a named, organization-owned reference to exactly one Location.
// Role tells whether it is a Source or a Destination; both share this shape.
type Endpoint struct {
	ID             string
	Role           LocationType
	Name           string
	Description    *string
	Status         Status
	LocationID     string
	OrganizationID string
	CreatedBy      string
	CreatedAt      time.Time
	UpdatedAt      time.Time

	// Location is populated by reads; nil when the linked row is gone
	Location *Location
}

// EndpointRepository defines data access for one endpoint table (sources or destinations)
type EndpointRepository interface {
	Create(ctx context.Context, ep *Endpoint) error
	// GetByID loads the endpoint and its location, scoped to an organization
	GetByID(ctx context.Context, organizationID, id string) (*Endpoint, error)
	List(ctx context.Context, organizationID string) ([]*Endpoint, error)
	Update(ctx context.Context, ep *Endpoint) error
	Delete(ctx context.Context, id string) error
}
