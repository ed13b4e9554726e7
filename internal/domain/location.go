package domain

import (
	"context"
	"maps"
	"time"

	"gorm.io/datatypes"
)

// LocationType is the role a location plays for its owner
type LocationType string

const (
	LocationSource      LocationType = "source"
	LocationDestination LocationType = "destination"
)

// Valid reports whether t is a known location type
func (t LocationType) Valid() bool {
	return t == LocationSource || t == LocationDestination
}

// Location is a stored connection descriptor for a cloud storage bucket or warehouse.
// Auth and BucketInfo are schema-less; the validator decides which keys they need.
type Location struct {
	ID           string
	Cloud        string
	Product      string
	LocationType LocationType
	Auth         datatypes.JSONMap
	BucketInfo   datatypes.JSONMap
	CreatedBy    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Clone returns a copy whose maps can be mutated without touching l
func (l *Location) Clone() *Location {
	if l == nil {
		return nil
	}
	out := *l
	out.Auth = cloneMap(l.Auth)
	out.BucketInfo = cloneMap(l.BucketInfo)
	return &out
}

// Fields returns the location's configurable fields keyed by their wire names
func (l *Location) Fields() map[string]any {
	return map[string]any{
		"cloud":         l.Cloud,
		"product":       l.Product,
		"location_type": string(l.LocationType),
		"auth":          map[string]any(cloneMap(l.Auth)),
		"bucket_info":   map[string]any(cloneMap(l.BucketInfo)),
	}
}

func cloneMap(m datatypes.JSONMap) datatypes.JSONMap {
	out := make(datatypes.JSONMap, len(m))
	maps.Copy(out, m)
	return out
}

// LocationRepository defines data access for locations
type LocationRepository interface {
	Create(ctx context.Context, loc *Location) error
	GetByID(ctx context.Context, id string) (*Location, error)
	Update(ctx context.Context, loc *Location) error
	Delete(ctx context.Context, id string) error
	// DeleteOrphans removes locations created before the cutoff that no source or destination references
	DeleteOrphans(ctx context.Context, createdBefore time.Time) (int64, error)
}
