package domain

import "context"

// Store groups the repositories that share one database handle.
// WithTx runs fn against a Store bound to a single transaction; the
// transaction commits when fn returns nil and rolls back otherwise.
type Store interface {
	Locations() LocationRepository
	Endpoints(role LocationType) EndpointRepository
	Users() UserRepository
	Organizations() OrganizationRepository
	WithTx(ctx context.Context, fn func(tx Store) error) error
}
