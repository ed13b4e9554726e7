package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/aryan0dhankhar/deliveryhub/internal/domain"
)

// PostgresEndpointRepository implements domain.EndpointRepository for either
// the sources or the destinations table. Both tables share one shape.
type PostgresEndpointRepository struct {
	q      DBTX
	role   domain.LocationType
	table  string
	what   string
	logger *slog.Logger
}

func newEndpointRepository(q DBTX, role domain.LocationType, logger *slog.Logger) *PostgresEndpointRepository {
	r := &PostgresEndpointRepository{q: q, role: role, logger: logger}
	switch role {
	case domain.LocationDestination:
		r.table, r.what = "destinations", "destination"
	default:
		r.role, r.table, r.what = domain.LocationSource, "sources", "source"
	}
	return r
}

// Create inserts ep, assigning an id when it has none
func (r *PostgresEndpointRepository) Create(ctx context.Context, ep *domain.Endpoint) error {
	if ep.ID == "" {
		ep.ID = uuid.NewString()
	}
	if ep.Status == "" {
		ep.Status = domain.StatusActive
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (id, name, description, status, location_uuid, organization_id, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`, r.table)
	err := r.q.QueryRowContext(ctx, query,
		ep.ID,
		ep.Name,
		ep.Description,
		string(ep.Status),
		ep.LocationID,
		ep.OrganizationID,
		nullable(&ep.CreatedBy),
	).Scan(&ep.CreatedAt, &ep.UpdatedAt)
	if err != nil {
		r.logger.Error("failed to create "+r.what,
			slog.String("name", ep.Name),
			slog.String("organization_id", ep.OrganizationID),
			slog.String("error", err.Error()),
		)
		return mapError(err, r.what)
	}
	ep.Role = r.role
	return nil
}

// GetByID loads the endpoint and its location within one organization
func (r *PostgresEndpointRepository) GetByID(ctx context.Context, organizationID, id string) (*domain.Endpoint, error) {
	if !validID(id) || !validID(organizationID) {
		return nil, domain.NotFound("%s not found", r.what)
	}
	query := r.selectQuery() + ` WHERE e.organization_id = $1 AND e.id = $2`
	ep, err := r.scan(r.q.QueryRowContext(ctx, query, organizationID, id))
	if err != nil {
		return nil, mapError(err, r.what)
	}
	return ep, nil
}

// List returns every endpoint of the organization, newest first
func (r *PostgresEndpointRepository) List(ctx context.Context, organizationID string) ([]*domain.Endpoint, error) {
	if !validID(organizationID) {
		return []*domain.Endpoint{}, nil
	}
	query := r.selectQuery() + ` WHERE e.organization_id = $1 ORDER BY e.created_at DESC`
	rows, err := r.q.QueryContext(ctx, query, organizationID)
	if err != nil {
		r.logger.Error("failed to list "+r.table,
			slog.String("organization_id", organizationID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to list %s: %w", r.table, err)
	}
	defer rows.Close()

	out := []*domain.Endpoint{}
	for rows.Next() {
		ep, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", r.what, err)
		}
		out = append(out, ep)
	}
	return out, rows.Err()
}

// Update overwrites name, description, status and location link
func (r *PostgresEndpointRepository) Update(ctx context.Context, ep *domain.Endpoint) error {
	if !validID(ep.ID) {
		return domain.NotFound("%s not found", r.what)
	}
	query := fmt.Sprintf(`
		UPDATE %s
		SET name = $1, description = $2, status = $3, location_uuid = $4, updated_at = NOW()
		WHERE id = $5
		RETURNING updated_at
	`, r.table)
	err := r.q.QueryRowContext(ctx, query,
		ep.Name,
		ep.Description,
		string(ep.Status),
		ep.LocationID,
		ep.ID,
	).Scan(&ep.UpdatedAt)
	if err != nil {
		return mapError(err, r.what)
	}
	return nil
}

// Delete removes one endpoint row
func (r *PostgresEndpointRepository) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return domain.NotFound("%s not found", r.what)
	}
	res, err := r.q.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.table), id)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", r.what, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return domain.NotFound("%s not found", r.what)
	}
	return nil
}

func (r *PostgresEndpointRepository) selectQuery() string {
	return fmt.Sprintf(`
		SELECT e.id, e.name, e.description, e.status, e.location_uuid, e.organization_id,
		       e.created_by, e.created_at, e.updated_at,
		       l.id, l.cloud, l.product, l.location_type, l.auth, l.bucket_info,
		       l.created_by, l.created_at, l.updated_at
		FROM %s e
		LEFT JOIN locations l ON l.id = e.location_uuid`, r.table)
}

// scan reads one joined row; the location columns are all NULL when the link is broken
func (r *PostgresEndpointRepository) scan(row rowScanner) (*domain.Endpoint, error) {
	ep := &domain.Endpoint{Role: r.role}
	var (
		status       string
		createdBy    sql.NullString
		locID        sql.NullString
		cloud        sql.NullString
		product      sql.NullString
		locationType sql.NullString
		auth         datatypes.JSONMap
		bucketInfo   datatypes.JSONMap
		locCreatedBy sql.NullString
		locCreatedAt sql.NullTime
		locUpdatedAt sql.NullTime
	)
	err := row.Scan(
		&ep.ID,
		&ep.Name,
		&ep.Description,
		&status,
		&ep.LocationID,
		&ep.OrganizationID,
		&createdBy,
		&ep.CreatedAt,
		&ep.UpdatedAt,
		&locID,
		&cloud,
		&product,
		&locationType,
		&auth,
		&bucketInfo,
		&locCreatedBy,
		&locCreatedAt,
		&locUpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	ep.Status = domain.Status(status)
	ep.CreatedBy = createdBy.String
	if locID.Valid {
		ep.Location = &domain.Location{
			ID:           locID.String,
			Cloud:        cloud.String,
			Product:      product.String,
			LocationType: domain.LocationType(locationType.String),
			Auth:         auth,
			BucketInfo:   bucketInfo,
			CreatedBy:    locCreatedBy.String,
			CreatedAt:    timeOrZero(locCreatedAt),
			UpdatedAt:    timeOrZero(locUpdatedAt),
		}
	}
	return ep, nil
}

func timeOrZero(t sql.NullTime) time.Time {
	if t.Valid {
		return t.Time
	}
	return time.Time{}
}
