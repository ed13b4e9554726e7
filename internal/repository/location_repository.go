package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/aryan0dhankhar/deliveryhub/internal/domain"
)

// PostgresLocationRepository implements domain.LocationRepository using PostgreSQL.
// auth and bucket_info are stored as jsonb.
type PostgresLocationRepository struct {
	q      DBTX
	logger *slog.Logger
}

const locationColumns = `id, cloud, product, location_type, auth, bucket_info, created_by, created_at, updated_at`

// Create inserts loc, assigning an id when it has none
func (r *PostgresLocationRepository) Create(ctx context.Context, loc *domain.Location) error {
	if loc.ID == "" {
		loc.ID = uuid.NewString()
	}
	query := `
		INSERT INTO locations (id, cloud, product, location_type, auth, bucket_info, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`
	err := r.q.QueryRowContext(ctx, query,
		loc.ID,
		loc.Cloud,
		loc.Product,
		string(loc.LocationType),
		jsonOrEmpty(loc.Auth),
		jsonOrEmpty(loc.BucketInfo),
		nullable(&loc.CreatedBy),
	).Scan(&loc.CreatedAt, &loc.UpdatedAt)
	if err != nil {
		r.logger.Error("failed to create location",
			slog.String("cloud", loc.Cloud),
			slog.String("product", loc.Product),
			slog.String("error", err.Error()),
		)
		return mapError(err, "location")
	}
	return nil
}

// GetByID retrieves a location by ID
func (r *PostgresLocationRepository) GetByID(ctx context.Context, id string) (*domain.Location, error) {
	if !validID(id) {
		return nil, domain.NotFound("location not found")
	}
	query := `SELECT ` + locationColumns + ` FROM locations WHERE id = $1`
	loc, err := scanLocation(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapError(err, "location")
	}
	return loc, nil
}

// Update overwrites every configurable field of loc
func (r *PostgresLocationRepository) Update(ctx context.Context, loc *domain.Location) error {
	if !validID(loc.ID) {
		return domain.NotFound("location not found")
	}
	query := `
		UPDATE locations
		SET cloud = $1, product = $2, location_type = $3, auth = $4, bucket_info = $5, updated_at = NOW()
		WHERE id = $6
		RETURNING updated_at
	`
	err := r.q.QueryRowContext(ctx, query,
		loc.Cloud,
		loc.Product,
		string(loc.LocationType),
		jsonOrEmpty(loc.Auth),
		jsonOrEmpty(loc.BucketInfo),
		loc.ID,
	).Scan(&loc.UpdatedAt)
	if err != nil {
		return mapError(err, "location")
	}
	return nil
}

// Delete removes a location
func (r *PostgresLocationRepository) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return domain.NotFound("location not found")
	}
	res, err := r.q.ExecContext(ctx, `DELETE FROM locations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete location: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return domain.NotFound("location not found")
	}
	return nil
}

// DeleteOrphans removes locations older than the cutoff that nothing references
func (r *PostgresLocationRepository) DeleteOrphans(ctx context.Context, createdBefore time.Time) (int64, error) {
	query := `
		DELETE FROM locations l
		WHERE l.created_at < $1
		  AND NOT EXISTS (SELECT 1 FROM sources s WHERE s.location_uuid = l.id)
		  AND NOT EXISTS (SELECT 1 FROM destinations d WHERE d.location_uuid = l.id)
	`
	res, err := r.q.ExecContext(ctx, query, createdBefore)
	if err != nil {
		return 0, fmt.Errorf("failed to delete orphan locations: %w", err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLocation(row rowScanner) (*domain.Location, error) {
	loc := &domain.Location{}
	var createdBy *string
	var locationType string
	err := row.Scan(
		&loc.ID,
		&loc.Cloud,
		&loc.Product,
		&locationType,
		&loc.Auth,
		&loc.BucketInfo,
		&createdBy,
		&loc.CreatedAt,
		&loc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	loc.LocationType = domain.LocationType(locationType)
	if createdBy != nil {
		loc.CreatedBy = *createdBy
	}
	return loc, nil
}

func jsonOrEmpty(m datatypes.JSONMap) datatypes.JSONMap {
	if m == nil {
		return datatypes.JSONMap{}
	}
	return m
}
