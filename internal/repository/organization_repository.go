package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/aryan0dhankhar/deliveryhub/internal/domain"
)

// PostgresOrganizationRepository implements domain.OrganizationRepository using PostgreSQL
type PostgresOrganizationRepository struct {
	q DBTX
}

// Create creates a new organization
func (r *PostgresOrganizationRepository) Create(ctx context.Context, org *domain.Organization) error {
	if org.ID == "" {
		org.ID = uuid.NewString()
	}
	query := `
		INSERT INTO organizations (id, name, description, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`
	err := r.q.QueryRowContext(ctx, query, org.ID, org.Name, org.Description, org.IsActive).Scan(
		&org.CreatedAt,
		&org.UpdatedAt,
	)
	return mapError(err, "organization")
}

// GetByID retrieves an organization by ID
func (r *PostgresOrganizationRepository) GetByID(ctx context.Context, id string) (*domain.Organization, error) {
	if !validID(id) {
		return nil, domain.NotFound("organization not found")
	}
	o := &domain.Organization{}
	query := `
		SELECT id, name, description, created_at, updated_at, is_active
		FROM organizations
		WHERE id = $1
	`
	err := r.q.QueryRowContext(ctx, query, id).Scan(
		&o.ID, &o.Name, &o.Description, &o.CreatedAt, &o.UpdatedAt, &o.IsActive,
	)
	if err != nil {
		return nil, mapError(err, "organization")
	}
	return o, nil
}
