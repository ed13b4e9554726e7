package repository

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/aryan0dhankhar/deliveryhub/internal/domain"
)

// PostgresUserRepository implements domain.UserRepository using PostgreSQL
type PostgresUserRepository struct {
	q      DBTX
	logger *slog.Logger
}

const userColumns = `id, organization_id, first_name, last_name, email, access, is_active,
	password_hash, invited_by, created_at, updated_at, last_login`

// Create creates a new user. Email is stored lowercase.
func (r *PostgresUserRepository) Create(ctx context.Context, user *domain.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.Email = strings.ToLower(user.Email)
	if user.Access == "" {
		user.Access = domain.AccessViewer
	}

	query := `
		INSERT INTO users (id, organization_id, first_name, last_name, email, access, is_active, password_hash, invited_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`
	err := r.q.QueryRowContext(ctx, query,
		user.ID,
		user.OrganizationID,
		user.FirstName,
		user.LastName,
		user.Email,
		string(user.Access),
		user.IsActive,
		user.PasswordHash,
		nullable(user.InvitedBy),
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		r.logger.Error("failed to create user",
			slog.String("email", user.Email),
			slog.String("error", err.Error()),
		)
		return mapError(err, "user")
	}
	return nil
}

// GetByID retrieves a user by ID
func (r *PostgresUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if !validID(id) {
		return nil, domain.NotFound("user not found")
	}
	return r.getOne(ctx, `WHERE id = $1`, id)
}

// GetByEmail retrieves a user by email, active or not
func (r *PostgresUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, `WHERE email = $1`, strings.ToLower(email))
}

// GetByFirstName returns the oldest user with the given first name
func (r *PostgresUserRepository) GetByFirstName(ctx context.Context, firstName string) (*domain.User, error) {
	return r.getOne(ctx, `WHERE first_name = $1 ORDER BY created_at LIMIT 1`, firstName)
}

func (r *PostgresUserRepository) getOne(ctx context.Context, where string, arg any) (*domain.User, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users `+where, arg)
	user, err := scanUser(row)
	if err != nil {
		return nil, mapError(err, "user")
	}
	return user, nil
}

// Update updates an existing user
func (r *PostgresUserRepository) Update(ctx context.Context, user *domain.User) error {
	if !validID(user.ID) {
		return domain.NotFound("user not found")
	}
	query := `
		UPDATE users
		SET first_name = $1, last_name = $2, email = $3, access = $4, is_active = $5,
		    password_hash = $6, invited_by = $7, last_login = $8, updated_at = NOW()
		WHERE id = $9
		RETURNING updated_at
	`
	err := r.q.QueryRowContext(ctx, query,
		user.FirstName,
		user.LastName,
		strings.ToLower(user.Email),
		string(user.Access),
		user.IsActive,
		user.PasswordHash,
		nullable(user.InvitedBy),
		user.LastLogin,
		user.ID,
	).Scan(&user.UpdatedAt)
	if err != nil {
		return mapError(err, "user")
	}
	return nil
}

// ListByOrganization lists all users of an organization
func (r *PostgresUserRepository) ListByOrganization(ctx context.Context, organizationID string) ([]*domain.User, error) {
	if !validID(organizationID) {
		return nil, nil
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE organization_id = $1 ORDER BY created_at DESC`
	rows, err := r.q.QueryContext(ctx, query, organizationID)
	if err != nil {
		r.logger.Error("failed to list users by organization",
			slog.String("organization_id", organizationID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func scanUser(row rowScanner) (*domain.User, error) {
	user := &domain.User{}
	var access string
	err := row.Scan(
		&user.ID,
		&user.OrganizationID,
		&user.FirstName,
		&user.LastName,
		&user.Email,
		&access,
		&user.IsActive,
		&user.PasswordHash,
		&user.InvitedBy,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.LastLogin,
	)
	if err != nil {
		return nil, err
	}
	user.Access = domain.AccessRole(access)
	return user, nil
}
