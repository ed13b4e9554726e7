package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/aryan0dhankhar/deliveryhub/internal/domain"
)

// DBTX is the query surface shared by *sql.DB and *sql.Tx
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresStore implements domain.Store on a PostgreSQL connection pool
type PostgresStore struct {
	db     *sql.DB
	q      DBTX
	inTx   bool
	logger *slog.Logger
}

// NewPostgresStore creates a store bound to the pool
func NewPostgresStore(db *sql.DB, logger *slog.Logger) *PostgresStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresStore{db: db, q: db, logger: logger}
}

func (s *PostgresStore) Locations() domain.LocationRepository {
	return &PostgresLocationRepository{q: s.q, logger: s.logger}
}

func (s *PostgresStore) Endpoints(role domain.LocationType) domain.EndpointRepository {
	return newEndpointRepository(s.q, role, s.logger)
}

func (s *PostgresStore) Users() domain.UserRepository {
	return &PostgresUserRepository{q: s.q, logger: s.logger}
}

func (s *PostgresStore) Organizations() domain.OrganizationRepository {
	return &PostgresOrganizationRepository{q: s.q}
}

// WithTx runs fn inside a transaction. A store that is already bound to a
// transaction passes itself through so nested calls join the outer one.
func (s *PostgresStore) WithTx(ctx context.Context, fn func(tx domain.Store) error) error {
	if s.inTx {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	txStore := &PostgresStore{db: s.db, q: tx, inTx: true, logger: s.logger}
	if err := fn(txStore); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("failed to roll back transaction",
				slog.String("error", rbErr.Error()),
			)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
