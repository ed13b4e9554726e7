package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/aryan0dhankhar/deliveryhub/internal/domain"
)

const (
	orgID = "6f1c2f1e-0d7a-4c55-9f0e-1b1d7b0a0001"
	locID = "6f1c2f1e-0d7a-4c55-9f0e-1b1d7b0a0002"
	srcID = "6f1c2f1e-0d7a-4c55-9f0e-1b1d7b0a0003"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresStore(db, nil), mock
}

var joinedColumns = []string{
	"id", "name", "description", "status", "location_uuid", "organization_id",
	"created_by", "created_at", "updated_at",
	"l_id", "cloud", "product", "location_type", "auth", "bucket_info",
	"l_created_by", "l_created_at", "l_updated_at",
}

func TestMapError(t *testing.T) {
	assert.ErrorIs(t, mapError(sql.ErrNoRows, "source"), domain.ErrNotFound)
	assert.ErrorIs(t, mapError(&pq.Error{Code: uniqueViolation}, "user"), domain.ErrConflict)
	assert.NoError(t, mapError(nil, "x"))

	other := errors.New("connection reset")
	err := mapError(other, "location")
	assert.ErrorIs(t, err, other)
	assert.Empty(t, domain.KindOf(err))
}

func TestEndpointRepository_TablePerRole(t *testing.T) {
	assert.Equal(t, "sources", newEndpointRepository(nil, domain.LocationSource, nil).table)
	assert.Equal(t, "destinations", newEndpointRepository(nil, domain.LocationDestination, nil).table)
}

func TestEndpointRepository_GetByIDJoinsLocation(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	rows := sqlmock.NewRows(joinedColumns).AddRow(
		srcID, "orders", nil, "Active", locID, orgID,
		nil, now, now,
		locID, "aws", "s3", "source", []byte(`{"type":"ASSUME_ROLE","arn":"x"}`), []byte(`{"region":"us-east-1"}`),
		nil, now, now,
	)
	mock.ExpectQuery(`FROM sources e\s+LEFT JOIN locations l`).
		WithArgs(orgID, srcID).
		WillReturnRows(rows)

	ep, err := store.Endpoints(domain.LocationSource).GetByID(context.Background(), orgID, srcID)
	require.NoError(t, err)
	assert.Equal(t, domain.LocationSource, ep.Role)
	assert.Nil(t, ep.Description)
	require.NotNil(t, ep.Location)
	assert.Equal(t, "ASSUME_ROLE", ep.Location.Auth["type"])
	assert.Equal(t, "us-east-1", ep.Location.BucketInfo["region"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEndpointRepository_GetByIDBrokenLink(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	rows := sqlmock.NewRows(joinedColumns).AddRow(
		srcID, "orders", "desc", "Inactive", locID, orgID,
		nil, now, now,
		nil, nil, nil, nil, nil, nil,
		nil, nil, nil,
	)
	mock.ExpectQuery(`FROM destinations e`).WithArgs(orgID, srcID).WillReturnRows(rows)

	ep, err := store.Endpoints(domain.LocationDestination).GetByID(context.Background(), orgID, srcID)
	require.NoError(t, err)
	assert.Nil(t, ep.Location)
	require.NotNil(t, ep.Description)
	assert.Equal(t, "desc", *ep.Description)
	assert.Equal(t, domain.StatusInactive, ep.Status)
}

func TestEndpointRepository_GetByIDNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(`FROM sources e`).WithArgs(orgID, srcID).WillReturnRows(sqlmock.NewRows(joinedColumns))

	_, err := store.Endpoints(domain.LocationSource).GetByID(context.Background(), orgID, srcID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEndpointRepository_MalformedIDIsNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	_, err := store.Endpoints(domain.LocationSource).GetByID(context.Background(), orgID, "not-a-uuid")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = store.Endpoints(domain.LocationSource).Delete(context.Background(), "42")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEndpointRepository_ListEmpty(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(`FROM sources e`).WithArgs(orgID).WillReturnRows(sqlmock.NewRows(joinedColumns))

	list, err := store.Endpoints(domain.LocationSource).List(context.Background(), orgID)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestEndpointRepository_DeleteMissing(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(`DELETE FROM destinations WHERE id`).WithArgs(srcID).WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Endpoints(domain.LocationDestination).Delete(context.Background(), srcID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLocationRepository_CreateAssignsID(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()
	mock.ExpectQuery(`INSERT INTO locations`).
		WithArgs(sqlmock.AnyArg(), "aws", "s3", "source", `{"type":"ASSUME_ROLE"}`, `{}`, nil).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	loc := &domain.Location{Cloud: "aws", Product: "s3", LocationType: domain.LocationSource,
		Auth: datatypes.JSONMap{"type": "ASSUME_ROLE"}}
	require.NoError(t, store.Locations().Create(context.Background(), loc))
	assert.True(t, validID(loc.ID))
	assert.Equal(t, now, loc.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLocationRepository_DeleteOrphans(t *testing.T) {
	store, mock := newMockStore(t)
	cutoff := time.Now().Add(-time.Hour)
	mock.ExpectExec(`DELETE FROM locations l\s+WHERE l.created_at < \$1\s+AND NOT EXISTS`).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := store.Locations().DeleteOrphans(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(`INSERT INTO users`).WillReturnError(&pq.Error{Code: uniqueViolation})

	err := store.Users().Create(context.Background(), &domain.User{OrganizationID: orgID, Email: "A@B.io"})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestWithTx_CommitsOnSuccess(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM sources`).WithArgs(srcID).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM locations`).WithArgs(locID).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.WithTx(context.Background(), func(tx domain.Store) error {
		if err := tx.Endpoints(domain.LocationSource).Delete(context.Background(), srcID); err != nil {
			return err
		}
		return tx.Locations().Delete(context.Background(), locID)
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM sources`).WithArgs(srcID).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM locations`).WithArgs(locID).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := store.WithTx(context.Background(), func(tx domain.Store) error {
		if err := tx.Endpoints(domain.LocationSource).Delete(context.Background(), srcID); err != nil {
			return err
		}
		return tx.Locations().Delete(context.Background(), locID)
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_NestedJoinsOuter(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	err := store.WithTx(context.Background(), func(tx domain.Store) error {
		return tx.WithTx(context.Background(), func(inner domain.Store) error {
			assert.Same(t, tx, inner)
			return nil
		})
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
