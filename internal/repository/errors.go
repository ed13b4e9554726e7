package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/aryan0dhankhar/deliveryhub/internal/domain"
)

const uniqueViolation = "23505"

// mapError turns driver errors into domain errors. what names the record for messages.
func mapError(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NotFound("%s not found", what)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return domain.Conflict("%s already exists", what)
	}
	return fmt.Errorf("%s: %w", what, err)
}

// validID reports whether id can be used as a uuid key. Lookups with a
// malformed id are answered with NotFound instead of a driver cast error.
func validID(id string) bool {
	return uuid.Validate(id) == nil
}

// nullable returns nil for an empty optional foreign key
func nullable(s *string) any {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}
