package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/heartmarshall/orcid-sync/internal/domain"
)

// sqlStateErrors maps PostgreSQL error codes to domain errors.
var sqlStateErrors = map[string]error{
	"23505": domain.ErrAlreadyExists, // unique_violation
	"23503": domain.ErrNotFound,      // foreign_key_violation: owner or entity is gone
	"23514": domain.ErrValidation,    // check_violation: unknown operation or record type
	"23502": domain.ErrValidation,    // not_null_violation
	"22P02": domain.ErrValidation,    // invalid_text_representation
	"22001": domain.ErrValidation,    // string_data_right_truncation
}

// MapError converts pgx/pgconn errors to domain errors, prefixed with the
// entity name and id (any value printable with %v). Context errors and
// unknown database errors keep their original chain.
func MapError(err error, entity string, id any) error {
	if err == nil {
		return nil
	}

	cause := err
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
	case errors.Is(err, pgx.ErrNoRows):
		cause = domain.ErrNotFound
	default:
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if mapped, ok := sqlStateErrors[pgErr.Code]; ok {
				cause = mapped
			}
		}
	}

	return fmt.Errorf("%s %v: %w", entity, id, cause)
}
