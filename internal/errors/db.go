package errors

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// MapDBError maps database errors to AppError instances.
//   - sql.ErrNoRows / pgx.ErrNoRows → NotFound
//   - NOT NULL and CHECK violations, invalid JSON → Validation
//   - connection failures → Internal with a retry hint
//   - context timeouts/cancellations → Timeout/Canceled
//
// If the error is not a recognized database error, it returns the original error.
func MapDBError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &AppError{Code: ErrCodeTimeout, Message: "Request timed out. Please try again.", Cause: err}
	}
	if errors.Is(err, context.Canceled) {
		return &AppError{Code: ErrCodeCanceled, Message: "Request was canceled.", Cause: err}
	}

	if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows) {
		return &AppError{Code: ErrCodeNotFound, Message: "Record not found", Cause: err}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return mapPgError(pgErr)
	}

	return err
}

func mapPgError(pgErr *pgconn.PgError) error {
	switch {
	case pgErr.Code == pgerrcode.NotNullViolation, pgErr.Code == pgerrcode.CheckViolation:
		return &AppError{
			Code:    ErrCodeValidation,
			Message: "Stored value violates a table constraint.",
			Field:   pgErr.ColumnName,
			Cause:   pgErr,
		}
	case pgErr.Code == pgerrcode.InvalidTextRepresentation,
		pgErr.Code == pgerrcode.InvalidJSONText:
		return &AppError{Code: ErrCodeValidation, Message: "Stored value is not valid JSON.", Cause: pgErr}
	case pgerrcode.IsConnectionException(pgErr.Code), pgErr.Code == pgerrcode.AdminShutdown:
		return &AppError{Code: ErrCodeInternal, Message: "Database is unavailable. Please try again.", Cause: pgErr}
	case pgErr.Code == pgerrcode.UndefinedTable:
		return &AppError{Code: ErrCodeInternal, Message: "Database schema is missing; run migrations.", Cause: pgErr}
	default:
		return &AppError{Code: ErrCodeInternal, Message: "A database error occurred. Please try again.", Cause: pgErr}
	}
}
