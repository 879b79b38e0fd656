package db

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/shopdesk/shopdesk/internal/shared"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// IsNoRows reports whether err signals an empty result set.
func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// IsUniqueViolation reports whether err is a unique constraint violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation
}

// IsForeignKeyViolation reports whether err is a foreign key violation.
func IsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeForeignKeyViolation
}

// ConstraintName returns the violated constraint name, if any.
func ConstraintName(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	return ""
}

// Translate maps driver errors onto the shared sentinels, naming the entity
// involved. Other errors are returned wrapped with the entity name.
func Translate(err error, entity string) error {
	switch {
	case err == nil:
		return nil
	case IsNoRows(err):
		return fmt.Errorf("%s: %w", entity, shared.ErrNotFound)
	case IsUniqueViolation(err):
		return fmt.Errorf("%s: %w (%s)", entity, shared.ErrDuplicate, ConstraintName(err))
	case IsForeignKeyViolation(err):
		return fmt.Errorf("%s: %w: referenced record missing or still in use (%s)", entity, shared.ErrConflict, ConstraintName(err))
	default:
		return fmt.Errorf("%s: %w", entity, err)
	}
}
