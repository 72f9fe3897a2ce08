package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"jewelry-catalog/internal/domain/catalog"
)

var (
	ErrMissingDatabaseURL = errors.New("database URL is required")
	ErrMigrationFailed    = errors.New("migration failed")
)

// Postgres SQLSTATE codes the repositories translate.
const (
	codeForeignKeyViolation = "23503"
	codeUniqueViolation     = "23505"
	codeCheckViolation      = "23514"
)

// translateError maps driver errors onto catalog sentinels.
func translateError(err error, entity string, id any) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.NotFound(entity, id)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case codeUniqueViolation:
			return fmt.Errorf("%w: %s already exists", catalog.ErrConflict, entity)
		case codeForeignKeyViolation:
			return fmt.Errorf("%w: %s conflicts with related records", catalog.ErrConflict, entity)
		case codeCheckViolation:
			return fmt.Errorf("%w: %s violates %s", catalog.ErrValidation, entity, pqErr.Constraint)
		}
	}
	return err
}

// expectAffected returns NotFound when a write touched no rows.
func expectAffected(res sql.Result, entity string, id any) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return catalog.NotFound(entity, id)
	}
	return nil
}
