package sqlite

import (
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/semenovpa/csv_importer/internal/domain"
)

func createQueryError(err error) error {
	return fmt.Errorf("failed to create query: %w", err)
}

func executeQueryError(err error) error {
	return fmt.Errorf("failed to execute query: %w", err)
}

func scanRowError(err error) error {
	return fmt.Errorf("failed to scan row: %w", err)
}

func collectRowsError(err error) error {
	return fmt.Errorf("failed to collect rows: %w", err)
}

// uniqueViolationError maps driver-level unique-constraint violations to the
// domain sentinel so callers never match on driver types.
func uniqueViolationError(err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return domain.ErrDuplicateEmail
	}

	return executeQueryError(err)
}
