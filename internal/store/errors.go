package store

import (
	"errors"
	"fmt"
	"strings"

	sqlitedrv "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/abhisek/qcbank/internal/question"
)

// conflictError turns SQLite busy and unique-constraint failures into
// question.ErrConcurrencyConflict so Append can retry them.
func conflictError(op string, err error) error {
	if err == nil {
		return nil
	}
	if isConflict(err) {
		return fmt.Errorf("%s: %w: %v", op, question.ErrConcurrencyConflict, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isConflict(err error) bool {
	var se *sqlitedrv.Error
	if errors.As(err, &se) {
		switch se.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return true
		case sqlite3.SQLITE_CONSTRAINT:
			return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
				se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY ||
				strings.Contains(se.Error(), "UNIQUE constraint failed")
		}
	}
	return strings.Contains(err.Error(), "database is locked")
}
