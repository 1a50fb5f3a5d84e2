package store

import (
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/roach88/crossfade/internal/library"
)

// ErrLocked is returned by OpenLocked when another process holds the
// database write lock.
var ErrLocked = errors.New("database is locked by another process")

// isConstraint reports whether err is a SQLite constraint failure.
func isConstraint(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.Code == sqlite3.ErrConstraint
	}
	return false
}

// classify maps constraint failures to INTEGRITY_VIOLATION and wraps any
// other error with op.
func classify(err error, op string, ref library.Reference) error {
	if err == nil {
		return nil
	}
	if isConstraint(err) {
		return library.NewIntegrityError(op, ref.Source, ref.ItemID, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// isRecordError reports whether err fails only the current record of a
// batch rather than the batch itself.
func isRecordError(err error) bool {
	return library.IsIntegrityViolation(err) || library.IsInvalidRecord(err) || library.IsNotFound(err)
}
