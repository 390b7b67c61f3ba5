package sqlite

import (
	"context"
	"errors"

	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	domainerrors "github.com/tasteapp/taste-index/internal/errors"
)

// classify maps database/sql and SQLite errors onto the index error taxonomy.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var domainErr *domainerrors.Error
	if errors.As(err, &domainErr) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var sqliteErr *moderncsqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return domainerrors.WriteConflict(err)
		case sqlite3.SQLITE_CONSTRAINT, sqlite3.SQLITE_MISMATCH:
			return domainerrors.Wrap(err, domainerrors.CodeInternal, "index constraint violated")
		}
	}

	// Closed pool, missing file, disk and I/O failures.
	return domainerrors.StoreUnavailable(err)
}
