package sqlite

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"strings"

	"github.com/joeyportfolio/portfolio/internal/store"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	return store.NewError(kindOf(err), op, err)
}

func kindOf(err error) store.Kind {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_CHECK, sqlite3lib.SQLITE_CONSTRAINT_NOTNULL:
			return store.KindConstraintViolation
		case sqlite3lib.SQLITE_BUSY, sqlite3lib.SQLITE_LOCKED, sqlite3lib.SQLITE_CANTOPEN:
			return store.KindNetwork
		}
	}

	switch {
	case errors.Is(err, driver.ErrBadConn),
		errors.Is(err, sql.ErrConnDone),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return store.KindNetwork
	}

	// A missing table is a generic SQLITE_ERROR; only the message tells.
	message := strings.ToLower(err.Error())
	switch {
	case strings.Contains(message, "no such table"):
		return store.KindNotFound
	case strings.Contains(message, "check constraint failed"),
		strings.Contains(message, "not null constraint failed"):
		return store.KindConstraintViolation
	}
	return store.KindUnknown
}
