package postgres

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/joeyportfolio/portfolio/internal/store"
)

// SQLSTATE codes the store distinguishes.
const (
	codeUndefinedTable      = "42P01"
	codeCheckViolation      = "23514"
	codeNotNullViolation    = "23502"
	codeInvalidTextRep      = "22P02"
	codeNumericOutOfRange   = "22003"
	codeAdminShutdown       = "57P01"
	codeTooManyConnections  = "53300"
	connectionExceptionPref = "08"
)

func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *store.Error
	if errors.As(err, &se) {
		return err
	}
	return store.NewError(kindOf(err), op, err)
}

func kindOf(err error) store.Kind {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == codeUndefinedTable:
			return store.KindNotFound
		case pgErr.Code == codeCheckViolation,
			pgErr.Code == codeNotNullViolation,
			pgErr.Code == codeInvalidTextRep,
			pgErr.Code == codeNumericOutOfRange:
			return store.KindConstraintViolation
		case pgErr.Code == codeAdminShutdown,
			pgErr.Code == codeTooManyConnections,
			strings.HasPrefix(pgErr.Code, connectionExceptionPref):
			return store.KindNetwork
		}
		return store.KindUnknown
	}

	var connErr *pgconn.ConnectError
	var netErr net.Error
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return store.KindNotFound
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		pgconn.Timeout(err),
		errors.As(err, &connErr),
		errors.As(err, &netErr):
		return store.KindNetwork
	}
	return store.KindUnknown
}
