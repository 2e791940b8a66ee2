package supabase

import (
	"context"
	"errors"
	"net"
	"regexp"
	"strings"

	"github.com/joeyportfolio/portfolio/internal/store"
)

// PostgREST error codes the store distinguishes.
const (
	codeUndefinedTable    = "42P01"
	codeSchemaCacheTable  = "PGRST205"
	codeCheckViolation    = "23514"
	codeNotNullViolation  = "23502"
	codeInvalidTextRep    = "22P02"
	codeNumericOutOfRange = "22003"
)

// The PostgREST client formats failures as "(CODE) message".
var errorCodePattern = regexp.MustCompile(`^\(([0-9A-Z]+)\)`)

// apiError is a decoded PostgREST error body.
type apiError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (e *apiError) Error() string {
	if e.Code != "" {
		return "(" + e.Code + ") " + e.Message
	}
	return e.Message
}

func errorCode(err error) string {
	var ae *apiError
	if errors.As(err, &ae) {
		return ae.Code
	}
	if m := errorCodePattern.FindStringSubmatch(err.Error()); m != nil {
		return m[1]
	}
	return ""
}

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
	switch errorCode(err) {
	case codeUndefinedTable, codeSchemaCacheTable:
		return store.KindNotFound
	case codeCheckViolation, codeNotNullViolation, codeInvalidTextRep, codeNumericOutOfRange:
		return store.KindConstraintViolation
	}

	var ae *apiError
	if errors.As(err, &ae) && ae.Status >= 502 && ae.Status <= 504 {
		return store.KindNetwork
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || errors.As(err, &netErr) {
		return store.KindNetwork
	}

	// Older PostgREST releases answer a missing table without a code.
	message := err.Error()
	if strings.Contains(message, "Could not find the table") ||
		(strings.Contains(message, "relation") && strings.Contains(message, "does not exist")) {
		return store.KindNotFound
	}
	if strings.Contains(message, "violates check constraint") ||
		strings.Contains(message, "violates not-null constraint") {
		return store.KindConstraintViolation
	}
	if strings.Contains(message, "connection refused") || strings.Contains(message, "no such host") {
		return store.KindNetwork
	}
	return store.KindUnknown
}
