package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrUnsupportedSource means the source id matches no registered
	// adapter and no fallback was allowed.
	ErrUnsupportedSource = errors.New("unsupported source")

	// ErrUnknownBatch means a cancellation referenced a batch id that was
	// never committed or was already cancelled. Cancelling is never a
	// silent no-op.
	ErrUnknownBatch = errors.New("unknown batch id")

	// ErrTimeout means a boundary call did not complete in time. The
	// outcome on the server is unknown: a timed-out commit may still
	// have succeeded, so callers must not treat this as failure and must
	// not retry automatically.
	ErrTimeout = errors.New("operation timed out, outcome unknown")

	// ErrOperationInFlight means a workflow transition was requested
	// while another preview/commit/cancel was still pending.
	ErrOperationInFlight = errors.New("another operation is in flight")
)

// ParseError means the payload could not be read as CSV at all, e.g. no
// columns. Row-level problems never produce a ParseError; they are counted
// and the rest of the file is parsed.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unreadable csv: %s: %v", e.Reason, e.Err)
	}
	return "unreadable csv: " + e.Reason
}

func (e *ParseError) Unwrap() error { return e.Err }

// UnlinkedDetailError is returned by strict linking when one or more detail
// lines cannot be reconciled to a header. RowIndexes lists the offending
// detail lines in file order.
type UnlinkedDetailError struct {
	RowIndexes []int
}

func (e *UnlinkedDetailError) Error() string {
	idx := make([]string, len(e.RowIndexes))
	for i, n := range e.RowIndexes {
		idx[i] = strconv.Itoa(n)
	}
	return "detail lines without a header: rows " + strings.Join(idx, ", ")
}

// RequestError is a 4xx/5xx response from a boundary service, carrying the
// server's detail message when one was present.
type RequestError struct {
	StatusCode int
	Detail     string
}

func (e *RequestError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("server returned %d", e.StatusCode)
}

// NotFound reports whether the failure was a 404, which the cancel path
// maps to ErrUnknownBatch.
func (e *RequestError) NotFound() bool { return e.StatusCode == 404 }
