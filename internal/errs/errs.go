// Package errs defines the error taxonomy shared by the indexer and the
// query server. Errors raised by the index and storage packages are
// wrapped in an Error so callers can map them to an exit code or an HTTP
// status without string-matching error text; KindOf reports any error
// that does not wrap an Error as Internal.
package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error by the policy that should apply to it.
// Kinds are not Go types — just a closed enum.
type Kind int

const (
	// Unknown is the zero value; never constructed deliberately.
	Unknown Kind = iota

	// InputMalformed marks a JSONL line that could not be parsed or is
	// missing a required field. Build continues; the line is counted and
	// skipped.
	InputMalformed

	// DuplicateExtId marks a second occurrence of an already-admitted
	// ext_id. Build continues; the line is counted and skipped.
	DuplicateExtId

	// IndexIoError marks a read/write failure against the index
	// directory. Fatal at build time, a 500 at serve time.
	IndexIoError

	// IndexVersionMismatch marks a meta.json whose version is not the
	// one this binary understands. The server refuses to start.
	IndexVersionMismatch

	// QueryMalformed marks a client request missing q or carrying an
	// unparseable k. Maps to 400.
	QueryMalformed

	// Unauthorized marks an admin request without a matching token.
	// Maps to 401.
	Unauthorized

	// NotFound marks a lookup (doc id, cached artifact) that does not
	// exist. Maps to 404.
	NotFound

	// Internal marks an arithmetic or invariant violation, e.g. a
	// postings file shorter than df claims. Maps to 500; never panics.
	Internal
)

// String renders the kind for logging.
func (k Kind) String() string {
	switch k {
	case InputMalformed:
		return "input_malformed"
	case DuplicateExtId:
		return "duplicate_ext_id"
	case IndexIoError:
		return "index_io_error"
	case IndexVersionMismatch:
		return "index_version_mismatch"
	case QueryMalformed:
		return "query_malformed"
	case Unauthorized:
		return "unauthorized"
	case NotFound:
		return "not_found"
	case Internal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error wraps an underlying error with a Kind so that it can be routed to
// an exit code or an HTTP status without inspecting its message.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error of the given kind wrapping err.
func New(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// Newf builds an Error of the given kind from a format string.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the Kind from err, defaulting to Internal if err does
// not wrap a *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// HTTPStatus maps a Kind to the status code the HTTP layer should respond
// with. Handlers should call this instead of hand-rolling status codes.
func HTTPStatus(kind Kind) int {
	switch kind {
	case QueryMalformed, InputMalformed, DuplicateExtId:
		return http.StatusBadRequest
	case Unauthorized:
		return http.StatusUnauthorized
	case NotFound:
		return http.StatusNotFound
	case IndexIoError, IndexVersionMismatch, Internal, Unknown:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
