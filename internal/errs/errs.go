// Package errs defines the error taxonomy used across the scrape &
// cascade engine: NotFound, Transient, ParseError,
// Validation, Conflict, Cancelled. Callers wrap these with fmt.Errorf's
// %w verb so Of / Is still resolve through the chain.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error for policy decisions (retry, surface, continue).
type Kind int

const (
	// KindUnknown covers errors that don't carry one of the kinds below.
	KindUnknown Kind = iota
	// KindNotFound is an upstream 404 after the /made/ fallback was tried.
	KindNotFound
	// KindTransient is a retryable upstream failure (5xx, timeout).
	KindTransient
	// KindParseError is malformed XML/HTML; the stage continues with partial data.
	KindParseError
	// KindValidation is normalizer rejection of incoherent input.
	KindValidation
	// KindConflict is a cascade or upsert uniqueness conflict, retried via append-or-upgrade.
	KindConflict
	// KindCancelled marks a pipeline short-circuited by the progress callback.
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindTransient:
		return "transient"
	case KindParseError:
		return "parse_error"
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// KindedError attaches a Kind to an underlying error.
type KindedError struct {
	kind Kind
	err  error
}

func (e *KindedError) Error() string {
	return fmt.Sprintf("%s: %v", e.kind, e.err)
}

func (e *KindedError) Unwrap() error {
	return e.err
}

// New wraps err with the given kind.
func New(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &KindedError{kind: kind, err: err}
}

// Newf formats a message and wraps it with the given kind.
func Newf(kind Kind, format string, args ...interface{}) error {
	return New(kind, fmt.Errorf(format, args...))
}

// Of reports the Kind of err by walking its Unwrap chain. Returns
// KindUnknown if no KindedError is found.
func Of(err error) Kind {
	var ke *KindedError
	if errors.As(err, &ke) {
		return ke.kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	return Of(err) == kind
}

// Cancelled is the sentinel error used by the staged parser when a
// progress callback returns "abort".
var Cancelled = New(KindCancelled, errors.New("Cancelled by client"))
