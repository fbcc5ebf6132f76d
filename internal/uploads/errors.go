package uploads

import "errors"

// Kind classifies a failure so callers can map it to a response status
// without inspecting message text
type Kind string

const (
	KindAuth         Kind = "auth"
	KindRateLimit    Kind = "rate_limit"
	KindValidation   Kind = "validation"
	KindNotFound     Kind = "not_found"
	KindInvalidInput Kind = "invalid_input"
	KindPipeline     Kind = "pipeline"
	KindUnknown      Kind = "unknown"
)

// Error is a classified failure with a human-readable message
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a classified error
func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WrapError classifies an underlying error, preserving it for unwrapping
func WrapError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the kind from an error chain, defaulting to unknown
func KindOf(err error) Kind {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Kind
	}
	return KindUnknown
}

// MessageOf returns the client-facing message of a classified error.
// Unclassified errors get a generic message so internals do not leak.
func MessageOf(err error) string {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Message
	}
	return "Internal server error"
}
