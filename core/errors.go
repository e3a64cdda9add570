package core

import "github.com/pkg/errors"

// FieldError ties a validation failure to the JSON field that caused it, so
// API responses can point at the offending input.
type FieldError struct {
	Field string
	Error string
}

// ValidationError carries per-field detail alongside the failure itself.
// Entity services raise it for rules the struct validator cannot see, eg. a
// username or redemption code already taken under case folding.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{Err: err, Fields: flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// Unwrap exposes the underlying failure to errors.Is checks against the
// entity packages' sentinel errors.
func (err ValidationError) Unwrap() error { return err.Err }

// FieldMap flattens the field errors into the field->message shape the API
// returns, or nil when no field detail is attached.
func (err ValidationError) FieldMap() map[string]string {
	if len(err.Fields) == 0 {
		return nil
	}
	flds := make(map[string]string, len(err.Fields))
	for _, fErr := range err.Fields {
		flds[fErr.Field] = fErr.Error
	}
	return flds
}

// shutdown signals an unrecoverable server condition. The API error handler
// reacts to it by triggering a graceful stop instead of answering 500s
// forever.
type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

// IsShutdown reports whether err, or its cause, asks for a graceful stop.
func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
