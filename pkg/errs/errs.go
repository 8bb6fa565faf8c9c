package errs

import (
	"errors"
	"fmt"
)

// Error codes shared by the publish adapters and the orchestration layer.
const (
	CodeValidation         = "VALIDATION"
	CodeUnsupportedContent = "UNSUPPORTED_CONTENT"
	CodeAuthInvalid        = "AUTH_INVALID"
	CodeRateLimited        = "RATE_LIMITED"
	CodeTransientRemote    = "TRANSIENT_REMOTE"
	CodeRemoteRejected     = "REMOTE_REJECTED"
	CodePartialUpload      = "PARTIAL_UPLOAD"
	CodeTimeout            = "TIMEOUT"
)

type Error struct {
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(code, message string) error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

func Newf(code, format string, args ...any) error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap attaches a code and message to an underlying error. Returns nil for a
// nil error so call sites can wrap unconditionally.
func Wrap(err error, code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// GetCode returns the code of the first *Error in the chain, or "".
func GetCode(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

func IsCode(err error, code string) bool {
	return GetCode(err) == code
}

func IsValidation(err error) bool {
	c := GetCode(err)
	return c == CodeValidation || c == CodeUnsupportedContent
}

func IsTransient(err error) bool {
	return IsCode(err, CodeTransientRemote)
}
