package apperrors

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrUnauthorized indicates that the caller could not be identified.
var ErrUnauthorized = errors.New("unauthorized")

// ErrForbidden indicates that the caller is identified but not allowed to act.
var ErrForbidden = errors.New("forbidden")

// ErrDuplicateMapping indicates that the transaction already has an active (non-rejected) mapping.
// The caller should use the existing mapping instead.
var ErrDuplicateMapping = fmt.Errorf("%w: transaction already has an active mapping", ErrDuplicate)

// ErrStaleWrite indicates a compare-and-set update lost a race with another writer.
// The caller must re-read the record and retry.
var ErrStaleWrite = errors.New("stale write: record was modified concurrently")

// ErrInvalidTransition indicates a mapping state machine violation, including unknown
// status values.
var ErrInvalidTransition = errors.New("invalid state transition")

// ErrGatewayTimeout indicates the inference gateway did not answer within its deadline.
var ErrGatewayTimeout = errors.New("inference gateway timeout")

// ErrGateway indicates the inference gateway failed or returned an unusable answer.
var ErrGateway = errors.New("inference gateway error")

// ErrConfiguration indicates invalid startup configuration. It is fatal at startup.
var ErrConfiguration = errors.New("configuration error")

// AppError wraps an infrastructure failure with an HTTP-ish status code and a message.
type AppError struct {
	Code    int
	Message string
	Err     error
}

// NewAppError creates a new AppError.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// DuplicateMappingError reports which mapping blocked a create. It matches
// ErrDuplicateMapping under errors.Is.
type DuplicateMappingError struct {
	TransactionID     string
	ExistingMappingID string
}

func (e *DuplicateMappingError) Error() string {
	return fmt.Sprintf("%s: transaction %s, existing mapping %s", ErrDuplicateMapping.Error(), e.TransactionID, e.ExistingMappingID)
}

func (e *DuplicateMappingError) Unwrap() error {
	return ErrDuplicateMapping
}
