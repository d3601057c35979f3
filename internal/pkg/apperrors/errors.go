package apperrors

import "errors"

// Common errors
var (
	// Resource errors
	ErrResourceNotFound      = errors.New("resource not found")
	ErrResourceAlreadyExists = errors.New("resource already exists")
	ErrConflict              = errors.New("conflict")

	// Authentication errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenInvalid       = errors.New("invalid token")

	// Authorization errors
	ErrPermissionDenied = errors.New("permission denied")

	// Validation errors
	ErrValidationFailed = errors.New("validation failed")
	ErrBadRequest       = errors.New("bad request")
)

// Sync and persistence errors
var (
	// ErrStoreCommit wraps a local store commit failure. Logged at the call
	// site and retried or abandoned there; never allowed to crash the process.
	ErrStoreCommit = errors.New("local store commit failed")

	// ErrRemoteNotFound means the remote zone has no record with the given id.
	// Expected during first push; callers branch to the create path.
	ErrRemoteNotFound = errors.New("remote record not found")

	// ErrRemoteUnavailable is a transient remote failure (network, throttling).
	// Feeds the offline queue's retry mechanism.
	ErrRemoteUnavailable = errors.New("remote store unavailable")

	// ErrMappingNotFound is a deterministic-ID lookup miss for a built-in
	// template. The caller falls back to the locally generated id, but
	// cross-app sync for that entity is no longer guaranteed until fixed.
	ErrMappingNotFound = errors.New("deterministic id mapping not found")

	// ErrIntegrityDrift marks a template content-hash mismatch. Auto-repaired
	// and counted, not fatal.
	ErrIntegrityDrift = errors.New("template content hash drift")
)

// Entity errors
var (
	ErrStudentNotFound    = errors.New("student not found")
	ErrTemplateNotFound   = errors.New("template not found")
	ErrAssignmentNotFound = errors.New("assignment not found")
	ErrAssignmentExists   = errors.New("template already assigned to student")
	ErrProgressNotFound   = errors.New("item progress not found")
	ErrOperationNotFound  = errors.New("offline operation not found")
	ErrInstructorNotFound = errors.New("instructor not found")
	ErrShareNotFound      = errors.New("student has no active share")
	ErrEmailAlreadyExists = errors.New("email already exists")
)

// CustomError represents application-specific errors with additional context
type CustomError struct {
	Err     error
	Message string
	Details map[string]interface{}
}

// Error implements error interface
func (e *CustomError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

// Unwrap implements errors.Unwrap interface
func (e *CustomError) Unwrap() error {
	return e.Err
}

// NewCustomError creates a CustomError with underlying error
func NewCustomError(err error, message string) *CustomError {
	return &CustomError{
		Err:     err,
		Message: message,
	}
}

// WithDetails adds context details to the error
func (e *CustomError) WithDetails(details map[string]interface{}) *CustomError {
	e.Details = details
	return e
}

// NewResourceNotFoundError creates a new custom error for resource not found with a message
func NewResourceNotFoundError(message string) error {
	return &CustomError{
		Err:     ErrResourceNotFound,
		Message: message,
	}
}

// NewConflictError creates a new custom error for conflict situations with a message
func NewConflictError(message string) error {
	return &CustomError{
		Err:     ErrConflict,
		Message: message,
	}
}

// NewBadRequestError creates a new custom error for bad request with a message
func NewBadRequestError(message string) error {
	return &CustomError{
		Err:     ErrBadRequest,
		Message: message,
	}
}

// NewValidationError creates a new custom error for validation failures with a message
func NewValidationError(message string) error {
	return &CustomError{
		Err:     ErrValidationFailed,
		Message: message,
	}
}
