package utils

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"

	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/constants"
)

// Kind is the discriminant every flow and gate error carries. The HTTP layer
// switches on it and never inspects messages or concrete types.
type Kind string

const (
	KindInternal           Kind = "internal"
	KindValidation         Kind = "validation"
	KindBadRequest         Kind = "bad_request"
	KindNotFound           Kind = "not_found"
	KindForbidden          Kind = "forbidden"
	KindDuplicate          Kind = "duplicate"
	KindDuplicateEmail     Kind = "duplicate_email"
	KindInvalidCredentials Kind = "invalid_credentials"
	KindUnauthenticated    Kind = "unauthenticated"
	KindExpired            Kind = "expired"
	KindRevoked            Kind = "revoked"
	KindStoreUnavailable   Kind = "store_unavailable"
	KindMalformedHash      Kind = "malformed_hash"
	KindRateLimited        Kind = "rate_limited"
)

// Sentinel errors, one per kind, so callers can also use errors.Is.
var (
	ErrNotFound           = errors.New("resource not found")
	ErrForbidden          = errors.New("forbidden access")
	ErrBadRequest         = errors.New("invalid request")
	ErrInternalServer     = errors.New("internal server error")
	ErrValidation         = errors.New("validation error")
	ErrDuplicate          = errors.New("duplicate resource")
	ErrDuplicateEmail     = errors.New("duplicate email")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrExpiredToken       = errors.New("expired token")
	ErrRevokedToken       = errors.New("revoked token")
	ErrStoreUnavailable   = errors.New("store unavailable")
	ErrMalformedHash      = errors.New("malformed password hash")
	ErrRateLimited        = errors.New("rate limited")
)

// AppError represents an application error with additional context
type AppError struct {
	Kind       Kind   // Discriminant used for HTTP mapping
	Err        error  // Sentinel matching Kind
	Cause      error  // Underlying error, if any
	StatusCode int    // HTTP status code
	Message    string // User-facing message
	DevInfo    string // Detail for logs only, never sent to clients
	Field      string // Field related to the error (for validation errors)
	Details    map[string]string
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	if e.DevInfo != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.DevInfo)
	}
	return e.Message
}

// Unwrap exposes both the sentinel and the cause to errors.Is and errors.As.
func (e *AppError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

// NewValidationError creates a new validation error for a specific field
func NewValidationError(field, message string) *AppError {
	return &AppError{
		Kind:       KindValidation,
		Err:        ErrValidation,
		StatusCode: http.StatusBadRequest,
		Message:    message,
		Field:      field,
	}
}

// NewValidationErrorWithDetails creates a validation error carrying one message per field
func NewValidationErrorWithDetails(details map[string]string) *AppError {
	return &AppError{
		Kind:       KindValidation,
		Err:        ErrValidation,
		StatusCode: http.StatusBadRequest,
		Message:    "Validation failed",
		Details:    details,
	}
}

// NewBadRequestError creates a new bad request error
func NewBadRequestError(message string) *AppError {
	return &AppError{
		Kind:       KindBadRequest,
		Err:        ErrBadRequest,
		StatusCode: http.StatusBadRequest,
		Message:    message,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(resourceType string, identifier interface{}) *AppError {
	return &AppError{
		Kind:       KindNotFound,
		Err:        ErrNotFound,
		StatusCode: http.StatusNotFound,
		Message:    fmt.Sprintf("%s with identifier '%v' not found", resourceType, identifier),
	}
}

// NewForbiddenError creates a new forbidden error
func NewForbiddenError(message string) *AppError {
	if message == "" {
		message = constants.MsgAccessDenied
	}
	return &AppError{
		Kind:       KindForbidden,
		Err:        ErrForbidden,
		StatusCode: http.StatusForbidden,
		Message:    message,
	}
}

// NewDuplicateError creates a new duplicate resource error
func NewDuplicateError(resourceType, field string, value interface{}) *AppError {
	return &AppError{
		Kind:       KindDuplicate,
		Err:        ErrDuplicate,
		StatusCode: http.StatusConflict,
		Message:    fmt.Sprintf("%s with %s '%v' already exists", resourceType, field, value),
		Field:      field,
	}
}

// NewDuplicateEmailError is returned when registering an address that is taken
func NewDuplicateEmailError() *AppError {
	return &AppError{
		Kind:       KindDuplicateEmail,
		Err:        ErrDuplicateEmail,
		StatusCode: http.StatusConflict,
		Message:    constants.MsgEmailAlreadyExists,
	}
}

// NewInvalidCredentialsError creates a new invalid credentials error.
// The reason is logged, the message is identical for every cause.
func NewInvalidCredentialsError(reason string) *AppError {
	return &AppError{
		Kind:       KindInvalidCredentials,
		Err:        ErrInvalidCredentials,
		StatusCode: http.StatusUnauthorized,
		Message:    constants.MsgInvalidCredentials,
		DevInfo:    reason,
	}
}

// NewUnauthenticatedError covers absent, forged, wrong-purpose and unknown tokens
func NewUnauthenticatedError(reason string) *AppError {
	return &AppError{
		Kind:       KindUnauthenticated,
		Err:        ErrUnauthenticated,
		StatusCode: http.StatusUnauthorized,
		Message:    constants.MsgUnauthorized,
		DevInfo:    reason,
	}
}

// NewExpiredTokenError creates a new expired token error
func NewExpiredTokenError() *AppError {
	return &AppError{
		Kind:       KindExpired,
		Err:        ErrExpiredToken,
		StatusCode: http.StatusUnauthorized,
		Message:    constants.MsgUnauthorized,
		DevInfo:    constants.ReasonExpired,
	}
}

// NewRevokedTokenError creates a new revoked token error
func NewRevokedTokenError() *AppError {
	return &AppError{
		Kind:       KindRevoked,
		Err:        ErrRevokedToken,
		StatusCode: http.StatusUnauthorized,
		Message:    constants.MsgUnauthorized,
		DevInfo:    constants.ReasonRevoked,
	}
}

// NewStoreUnavailableError wraps a storage failure. It is transient and
// eligible for retry by the caller.
func NewStoreUnavailableError(operation string, err error) *AppError {
	return &AppError{
		Kind:       KindStoreUnavailable,
		Err:        ErrStoreUnavailable,
		Cause:      err,
		StatusCode: http.StatusBadGateway,
		Message:    constants.MsgStoreUnavailable,
		DevInfo:    fmt.Sprintf("%s: %v", operation, err),
	}
}

// NewMalformedHashError signals a stored password digest that cannot be parsed
func NewMalformedHashError(err error) *AppError {
	return &AppError{
		Kind:       KindMalformedHash,
		Err:        ErrMalformedHash,
		Cause:      err,
		StatusCode: http.StatusInternalServerError,
		Message:    constants.MsgInternalServerError,
		DevInfo:    fmt.Sprint(err),
	}
}

// NewRateLimitedError is returned once a client exhausts its failure budget
func NewRateLimitedError() *AppError {
	return &AppError{
		Kind:       KindRateLimited,
		Err:        ErrRateLimited,
		StatusCode: http.StatusTooManyRequests,
		Message:    constants.MsgTooManyRequests,
	}
}

// NewInternalServerError creates a new internal server error
func NewInternalServerError(err error) *AppError {
	devInfo := ""
	if err != nil {
		devInfo = err.Error()
	}
	return &AppError{
		Kind:       KindInternal,
		Err:        ErrInternalServer,
		Cause:      err,
		StatusCode: http.StatusInternalServerError,
		Message:    constants.MsgInternalServerError,
		DevInfo:    devInfo,
	}
}

// ParseError converts any error into an AppError. AppErrors pass through
// untouched, everything else becomes an internal error.
func ParseError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return NewInternalServerError(err)
}

// ParseDBError maps a database/sql error onto the application taxonomy.
// Unique violations become duplicates, missing rows become not found and
// everything else is a store failure.
func ParseDBError(operation, resourceType string, err error) error {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	if errors.Is(err, sql.ErrNoRows) {
		return NewNotFoundError(resourceType, "")
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == constants.PGErrorUniqueViolation {
		return duplicateFromConstraint(resourceType, pqErr.Constraint, err)
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == constants.MySQLErrorDuplicateEntry {
		return duplicateFromConstraint(resourceType, myErr.Message, err)
	}

	// sqlite reports unique violations only through the message text.
	if strings.Contains(strings.ToLower(err.Error()), "unique constraint") {
		return duplicateFromConstraint(resourceType, err.Error(), err)
	}

	return NewStoreUnavailableError(operation, err)
}

func duplicateFromConstraint(resourceType, constraint string, cause error) *AppError {
	field := ""
	if strings.Contains(strings.ToLower(constraint), constants.ColumnEmail) {
		field = constants.ColumnEmail
	}
	dup := NewDuplicateError(resourceType, field, "")
	if field == constants.ColumnEmail {
		dup = NewDuplicateEmailError()
	}
	dup.Cause = cause
	dup.DevInfo = cause.Error()
	return dup
}

// KindOf returns the discriminant of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	return IsKind(err, KindNotFound)
}

// IsDuplicateError checks if an error is a duplicate resource error
func IsDuplicateError(err error) bool {
	kind := KindOf(err)
	return err != nil && (kind == KindDuplicate || kind == KindDuplicateEmail)
}

// IsAuthFailure reports whether err should be answered with 401
func IsAuthFailure(err error) bool {
	switch KindOf(err) {
	case KindInvalidCredentials, KindUnauthenticated, KindExpired, KindRevoked:
		return err != nil
	}
	return false
}

// StatusCode returns the HTTP status code for an error
func StatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}

// Reason returns the log-only detail of an AppError, or the error text for
// anything else.
func Reason(err error) string {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.DevInfo
	}
	return err.Error()
}
