package util

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Error codes for the workflow's discriminated failure kinds.
const (
	CodeValidation        = "VALIDATION_FAILED"
	CodeIllegalTransition = "ILLEGAL_TRANSITION"
	CodeConflict          = "CONFLICT"
	CodeNotFound          = "NOT_FOUND"
	CodePersistence       = "PERSISTENCE_FAILED"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeForbidden         = "FORBIDDEN"
	CodeInternal          = "INTERNAL_ERROR"
)

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidation, message, http.StatusBadRequest, details)
}

// NewIllegalTransition signals an action attempted from a stage where it is
// not defined. No state change accompanies it.
func NewIllegalTransition(action string, from string) error {
	return NewDomainError(CodeIllegalTransition,
		fmt.Sprintf("action %s is not allowed from stage %s", action, from),
		http.StatusConflict,
		map[string]any{"action": action, "from_stage": from})
}

// NewConcurrencyConflict signals that the optimistic stage check failed; the
// caller should reread and retry if the action is still applicable.
func NewConcurrencyConflict(ticketID string) error {
	return NewDomainError(CodeConflict,
		"ticket stage changed between read and write",
		http.StatusConflict,
		map[string]any{"ticket_id": ticketID})
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

// NewPersistenceError wraps a repository fault. The transition is not
// considered applied and the whole operation may be retried.
func NewPersistenceError(err error) error {
	return &DomainError{
		Code:       CodePersistence,
		Message:    "persistence operation failed",
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// IsCode reports whether err carries the given domain error code.
func IsCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return &DomainError{
			Code:       codeForStatus(fiberErr.Code),
			Message:    fiberErr.Message,
			HTTPStatus: fiberErr.Code,
		}
	}
	if errors.Is(err, pgx.ErrNoRows) {
		if de, ok := NewNotFound("resource", nil).(*DomainError); ok {
			return de
		}
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	return ToDomainError(err)
}

// codeForStatus picks the matching error code for a bare HTTP status.
func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return CodeValidation
	case http.StatusUnauthorized:
		return CodeUnauthorized
	case http.StatusForbidden:
		return CodeForbidden
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusConflict:
		return CodeConflict
	default:
		return CodeInternal
	}
}
