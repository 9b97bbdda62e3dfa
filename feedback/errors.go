package feedback

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors shared by every layer; handlers map them to HTTP statuses.
var (
	ErrValidation           = errors.New("validation error")
	ErrNotFound             = errors.New("not found")
	ErrForbidden            = errors.New("access denied")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrConflict             = errors.New("conflict")
	ErrNotAccessible        = errors.New("form not found or not accessible")
	ErrExpired              = errors.New("this form has expired")
	ErrResponseLimitReached = errors.New("this form has reached maximum responses")
)

// Reasons carried by a ValidationError.
const (
	ReasonInvalidField          = "INVALID_FIELD"
	ReasonInvalidQuestion       = "INVALID_QUESTION"
	ReasonUnknownQuestion       = "UNKNOWN_QUESTION"
	ReasonMissingRequiredAnswer = "MISSING_REQUIRED_ANSWER"
	ReasonInvalidAnswer         = "INVALID_ANSWER"
)

type FieldError struct {
	Reason  string `json:"reason"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Message
	}
	msgs := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		msgs[i] = fe.Message
	}
	return fmt.Sprintf("%d validation errors: %s", len(e.Errors), strings.Join(msgs, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Reason is the reason of the first field error, or ReasonInvalidField.
func (e *ValidationError) Reason() string {
	if len(e.Errors) == 0 {
		return ReasonInvalidField
	}
	return e.Errors[0].Reason
}

func NewValidationError(reason, field, message string) *ValidationError {
	return &ValidationError{Errors: []FieldError{{Reason: reason, Field: field, Message: message}}}
}

func NewValidationErrors(errs []FieldError) *ValidationError {
	return &ValidationError{Errors: errs}
}

// IsReason reports whether err is a ValidationError with the given reason.
func IsReason(err error, reason string) bool {
	var ve *ValidationError
	if !errors.As(err, &ve) {
		return false
	}
	for _, fe := range ve.Errors {
		if fe.Reason == reason {
			return true
		}
	}
	return false
}
