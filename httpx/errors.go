package httpx

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/render"

	"github.com/mbolis/quick-feedback/feedback"
	"github.com/mbolis/quick-feedback/log"
)

// Machine-readable error codes returned in the error envelope.
const (
	CodeValidationError      = "VALIDATION_ERROR"
	CodeNotFound             = "NOT_FOUND"
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeForbidden            = "FORBIDDEN"
	CodeConflict             = "CONFLICT"
	CodeNotAccessible        = "NOT_ACCESSIBLE"
	CodeFormExpired          = "FORM_EXPIRED"
	CodeResponseLimitReached = "RESPONSE_LIMIT_REACHED"
	CodeRateLimited          = "RATE_LIMITED"
	CodeInternalError        = "INTERNAL_ERROR"
)

var ErrRateLimited = errors.New("too many submissions, slow down")

type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// WriteStatus sends the error envelope with an explicit status and code.
func WriteStatus(w http.ResponseWriter, r *http.Request, status int, code, message string, details any) {
	render.Status(r, status)
	render.JSON(w, r, ErrorBody{Error: ErrorDetail{Code: code, Message: message, Details: details}})
}

// classify maps an error onto its HTTP status and code.
// ok is false for errors the client cannot be blamed for.
func classify(err error) (status int, code string, details any, ok bool) {
	var ve *feedback.ValidationError
	switch {
	case errors.As(err, &ve):
		code = ve.Reason()
		if code == feedback.ReasonInvalidField {
			code = CodeValidationError
		}
		return http.StatusBadRequest, code, ve.Errors, true
	case errors.Is(err, feedback.ErrValidation):
		return http.StatusBadRequest, CodeValidationError, nil, true
	case errors.Is(err, feedback.ErrNotFound):
		return http.StatusNotFound, CodeNotFound, nil, true
	case errors.Is(err, feedback.ErrNotAccessible):
		return http.StatusNotFound, CodeNotAccessible, nil, true
	case errors.Is(err, feedback.ErrForbidden):
		return http.StatusForbidden, CodeForbidden, nil, true
	case errors.Is(err, feedback.ErrUnauthorized):
		return http.StatusUnauthorized, CodeUnauthorized, nil, true
	case errors.Is(err, feedback.ErrExpired):
		return http.StatusGone, CodeFormExpired, nil, true
	case errors.Is(err, feedback.ErrResponseLimitReached):
		return http.StatusGone, CodeResponseLimitReached, nil, true
	case errors.Is(err, feedback.ErrConflict):
		return http.StatusBadRequest, CodeConflict, nil, true
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, CodeRateLimited, nil, true
	}
	return http.StatusInternalServerError, CodeInternalError, nil, false
}

// ErrorCode is the envelope code err would be reported with.
func ErrorCode(err error) string {
	_, code, _, _ := classify(err)
	return code
}

// WriteError sends err as an error envelope. Client errors are logged at DEBUG
// under the given code; anything else is an internal error.
func WriteError(w http.ResponseWriter, r *http.Request, code string, err error) {
	status, errCode, details, ok := classify(err)
	if !ok {
		LogInternalError(w, r, code, err)
		return
	}
	log.Debugf("%s: %s", code, err)
	WriteStatus(w, r, status, errCode, err.Error(), details)
}

// Will log an error, and send an HTTP response with status 500 and a generic message
func LogInternalError(w http.ResponseWriter, r *http.Request, code string, err error) {
	log.Errorf("%s: %s", code, err)
	WriteStatus(w, r, http.StatusInternalServerError, CodeInternalError, http.StatusText(http.StatusInternalServerError), nil)
}

// Will log a debug message, and send an HTTP response with status 404
func LogNotFound(w http.ResponseWriter, r *http.Request, code string, id any) {
	log.Debugf("%s: not found (%v)", code, id)
	WriteStatus(w, r, http.StatusNotFound, CodeNotFound, fmt.Sprintf("%v not found", id), nil)
}

// Will log an error code and message at the given level,
// and send an HTTP response with the given status and formatted message
func LogStatusMsg(w http.ResponseWriter, r *http.Request, status int, level log.Level, code string, msg string, args ...any) {
	errMsg := fmt.Sprintf(msg, args...)
	log.Logf(level, "%s: %s", code, errMsg)
	WriteStatus(w, r, status, errorCode(status), errMsg, nil)
}

func errorCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return CodeValidationError
	case http.StatusUnauthorized:
		return CodeUnauthorized
	case http.StatusForbidden:
		return CodeForbidden
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusTooManyRequests:
		return CodeRateLimited
	}
	return CodeInternalError
}
