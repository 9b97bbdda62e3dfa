package httpx

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/mbolis/quick-feedback/feedback"
)

const MaxPageLimit = 100

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report fields by their JSON names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Decode reads a JSON request body into dst and checks its validate tags.
func Decode(r *http.Request, dst any) error {
	if err := render.DecodeJSON(r.Body, dst); err != nil {
		if errors.Is(err, io.EOF) {
			return feedback.NewValidationError(feedback.ReasonInvalidField, "body", "request body is required")
		}
		return feedback.NewValidationError(feedback.ReasonInvalidField, "body", "malformed JSON body: "+err.Error())
	}
	return Validate(dst)
}

// Validate checks the validate tags of v, reporting failures as a feedback.ValidationError.
func Validate(v any) error {
	err := validate.Struct(v)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	fields := make([]feedback.FieldError, len(verrs))
	for i, fe := range verrs {
		fields[i] = feedback.FieldError{
			Reason:  feedback.ReasonInvalidField,
			Field:   fe.Field(),
			Message: fieldMessage(fe),
		}
	}
	return feedback.NewValidationErrors(fields)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters long", fe.Field(), fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param())
	}
	return fmt.Sprintf("%s is invalid", fe.Field())
}

// PageQuery reads the page and limit query parameters, 1-based.
func PageQuery(r *http.Request, defaultLimit int) (page, limit int, err error) {
	page, limit = 1, defaultLimit
	q := r.URL.Query()

	if s := q.Get("page"); s != "" {
		page, err = strconv.Atoi(s)
		if err != nil || page < 1 {
			return 0, 0, feedback.NewValidationError(feedback.ReasonInvalidField, "page", "page must be a positive integer")
		}
	}
	if s := q.Get("limit"); s != "" {
		limit, err = strconv.Atoi(s)
		if err != nil || limit < 1 || limit > MaxPageLimit {
			return 0, 0, feedback.NewValidationError(feedback.ReasonInvalidField, "limit",
				fmt.Sprintf("limit must be an integer between 1 and %d", MaxPageLimit))
		}
	}
	return page, limit, nil
}

// QueryBool reads a boolean query parameter; absent means false.
func QueryBool(r *http.Request, name string) (bool, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, feedback.NewValidationError(feedback.ReasonInvalidField, name, name+" must be true or false")
	}
	return b, nil
}

// QueryDate reads an RFC 3339 timestamp or a YYYY-MM-DD date.
// A bare date names the start of that UTC day, or its last instant when endOfDay is set.
func QueryDate(r *http.Request, name string, endOfDay bool) (*time.Time, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		t = t.UTC()
		return &t, nil
	}
	t, err := time.Parse(feedback.DayLayout, s)
	if err != nil {
		return nil, feedback.NewValidationError(feedback.ReasonInvalidField, name,
			name+" must be a date (YYYY-MM-DD) or an RFC 3339 timestamp")
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
