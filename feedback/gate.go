package feedback

import (
	"time"

	"github.com/mbolis/quick-feedback/model"
)

// CheckSubmission decides whether form accepts a new response at now.
// Checks run in order and the first failure wins: existence, access, expiry, capacity.
// The form must be freshly loaded since its response counter moves concurrently.
func CheckSubmission(form *model.Form, now time.Time) error {
	switch {
	case form == nil:
		return ErrNotFound
	case !form.IsActive || !form.IsPublic:
		return ErrNotAccessible
	case form.ExpiresAt != nil && now.After(*form.ExpiresAt):
		return ErrExpired
	case form.MaxResponses != nil && *form.MaxResponses > 0 &&
		form.Analytics.TotalResponses >= *form.MaxResponses:
		return ErrResponseLimitReached
	}
	return nil
}
