// Package notify records in-app notifications as a side effect of form and
// response activity. Delivery is best-effort: failures are logged and counted,
// never returned to the operation that triggered them.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mbolis/quick-feedback/log"
	"github.com/mbolis/quick-feedback/metrics"
	"github.com/mbolis/quick-feedback/model"
)

type Sink interface {
	Create(ctx context.Context, n *model.Notification) error
}

type Notifier struct {
	sink Sink
	ttl  time.Duration
	now  func() time.Time
}

func NewNotifier(sink Sink, ttl time.Duration, now func() time.Time) *Notifier {
	if now == nil {
		now = time.Now
	}
	return &Notifier{sink: sink, ttl: ttl, now: now}
}

// FormCreated tells the creator their form is live.
func (n *Notifier) FormCreated(ctx context.Context, form *model.Form) {
	n.send(ctx, &model.Notification{
		Recipient: form.CreatedBy,
		Type:      model.NotificationFormCreated,
		Title:     "Form Created",
		Message:   fmt.Sprintf("Your feedback form %q has been created successfully.", form.Title),
		Data:      model.NotificationData{FormID: form.ID, ActionURL: "/forms/" + form.ID},
		Priority:  model.PriorityLow,
	})
}

// FeedbackSubmitted tells the owner of form about a new response, unless
// the form has notifications turned off.
func (n *Notifier) FeedbackSubmitted(ctx context.Context, form *model.Form, responseID string) {
	if !form.Settings.EnableNotifications {
		return
	}
	n.send(ctx, &model.Notification{
		Recipient: form.CreatedBy,
		Type:      model.NotificationFeedbackSubmitted,
		Title:     "New Feedback Received",
		Message:   fmt.Sprintf("A new response has been submitted for your form %q.", form.Title),
		Data: model.NotificationData{
			FormID:     form.ID,
			ResponseID: responseID,
			ActionURL:  "/responses/" + responseID,
		},
	})
}

// ResponseReviewed tells a signed-in respondent that their response changed status.
// Anonymous responses and self-moderation produce nothing.
func (n *Notifier) ResponseReviewed(ctx context.Context, form *model.Form, resp *model.Response) {
	if resp.SubmittedBy == nil || resp.ModeratedBy == nil || resp.SubmittedBy.ID == resp.ModeratedBy.ID {
		return
	}
	n.send(ctx, &model.Notification{
		Recipient: resp.SubmittedBy.ID,
		Type:      model.NotificationResponseReviewed,
		Title:     "Feedback Reviewed",
		Message:   fmt.Sprintf("Your response to %q is now %s.", form.Title, resp.Status),
		Data:      model.NotificationData{FormID: form.ID, ResponseID: resp.ID},
	})
}

func (n *Notifier) send(ctx context.Context, notification *model.Notification) {
	now := n.now().UTC()
	expires := now.Add(n.ttl)
	notification.ID = uuid.NewString()
	notification.ExpiresAt = &expires
	notification.CreatedAt = now
	notification.UpdatedAt = now
	if notification.Priority == "" {
		notification.Priority = model.PriorityMedium
	}

	if err := n.sink.Create(ctx, notification); err != nil {
		metrics.Notifications.WithLabelValues(string(notification.Type), "failed").Inc()
		log.WithFields(log.Fields{
			"type":      notification.Type,
			"recipient": notification.Recipient,
		}).Errorf("notify.%s: %s", notification.Type, err)
		return
	}
	metrics.Notifications.WithLabelValues(string(notification.Type), "sent").Inc()
}
