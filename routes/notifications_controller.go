package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/mbolis/quick-feedback/app"
	"github.com/mbolis/quick-feedback/database"
	"github.com/mbolis/quick-feedback/feedback"
	"github.com/mbolis/quick-feedback/httpx"
	"github.com/mbolis/quick-feedback/model"
	"github.com/mbolis/quick-feedback/routes/middlewares"
)

const notificationsPageLimit = 20

// ownNotification loads a notification addressed to the caller.
func ownNotification(ctx context.Context, app app.App, id string) (*model.Notification, error) {
	n, err := app.Notifications.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !feedback.CanReadNotification(middlewares.ActorFromContext(ctx), n) {
		return nil, feedback.ErrForbidden
	}
	return n, nil
}

func ListNotifications(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, limit, err := httpx.PageQuery(r, notificationsPageLimit)
		if err != nil {
			httpx.WriteError(w, r, "list_notifications.page", err)
			return
		}
		unreadOnly, err := httpx.QueryBool(r, "unreadOnly")
		if err != nil {
			httpx.WriteError(w, r, "list_notifications.unread_only", err)
			return
		}

		notifications, total, err := app.Notifications.List(r.Context(), database.NotificationFilter{
			Recipient:  middlewares.ActorFromContext(r.Context()).UserID,
			UnreadOnly: unreadOnly,
			Now:        app.Now(),
			Page:       database.Page{Number: page, Limit: limit},
		})
		if err != nil {
			httpx.LogInternalError(w, r, "list_notifications.db.list", err)
			return
		}
		render.JSON(w, r, map[string]any{
			"notifications": notifications,
			"pagination":    model.NewPagination(page, limit, total).Render("totalNotifications"),
		})
	}
}

func UnreadCount(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := app.Notifications.UnreadCount(r.Context(), middlewares.ActorFromContext(r.Context()).UserID, app.Now())
		if err != nil {
			httpx.LogInternalError(w, r, "unread_count.db.count", err)
			return
		}
		render.JSON(w, r, map[string]any{"unreadCount": n})
	}
}

func MarkNotificationRead(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := ownNotification(r.Context(), app, chi.URLParam(r, "id"))
		if err != nil {
			httpx.WriteError(w, r, "mark_read", err)
			return
		}
		n, err = app.Notifications.MarkRead(r.Context(), n.ID, app.Now())
		if err != nil {
			httpx.WriteError(w, r, "mark_read.db.update", err)
			return
		}
		render.JSON(w, r, map[string]any{
			"message":      "Notification marked as read",
			"notification": n,
		})
	}
}

func MarkAllNotificationsRead(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		updated, err := app.Notifications.MarkAllRead(r.Context(), middlewares.ActorFromContext(r.Context()).UserID, app.Now())
		if err != nil {
			httpx.LogInternalError(w, r, "mark_all_read.db.update", err)
			return
		}
		render.JSON(w, r, map[string]any{
			"message":       "All notifications marked as read",
			"modifiedCount": updated,
		})
	}
}

func DeleteNotification(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := ownNotification(r.Context(), app, chi.URLParam(r, "id"))
		if err != nil {
			httpx.WriteError(w, r, "delete_notification", err)
			return
		}
		if err := app.Notifications.Delete(r.Context(), n.ID); err != nil {
			httpx.WriteError(w, r, "delete_notification.db.delete", err)
			return
		}
		render.JSON(w, r, map[string]any{"message": "Notification deleted successfully"})
	}
}
