package database

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/mbolis/quick-feedback/model"
)

type Notifications struct {
	q querier
}

var notificationColumns = []string{
	"id", "recipient", "type", "title", "message",
	"form_id", "response_id", "action_url",
	"is_read", "priority", "expires_at", "created_at", "updated_at",
}

func scanNotification(row scanner) (*model.Notification, error) {
	var (
		n                  model.Notification
		formID, responseID sql.NullString
		expiresAt          sql.NullTime
	)
	err := row.Scan(
		&n.ID, &n.Recipient, &n.Type, &n.Title, &n.Message,
		&formID, &responseID, &n.Data.ActionURL,
		&n.IsRead, &n.Priority, &expiresAt, &n.CreatedAt, &n.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	n.Data.FormID = formID.String
	n.Data.ResponseID = responseID.String
	n.ExpiresAt = timePtr(expiresAt)
	n.CreatedAt = n.CreatedAt.UTC()
	n.UpdatedAt = n.UpdatedAt.UTC()
	return &n, nil
}

func (r *Notifications) Create(ctx context.Context, n *model.Notification) error {
	if n.Priority == "" {
		n.Priority = model.PriorityMedium
	}
	_, err := exec(ctx, r.q, psql.
		Insert("notification").
		Columns(notificationColumns...).
		Values(
			n.ID, n.Recipient, n.Type, n.Title, n.Message,
			nullString(n.Data.FormID), nullString(n.Data.ResponseID), n.Data.ActionURL,
			n.IsRead, n.Priority, nullTime(n.ExpiresAt), n.CreatedAt.UTC(), n.UpdatedAt.UTC(),
		))
	return err
}

func (r *Notifications) Get(ctx context.Context, id string) (*model.Notification, error) {
	query, args, err := psql.Select(notificationColumns...).From("notification").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	n, err := scanNotification(r.q.QueryRowContext(ctx, query, args...))
	return n, notFound(err, "notification")
}

type NotificationFilter struct {
	Recipient  string
	UnreadOnly bool
	// Now hides notifications that expired before it; zero shows all.
	Now time.Time
	Page
}

func (f NotificationFilter) where() sq.And {
	where := sq.And{sq.Eq{"recipient": f.Recipient}}
	if f.UnreadOnly {
		where = append(where, sq.Eq{"is_read": false})
	}
	if !f.Now.IsZero() {
		where = append(where, sq.Or{sq.Eq{"expires_at": nil}, sq.Gt{"expires_at": f.Now.UTC()}})
	}
	return where
}

func (r *Notifications) List(ctx context.Context, filter NotificationFilter) ([]model.Notification, int, error) {
	where := filter.where()

	total, err := count(ctx, r.q, psql.Select().From("notification").Where(where))
	if err != nil {
		return nil, 0, err
	}

	rows, err := query(ctx, r.q, filter.Page.apply(psql.
		Select(notificationColumns...).
		From("notification").
		Where(where).
		OrderBy("created_at DESC", "id DESC")))
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	notifications := []model.Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, 0, err
		}
		notifications = append(notifications, *n)
	}
	return notifications, total, rows.Err()
}

func (r *Notifications) UnreadCount(ctx context.Context, recipient string, now time.Time) (int, error) {
	filter := NotificationFilter{Recipient: recipient, UnreadOnly: true, Now: now}
	return count(ctx, r.q, psql.Select().From("notification").Where(filter.where()))
}

func (r *Notifications) MarkRead(ctx context.Context, id string, now time.Time) (*model.Notification, error) {
	res, err := exec(ctx, r.q, psql.
		Update("notification").
		Set("is_read", true).
		Set("updated_at", now.UTC()).
		Where(sq.Eq{"id": id}))
	if err != nil {
		return nil, err
	}
	if err = expectRow(res, "notification"); err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

func (r *Notifications) MarkAllRead(ctx context.Context, recipient string, now time.Time) (int64, error) {
	res, err := exec(ctx, r.q, psql.
		Update("notification").
		Set("is_read", true).
		Set("updated_at", now.UTC()).
		Where(sq.Eq{"recipient": recipient, "is_read": false}))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *Notifications) Delete(ctx context.Context, id string) error {
	res, err := exec(ctx, r.q, psql.Delete("notification").Where(sq.Eq{"id": id}))
	if err != nil {
		return err
	}
	return expectRow(res, "notification")
}

func (r *Notifications) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := exec(ctx, r.q, psql.
		Delete("notification").
		Where(sq.And{sq.NotEq{"expires_at": nil}, sq.LtOrEq{"expires_at": now.UTC()}}))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
