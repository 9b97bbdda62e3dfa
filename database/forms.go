package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/mbolis/quick-feedback/feedback"
	"github.com/mbolis/quick-feedback/model"
)

type Forms struct {
	q querier
}

var formColumns = []string{
	"id", "title", "description", "created_by", "questions",
	"is_active", "is_public", "allow_anonymous", "max_responses", "expires_at", "version",
	"enable_notifications", "require_captcha", "allow_file_upload",
	"total_responses", "average_completion_time", "last_response_at",
	"created_at", "updated_at",
}

func scanForm(row scanner) (*model.Form, error) {
	var (
		f              model.Form
		questions      string
		maxResponses   sql.NullInt64
		expiresAt      sql.NullTime
		lastResponseAt sql.NullTime
	)
	err := row.Scan(
		&f.ID, &f.Title, &f.Description, &f.CreatedBy, &questions,
		&f.IsActive, &f.IsPublic, &f.AllowAnonymous, &maxResponses, &expiresAt, &f.Version,
		&f.Settings.EnableNotifications, &f.Settings.RequireCaptcha, &f.Settings.AllowFileUpload,
		&f.Analytics.TotalResponses, &f.Analytics.AverageCompletionTime, &lastResponseAt,
		&f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err = decodeJSON(questions, &f.Questions); err != nil {
		return nil, fmt.Errorf("form %s questions: %w", f.ID, err)
	}
	if f.Questions == nil {
		f.Questions = []model.Question{}
	}
	if maxResponses.Valid {
		n := int(maxResponses.Int64)
		f.MaxResponses = &n
	}
	f.ExpiresAt = timePtr(expiresAt)
	f.Analytics.LastResponseAt = timePtr(lastResponseAt)
	f.CreatedAt = f.CreatedAt.UTC()
	f.UpdatedAt = f.UpdatedAt.UTC()
	return &f, nil
}

func maxResponsesValue(n *int) sql.NullInt64 {
	if n == nil || *n <= 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*n), Valid: true}
}

// Create inserts f with zeroed analytics and version 1.
func (r *Forms) Create(ctx context.Context, f *model.Form) error {
	questions, err := encodeJSON(f.Questions)
	if err != nil {
		return err
	}
	f.Version = 1
	f.Analytics = model.FormAnalytics{}

	_, err = exec(ctx, r.q, psql.
		Insert("form").
		Columns(formColumns...).
		Values(
			f.ID, f.Title, f.Description, f.CreatedBy, questions,
			f.IsActive, f.IsPublic, f.AllowAnonymous, maxResponsesValue(f.MaxResponses), nullTime(f.ExpiresAt), f.Version,
			f.Settings.EnableNotifications, f.Settings.RequireCaptcha, f.Settings.AllowFileUpload,
			0, 0.0, nil,
			f.CreatedAt.UTC(), f.UpdatedAt.UTC(),
		))
	return err
}

func (r *Forms) Get(ctx context.Context, id string) (*model.Form, error) {
	query, args, err := psql.Select(formColumns...).From("form").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	f, err := scanForm(r.q.QueryRowContext(ctx, query, args...))
	return f, notFound(err, "form")
}

type FormFilter struct {
	CreatedBy string
	// Active restricts the listing to active (true) or inactive (false) forms.
	Active *bool
	// Search matches title or description, case-insensitively.
	Search string
	Page
}

func (f FormFilter) where() sq.And {
	where := sq.And{}
	if f.CreatedBy != "" {
		where = append(where, sq.Eq{"created_by": f.CreatedBy})
	}
	if f.Active != nil {
		where = append(where, sq.Eq{"is_active": *f.Active})
	}
	if f.Search != "" {
		pattern := contains(f.Search)
		where = append(where, sq.Or{
			sq.Expr(`title LIKE ? ESCAPE '\'`, pattern),
			sq.Expr(`description LIKE ? ESCAPE '\'`, pattern),
		})
	}
	return where
}

// List returns one page of matching forms, newest first, with the total match count.
func (r *Forms) List(ctx context.Context, filter FormFilter) ([]model.Form, int, error) {
	where := filter.where()

	total, err := count(ctx, r.q, psql.Select().From("form").Where(where))
	if err != nil {
		return nil, 0, err
	}

	rows, err := query(ctx, r.q, filter.Page.apply(psql.
		Select(formColumns...).
		From("form").
		Where(where).
		OrderBy("created_at DESC", "id DESC")))
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	forms := []model.Form{}
	for rows.Next() {
		f, err := scanForm(rows)
		if err != nil {
			return nil, 0, err
		}
		forms = append(forms, *f)
	}
	return forms, total, rows.Err()
}

// FormPatch lists the fields of a partial update; nil fields are left untouched.
// MaxResponses and ExpiresAt are cleared when present but not Valid.
type FormPatch struct {
	Title          *string
	Description    *string
	Questions      []model.Question
	IsActive       *bool
	IsPublic       *bool
	AllowAnonymous *bool
	MaxResponses   *sql.NullInt64
	ExpiresAt      *sql.NullTime
	Settings       *model.FormSettings
}

// Update applies patch and bumps the version, whether or not anything changed.
func (r *Forms) Update(ctx context.Context, id string, patch FormPatch, now time.Time) (*model.Form, error) {
	b := psql.Update("form").
		Set("version", sq.Expr("version + 1")).
		Set("updated_at", now.UTC()).
		Where(sq.Eq{"id": id})

	if patch.Title != nil {
		b = b.Set("title", *patch.Title)
	}
	if patch.Description != nil {
		b = b.Set("description", *patch.Description)
	}
	if patch.Questions != nil {
		questions, err := encodeJSON(patch.Questions)
		if err != nil {
			return nil, err
		}
		b = b.Set("questions", questions)
	}
	if patch.IsActive != nil {
		b = b.Set("is_active", *patch.IsActive)
	}
	if patch.IsPublic != nil {
		b = b.Set("is_public", *patch.IsPublic)
	}
	if patch.AllowAnonymous != nil {
		b = b.Set("allow_anonymous", *patch.AllowAnonymous)
	}
	if patch.MaxResponses != nil {
		b = b.Set("max_responses", *patch.MaxResponses)
	}
	if patch.ExpiresAt != nil {
		expiresAt := *patch.ExpiresAt
		if expiresAt.Valid {
			expiresAt.Time = expiresAt.Time.UTC()
		}
		b = b.Set("expires_at", expiresAt)
	}
	if patch.Settings != nil {
		b = b.
			Set("enable_notifications", patch.Settings.EnableNotifications).
			Set("require_captcha", patch.Settings.RequireCaptcha).
			Set("allow_file_upload", patch.Settings.AllowFileUpload)
	}

	res, err := exec(ctx, r.q, b)
	if err != nil {
		return nil, err
	}
	if err = expectRow(res, "form"); err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

func (r *Forms) Delete(ctx context.Context, id string) error {
	res, err := exec(ctx, r.q, psql.Delete("form").Where(sq.Eq{"id": id}))
	if err != nil {
		return err
	}
	return expectRow(res, "form")
}

// RecordResponse counts one more response in a single statement: the total,
// the time of the latest response and the running mean of completion times.
// All SET expressions see the row as it was before the update.
// A form that already holds maxResponses responses is left untouched and
// feedback.ErrResponseLimitReached is returned.
func (r *Forms) RecordResponse(ctx context.Context, id string, at time.Time, duration float64) error {
	res, err := exec(ctx, r.q, psql.
		Update("form").
		Set("average_completion_time", sq.Expr(
			"(average_completion_time * total_responses + ?) / (total_responses + 1)", duration)).
		Set("total_responses", sq.Expr("total_responses + 1")).
		Set("last_response_at", at.UTC()).
		Where(sq.Eq{"id": id}).
		Where(sq.Or{
			sq.Eq{"max_responses": nil},
			sq.Expr("total_responses < max_responses"),
		}))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err = r.Get(ctx, id); err != nil {
			return err
		}
		return feedback.ErrResponseLimitReached
	}
	return nil
}

// ForgetResponse reverses RecordResponse for a deleted response.
// lastResponseAt is left as it was.
func (r *Forms) ForgetResponse(ctx context.Context, id string, duration float64) error {
	res, err := exec(ctx, r.q, psql.
		Update("form").
		Set("average_completion_time", sq.Expr(`CASE
			WHEN total_responses > 1 THEN (average_completion_time * total_responses - ?) / (total_responses - 1)
			ELSE 0 END`, duration)).
		Set("total_responses", sq.Expr("MAX(total_responses - 1, 0)")).
		Where(sq.Eq{"id": id}))
	if err != nil {
		return err
	}
	return expectRow(res, "form")
}
