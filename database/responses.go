package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/mbolis/quick-feedback/model"
)

type Responses struct {
	q querier
}

var responseColumns = []string{
	"id", "form_id", "submitted_by", "answers", "metadata",
	"start_time", "end_time", "duration",
	"status", "moderation_notes", "moderated_by", "moderated_at",
	"is_anonymous", "tags", "sentiment", "priority",
	"created_at", "updated_at",
}

// Submitter and moderator names are joined in so that callers never need a
// second lookup to render a response.
var responseSelect = psql.
	Select(
		"r.id", "r.form_id", "r.submitted_by", "su.name", "su.email", "r.answers", "r.metadata",
		"r.start_time", "r.end_time", "r.duration",
		"r.status", "r.moderation_notes", "r.moderated_by", "mu.name", "mu.email", "r.moderated_at",
		"r.is_anonymous", "r.tags", "r.sentiment", "r.priority",
		"r.created_at", "r.updated_at",
	).
	From("response r").
	LeftJoin("user su ON su.id = r.submitted_by").
	LeftJoin("user mu ON mu.id = r.moderated_by")

func userRef(id, name, email sql.NullString) *model.UserRef {
	if !id.Valid || id.String == "" {
		return nil
	}
	return &model.UserRef{ID: id.String, Name: name.String, Email: email.String}
}

func scanResponse(row scanner) (*model.Response, error) {
	var (
		r                        model.Response
		submittedBy, moderatedBy sql.NullString
		submitterName            sql.NullString
		submitterEmail           sql.NullString
		moderatorName            sql.NullString
		moderatorEmail           sql.NullString
		answers, metadata, tags  string
		moderatedAt              sql.NullTime
	)
	err := row.Scan(
		&r.ID, &r.FormID, &submittedBy, &submitterName, &submitterEmail, &answers, &metadata,
		&r.SubmissionTime.StartTime, &r.SubmissionTime.EndTime, &r.SubmissionTime.Duration,
		&r.Status, &r.ModerationNotes, &moderatedBy, &moderatorName, &moderatorEmail, &moderatedAt,
		&r.IsAnonymous, &tags, &r.Sentiment, &r.Priority,
		&r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err = decodeJSON(answers, &r.Answers); err != nil {
		return nil, fmt.Errorf("response %s answers: %w", r.ID, err)
	}
	if err = decodeJSON(metadata, &r.Metadata); err != nil {
		return nil, fmt.Errorf("response %s metadata: %w", r.ID, err)
	}
	if err = decodeJSON(tags, &r.Tags); err != nil {
		return nil, fmt.Errorf("response %s tags: %w", r.ID, err)
	}
	if r.Answers == nil {
		r.Answers = []model.Answer{}
	}
	if r.Tags == nil {
		r.Tags = []string{}
	}

	r.SubmittedBy = userRef(submittedBy, submitterName, submitterEmail)
	r.ModeratedBy = userRef(moderatedBy, moderatorName, moderatorEmail)
	r.ModeratedAt = timePtr(moderatedAt)
	r.SubmissionTime.StartTime = r.SubmissionTime.StartTime.UTC()
	r.SubmissionTime.EndTime = r.SubmissionTime.EndTime.UTC()
	r.CreatedAt = r.CreatedAt.UTC()
	r.UpdatedAt = r.UpdatedAt.UTC()
	return &r, nil
}

func (r *Responses) Create(ctx context.Context, resp *model.Response) error {
	answers, err := encodeJSON(resp.Answers)
	if err != nil {
		return err
	}
	metadata, err := encodeJSON(resp.Metadata)
	if err != nil {
		return err
	}
	if resp.Tags == nil {
		resp.Tags = []string{}
	}
	tags, err := encodeJSON(resp.Tags)
	if err != nil {
		return err
	}

	var submittedBy sql.NullString
	if resp.SubmittedBy != nil {
		submittedBy = nullString(resp.SubmittedBy.ID)
	}
	var moderatedBy sql.NullString
	if resp.ModeratedBy != nil {
		moderatedBy = nullString(resp.ModeratedBy.ID)
	}

	_, err = exec(ctx, r.q, psql.
		Insert("response").
		Columns(responseColumns...).
		Values(
			resp.ID, resp.FormID, submittedBy, answers, metadata,
			resp.SubmissionTime.StartTime.UTC(), resp.SubmissionTime.EndTime.UTC(), resp.SubmissionTime.Duration,
			resp.Status, resp.ModerationNotes, moderatedBy, nullTime(resp.ModeratedAt),
			resp.IsAnonymous, tags, resp.Sentiment, resp.Priority,
			resp.CreatedAt.UTC(), resp.UpdatedAt.UTC(),
		))
	return err
}

func (r *Responses) Get(ctx context.Context, id string) (*model.Response, error) {
	query, args, err := responseSelect.Where(sq.Eq{"r.id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	resp, err := scanResponse(r.q.QueryRowContext(ctx, query, args...))
	return resp, notFound(err, "response")
}

type ResponseFilter struct {
	FormID string
	// Owner restricts the listing to responses to forms created by this user.
	Owner  string
	Status model.Status
	// Search matches any answer value or tag, case-insensitively.
	Search string
	// From and To bound createdAt, both inclusive.
	From, To *time.Time
	Page
}

func (f ResponseFilter) where() sq.And {
	where := sq.And{}
	if f.FormID != "" {
		where = append(where, sq.Eq{"r.form_id": f.FormID})
	}
	if f.Owner != "" {
		where = append(where, sq.Expr("r.form_id IN (SELECT id FROM form WHERE created_by = ?)", f.Owner))
	}
	if f.Status != "" {
		where = append(where, sq.Eq{"r.status": f.Status})
	}
	if f.Search != "" {
		pattern := contains(f.Search)
		where = append(where, sq.Or{
			sq.Expr(`EXISTS (
				SELECT 1 FROM json_each(r.answers) a
				WHERE CAST(json_extract(a.value, '$.answer') AS TEXT) LIKE ? ESCAPE '\')`, pattern),
			sq.Expr(`EXISTS (
				SELECT 1 FROM json_each(r.tags) t
				WHERE t.value LIKE ? ESCAPE '\')`, pattern),
		})
	}
	if f.From != nil {
		where = append(where, sq.GtOrEq{"r.created_at": f.From.UTC()})
	}
	if f.To != nil {
		where = append(where, sq.LtOrEq{"r.created_at": f.To.UTC()})
	}
	return where
}

// List returns one page of matching responses, newest first, with the total match count.
func (r *Responses) List(ctx context.Context, filter ResponseFilter) ([]model.Response, int, error) {
	where := filter.where()

	total, err := count(ctx, r.q, psql.Select().From("response r").Where(where))
	if err != nil {
		return nil, 0, err
	}

	responses, err := r.list(ctx, filter.Page.apply(responseSelect.Where(where)))
	return responses, total, err
}

// All returns every matching response, newest first, ignoring the filter's page.
func (r *Responses) All(ctx context.Context, filter ResponseFilter) ([]model.Response, error) {
	return r.list(ctx, responseSelect.Where(filter.where()))
}

func (r *Responses) list(ctx context.Context, b sq.SelectBuilder) ([]model.Response, error) {
	rows, err := query(ctx, r.q, b.OrderBy("r.created_at DESC", "r.id DESC"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	responses := []model.Response{}
	for rows.Next() {
		resp, err := scanResponse(rows)
		if err != nil {
			return nil, err
		}
		responses = append(responses, *resp)
	}
	return responses, rows.Err()
}

func (r *Responses) CountByForm(ctx context.Context, formID string) (int, error) {
	return count(ctx, r.q, psql.Select().From("response").Where(sq.Eq{"form_id": formID}))
}

// Moderation lists the reviewer's changes; nil fields keep their value.
type Moderation struct {
	Status          *model.Status
	ModerationNotes *string
	Tags            []string
	Sentiment       *model.Sentiment
	Priority        *model.Priority
}

func (r *Responses) Moderate(ctx context.Context, id string, m Moderation, moderator string, now time.Time) (*model.Response, error) {
	b := psql.Update("response").
		Set("moderated_by", nullString(moderator)).
		Set("moderated_at", now.UTC()).
		Set("updated_at", now.UTC()).
		Where(sq.Eq{"id": id})

	if m.Status != nil {
		b = b.Set("status", *m.Status)
	}
	if m.ModerationNotes != nil {
		b = b.Set("moderation_notes", *m.ModerationNotes)
	}
	if m.Tags != nil {
		tags, err := encodeJSON(m.Tags)
		if err != nil {
			return nil, err
		}
		b = b.Set("tags", tags)
	}
	if m.Sentiment != nil {
		b = b.Set("sentiment", *m.Sentiment)
	}
	if m.Priority != nil {
		b = b.Set("priority", *m.Priority)
	}

	res, err := exec(ctx, r.q, b)
	if err != nil {
		return nil, err
	}
	if err = expectRow(res, "response"); err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

func (r *Responses) Delete(ctx context.Context, id string) error {
	res, err := exec(ctx, r.q, psql.Delete("response").Where(sq.Eq{"id": id}))
	if err != nil {
		return err
	}
	return expectRow(res, "response")
}
