package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbolis/quick-feedback/config"
	"github.com/mbolis/quick-feedback/feedback"
	"github.com/mbolis/quick-feedback/model"
)

var t0 = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func openStore(t *testing.T) *Store {
	t.Helper()
	db, err := Open(config.DatabaseConfig{
		Path:            filepath.Join(t.TempDir(), "test.sqlite"),
		MaxOpenConns:    4,
		MaxIdleConns:    4,
		ConnMaxIdleTime: time.Minute,
		ConnMaxLifetime: time.Hour,
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStore(db)
}

func createUser(t *testing.T, s *Store, name string) *model.User {
	t.Helper()
	u := &model.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        name + "@example.com",
		PasswordHash: []byte("hash"),
		CreatedAt:    t0,
	}
	require.NoError(t, s.Users.Create(context.Background(), u))
	return u
}

func createForm(t *testing.T, s *Store, owner, title string, mutate ...func(*model.Form)) *model.Form {
	t.Helper()
	f := &model.Form{
		ID:        uuid.NewString(),
		Title:     title,
		CreatedBy: owner,
		Questions: []model.Question{
			{ID: "q1", Text: "Pick one", Type: model.QuestionRadio, Options: []string{"A", "B"}, Required: true, Order: 1},
			{ID: "q2", Text: "Notes", Type: model.QuestionTextarea, Order: 2},
		},
		IsActive:  true,
		IsPublic:  true,
		Settings:  model.DefaultFormSettings(),
		CreatedAt: t0,
		UpdatedAt: t0,
	}
	for _, m := range mutate {
		m(f)
	}
	require.NoError(t, s.Forms.Create(context.Background(), f))
	return f
}

func createResponse(t *testing.T, s *Store, formID string, at time.Time, mutate ...func(*model.Response)) *model.Response {
	t.Helper()
	r := newResponse(formID, at, mutate...)
	require.NoError(t, s.Responses.Create(context.Background(), r))
	return r
}

func newResponse(formID string, at time.Time, mutate ...func(*model.Response)) *model.Response {
	r := &model.Response{
		ID:     uuid.NewString(),
		FormID: formID,
		Answers: []model.Answer{
			{QuestionID: "q1", QuestionText: "Pick one", QuestionType: model.QuestionRadio, Value: model.StringValue("A")},
		},
		SubmissionTime: model.SubmissionTime{StartTime: at.Add(-time.Minute), EndTime: at, Duration: 60},
		Status:         model.StatusSubmitted,
		Sentiment:      model.SentimentNeutral,
		Priority:       model.PriorityMedium,
		CreatedAt:      at,
		UpdatedAt:      at,
	}
	for _, m := range mutate {
		m(r)
	}
	return r
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	alice := createUser(t, s, "alice")

	got, err := s.Users.GetByEmail(ctx, "ALICE@example.com")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)
	assert.Equal(t, model.RoleUser, got.Role)
	assert.Equal(t, []byte("hash"), got.PasswordHash)

	dup := &model.User{ID: uuid.NewString(), Name: "Alice", Email: "Alice@Example.com", PasswordHash: []byte("x"), CreatedAt: t0}
	assert.ErrorIs(t, s.Users.Create(ctx, dup), feedback.ErrConflict)

	require.NoError(t, s.Users.SetRole(ctx, alice.ID, model.RoleAdmin))
	got, err = s.Users.Get(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, got.Role)

	_, err = s.Users.Get(ctx, "nobody")
	assert.ErrorIs(t, err, feedback.ErrNotFound)
}

func TestTokens_RedeemOnce(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	require.NoError(t, s.Tokens.Store(ctx, "alice@example.com", "t1", "r1", t0.Add(time.Hour)))
	require.NoError(t, s.Tokens.Store(ctx, "alice@example.com", "t2", "r2", t0.Add(-time.Hour)))

	assert.NoError(t, s.Tokens.Redeem(ctx, "alice@example.com", "t1", "r1", t0))
	assert.ErrorIs(t, s.Tokens.Redeem(ctx, "alice@example.com", "t1", "r1", t0), ErrTokenRevoked)
	assert.ErrorIs(t, s.Tokens.Redeem(ctx, "alice@example.com", "t2", "r2", t0), ErrTokenRevoked)

	require.NoError(t, s.Tokens.Store(ctx, "bob@example.com", "t3", "r3", t0.Add(-time.Minute)))
	n, err := s.Tokens.DeleteExpired(ctx, t0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestForms_CreateGet(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	owner := createUser(t, s, "owner")
	expires := t0.Add(48 * time.Hour)
	created := createForm(t, s, owner.ID, "Survey", func(f *model.Form) {
		f.MaxResponses = new(int)
		*f.MaxResponses = 5
		f.ExpiresAt = &expires
	})

	got, err := s.Forms.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Survey", got.Title)
	assert.Equal(t, 1, got.Version)
	assert.Equal(t, created.Questions, got.Questions)
	require.NotNil(t, got.MaxResponses)
	assert.Equal(t, 5, *got.MaxResponses)
	require.NotNil(t, got.ExpiresAt)
	assert.True(t, expires.Equal(*got.ExpiresAt))
	assert.True(t, got.Settings.EnableNotifications)
	assert.Equal(t, 0, got.Analytics.TotalResponses)
	assert.Nil(t, got.Analytics.LastResponseAt)

	_, err = s.Forms.Get(ctx, "missing")
	assert.ErrorIs(t, err, feedback.ErrNotFound)
}

func TestForms_ListFilters(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	alice := createUser(t, s, "alice")
	bob := createUser(t, s, "bob")

	for i := range 5 {
		createForm(t, s, alice.ID, fmt.Sprintf("Alice form %d", i), func(f *model.Form) {
			f.CreatedAt = t0.Add(time.Duration(i) * time.Minute)
			f.IsActive = i%2 == 0
		})
	}
	createForm(t, s, alice.ID, "Quarterly 100% review", func(f *model.Form) {
		f.Description = "Team retro"
		f.CreatedAt = t0.Add(time.Hour)
	})
	createForm(t, s, bob.ID, "Bob form")

	forms, total, err := s.Forms.List(ctx, FormFilter{CreatedBy: alice.ID, Page: Page{Number: 1, Limit: 4}})
	require.NoError(t, err)
	assert.Equal(t, 6, total)
	require.Len(t, forms, 4)
	assert.Equal(t, "Quarterly 100% review", forms[0].Title, "newest first")

	forms, _, err = s.Forms.List(ctx, FormFilter{CreatedBy: alice.ID, Page: Page{Number: 2, Limit: 4}})
	require.NoError(t, err)
	assert.Len(t, forms, 2)

	active := false
	_, total, err = s.Forms.List(ctx, FormFilter{CreatedBy: alice.ID, Active: &active})
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	forms, total, err = s.Forms.List(ctx, FormFilter{CreatedBy: alice.ID, Search: "RETRO"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "Quarterly 100% review", forms[0].Title)

	_, total, err = s.Forms.List(ctx, FormFilter{CreatedBy: alice.ID, Search: "100%"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	_, total, err = s.Forms.List(ctx, FormFilter{CreatedBy: alice.ID, Search: "%"})
	require.NoError(t, err)
	assert.Equal(t, 1, total, "wildcards in the search are literal")
}

func TestForms_UpdateAlwaysBumpsVersion(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	owner := createUser(t, s, "owner")
	f := createForm(t, s, owner.ID, "Survey", func(f *model.Form) {
		f.MaxResponses = new(int)
		*f.MaxResponses = 3
	})

	updated, err := s.Forms.Update(ctx, f.ID, FormPatch{}, t0.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Version)
	assert.Equal(t, "Survey", updated.Title)

	title := "Renamed"
	inactive := false
	updated, err = s.Forms.Update(ctx, f.ID, FormPatch{
		Title:        &title,
		IsActive:     &inactive,
		MaxResponses: &sql.NullInt64{},
		Settings:     &model.FormSettings{RequireCaptcha: true},
	}, t0.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 3, updated.Version)
	assert.Equal(t, "Renamed", updated.Title)
	assert.False(t, updated.IsActive)
	assert.Nil(t, updated.MaxResponses)
	assert.False(t, updated.Settings.EnableNotifications)
	assert.True(t, updated.Settings.RequireCaptcha)
	assert.True(t, t0.Add(2*time.Minute).Equal(updated.UpdatedAt))

	_, err = s.Forms.Update(ctx, "missing", FormPatch{}, t0)
	assert.ErrorIs(t, err, feedback.ErrNotFound)
}

func TestForms_CounterConsistency(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	owner := createUser(t, s, "owner")
	f := createForm(t, s, owner.ID, "Survey")

	const submissions, deletions = 7, 3
	var responses []*model.Response
	for i := range submissions {
		at := t0.Add(time.Duration(i) * time.Minute)
		r := createResponse(t, s, f.ID, at, func(r *model.Response) {
			r.SubmissionTime.Duration = float64(10 * (i + 1))
		})
		require.NoError(t, s.Forms.RecordResponse(ctx, f.ID, at, r.SubmissionTime.Duration))
		responses = append(responses, r)
	}

	got, err := s.Forms.Get(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, submissions, got.Analytics.TotalResponses)
	assert.InDelta(t, 40.0, got.Analytics.AverageCompletionTime, 1e-9)
	require.NotNil(t, got.Analytics.LastResponseAt)
	assert.True(t, t0.Add(6*time.Minute).Equal(*got.Analytics.LastResponseAt))

	for _, r := range responses[:deletions] {
		require.NoError(t, s.Responses.Delete(ctx, r.ID))
		require.NoError(t, s.Forms.ForgetResponse(ctx, f.ID, r.SubmissionTime.Duration))
	}

	got, err = s.Forms.Get(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, submissions-deletions, got.Analytics.TotalResponses)
	assert.InDelta(t, 55.0, got.Analytics.AverageCompletionTime, 1e-9)

	n, err := s.Responses.CountByForm(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, got.Analytics.TotalResponses, n)
}

func TestForms_ForgetLastResponseResetsAverage(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	owner := createUser(t, s, "owner")
	f := createForm(t, s, owner.ID, "Survey")

	require.NoError(t, s.Forms.RecordResponse(ctx, f.ID, t0, 42))
	require.NoError(t, s.Forms.ForgetResponse(ctx, f.ID, 42))

	got, err := s.Forms.Get(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Analytics.TotalResponses)
	assert.Equal(t, 0.0, got.Analytics.AverageCompletionTime)
}

func TestStore_SubmitAndWithdraw(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	owner := createUser(t, s, "owner")
	f := createForm(t, s, owner.ID, "Survey")

	r := newResponse(f.ID, t0, func(r *model.Response) { r.SubmissionTime.Duration = 20 })
	require.NoError(t, s.Submit(ctx, r))

	got, err := s.Forms.Get(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Analytics.TotalResponses)
	assert.InDelta(t, 20.0, got.Analytics.AverageCompletionTime, 1e-9)

	require.NoError(t, s.Withdraw(ctx, r))
	got, err = s.Forms.Get(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Analytics.TotalResponses)

	err = s.Withdraw(ctx, r)
	assert.ErrorIs(t, err, feedback.ErrNotFound)
	got, err = s.Forms.Get(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Analytics.TotalResponses)
}

func TestStore_InTxRollsBackWhenCancelled(t *testing.T) {
	s := openStore(t)
	owner := createUser(t, s, "owner")
	f := createForm(t, s, owner.ID, "Survey")
	r := newResponse(f.ID, t0)

	ctx, cancel := context.WithCancel(context.Background())
	err := s.InTx(ctx, func(tx *Store) error {
		if err := tx.Responses.Create(ctx, r); err != nil {
			return err
		}
		cancel()
		return tx.Forms.RecordResponse(ctx, f.ID, t0, 60)
	})
	assert.ErrorIs(t, err, context.Canceled)

	bg := context.Background()
	n, err := s.Responses.CountByForm(bg, f.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
	got, err := s.Forms.Get(bg, f.ID)
	require.NoError(t, err)
	assert.Zero(t, got.Analytics.TotalResponses)

	// the same holds for a withdrawal cut short
	require.NoError(t, s.Submit(bg, r))
	ctx, cancel = context.WithCancel(context.Background())
	err = s.InTx(ctx, func(tx *Store) error {
		if err := tx.Responses.Delete(ctx, r.ID); err != nil {
			return err
		}
		cancel()
		return tx.Forms.ForgetResponse(ctx, f.ID, 60)
	})
	assert.ErrorIs(t, err, context.Canceled)

	n, err = s.Responses.CountByForm(bg, f.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	got, err = s.Forms.Get(bg, f.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Analytics.TotalResponses)
}

func TestStore_SubmitHonoursMaxResponses(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	owner := createUser(t, s, "owner")
	limit := 3
	f := createForm(t, s, owner.ID, "Survey", func(f *model.Form) { f.MaxResponses = &limit })

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
		full     int
	)
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Submit(ctx, newResponse(f.ID, t0.Add(time.Duration(i)*time.Second)))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				accepted++
			case errors.Is(err, feedback.ErrResponseLimitReached):
				full++
			default:
				t.Errorf("submit: %s", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, limit, accepted)
	assert.Equal(t, 10-limit, full)

	n, err := s.Responses.CountByForm(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, limit, n)
	got, err := s.Forms.Get(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, limit, got.Analytics.TotalResponses)

	err = s.Forms.RecordResponse(ctx, "missing", t0, 1)
	assert.ErrorIs(t, err, feedback.ErrNotFound)
}

func TestForms_Delete(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	owner := createUser(t, s, "owner")
	f := createForm(t, s, owner.ID, "Survey")

	require.NoError(t, s.Forms.Delete(ctx, f.ID))
	assert.ErrorIs(t, s.Forms.Delete(ctx, f.ID), feedback.ErrNotFound)
}

func TestResponses_GetJoinsUsers(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	owner := createUser(t, s, "owner")
	carol := createUser(t, s, "carol")
	f := createForm(t, s, owner.ID, "Survey")

	r := createResponse(t, s, f.ID, t0, func(r *model.Response) {
		r.SubmittedBy = &model.UserRef{ID: carol.ID}
		r.Metadata = model.Metadata{UserAgent: "test", Language: "en"}
		r.Answers = append(r.Answers, model.Answer{
			QuestionID: "q2", QuestionText: "Notes", QuestionType: model.QuestionTextarea,
			Value: model.StringValue("Loved it"),
		})
	})

	got, err := s.Responses.Get(ctx, r.ID)
	require.NoError(t, err)
	require.NotNil(t, got.SubmittedBy)
	assert.Equal(t, "carol", got.SubmittedBy.Name)
	assert.Equal(t, "carol@example.com", got.SubmittedBy.Email)
	assert.Equal(t, r.Answers, got.Answers)
	assert.Equal(t, r.Metadata, got.Metadata)
	assert.Equal(t, []string{}, got.Tags)
	assert.Nil(t, got.ModeratedBy)
	assert.Nil(t, got.ModeratedAt)

	_, err = s.Responses.Get(ctx, "missing")
	assert.ErrorIs(t, err, feedback.ErrNotFound)
}

func TestResponses_ListFilters(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	owner := createUser(t, s, "owner")
	other := createUser(t, s, "other")
	f := createForm(t, s, owner.ID, "Survey")
	g := createForm(t, s, other.ID, "Other survey")

	createResponse(t, s, f.ID, t0)
	createResponse(t, s, f.ID, t0.Add(time.Hour), func(r *model.Response) {
		r.Answers[0].Value = model.StringValue("Bananas are great")
	})
	createResponse(t, s, f.ID, t0.Add(2*time.Hour), func(r *model.Response) {
		r.Status = model.StatusApproved
		r.Tags = []string{"follow-up"}
	})
	createResponse(t, s, f.ID, t0.Add(3*time.Hour), func(r *model.Response) {
		r.Answers = []model.Answer{{QuestionID: "q3", Value: model.ListValue([]string{"go", "sql"})}}
	})
	createResponse(t, s, g.ID, t0)

	responses, total, err := s.Responses.List(ctx, ResponseFilter{FormID: f.ID, Page: Page{Number: 1, Limit: 2}})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	require.Len(t, responses, 2)
	assert.True(t, t0.Add(3*time.Hour).Equal(responses[0].CreatedAt), "newest first")

	_, total, err = s.Responses.List(ctx, ResponseFilter{FormID: f.ID, Status: model.StatusApproved})
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	tests := []struct {
		search string
		want   int
	}{
		{search: "banana", want: 1},
		{search: "FOLLOW", want: 1},
		{search: "sql", want: 1},
		{search: "a", want: 3},
		{search: "nothing like this", want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.search, func(t *testing.T) {
			_, total, err := s.Responses.List(ctx, ResponseFilter{FormID: f.ID, Search: tt.search})
			require.NoError(t, err)
			assert.Equal(t, tt.want, total)
		})
	}

	from, to := t0.Add(30*time.Minute), t0.Add(2*time.Hour)
	all, err := s.Responses.All(ctx, ResponseFilter{Owner: owner.ID, From: &from, To: &to})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	all, err = s.Responses.All(ctx, ResponseFilter{Owner: other.ID})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestResponses_ModerateKeepsOmittedFields(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	owner := createUser(t, s, "owner")
	f := createForm(t, s, owner.ID, "Survey")
	r := createResponse(t, s, f.ID, t0, func(r *model.Response) {
		r.Tags = []string{"keep"}
		r.Priority = model.PriorityHigh
	})

	status := model.StatusReviewed
	notes := "looked at it"
	got, err := s.Responses.Moderate(ctx, r.ID, Moderation{Status: &status, ModerationNotes: &notes}, owner.ID, t0.Add(time.Hour))
	require.NoError(t, err)

	assert.Equal(t, model.StatusReviewed, got.Status)
	assert.Equal(t, "looked at it", got.ModerationNotes)
	assert.Equal(t, []string{"keep"}, got.Tags)
	assert.Equal(t, model.PriorityHigh, got.Priority)
	require.NotNil(t, got.ModeratedBy)
	assert.Equal(t, "owner", got.ModeratedBy.Name)
	require.NotNil(t, got.ModeratedAt)
	assert.True(t, t0.Add(time.Hour).Equal(*got.ModeratedAt))

	_, err = s.Responses.Moderate(ctx, "missing", Moderation{}, owner.ID, t0)
	assert.ErrorIs(t, err, feedback.ErrNotFound)
}

func TestNotifications(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	later := t0.Add(time.Hour)
	earlier := t0.Add(-time.Hour)

	mk := func(recipient string, at time.Time, expires *time.Time) *model.Notification {
		n := &model.Notification{
			ID:        uuid.NewString(),
			Recipient: recipient,
			Type:      model.NotificationFeedbackSubmitted,
			Title:     "New Feedback Received",
			Message:   "hello",
			Data:      model.NotificationData{FormID: "f1", ResponseID: "r1", ActionURL: "/responses/r1"},
			ExpiresAt: expires,
			CreatedAt: at,
			UpdatedAt: at,
		}
		require.NoError(t, s.Notifications.Create(ctx, n))
		return n
	}

	first := mk("alice", t0.Add(-2*time.Minute), &later)
	mk("alice", t0.Add(-time.Minute), &later)
	mk("alice", t0.Add(-3*time.Minute), &earlier)
	mk("bob", t0, nil)

	list, total, err := s.Notifications.List(ctx, NotificationFilter{Recipient: "alice", Now: t0, Page: Page{Number: 1, Limit: 20}})
	require.NoError(t, err)
	assert.Equal(t, 2, total, "expired notifications are hidden")
	require.Len(t, list, 2)
	assert.Equal(t, model.PriorityMedium, list[0].Priority)
	assert.Equal(t, "/responses/r1", list[0].Data.ActionURL)

	unread, err := s.Notifications.UnreadCount(ctx, "alice", t0)
	require.NoError(t, err)
	assert.Equal(t, 2, unread)

	n, err := s.Notifications.MarkRead(ctx, first.ID, t0)
	require.NoError(t, err)
	assert.True(t, n.IsRead)

	_, total, err = s.Notifications.List(ctx, NotificationFilter{Recipient: "alice", UnreadOnly: true, Now: t0})
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	marked, err := s.Notifications.MarkAllRead(ctx, "alice", t0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), marked, "includes the expired one")

	deleted, err := s.Notifications.DeleteExpired(ctx, t0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	require.NoError(t, s.Notifications.Delete(ctx, first.ID))
	assert.ErrorIs(t, s.Notifications.Delete(ctx, first.ID), feedback.ErrNotFound)
	_, err = s.Notifications.Get(ctx, first.ID)
	assert.ErrorIs(t, err, feedback.ErrNotFound)
}

func TestOpen_MigratesOnce(t *testing.T) {
	cfg := config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "reopen.sqlite"), MaxOpenConns: 2, MaxIdleConns: 2}

	db, err := Open(cfg)
	require.NoError(t, err)
	version, err := migrateDB(db)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	require.NoError(t, db.Close())

	db, err = Open(cfg)
	require.NoError(t, err, "reopening an up-to-date database is not an error")
	defer db.Close()

	var tables int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('user', 'token', 'form', 'response', 'notification')`).Scan(&tables))
	assert.Equal(t, 5, tables)
}
