package routes

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/mbolis/quick-feedback/app"
	"github.com/mbolis/quick-feedback/database"
	"github.com/mbolis/quick-feedback/feedback"
	"github.com/mbolis/quick-feedback/httpx"
	"github.com/mbolis/quick-feedback/model"
	"github.com/mbolis/quick-feedback/routes/middlewares"
)

const formsPageLimit = 10

// Optional tells an absent JSON member from an explicit null.
type Optional[T any] struct {
	Set   bool
	Value *T
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

type createFormRequest struct {
	Title          string                   `json:"title" validate:"required,max=200"`
	Description    string                   `json:"description" validate:"max=1000"`
	Questions      []feedback.QuestionInput `json:"questions"`
	IsActive       *bool                    `json:"isActive"`
	IsPublic       bool                     `json:"isPublic"`
	AllowAnonymous bool                     `json:"allowAnonymous"`
	MaxResponses   *int                     `json:"maxResponses" validate:"omitempty,min=0"`
	ExpiresAt      *time.Time               `json:"expiresAt"`
	Settings       *model.FormSettings      `json:"settings"`
}

type updateFormRequest struct {
	Title          *string                  `json:"title" validate:"omitempty,max=200"`
	Description    *string                  `json:"description" validate:"omitempty,max=1000"`
	Questions      []feedback.QuestionInput `json:"questions"`
	IsActive       *bool                    `json:"isActive"`
	IsPublic       *bool                    `json:"isPublic"`
	AllowAnonymous *bool                    `json:"allowAnonymous"`
	MaxResponses   Optional[int]            `json:"maxResponses"`
	ExpiresAt      Optional[time.Time]      `json:"expiresAt"`
	Settings       *model.FormSettings      `json:"settings"`
}

type listFormsQuery struct {
	Status string `json:"status" validate:"omitempty,oneof=active inactive"`
}

// publicForm is what respondents see of a form.
type publicForm struct {
	ID             string           `json:"id"`
	Title          string           `json:"title"`
	Description    string           `json:"description"`
	Questions      []model.Question `json:"questions"`
	AllowAnonymous bool             `json:"allowAnonymous"`
	ExpiresAt      *time.Time       `json:"expiresAt"`
}

type formAnalytics struct {
	FormID string `json:"formId"`
	feedback.Summary
	LastResponseAt *time.Time `json:"lastResponseAt"`
}

var errBlankTitle = feedback.NewValidationError(feedback.ReasonInvalidField, "title", "title is required")

// ownedForm loads a form and checks that the caller may manage it.
func ownedForm(ctx context.Context, app app.App, id string) (*model.Form, error) {
	form, err := app.Forms.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := feedback.Authorize(middlewares.ActorFromContext(ctx), form); err != nil {
		return nil, err
	}
	return form, nil
}

func CreateForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in createFormRequest
		if err := httpx.Decode(r, &in); err != nil {
			httpx.WriteError(w, r, "create_form.decode", err)
			return
		}
		if strings.TrimSpace(in.Title) == "" {
			httpx.WriteError(w, r, "create_form.title", errBlankTitle)
			return
		}

		questions, err := feedback.BuildQuestions(in.Questions, nil, feedback.NewID)
		if err != nil {
			httpx.WriteError(w, r, "create_form.questions", err)
			return
		}

		now := app.Now()
		actor := middlewares.ActorFromContext(r.Context())
		form := &model.Form{
			ID:             uuid.NewString(),
			Title:          strings.TrimSpace(in.Title),
			Description:    strings.TrimSpace(in.Description),
			CreatedBy:      actor.UserID,
			Questions:      questions,
			IsActive:       in.IsActive == nil || *in.IsActive,
			IsPublic:       in.IsPublic,
			AllowAnonymous: in.AllowAnonymous,
			MaxResponses:   positive(in.MaxResponses),
			ExpiresAt:      utc(in.ExpiresAt),
			Settings:       model.DefaultFormSettings(),
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if in.Settings != nil {
			form.Settings = *in.Settings
		}
		if err := app.Forms.Create(r.Context(), form); err != nil {
			httpx.LogInternalError(w, r, "create_form.db.insert", err)
			return
		}
		app.Notifier.FormCreated(r.Context(), form)

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"message": "Feedback form created successfully",
			"form":    form,
		})
	}
}

func ListForms(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, limit, err := httpx.PageQuery(r, formsPageLimit)
		if err != nil {
			httpx.WriteError(w, r, "list_forms.page", err)
			return
		}
		q := listFormsQuery{Status: r.URL.Query().Get("status")}
		if err := httpx.Validate(q); err != nil {
			httpx.WriteError(w, r, "list_forms.query", err)
			return
		}

		filter := database.FormFilter{
			CreatedBy: middlewares.ActorFromContext(r.Context()).UserID,
			Search:    strings.TrimSpace(r.URL.Query().Get("search")),
			Page:      database.Page{Number: page, Limit: limit},
		}
		if q.Status != "" {
			active := q.Status == "active"
			filter.Active = &active
		}

		forms, total, err := app.Forms.List(r.Context(), filter)
		if err != nil {
			httpx.LogInternalError(w, r, "list_forms.db.list", err)
			return
		}
		render.JSON(w, r, map[string]any{
			"forms":      forms,
			"pagination": model.NewPagination(page, limit, total).Render("totalForms"),
		})
	}
}

func GetForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		form, err := ownedForm(r.Context(), app, chi.URLParam(r, "id"))
		if err != nil {
			httpx.WriteError(w, r, "get_form", err)
			return
		}
		render.JSON(w, r, map[string]any{"form": form})
	}
}

// UpdateForm applies a partial update; questions keep their identity when
// they are sent back with their id.
func UpdateForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in updateFormRequest
		if err := httpx.Decode(r, &in); err != nil {
			httpx.WriteError(w, r, "update_form.decode", err)
			return
		}

		form, err := ownedForm(r.Context(), app, chi.URLParam(r, "id"))
		if err != nil {
			httpx.WriteError(w, r, "update_form", err)
			return
		}

		patch, err := in.patch(form)
		if err != nil {
			httpx.WriteError(w, r, "update_form.validate", err)
			return
		}
		updated, err := app.Forms.Update(r.Context(), form.ID, patch, app.Now())
		if err != nil {
			httpx.WriteError(w, r, "update_form.db.update", err)
			return
		}
		render.JSON(w, r, map[string]any{
			"message": "Form updated successfully",
			"form":    updated,
		})
	}
}

func (in updateFormRequest) patch(form *model.Form) (database.FormPatch, error) {
	patch := database.FormPatch{
		Description:    trimmed(in.Description),
		IsActive:       in.IsActive,
		IsPublic:       in.IsPublic,
		AllowAnonymous: in.AllowAnonymous,
		Settings:       in.Settings,
	}
	if in.Title != nil {
		if strings.TrimSpace(*in.Title) == "" {
			return patch, errBlankTitle
		}
		patch.Title = trimmed(in.Title)
	}
	if in.Questions != nil {
		questions, err := feedback.BuildQuestions(in.Questions, form.Questions, feedback.NewID)
		if err != nil {
			return patch, err
		}
		patch.Questions = questions
	}
	if in.MaxResponses.Set {
		v := in.MaxResponses.Value
		if v != nil && *v < 0 {
			return patch, feedback.NewValidationError(feedback.ReasonInvalidField, "maxResponses", "maxResponses must be at least 0")
		}
		limit := sql.NullInt64{}
		if v != nil && *v > 0 {
			limit = sql.NullInt64{Int64: int64(*v), Valid: true}
		}
		patch.MaxResponses = &limit
	}
	if in.ExpiresAt.Set {
		expires := sql.NullTime{}
		if v := in.ExpiresAt.Value; v != nil {
			expires = sql.NullTime{Time: v.UTC(), Valid: true}
		}
		patch.ExpiresAt = &expires
	}
	return patch, nil
}

// DeleteForm refuses to drop a form that already collected responses.
func DeleteForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		form, err := ownedForm(r.Context(), app, chi.URLParam(r, "id"))
		if err != nil {
			httpx.WriteError(w, r, "delete_form", err)
			return
		}

		n, err := app.Responses.CountByForm(r.Context(), form.ID)
		if err != nil {
			httpx.LogInternalError(w, r, "delete_form.db.count_responses", err)
			return
		}
		if n > 0 {
			httpx.WriteError(w, r, "delete_form.has_responses", fmt.Errorf("%w: %s", feedback.ErrConflict,
				"Cannot delete form with existing responses. Consider deactivating it instead."))
			return
		}

		if err := app.Forms.Delete(r.Context(), form.ID); err != nil {
			httpx.WriteError(w, r, "delete_form.db.delete", err)
			return
		}
		render.JSON(w, r, map[string]any{"message": "Form deleted successfully"})
	}
}

func FormAnalytics(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		form, err := ownedForm(r.Context(), app, chi.URLParam(r, "id"))
		if err != nil {
			httpx.WriteError(w, r, "form_analytics", err)
			return
		}

		responses, err := app.Responses.All(r.Context(), database.ResponseFilter{FormID: form.ID})
		if err != nil {
			httpx.LogInternalError(w, r, "form_analytics.db.responses", err)
			return
		}
		render.JSON(w, r, formAnalytics{
			FormID:         form.ID,
			Summary:        feedback.Aggregate(responses, form.Questions, app.Now()),
			LastResponseAt: form.Analytics.LastResponseAt,
		})
	}
}

// DuplicateForm copies a form under a new identity, with fresh question ids
// and reset counters.
func DuplicateForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		form, err := ownedForm(r.Context(), app, chi.URLParam(r, "id"))
		if err != nil {
			httpx.WriteError(w, r, "duplicate_form", err)
			return
		}

		raw := feedback.QuestionInputs(form.Questions)
		for i := range raw {
			raw[i].ID = ""
		}
		questions, err := feedback.BuildQuestions(raw, nil, feedback.NewID)
		if err != nil {
			httpx.LogInternalError(w, r, "duplicate_form.questions", err)
			return
		}

		now := app.Now()
		copied := *form
		copied.ID = uuid.NewString()
		copied.Title = form.Title + " (Copy)"
		copied.CreatedBy = middlewares.ActorFromContext(r.Context()).UserID
		copied.Questions = questions
		copied.CreatedAt = now
		copied.UpdatedAt = now
		if err := app.Forms.Create(r.Context(), &copied); err != nil {
			httpx.LogInternalError(w, r, "duplicate_form.db.insert", err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"message": "Form duplicated successfully",
			"form":    copied,
		})
	}
}

// GetPublicForm serves a form to respondents, behind the same gate as a submission.
func GetPublicForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		form, err := app.Forms.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			httpx.WriteError(w, r, "public_form.db.get", err)
			return
		}
		if err := feedback.CheckSubmission(form, app.Now()); err != nil {
			httpx.WriteError(w, r, "public_form.gate", err)
			return
		}
		render.JSON(w, r, map[string]any{"form": publicForm{
			ID:             form.ID,
			Title:          form.Title,
			Description:    form.Description,
			Questions:      form.Questions,
			AllowAnonymous: form.AllowAnonymous,
			ExpiresAt:      form.ExpiresAt,
		}})
	}
}

func positive(n *int) *int {
	if n == nil || *n <= 0 {
		return nil
	}
	return n
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}
