package routes

import (
	"context"
	"encoding/csv"
	"fmt"
	"mime"
	"net"
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
	"github.com/mbolis/quick-feedback/log"
	"github.com/mbolis/quick-feedback/metrics"
	"github.com/mbolis/quick-feedback/model"
	"github.com/mbolis/quick-feedback/routes/middlewares"
)

const responsesPageLimit = 20

var exportHeader = []string{"Response ID", "Submitted By", "Submitted At", "Status", "Sentiment", "Priority"}

type submitRequest struct {
	FormID      string                 `json:"formId" validate:"required"`
	Answers     []feedback.AnswerInput `json:"answers" validate:"required,min=1"`
	IsAnonymous bool                   `json:"isAnonymous"`
	Metadata    model.Metadata         `json:"metadata"`
	StartTime   *time.Time             `json:"startTime"`
	// Duration in seconds; derived from startTime when omitted.
	Duration *float64 `json:"duration" validate:"omitempty,min=0"`
}

type listResponsesQuery struct {
	Status string `json:"status" validate:"omitempty,oneof=submitted reviewed approved rejected"`
}

type exportQuery struct {
	Format string `json:"format" validate:"oneof=csv json"`
}

type moderateRequest struct {
	Status          *model.Status    `json:"status" validate:"omitempty,oneof=submitted reviewed approved rejected"`
	ModerationNotes *string          `json:"moderationNotes" validate:"omitempty,max=1000"`
	Tags            []string         `json:"tags" validate:"omitempty,max=20,dive,max=50"`
	Sentiment       *model.Sentiment `json:"sentiment" validate:"omitempty,oneof=positive neutral negative"`
	Priority        *model.Priority  `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
}

// ownedResponse loads a response together with its form, checking that the
// caller may manage that form.
func ownedResponse(ctx context.Context, app app.App, id string) (*model.Response, *model.Form, error) {
	resp, err := app.Responses.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	form, err := ownedForm(ctx, app, resp.FormID)
	if err != nil {
		return nil, nil, err
	}
	return resp, form, nil
}

// SubmitResponse accepts a response to a public form. The gate is evaluated
// against a freshly loaded form on every call.
func SubmitResponse(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in submitRequest
		if err := httpx.Decode(r, &in); err != nil {
			rejectSubmission(w, r, "submit.decode", err)
			return
		}

		form, err := app.Forms.Get(r.Context(), in.FormID)
		if err != nil {
			rejectSubmission(w, r, "submit.db.get_form", err)
			return
		}
		now := app.Now()
		if err := feedback.CheckSubmission(form, now); err != nil {
			rejectSubmission(w, r, "submit.gate", err)
			return
		}
		answers, err := feedback.ValidateAnswers(form.Questions, in.Answers)
		if err != nil {
			rejectSubmission(w, r, "submit.answers", err)
			return
		}

		resp := &model.Response{
			ID:             uuid.NewString(),
			FormID:         form.ID,
			Answers:        answers,
			Metadata:       in.Metadata,
			SubmissionTime: submissionTime(in.StartTime, in.Duration, now),
			Status:         model.StatusSubmitted,
			IsAnonymous:    in.IsAnonymous,
			Tags:           []string{},
			Sentiment:      model.SentimentNeutral,
			Priority:       model.PriorityMedium,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		resp.Metadata.IPAddress = remoteHost(r)
		resp.Metadata.UserAgent = r.UserAgent()
		if actor := middlewares.ActorFromContext(r.Context()); actor != nil && !in.IsAnonymous {
			resp.SubmittedBy = actor.Ref()
		} else {
			resp.IsAnonymous = true
		}

		// The insert and the counter update commit together; the cap is
		// checked again by the update, so a form filled meanwhile rejects it.
		if err := app.Submit(r.Context(), resp); err != nil {
			rejectSubmission(w, r, "submit.db.submit", err)
			return
		}
		app.Notifier.FeedbackSubmitted(r.Context(), form, resp.ID)
		metrics.Submissions.WithLabelValues("accepted").Inc()

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"message":    "Feedback submitted successfully",
			"responseId": resp.ID,
		})
	}
}

func rejectSubmission(w http.ResponseWriter, r *http.Request, code string, err error) {
	metrics.Submissions.WithLabelValues(httpx.ErrorCode(err)).Inc()
	httpx.WriteError(w, r, code, err)
}

func submissionTime(start *time.Time, duration *float64, now time.Time) model.SubmissionTime {
	st := model.SubmissionTime{StartTime: now, EndTime: now}
	if start != nil && !start.After(now) {
		st.StartTime = start.UTC()
	}
	if duration != nil {
		st.Duration = *duration
	} else {
		st.Duration = now.Sub(st.StartTime).Seconds()
	}
	return st
}

func remoteHost(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func ListFormResponses(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		form, err := ownedForm(r.Context(), app, chi.URLParam(r, "formId"))
		if err != nil {
			httpx.WriteError(w, r, "list_responses", err)
			return
		}
		page, limit, err := httpx.PageQuery(r, responsesPageLimit)
		if err != nil {
			httpx.WriteError(w, r, "list_responses.page", err)
			return
		}
		q := listResponsesQuery{Status: r.URL.Query().Get("status")}
		if err := httpx.Validate(q); err != nil {
			httpx.WriteError(w, r, "list_responses.query", err)
			return
		}

		responses, total, err := app.Responses.List(r.Context(), database.ResponseFilter{
			FormID: form.ID,
			Status: model.Status(q.Status),
			Search: strings.TrimSpace(r.URL.Query().Get("search")),
			Page:   database.Page{Number: page, Limit: limit},
		})
		if err != nil {
			httpx.LogInternalError(w, r, "list_responses.db.list", err)
			return
		}
		render.JSON(w, r, map[string]any{
			"responses":  responses,
			"pagination": model.NewPagination(page, limit, total).Render("totalResponses"),
		})
	}
}

func GetResponse(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, _, err := ownedResponse(r.Context(), app, chi.URLParam(r, "id"))
		if err != nil {
			httpx.WriteError(w, r, "get_response", err)
			return
		}
		render.JSON(w, r, map[string]any{"response": resp})
	}
}

// ModerateResponse records the reviewer's verdict; fields left out keep their value.
func ModerateResponse(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in moderateRequest
		if err := httpx.Decode(r, &in); err != nil {
			httpx.WriteError(w, r, "moderate.decode", err)
			return
		}

		resp, form, err := ownedResponse(r.Context(), app, chi.URLParam(r, "id"))
		if err != nil {
			httpx.WriteError(w, r, "moderate", err)
			return
		}

		m := database.Moderation{
			Status:          in.Status,
			ModerationNotes: trimmed(in.ModerationNotes),
			Sentiment:       in.Sentiment,
			Priority:        in.Priority,
		}
		if in.Tags != nil {
			m.Tags = make([]string, 0, len(in.Tags))
			for _, tag := range in.Tags {
				if tag = strings.TrimSpace(tag); tag != "" {
					m.Tags = append(m.Tags, tag)
				}
			}
		}

		actor := middlewares.ActorFromContext(r.Context())
		updated, err := app.Responses.Moderate(r.Context(), resp.ID, m, actor.UserID, app.Now())
		if err != nil {
			httpx.WriteError(w, r, "moderate.db.update", err)
			return
		}
		if in.Status != nil && *in.Status != resp.Status {
			app.Notifier.ResponseReviewed(r.Context(), form, updated)
		}

		render.JSON(w, r, map[string]any{
			"message":  "Response updated successfully",
			"response": updated,
		})
	}
}

func DeleteResponse(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, _, err := ownedResponse(r.Context(), app, chi.URLParam(r, "id"))
		if err != nil {
			httpx.WriteError(w, r, "delete_response", err)
			return
		}

		if err := app.Withdraw(r.Context(), resp); err != nil {
			httpx.WriteError(w, r, "delete_response.db.withdraw", err)
			return
		}
		render.JSON(w, r, map[string]any{"message": "Response deleted successfully"})
	}
}

// ExportResponses streams every response of a form, newest first, as CSV
// (the default) or JSON.
func ExportResponses(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		form, err := ownedForm(r.Context(), app, chi.URLParam(r, "formId"))
		if err != nil {
			httpx.WriteError(w, r, "export", err)
			return
		}
		q := exportQuery{Format: r.URL.Query().Get("format")}
		if q.Format == "" {
			q.Format = "csv"
		}
		if err := httpx.Validate(q); err != nil {
			httpx.WriteError(w, r, "export.query", err)
			return
		}

		responses, err := app.Responses.All(r.Context(), database.ResponseFilter{FormID: form.ID})
		if err != nil {
			httpx.LogInternalError(w, r, "export.db.responses", err)
			return
		}

		if q.Format == "json" {
			render.JSON(w, r, map[string]any{"responses": responses})
			return
		}

		filename := fmt.Sprintf("responses-%s-%d.csv", form.Title, app.Now().UnixMilli())
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
		w.WriteHeader(http.StatusOK)

		out := csv.NewWriter(w)
		if err := writeCSV(out, responses); err != nil {
			log.Errorf("export.write_csv: %s", err)
		}
	}
}

func writeCSV(out *csv.Writer, responses []model.Response) error {
	if err := out.Write(exportHeader); err != nil {
		return err
	}
	for _, resp := range responses {
		submitter := "Anonymous"
		if resp.SubmittedBy != nil {
			submitter = resp.SubmittedBy.Name
		}
		err := out.Write([]string{
			resp.ID,
			submitter,
			resp.CreatedAt.UTC().Format(time.RFC3339),
			string(resp.Status),
			string(resp.Sentiment),
			string(resp.Priority),
		})
		if err != nil {
			return err
		}
	}
	out.Flush()
	return out.Error()
}

// AnalyticsOverview aggregates the responses to every form of the caller,
// optionally bounded by startDate and endDate.
func AnalyticsOverview(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		from, err := httpx.QueryDate(r, "startDate", false)
		if err != nil {
			httpx.WriteError(w, r, "overview.start_date", err)
			return
		}
		to, err := httpx.QueryDate(r, "endDate", true)
		if err != nil {
			httpx.WriteError(w, r, "overview.end_date", err)
			return
		}

		responses, err := app.Responses.All(r.Context(), database.ResponseFilter{
			Owner: middlewares.ActorFromContext(r.Context()).UserID,
			From:  from,
			To:    to,
		})
		if err != nil {
			httpx.LogInternalError(w, r, "overview.db.responses", err)
			return
		}
		render.JSON(w, r, feedback.Aggregate(responses, nil, app.Now()))
	}
}
