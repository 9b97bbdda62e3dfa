package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mbolis/quick-feedback/app"
	"github.com/mbolis/quick-feedback/httpx"
	"github.com/mbolis/quick-feedback/routes/middlewares"
)

func Wire(app app.App) http.Handler {
	root := chi.NewRouter()
	root.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	root.Use(middlewares.Metrics, middlewares.RequestLogger)

	root.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.LogNotFound(w, r, "route", r.URL.Path)
	})
	root.Get("/health", Health(app))
	root.Handle("/metrics", promhttp.Handler())

	root.Mount("/api", apiRouter(app))

	return root
}

func apiRouter(app app.App) http.Handler {
	api := chi.NewRouter()
	authenticated := middlewares.Authenticate(app)

	api.Route("/auth", func(r chi.Router) {
		r.Post("/signup", Signup(app))
		r.Post("/login", Login(app))
		r.Post("/refresh", Refresh(app))
		r.With(authenticated).Get("/me", Me(app))
	})

	api.Route("/forms", func(r chi.Router) {
		r.Get("/public/{id}", GetPublicForm(app))

		r.Group(func(r chi.Router) {
			r.Use(authenticated)

			r.Post("/", CreateForm(app))
			r.Get("/", ListForms(app))
			r.Get("/{id}", GetForm(app))
			r.Put("/{id}", UpdateForm(app))
			r.Delete("/{id}", DeleteForm(app))
			r.Get("/{id}/analytics", FormAnalytics(app))
			r.Post("/{id}/duplicate", DuplicateForm(app))
		})
	})

	api.Route("/responses", func(r chi.Router) {
		r.With(middlewares.RateLimit(app.Config.RateLimit), middlewares.OptionalAuth(app)).
			Post("/", SubmitResponse(app))

		r.Group(func(r chi.Router) {
			r.Use(authenticated)

			r.Get("/analytics/overview", AnalyticsOverview(app))
			r.Get("/form/{formId}", ListFormResponses(app))
			r.Get("/form/{formId}/export", ExportResponses(app))
			r.Get("/{id}", GetResponse(app))
			r.Patch("/{id}/status", ModerateResponse(app))
			r.Delete("/{id}", DeleteResponse(app))
		})
	})

	api.Route("/notifications", func(r chi.Router) {
		r.Use(authenticated)

		r.Get("/", ListNotifications(app))
		r.Get("/unread-count", UnreadCount(app))
		r.Patch("/read-all", MarkAllNotificationsRead(app))
		r.Patch("/{id}/read", MarkNotificationRead(app))
		r.Delete("/{id}", DeleteNotification(app))
	})

	return api
}

func Health(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := app.Ping(r.Context()); err != nil {
			httpx.LogInternalError(w, r, "health.db.ping", err)
			return
		}
		render.JSON(w, r, map[string]any{"status": "ok"})
	}
}
