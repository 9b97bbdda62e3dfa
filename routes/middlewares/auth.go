package middlewares

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/oauth"

	"github.com/mbolis/quick-feedback/app"
	"github.com/mbolis/quick-feedback/feedback"
	"github.com/mbolis/quick-feedback/httpx"
)

type actorKey struct{}

func WithActor(ctx context.Context, actor *feedback.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the authenticated caller, or nil for anonymous requests.
func ActorFromContext(ctx context.Context) *feedback.Actor {
	actor, _ := ctx.Value(actorKey{}).(*feedback.Actor)
	return actor
}

// Authenticate requires a valid bearer token whose account still exists.
func Authenticate(app app.App) func(http.Handler) http.Handler {
	authorize := oauth.Authorize(app.Config.Auth.TokenSecret, nil)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, err := authenticate(app, authorize, r)
			if err != nil {
				httpx.WriteError(w, r, "auth.authenticate", err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

// OptionalAuth authenticates requests that carry an Authorization header and
// lets the others through anonymously. A bad token is still rejected.
func OptionalAuth(app app.App) func(http.Handler) http.Handler {
	required := Authenticate(app)
	return func(next http.Handler) http.Handler {
		authed := required(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") == "" {
				next.ServeHTTP(w, r)
				return
			}
			authed.ServeHTTP(w, r)
		})
	}
}

// authenticate runs the oauth middleware against a buffer: its own 401 body
// never reaches the client, only the claims it puts in the context are kept.
func authenticate(app app.App, authorize func(http.Handler) http.Handler, r *http.Request) (*feedback.Actor, error) {
	var (
		claims map[string]string
		ok     bool
	)
	authorize(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		claims, ok = r.Context().Value(oauth.ClaimsContext).(map[string]string)
	})).ServeHTTP(httpx.NewResponseBuffer(), r)
	if !ok || claims[httpx.ClaimUserID] == "" {
		return nil, fmt.Errorf("%w: missing or invalid bearer token", feedback.ErrUnauthorized)
	}

	user, err := app.ResolveUser(r.Context(), claims[httpx.ClaimUserID])
	if errors.Is(err, feedback.ErrNotFound) {
		return nil, fmt.Errorf("%w: account no longer exists", feedback.ErrUnauthorized)
	}
	if err != nil {
		return nil, err
	}

	return &feedback.Actor{UserID: user.ID, Role: user.Role, Name: user.Name, Email: user.Email}, nil
}
