package routes

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-chi/render"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mbolis/quick-feedback/app"
	"github.com/mbolis/quick-feedback/feedback"
	"github.com/mbolis/quick-feedback/httpx"
	"github.com/mbolis/quick-feedback/log"
	"github.com/mbolis/quick-feedback/model"
	"github.com/mbolis/quick-feedback/routes/middlewares"
)

var reRefresh = regexp.MustCompile(`(?i)^refresh\s+(.*)`)

type signupRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func Signup(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in signupRequest
		if err := httpx.Decode(r, &in); err != nil {
			httpx.WriteError(w, r, "signup.decode", err)
			return
		}
		in.Name = strings.TrimSpace(in.Name)
		in.Email = strings.TrimSpace(in.Email)
		if minSize := app.Config.Auth.MinPasswordSize; len(in.Password) < minSize {
			httpx.WriteError(w, r, "signup.password", feedback.NewValidationError(feedback.ReasonInvalidField, "password",
				fmt.Sprintf("password must be at least %d characters long", minSize)))
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
		if err != nil {
			httpx.LogInternalError(w, r, "signup.hash_password", err)
			return
		}
		now := app.Now()
		user := &model.User{
			ID:           uuid.NewString(),
			Name:         in.Name,
			Email:        in.Email,
			Role:         model.RoleUser,
			PasswordHash: hash,
			CreatedAt:    now,
		}
		if err := app.Users.Create(r.Context(), user); err != nil {
			httpx.WriteError(w, r, "signup.db.create_user", err)
			return
		}
		log.WithFields(log.Fields{"user": user.ID}).Info("account created")

		resp, err := grant(app, r, url.Values{
			"grant_type": {"password"},
			"username":   {user.Email},
			"password":   {in.Password},
		})
		if err != nil {
			httpx.LogInternalError(w, r, "signup.grant", err)
			return
		}
		if resp.Status() != http.StatusOK {
			httpx.LogStatusMsg(w, r, http.StatusInternalServerError, log.ErrorLevel, "signup.grant",
				"token grant failed with status %d", resp.Status())
			return
		}
		writeToken(w, r, http.StatusCreated, resp, user)
	}
}

// Login accepts the credentials either as a JSON body or as HTTP basic auth.
func Login(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in loginRequest
		if user, pass, ok := r.BasicAuth(); ok {
			in = loginRequest{Email: user, Password: pass}
		} else if err := httpx.Decode(r, &in); err != nil {
			httpx.WriteError(w, r, "login.decode", err)
			return
		}

		resp, err := grant(app, r, url.Values{
			"grant_type": {"password"},
			"username":   {strings.TrimSpace(in.Email)},
			"password":   {in.Password},
		})
		if err != nil {
			httpx.LogInternalError(w, r, "login.grant", err)
			return
		}
		if resp.Status() != http.StatusOK {
			httpx.WriteError(w, r, "login.grant", fmt.Errorf("%w: %w", feedback.ErrUnauthorized, httpx.ErrBadCredentials))
			return
		}

		user, err := app.Users.GetByEmail(r.Context(), strings.TrimSpace(in.Email))
		if err != nil {
			httpx.WriteError(w, r, "login.db.get_user", err)
			return
		}
		writeToken(w, r, http.StatusOK, resp, user)
	}
}

// Refresh redeems the refresh token carried as "Authorization: Refresh <token>".
func Refresh(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		match := reRefresh.FindStringSubmatch(r.Header.Get("authorization"))
		if len(match) == 0 || strings.TrimSpace(match[1]) == "" {
			httpx.LogStatusMsg(w, r, http.StatusUnauthorized, log.DebugLevel, "refresh.token", "missing refresh token")
			return
		}

		resp, err := grant(app, r, url.Values{
			"grant_type":    {"refresh_token"},
			"refresh_token": {strings.TrimSpace(match[1])},
		})
		if err != nil {
			httpx.LogInternalError(w, r, "refresh.grant", err)
			return
		}
		if resp.Status() != http.StatusOK {
			httpx.LogStatusMsg(w, r, http.StatusUnauthorized, log.DebugLevel, "refresh.grant", "refresh token rejected")
			return
		}
		resp.Flush(w)
	}
}

func Me(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := middlewares.ActorFromContext(r.Context())
		user, err := app.Users.Get(r.Context(), actor.UserID)
		if err != nil {
			httpx.WriteError(w, r, "me.db.get_user", err)
			return
		}
		render.JSON(w, r, map[string]any{"user": user})
	}
}

// grant runs an OAuth grant against the bearer server with a form-encoded body,
// capturing its response.
func grant(app app.App, r *http.Request, body url.Values) (httpx.ResponseBuffer, error) {
	encoded := body.Encode()
	req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, "/", strings.NewReader(encoded))
	if err != nil {
		return nil, err
	}
	req.Header.Set("content-type", "application/x-www-form-urlencoded")
	req.Header.Set("content-length", strconv.Itoa(len(encoded)))

	resp := httpx.NewResponseBuffer()
	app.UserCredentials(resp, req)
	return resp, nil
}

// writeToken sends the token response of a grant with the account attached.
func writeToken(w http.ResponseWriter, r *http.Request, status int, resp httpx.ResponseBuffer, user *model.User) {
	token := map[string]any{}
	if err := json.Unmarshal(resp.Body(), &token); err != nil {
		httpx.LogInternalError(w, r, "auth.token.decode", err)
		return
	}
	token["user"] = user

	render.Status(r, status)
	render.JSON(w, r, token)
}
