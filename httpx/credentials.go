package httpx

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/oauth"
	"golang.org/x/crypto/bcrypt"

	"github.com/mbolis/quick-feedback/config"
	"github.com/mbolis/quick-feedback/database"
)

// Claims carried by every bearer token.
const (
	ClaimUserID = "uid"
	ClaimRole   = "role"
)

var ErrBadCredentials = errors.New("invalid email or password")

type credentialsVerifier struct {
	store      *database.Store
	refreshTTL time.Duration
	now        func() time.Time
}

func CredentialsVerifier(store *database.Store, cfg config.AuthConfig) oauth.CredentialsVerifier {
	return &credentialsVerifier{store, cfg.RefreshTTL, time.Now}
}

func NewBearerServer(store *database.Store, cfg config.AuthConfig) *oauth.BearerServer {
	return oauth.NewBearerServer(cfg.TokenSecret, cfg.TokenTTL, CredentialsVerifier(store, cfg), nil)
}

// The username of the password grant is the account's email.
func (cs *credentialsVerifier) ValidateUser(username string, password string, scope string, r *http.Request) error {
	user, err := cs.store.Users.GetByEmail(r.Context(), username)
	if err != nil {
		return ErrBadCredentials
	}

	if bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)) != nil {
		return ErrBadCredentials
	}
	return nil
}
func (cs *credentialsVerifier) StoreTokenID(tokenType oauth.TokenType, credential string, tokenID string, refreshTokenID string) error {
	return cs.store.Tokens.Store(context.Background(), credential, tokenID, refreshTokenID, cs.now().Add(cs.refreshTTL))
}
func (cs *credentialsVerifier) ValidateTokenID(tokenType oauth.TokenType, credential string, tokenID string, refreshTokenID string) error {
	return cs.store.Tokens.Redeem(context.Background(), credential, tokenID, refreshTokenID, cs.now())
}

// AddClaims runs on every grant, so a refreshed token picks up role changes.
func (cs *credentialsVerifier) AddClaims(tokenType oauth.TokenType, credential string, tokenID string, scope string, r *http.Request) (map[string]string, error) {
	user, err := cs.store.Users.GetByEmail(r.Context(), credential)
	if err != nil {
		return nil, err
	}
	return map[string]string{ClaimUserID: user.ID, ClaimRole: string(user.Role)}, nil
}
func (*credentialsVerifier) AddProperties(tokenType oauth.TokenType, credential string, tokenID string, scope string, r *http.Request) (map[string]string, error) {
	return map[string]string{}, nil
}
func (*credentialsVerifier) ValidateClient(clientID string, clientSecret string, scope string, r *http.Request) error {
	return errors.New("not supported")
}
