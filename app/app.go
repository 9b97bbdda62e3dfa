package app

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-chi/oauth"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/mbolis/quick-feedback/config"
	"github.com/mbolis/quick-feedback/database"
	"github.com/mbolis/quick-feedback/httpx"
	"github.com/mbolis/quick-feedback/model"
	"github.com/mbolis/quick-feedback/notify"
)

// App is handed to every controller.
type App struct {
	*database.Store
	*oauth.BearerServer
	Config   config.Config
	Notifier *notify.Notifier
	// Identities caches users resolved from bearer tokens.
	Identities *expirable.LRU[string, *model.User]
	Now        func() time.Time
}

func New(db *sql.DB, cfg config.Config) App {
	store := database.NewStore(db)
	now := func() time.Time { return time.Now().UTC() }
	return App{
		Store:        store,
		BearerServer: httpx.NewBearerServer(store, cfg.Auth),
		Config:       cfg,
		Notifier:     notify.NewNotifier(store.Notifications, cfg.Notifications.TTL, now),
		Identities:   expirable.NewLRU[string, *model.User](cfg.Auth.IdentityCache, nil, cfg.Auth.IdentityTTL),
		Now:          now,
	}
}

// ResolveUser loads the account behind a token, through the identity cache.
// A cached account is served until its entry expires, so a role change or a
// deletion takes effect within Config.Auth.IdentityTTL.
func (a App) ResolveUser(ctx context.Context, id string) (*model.User, error) {
	if user, ok := a.Identities.Get(id); ok {
		return user, nil
	}
	user, err := a.Users.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	a.Identities.Add(id, user)
	return user, nil
}

// Janitor sweeps the expiring tables on the configured interval.
func (a App) Janitor() *notify.Janitor {
	return notify.NewJanitor(a.Config.Notifications.SweepInterval, a.Now, map[string]notify.Expirer{
		"notifications": a.Notifications,
		"tokens":        a.Tokens,
	})
}
