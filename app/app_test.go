package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbolis/quick-feedback/config"
	"github.com/mbolis/quick-feedback/database"
	"github.com/mbolis/quick-feedback/feedback"
	"github.com/mbolis/quick-feedback/model"
)

func newApp(t *testing.T) App {
	t.Helper()
	cfg := config.Config{
		Database: config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "app.sqlite"), MaxOpenConns: 2, MaxIdleConns: 2},
		Auth: config.AuthConfig{
			TokenSecret:   "secret",
			TokenTTL:      time.Hour,
			RefreshTTL:    time.Hour,
			IdentityCache: 8,
			IdentityTTL:   time.Hour,
		},
		Notifications: config.NotificationsConfig{TTL: time.Hour, SweepInterval: time.Hour},
	}
	db, err := database.Open(cfg.Database)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db, cfg)
}

func TestResolveUser_Caches(t *testing.T) {
	a := newApp(t)
	ctx := context.Background()

	user := &model.User{ID: "u1", Name: "Ann", Email: "ann@example.com", PasswordHash: []byte("x"), CreatedAt: a.Now()}
	require.NoError(t, a.Users.Create(ctx, user))

	got, err := a.ResolveUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, model.RoleUser, got.Role)

	require.NoError(t, a.Users.SetRole(ctx, "u1", model.RoleAdmin))
	got, err = a.ResolveUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, model.RoleUser, got.Role, "served from the cache until it expires")

	a.Identities.Remove("u1")
	got, err = a.ResolveUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, got.Role)

	_, err = a.ResolveUser(ctx, "ghost")
	assert.ErrorIs(t, err, feedback.ErrNotFound)
}

func TestResolveUser_RoleChangeVisibleAfterTTL(t *testing.T) {
	a := newApp(t)
	a.Identities = expirable.NewLRU[string, *model.User](8, nil, 50*time.Millisecond)
	ctx := context.Background()

	user := &model.User{ID: "u1", Name: "Ann", Email: "ann@example.com", PasswordHash: []byte("x"), CreatedAt: a.Now()}
	require.NoError(t, a.Users.Create(ctx, user))
	_, err := a.ResolveUser(ctx, "u1")
	require.NoError(t, err)

	require.NoError(t, a.Users.SetRole(ctx, "u1", model.RoleAdmin))
	got, err := a.ResolveUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, model.RoleUser, got.Role)

	assert.Eventually(t, func() bool {
		got, err := a.ResolveUser(ctx, "u1")
		return err == nil && got.Role == model.RoleAdmin
	}, time.Second, 10*time.Millisecond)
}

func TestJanitor_SweepsExpiredNotifications(t *testing.T) {
	a := newApp(t)
	ctx := context.Background()

	past := a.Now().Add(-time.Minute)
	require.NoError(t, a.Notifications.Create(ctx, &model.Notification{
		ID: "n1", Recipient: "u1", Type: model.NotificationReminder, Title: "t", Message: "m",
		ExpiresAt: &past, CreatedAt: past, UpdatedAt: past,
	}))

	deleted := a.Janitor().Sweep(ctx)
	assert.Equal(t, int64(1), deleted["notifications"])
	_, err := a.Notifications.Get(ctx, "n1")
	assert.ErrorIs(t, err, feedback.ErrNotFound)
}
