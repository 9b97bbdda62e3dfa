package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/mbolis/quick-feedback/app"
	"github.com/mbolis/quick-feedback/config"
	"github.com/mbolis/quick-feedback/database"
	"github.com/mbolis/quick-feedback/log"
	"github.com/mbolis/quick-feedback/model"
	"github.com/mbolis/quick-feedback/routes"
)

func main() {
	cfg, err := config.ParseFlags(os.Args[0], os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatalf("main.config: %s", err)
	}

	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		log.Fatalf("main.log_level: %s", err)
	}
	log.SetLevel(level)
	log.SetFormat(cfg.Log.Format)

	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatalf("main.db.open: %s", err)
	}
	defer db.Close()

	if cfg.Promote != "" {
		if err := promote(db, cfg.Promote); err != nil {
			log.Fatalf("main.promote: %s", err)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, app.New(db, cfg)); err != nil {
		log.Errorf("main.run: %s", err)
		os.Exit(1)
	}
}

// promote grants the admin role out of band; there is no API for it.
func promote(db *sql.DB, email string) error {
	ctx := context.Background()
	store := database.NewStore(db)
	user, err := store.Users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if err := store.Users.SetRole(ctx, user.ID, model.RoleAdmin); err != nil {
		return err
	}
	log.WithFields(log.Fields{"user": user.ID, "email": user.Email}).Info("promoted to admin")
	return nil
}

// run serves HTTP and sweeps expired records until ctx is cancelled or either fails.
func run(ctx context.Context, app app.App) error {
	cfg := app.Config
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      routes.Wire(app),
		IdleTimeout:  cfg.Server.IdleTimeout,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Listening on " + cfg.Url())
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return app.Janitor().Run(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
