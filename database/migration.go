package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/mbolis/quick-feedback/log"
)

//go:embed migrations
var schema embed.FS

// migrateLog routes the migrator's progress lines to the DEBUG log.
type migrateLog struct{}

func (migrateLog) Printf(format string, v ...any) {
	log.Debugf("database.migrate: "+strings.TrimSuffix(format, "\n"), v...)
}
func (migrateLog) Verbose() bool { return false }

// migrateDB applies every pending schema migration and reports the resulting version.
// A database left dirty by a failed migration is refused rather than repaired.
func migrateDB(db *sql.DB) (uint, error) {
	src, err := iofs.New(schema, "migrations")
	if err != nil {
		return 0, fmt.Errorf("source: %w", err)
	}
	dst, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return 0, fmt.Errorf("driver: %w", err)
	}
	migrator, err := migrate.NewWithInstance("iofs", src, "sqlite3", dst)
	if err != nil {
		return 0, err
	}
	migrator.Log = migrateLog{}

	err = migrator.Up()
	var dirty migrate.ErrDirty
	switch {
	case errors.As(err, &dirty):
		return 0, fmt.Errorf("schema version %d is dirty, fix it by hand before restarting", dirty.Version)
	case err != nil && !errors.Is(err, migrate.ErrNoChange):
		return 0, err
	}

	version, _, err := migrator.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, nil
	}
	return version, err
}
