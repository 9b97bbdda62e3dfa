package database

import (
	"database/sql"
	"fmt"
	"net/url"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mbolis/quick-feedback/config"
	"github.com/mbolis/quick-feedback/log"
)

// Open connects to the SQLite file named in cfg and brings its schema up to date.
func Open(cfg config.DatabaseConfig) (db *sql.DB, err error) {
	db, err = sql.Open("sqlite3", dsn(cfg.Path))
	if err != nil {
		return
	}

	// db tuning options
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database.ping: %w", err)
	}

	version, err := migrateDB(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("database.migrate: %w", err)
	}
	log.Infof("database: %s at schema version %d", cfg.Path, version)

	return
}

// Pragmas are set on the DSN so that every pooled connection gets them.
func dsn(path string) string {
	q := url.Values{}
	q.Set("_foreign_keys", "on")
	q.Set("_busy_timeout", "5000")
	q.Set("_journal_mode", "WAL")
	q.Set("_txlock", "immediate")
	return "file:" + path + "?" + q.Encode()
}
