package database

import (
	"context"
	"database/sql"

	"github.com/mbolis/quick-feedback/model"
)

// Store groups the repositories sharing one connection pool.
type Store struct {
	db *sql.DB

	Users         *Users
	Tokens        *Tokens
	Forms         *Forms
	Responses     *Responses
	Notifications *Notifications
}

func NewStore(db *sql.DB) *Store {
	s := bind(db)
	s.db = db
	return s
}

func bind(q querier) *Store {
	return &Store{
		Users:         &Users{q},
		Tokens:        &Tokens{q},
		Forms:         &Forms{q},
		Responses:     &Responses{q},
		Notifications: &Notifications{q},
	}
}

// InTx runs fn against repositories bound to a single transaction, which is
// committed when fn returns nil and rolled back otherwise.
// The store handed to fn cannot start transactions of its own.
func (s *Store) InTx(ctx context.Context, fn func(tx *Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err = fn(bind(tx)); err != nil {
		return err
	}
	return tx.Commit()
}

// Submit stores resp and counts it on its form atomically.
// When the form is already full nothing is stored and feedback.ErrResponseLimitReached is returned.
func (s *Store) Submit(ctx context.Context, resp *model.Response) error {
	return s.InTx(ctx, func(tx *Store) error {
		if err := tx.Responses.Create(ctx, resp); err != nil {
			return err
		}
		return tx.Forms.RecordResponse(ctx, resp.FormID, resp.CreatedAt, resp.SubmissionTime.Duration)
	})
}

// Withdraw deletes resp and takes it off its form's counters atomically.
func (s *Store) Withdraw(ctx context.Context, resp *model.Response) error {
	return s.InTx(ctx, func(tx *Store) error {
		if err := tx.Responses.Delete(ctx, resp.ID); err != nil {
			return err
		}
		return tx.Forms.ForgetResponse(ctx, resp.FormID, resp.SubmissionTime.Duration)
	})
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}
