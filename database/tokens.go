package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
)

var ErrTokenRevoked = errors.New("refresh token unknown or expired")

// Tokens records issued refresh credentials so that each can be redeemed once.
type Tokens struct {
	q querier
}

func (r *Tokens) Store(ctx context.Context, credential, tokenID, refreshTokenID string, expiration time.Time) error {
	_, err := exec(ctx, r.q, psql.
		Insert("token").
		Columns("username", "token_id", "refresh_token_id", "expiration").
		Values(credential, tokenID, refreshTokenID, expiration.UTC()))
	return err
}

// Redeem deletes the token record and fails if it was missing or already expired.
func (r *Tokens) Redeem(ctx context.Context, credential, tokenID, refreshTokenID string, now time.Time) error {
	var expiration time.Time
	err := r.q.QueryRowContext(ctx, `
		DELETE FROM token
		WHERE username = ?
			AND token_id = ?
			AND refresh_token_id = ?
		RETURNING expiration`,
		credential,
		tokenID,
		refreshTokenID,
	).Scan(&expiration)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrTokenRevoked
	}
	if err != nil {
		return err
	}

	if expiration.Before(now) {
		return ErrTokenRevoked
	}
	return nil
}

func (r *Tokens) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := exec(ctx, r.q, psql.Delete("token").Where(sq.Lt{"expiration": now.UTC()}))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
