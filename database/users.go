package database

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/mbolis/quick-feedback/feedback"
	"github.com/mbolis/quick-feedback/model"
)

type Users struct {
	q querier
}

var userColumns = []string{"id", "name", "email", "password_hash", "role", "created_at"}

func scanUser(row scanner) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return &u, nil
}

// Create stores a new account. Emails are unique regardless of case.
func (r *Users) Create(ctx context.Context, u *model.User) error {
	if u.Role == "" {
		u.Role = model.RoleUser
	}
	_, err := exec(ctx, r.q, psql.
		Insert("user").
		Columns(userColumns...).
		Values(u.ID, u.Name, strings.TrimSpace(u.Email), u.PasswordHash, u.Role, u.CreatedAt.UTC()))
	if isUniqueViolation(err) {
		return fmt.Errorf("email %q already registered: %w", u.Email, feedback.ErrConflict)
	}
	return err
}

func (r *Users) Get(ctx context.Context, id string) (*model.User, error) {
	return r.getBy(ctx, sq.Eq{"id": id})
}

func (r *Users) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getBy(ctx, sq.Eq{"email": strings.TrimSpace(email)})
}

func (r *Users) getBy(ctx context.Context, where sq.Eq) (*model.User, error) {
	query, args, err := psql.Select(userColumns...).From("user").Where(where).ToSql()
	if err != nil {
		return nil, err
	}
	u, err := scanUser(r.q.QueryRowContext(ctx, query, args...))
	return u, notFound(err, "user")
}

func (r *Users) SetRole(ctx context.Context, id string, role model.Role) error {
	res, err := exec(ctx, r.q, psql.Update("user").Set("role", role).Where(sq.Eq{"id": id}))
	if err != nil {
		return err
	}
	return expectRow(res, "user")
}
