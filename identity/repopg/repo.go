// Package repopg is the Postgres-backed user repository.
package repopg

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/draftstudio/auth-gateway/identity"
	"github.com/draftstudio/auth-gateway/internal/db"
	"github.com/draftstudio/auth-gateway/internal/utils"
)

var _ identity.Repo = (*UserRepo)(nil)

type UserRepo struct {
	handle *db.Handle
}

func NewUserRepo(handle *db.Handle) *UserRepo {
	return &UserRepo{handle: handle}
}

const upsertUserSQL = `
INSERT INTO users (id, email, first_name, last_name, display_name, avatar_url, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
ON CONFLICT (id) DO UPDATE SET
    email        = EXCLUDED.email,
    first_name   = EXCLUDED.first_name,
    last_name    = EXCLUDED.last_name,
    display_name = EXCLUDED.display_name,
    avatar_url   = EXCLUDED.avatar_url,
    updated_at   = EXCLUDED.updated_at
RETURNING id, email, first_name, last_name, display_name, avatar_url, created_at, updated_at`

func (r *UserRepo) Upsert(ctx context.Context, user *identity.User) (*identity.User, error) {
	pool, err := r.handle.Pool(ctx)
	if err != nil {
		return nil, err
	}

	row := pool.QueryRow(ctx, upsertUserSQL,
		user.ID, user.Email, user.FirstName, user.LastName,
		user.DisplayName, user.AvatarURL, time.Now())

	stored, err := scanUser(row)
	if err != nil {
		return nil, errors.Wrap(err, "[UserRepo.Upsert] scan")
	}
	return stored, nil
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*identity.User, error) {
	return r.getBy(ctx,
		`SELECT id, email, first_name, last_name, display_name, avatar_url, created_at, updated_at
		 FROM users WHERE id = $1`, id)
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*identity.User, error) {
	return r.getBy(ctx,
		`SELECT id, email, first_name, last_name, display_name, avatar_url, created_at, updated_at
		 FROM users WHERE email = $1`, email)
}

func (r *UserRepo) getBy(ctx context.Context, query string, arg any) (*identity.User, error) {
	pool, err := r.handle.Pool(ctx)
	if err != nil {
		return nil, err
	}

	user, err := scanUser(pool.QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "[UserRepo.getBy] scan")
	}
	return user, nil
}

func (r *UserRepo) Delete(ctx context.Context, id string) error {
	pool, err := r.handle.Pool(ctx)
	if err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "[UserRepo.Delete] exec")
	}
	return nil
}

func (r *UserRepo) List(ctx context.Context, offset, limit int) ([]*identity.User, error) {
	pool, err := r.handle.Pool(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := pool.Query(ctx,
		`SELECT id, email, first_name, last_name, display_name, avatar_url, created_at, updated_at
		 FROM users ORDER BY created_at OFFSET $1 LIMIT $2`, offset, limit)
	if err != nil {
		return nil, errors.Wrap(err, "[UserRepo.List] query")
	}
	defer rows.Close()

	var out []*identity.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, errors.Wrap(err, "[UserRepo.List] scan")
		}
		out = append(out, user)
	}
	return out, rows.Err()
}

func scanUser(row pgx.Row) (*identity.User, error) {
	var u identity.User
	var email, firstName, lastName, displayName, avatarURL *string
	err := row.Scan(&u.ID, &email, &firstName, &lastName,
		&displayName, &avatarURL, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.Email = utils.Value(email)
	u.FirstName = utils.Value(firstName)
	u.LastName = utils.Value(lastName)
	u.DisplayName = utils.Value(displayName)
	u.AvatarURL = utils.Value(avatarURL)
	return &u, nil
}
