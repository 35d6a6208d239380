package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var (
	ErrNotFound      = errors.New("user not found")
	ErrAlreadyExists = errors.New("a user with this email already exists")
)

const uniqueViolation = "23505"

func Create(ctx context.Context, e sqlx.ExtContext, usr User) error {
	const q = `
	INSERT INTO users
		(user_id, name, email, password_hash, avatar_url, role, auth_provider, interests, created_at, updated_at)
	VALUES
		(:user_id, :name, :email, :password_hash, :avatar_url, :role, :auth_provider, :interests, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctx, e, q, usr); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return ErrAlreadyExists
		}
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}

func Fetch(ctx context.Context, e sqlx.ExtContext, id string) (User, error) {
	const q = `SELECT * FROM users WHERE user_id = $1`

	var usr User
	if err := sqlx.GetContext(ctx, e, &usr, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("selecting user: %w", err)
	}
	return usr, nil
}

func FetchByEmail(ctx context.Context, e sqlx.ExtContext, email string) (User, error) {
	const q = `SELECT * FROM users WHERE email = $1`

	var usr User
	if err := sqlx.GetContext(ctx, e, &usr, q, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("selecting user by email: %w", err)
	}
	return usr, nil
}

func UpdateProfile(ctx context.Context, e sqlx.ExtContext, id string, up ProfileUp) error {
	const q = `
	UPDATE users SET
		name       = COALESCE($2, name),
		avatar_url = COALESCE($3, avatar_url),
		interests  = COALESCE($4, interests),
		updated_at = now()
	WHERE user_id = $1`

	var interests any
	if up.Interests != nil {
		interests = pq.StringArray(up.Interests)
	}

	if _, err := e.ExecContext(ctx, q, id, up.Name, up.AvatarURL, interests); err != nil {
		return fmt.Errorf("updating profile: %w", err)
	}
	return nil
}

func UpdateRole(ctx context.Context, e sqlx.ExtContext, id string, role string) error {
	const q = `UPDATE users SET role = $2, updated_at = now() WHERE user_id = $1`

	if _, err := e.ExecContext(ctx, q, id, role); err != nil {
		return fmt.Errorf("updating role: %w", err)
	}
	return nil
}
