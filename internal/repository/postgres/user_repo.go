package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/and161185/talentgate/internal/errs"
	"github.com/and161185/talentgate/internal/model"
)

// UserRepo implements UserRepository using PostgreSQL.
type UserRepo struct{ db *DB }

// NewUserRepo constructs a user repository.
func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

const userColumns = `id, first_name, last_name, email, password, is_admin, is_active, last_login_at, created_at, updated_at`

// Create inserts a new user row.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	const q = `
INSERT INTO users (first_name, last_name, email, password, is_admin, is_active)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, created_at, updated_at`
	err := r.db.Pool.QueryRow(ctx, q, u.FirstName, u.LastName, u.Email, u.PasswordHash, u.IsAdmin, u.IsActive).
		Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// GetByID selects a user by ID.
func (r *UserRepo) GetByID(ctx context.Context, id int64) (*model.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	return scanUser(r.db.Pool.QueryRow(ctx, q, id))
}

// GetByEmail selects a user by email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE email=$1`
	return scanUser(r.db.Pool.QueryRow(ctx, q, email))
}

// UpdateLogin stores the last login time.
func (r *UserRepo) UpdateLogin(ctx context.Context, id int64, at time.Time) error {
	const q = `UPDATE users SET last_login_at=$2, updated_at=$2 WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// SetActive updates the active flag.
func (r *UserRepo) SetActive(ctx context.Context, id int64, active bool) error {
	const q = `UPDATE users SET is_active=$2, updated_at=now() WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// DeleteByEmail removes the user row.
func (r *UserRepo) DeleteByEmail(ctx context.Context, email string) (*model.User, error) {
	const q = `DELETE FROM users WHERE email=$1 RETURNING ` + userColumns
	return scanUser(r.db.Pool.QueryRow(ctx, q, email))
}

func scanUser(row interface{ Scan(dest ...any) error }) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash,
		&u.IsAdmin, &u.IsActive, &u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}
