// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"
	"time"

	"github.com/and161185/talentgate/internal/model"
)

// UserRepository is the system of record for accounts.
type UserRepository interface {
	// Create inserts a new user and fills ID and timestamps.
	// A duplicate email yields errs.ErrAlreadyExists.
	Create(ctx context.Context, u *model.User) error
	// GetByID loads a user by ID.
	GetByID(ctx context.Context, id int64) (*model.User, error)
	// GetByEmail loads a user by exact email.
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// UpdateLogin persists the last-authenticated timestamp.
	UpdateLogin(ctx context.Context, id int64, at time.Time) error
	// SetActive flips the active flag.
	SetActive(ctx context.Context, id int64, active bool) error
	// DeleteByEmail physically removes a user and returns the removed row.
	DeleteByEmail(ctx context.Context, email string) (*model.User, error)
}
