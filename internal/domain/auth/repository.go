package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UserRepository defines persistence operations for credential records.
// Lookups exclude soft-deleted rows and return ErrUserNotFound when absent.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	// GetWithPasswordByEmail also loads the normally-hidden password hash.
	GetWithPasswordByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
	UpdateLastLogin(ctx context.Context, id int64, at time.Time) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string, updatedAt time.Time) error
}

// ResetTokenRepository defines persistence operations for single-use tokens.
type ResetTokenRepository interface {
	Create(ctx context.Context, token *ResetToken) error
	// GetActive looks up by exact token string and purpose among unused rows.
	// Returns ErrResetTokenInvalid when no row matches.
	GetActive(ctx context.Context, token string, purpose TokenPurpose) (*ResetToken, error)
	MarkUsed(ctx context.Context, id uuid.UUID, usedAt time.Time) error
	DeleteByUserAndPurpose(ctx context.Context, userID int64, purpose TokenPurpose) error
	// DeleteExpired removes every token past the given instant, used or not,
	// and reports how many rows were removed.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
