package postgres

import (
	"context"
	"errors"
	"time"

	domain "github.com/Jatyon/bid-battle/internal/domain/auth"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ResetTokenRepository persists single-use tokens in PostgreSQL.
type ResetTokenRepository struct {
	pool *pgxpool.Pool
}

// NewResetTokenRepository constructs a repository.
func NewResetTokenRepository(pool *pgxpool.Pool) *ResetTokenRepository {
	return &ResetTokenRepository{pool: pool}
}

// Create inserts a new token record.
func (r *ResetTokenRepository) Create(ctx context.Context, token *domain.ResetToken) error {
	const query = `
INSERT INTO user_tokens (id, token, purpose, user_id, expires_at, is_used, created_at)
VALUES ($1, $2, $3, $4, $5, FALSE, $6)
`
	_, err := r.pool.Exec(ctx, query,
		token.ID,
		token.Token,
		token.Purpose,
		token.UserID,
		token.ExpiresAt,
		token.CreatedAt,
	)
	return err
}

// GetActive fetches an unused token by exact string and purpose. Missing and
// already-used rows are both reported as ErrResetTokenInvalid.
func (r *ResetTokenRepository) GetActive(ctx context.Context, token string, purpose domain.TokenPurpose) (*domain.ResetToken, error) {
	const query = `
SELECT id, token, purpose, user_id, expires_at, is_used, used_at, created_at
FROM user_tokens
WHERE token = $1 AND purpose = $2 AND is_used = FALSE
`
	row := r.pool.QueryRow(ctx, query, token, purpose)
	record, err := scanResetToken(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrResetTokenInvalid
		}
		return nil, err
	}
	return record, nil
}

// MarkUsed flips the used flag. The flag is monotonic: rows are never reset
// back to unused.
func (r *ResetTokenRepository) MarkUsed(ctx context.Context, id uuid.UUID, usedAt time.Time) error {
	const query = `
UPDATE user_tokens SET is_used = TRUE, used_at = $2
WHERE id = $1
`
	ct, err := r.pool.Exec(ctx, query, id, usedAt)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrResetTokenInvalid
	}
	return nil
}

// DeleteByUserAndPurpose removes every token for a user+purpose combination.
func (r *ResetTokenRepository) DeleteByUserAndPurpose(ctx context.Context, userID int64, purpose domain.TokenPurpose) error {
	const query = `DELETE FROM user_tokens WHERE user_id = $1 AND purpose = $2`
	_, err := r.pool.Exec(ctx, query, userID, purpose)
	return err
}

// DeleteExpired removes all tokens past the given instant, used or not.
func (r *ResetTokenRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	const query = `DELETE FROM user_tokens WHERE expires_at < $1`
	ct, err := r.pool.Exec(ctx, query, before)
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}

func scanResetToken(row pgx.Row) (*domain.ResetToken, error) {
	var t domain.ResetToken
	err := row.Scan(
		&t.ID,
		&t.Token,
		&t.Purpose,
		&t.UserID,
		&t.ExpiresAt,
		&t.Used,
		&t.UsedAt,
		&t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
