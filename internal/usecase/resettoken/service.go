// Package resettoken implements the ledger of single-use, time-bounded
// opaque tokens backing the password-reset flow.
package resettoken

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	domain "github.com/Jatyon/bid-battle/internal/domain/auth"

	"github.com/google/uuid"
)

// tokenBytes is the entropy of the opaque token string. 32 bytes gives
// 256 bits, hex-encoded to 64 characters.
const tokenBytes = 32

// Service issues, verifies, consumes, and garbage-collects reset tokens.
type Service struct {
	repo    domain.ResetTokenRepository
	nowFunc func() time.Time
}

// NewService constructs a ledger around the provided repository.
func NewService(repo domain.ResetTokenRepository) *Service {
	return &Service{
		repo:    repo,
		nowFunc: time.Now,
	}
}

// Issue generates a cryptographically random opaque token and persists it
// with the given purpose and time to live.
func (s *Service) Issue(ctx context.Context, userID int64, purpose domain.TokenPurpose, ttl time.Duration) (*domain.ResetToken, error) {
	raw := make([]byte, tokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return nil, err
	}

	now := s.nowFunc().UTC()
	record := &domain.ResetToken{
		ID:        uuid.New(),
		Token:     hex.EncodeToString(raw),
		Purpose:   purpose,
		UserID:    userID,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}

	if err := s.repo.Create(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// Verify looks up an unused token by exact string and purpose. Unknown and
// already-used tokens both fail with ErrResetTokenInvalid; a matching but
// expired token fails with ErrResetTokenExpired.
func (s *Service) Verify(ctx context.Context, token string, purpose domain.TokenPurpose) (*domain.ResetToken, error) {
	record, err := s.repo.GetActive(ctx, token, purpose)
	if err != nil {
		return nil, err
	}
	if !record.ExpiresAt.After(s.nowFunc()) {
		return nil, domain.ErrResetTokenExpired
	}
	return record, nil
}

// Consume marks the token as used. The used flag only ever moves false→true;
// Verify filters on unused rows, so a second consume is unreachable through
// the public flow.
func (s *Service) Consume(ctx context.Context, token *domain.ResetToken) error {
	usedAt := s.nowFunc().UTC()
	if err := s.repo.MarkUsed(ctx, token.ID, usedAt); err != nil {
		return err
	}
	token.Used = true
	token.UsedAt = &usedAt
	return nil
}

// InvalidateByPurpose deletes every token for a user and purpose, so at most
// one live reset token per user exists after the next Issue.
func (s *Service) InvalidateByPurpose(ctx context.Context, userID int64, purpose domain.TokenPurpose) error {
	return s.repo.DeleteByUserAndPurpose(ctx, userID, purpose)
}

// DeleteExpired removes all expired tokens regardless of used state and
// returns how many were removed.
func (s *Service) DeleteExpired(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpired(ctx, s.nowFunc().UTC())
}
