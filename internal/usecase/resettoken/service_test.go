package resettoken

import (
	"context"
	"testing"
	"time"

	domain "github.com/Jatyon/bid-battle/internal/domain/auth"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memRepo struct {
	tokens map[uuid.UUID]*domain.ResetToken
}

func newMemRepo() *memRepo {
	return &memRepo{tokens: map[uuid.UUID]*domain.ResetToken{}}
}

func (m *memRepo) Create(_ context.Context, token *domain.ResetToken) error {
	cp := *token
	m.tokens[token.ID] = &cp
	return nil
}

func (m *memRepo) GetActive(_ context.Context, token string, purpose domain.TokenPurpose) (*domain.ResetToken, error) {
	for _, t := range m.tokens {
		if t.Token == token && t.Purpose == purpose && !t.Used {
			cp := *t
			return &cp, nil
		}
	}
	return nil, domain.ErrResetTokenInvalid
}

func (m *memRepo) MarkUsed(_ context.Context, id uuid.UUID, usedAt time.Time) error {
	t, ok := m.tokens[id]
	if !ok {
		return domain.ErrResetTokenInvalid
	}
	t.Used = true
	t.UsedAt = &usedAt
	return nil
}

func (m *memRepo) DeleteByUserAndPurpose(_ context.Context, userID int64, purpose domain.TokenPurpose) error {
	for id, t := range m.tokens {
		if t.UserID == userID && t.Purpose == purpose {
			delete(m.tokens, id)
		}
	}
	return nil
}

func (m *memRepo) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	var count int64
	for id, t := range m.tokens {
		if t.ExpiresAt.Before(before) {
			delete(m.tokens, id)
			count++
		}
	}
	return count, nil
}

func TestIssueGeneratesOpaqueToken(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo)

	first, err := svc.Issue(context.Background(), 1, domain.PurposePasswordReset, 15*time.Minute)
	require.NoError(t, err)
	second, err := svc.Issue(context.Background(), 1, domain.PurposePasswordReset, 15*time.Minute)
	require.NoError(t, err)

	// 32 bytes hex-encoded.
	assert.Len(t, first.Token, 64)
	assert.NotEqual(t, first.Token, second.Token)
	assert.False(t, first.Used)
	assert.Nil(t, first.UsedAt)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), first.ExpiresAt, time.Minute)
}

func TestVerifyExpiryBoundary(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo)

	now := time.Now().UTC()
	svc.nowFunc = func() time.Time { return now }

	expired := &domain.ResetToken{
		ID: uuid.New(), Token: "expired-token", Purpose: domain.PurposePasswordReset,
		UserID: 1, ExpiresAt: now.Add(-time.Second),
	}
	live := &domain.ResetToken{
		ID: uuid.New(), Token: "live-token", Purpose: domain.PurposePasswordReset,
		UserID: 1, ExpiresAt: now.Add(time.Second),
	}
	require.NoError(t, repo.Create(context.Background(), expired))
	require.NoError(t, repo.Create(context.Background(), live))

	_, err := svc.Verify(context.Background(), "expired-token", domain.PurposePasswordReset)
	assert.ErrorIs(t, err, domain.ErrResetTokenExpired)

	record, err := svc.Verify(context.Background(), "live-token", domain.PurposePasswordReset)
	require.NoError(t, err)
	assert.Equal(t, int64(1), record.UserID)
}

func TestVerifyExactExpiryFails(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo)

	now := time.Now().UTC()
	svc.nowFunc = func() time.Time { return now }

	token := &domain.ResetToken{
		ID: uuid.New(), Token: "boundary-token", Purpose: domain.PurposePasswordReset,
		UserID: 1, ExpiresAt: now,
	}
	require.NoError(t, repo.Create(context.Background(), token))

	_, err := svc.Verify(context.Background(), "boundary-token", domain.PurposePasswordReset)
	assert.ErrorIs(t, err, domain.ErrResetTokenExpired)
}

func TestVerifyUnknownOrUsedIndistinguishable(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo)

	record, err := svc.Issue(context.Background(), 7, domain.PurposePasswordReset, time.Hour)
	require.NoError(t, err)
	require.NoError(t, svc.Consume(context.Background(), record))

	_, usedErr := svc.Verify(context.Background(), record.Token, domain.PurposePasswordReset)
	_, missingErr := svc.Verify(context.Background(), "no-such-token", domain.PurposePasswordReset)

	assert.ErrorIs(t, usedErr, domain.ErrResetTokenInvalid)
	assert.ErrorIs(t, missingErr, domain.ErrResetTokenInvalid)
	assert.Equal(t, usedErr, missingErr)
}

func TestConsumeIsTerminal(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo)

	record, err := svc.Issue(context.Background(), 7, domain.PurposePasswordReset, time.Hour)
	require.NoError(t, err)

	require.NoError(t, svc.Consume(context.Background(), record))
	assert.True(t, record.Used)
	require.NotNil(t, record.UsedAt)

	_, err = svc.Verify(context.Background(), record.Token, domain.PurposePasswordReset)
	assert.ErrorIs(t, err, domain.ErrResetTokenInvalid)
}

func TestInvalidateByPurposeRemovesPriorTokens(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo)

	first, err := svc.Issue(context.Background(), 3, domain.PurposePasswordReset, time.Hour)
	require.NoError(t, err)

	require.NoError(t, svc.InvalidateByPurpose(context.Background(), 3, domain.PurposePasswordReset))
	second, err := svc.Issue(context.Background(), 3, domain.PurposePasswordReset, time.Hour)
	require.NoError(t, err)

	_, err = svc.Verify(context.Background(), first.Token, domain.PurposePasswordReset)
	assert.ErrorIs(t, err, domain.ErrResetTokenInvalid)

	_, err = svc.Verify(context.Background(), second.Token, domain.PurposePasswordReset)
	assert.NoError(t, err)
}

func TestDeleteExpiredSweepsUsedAndUnused(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo)

	now := time.Now().UTC()
	past := now.Add(-time.Hour)

	used := &domain.ResetToken{ID: uuid.New(), Token: "a", Purpose: domain.PurposePasswordReset, UserID: 1, ExpiresAt: past, Used: true}
	unused := &domain.ResetToken{ID: uuid.New(), Token: "b", Purpose: domain.PurposePasswordReset, UserID: 2, ExpiresAt: past}
	live := &domain.ResetToken{ID: uuid.New(), Token: "c", Purpose: domain.PurposePasswordReset, UserID: 3, ExpiresAt: now.Add(time.Hour)}
	for _, tok := range []*domain.ResetToken{used, unused, live} {
		require.NoError(t, repo.Create(context.Background(), tok))
	}

	count, err := svc.DeleteExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	_, err = svc.Verify(context.Background(), "c", domain.PurposePasswordReset)
	assert.NoError(t, err)
}
