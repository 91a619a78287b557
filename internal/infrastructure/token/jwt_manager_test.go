package token

import (
	"strings"
	"testing"
	"time"

	domain "github.com/Jatyon/bid-battle/internal/domain/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestGeneratePairAndValidate(t *testing.T) {
	m := NewJWTManager(testSecret, time.Hour, 24*time.Hour, "bid-battle")

	pair, err := m.GeneratePair(42, "a@x.com")
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)

	for _, raw := range []string{pair.AccessToken, pair.RefreshToken} {
		claims, err := m.Validate(raw)
		require.NoError(t, err)
		assert.Equal(t, int64(42), claims.UserID)
		assert.Equal(t, "a@x.com", claims.Email)
	}
}

func TestValidateExpiredToken(t *testing.T) {
	m := NewJWTManager(testSecret, -time.Minute, -time.Minute, "bid-battle")

	pair, err := m.GeneratePair(42, "a@x.com")
	require.NoError(t, err)

	_, err = m.Validate(pair.AccessToken)
	assert.ErrorIs(t, err, domain.ErrTokenExpired)
}

func TestValidateTamperedToken(t *testing.T) {
	m := NewJWTManager(testSecret, time.Hour, 24*time.Hour, "bid-battle")

	pair, err := m.GeneratePair(42, "a@x.com")
	require.NoError(t, err)

	parts := strings.Split(pair.AccessToken, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + "." + parts[1] + ".AAAA" + parts[2][4:]

	_, err = m.Validate(tampered)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
	assert.NotErrorIs(t, err, domain.ErrTokenExpired)
}

func TestValidateWrongSecret(t *testing.T) {
	issuer := NewJWTManager(testSecret, time.Hour, 24*time.Hour, "bid-battle")
	verifier := NewJWTManager("another-secret-another-secret-32", time.Hour, 24*time.Hour, "bid-battle")

	pair, err := issuer.GeneratePair(42, "a@x.com")
	require.NoError(t, err)

	_, err = verifier.Validate(pair.AccessToken)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestValidateGarbage(t *testing.T) {
	m := NewJWTManager(testSecret, time.Hour, 24*time.Hour, "bid-battle")

	_, err := m.Validate("not-a-jwt")
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}
