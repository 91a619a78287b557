package auth

import (
	"context"
	"time"

	domain "github.com/Jatyon/bid-battle/internal/domain/auth"
)

// Claims carries the identity embedded in a signed token.
type Claims struct {
	UserID int64
	Email  string
}

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// TokenManager abstracts signed-token issuance and verification.
// Validate returns domain ErrTokenExpired for expired tokens and
// ErrTokenInvalid for malformed or tampered ones.
type TokenManager interface {
	GeneratePair(userID int64, email string) (*TokenPair, error)
	Validate(token string) (*Claims, error)
}

// ResetTokenLedger issues, verifies, consumes, and invalidates single-use
// opaque tokens. Implemented by usecase/resettoken.
type ResetTokenLedger interface {
	Issue(ctx context.Context, userID int64, purpose domain.TokenPurpose, ttl time.Duration) (*domain.ResetToken, error)
	Verify(ctx context.Context, token string, purpose domain.TokenPurpose) (*domain.ResetToken, error)
	Consume(ctx context.Context, token *domain.ResetToken) error
	InvalidateByPurpose(ctx context.Context, userID int64, purpose domain.TokenPurpose) error
}

// Mailer dispatches account notifications. Delivery is fire-and-forget:
// implementations queue the message and report failures through their own logs.
type Mailer interface {
	SendPasswordReset(email, locale, displayName string, expiresIn time.Duration, token string)
	SendPasswordChanged(email, locale, displayName string)
}
