package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	domain "github.com/Jatyon/bid-battle/internal/domain/auth"
)

// Service coordinates authentication and credential-lifecycle workflows
// between domain and infrastructure.
type Service struct {
	users    domain.UserRepository
	tokens   TokenManager
	hasher   PasswordHasher
	ledger   ResetTokenLedger
	mailer   Mailer
	logger   *slog.Logger
	resetTTL time.Duration
	nowFunc  func() time.Time
}

// NewService constructs an auth service. resetTTL bounds the lifetime of
// password-reset tokens issued by ForgotPassword.
func NewService(users domain.UserRepository, tokens TokenManager, hasher PasswordHasher, ledger ResetTokenLedger, mailer Mailer, logger *slog.Logger, resetTTL time.Duration) *Service {
	return &Service{
		users:    users,
		tokens:   tokens,
		hasher:   hasher,
		ledger:   ledger,
		mailer:   mailer,
		logger:   logger,
		resetTTL: resetTTL,
		nowFunc:  time.Now,
	}
}

// RegisterInput defines the pre-validated payload to create a new account.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// Register creates a new user and returns the persisted entity without a
// password hash. Emails are compared case-sensitively; a soft-deleted row
// still blocks re-registration through the unique index.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	email := strings.TrimSpace(input.Email)

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, domain.ErrEmailExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	hashed, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	now := s.nowFunc().UTC()
	user := &domain.User{
		Email:        email,
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		PasswordHash: hashed,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	return sanitizeUser(user), nil
}

// Login validates credentials and returns a fresh token pair.
// Social-login-only accounts (no stored hash) cannot log in with a password.
func (s *Service) Login(ctx context.Context, creds domain.Credentials) (*TokenPair, error) {
	user, err := s.users.GetWithPasswordByEmail(ctx, strings.TrimSpace(creds.Email))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if user.PasswordHash == "" || !s.hasher.Verify(creds.Password, user.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID, s.nowFunc().UTC()); err != nil {
		return nil, err
	}

	return s.tokens.GeneratePair(user.ID, user.Email)
}

// Refresh rotates a token pair. The old refresh token stays cryptographically
// valid until its natural expiry; there is no revocation list.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.validateToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	// Re-fetch by id and email so deleted accounts holding stale long-lived
	// tokens are rejected.
	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil || user.Email != claims.Email {
		return nil, domain.ErrTokenInvalid
	}

	return s.tokens.GeneratePair(user.ID, user.Email)
}

// ForgotPassword issues a single-use reset token and mails a reset link.
// An unknown email returns success silently so account existence cannot be
// probed through this endpoint.
func (s *Service) ForgotPassword(ctx context.Context, email, locale string) error {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil
		}
		return err
	}

	// At most one live reset token per user: the previous link stops working.
	if err := s.ledger.InvalidateByPurpose(ctx, user.ID, domain.PurposePasswordReset); err != nil {
		return err
	}

	token, err := s.ledger.Issue(ctx, user.ID, domain.PurposePasswordReset, s.resetTTL)
	if err != nil {
		return err
	}

	s.mailer.SendPasswordReset(user.Email, locale, user.DisplayName(), s.resetTTL, token.Token)
	return nil
}

// ResetPassword verifies a reset token, replaces the owner's password hash,
// and consumes the token. The token is consumed even if the confirmation
// notice cannot be dispatched; notification failure never rolls back the
// password change.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword, locale string) error {
	record, err := s.ledger.Verify(ctx, token, domain.PurposePasswordReset)
	if err != nil {
		return err
	}

	hashed, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	if err := s.users.UpdatePassword(ctx, record.UserID, hashed, s.nowFunc().UTC()); err != nil {
		return err
	}

	if err := s.ledger.Consume(ctx, record); err != nil {
		return err
	}

	if user, err := s.users.GetByID(ctx, record.UserID); err == nil {
		s.mailer.SendPasswordChanged(user.Email, locale, user.DisplayName())
	}
	return nil
}

// ChangePassword updates the password of an authenticated user. Accounts with
// an existing hash must supply their current password; social-login accounts
// setting their first password do not.
func (s *Service) ChangePassword(ctx context.Context, email, currentPassword, newPassword string) error {
	user, err := s.users.GetWithPasswordByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return err
	}

	if user.PasswordHash != "" {
		if currentPassword == "" {
			return domain.ErrCurrentPasswordRequired
		}
		if !s.hasher.Verify(currentPassword, user.PasswordHash) {
			return domain.ErrPasswordMismatch
		}
	}

	hashed, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	return s.users.UpdatePassword(ctx, user.ID, hashed, s.nowFunc().UTC())
}

// VerifyAccessToken validates a bearer token and returns the associated user.
func (s *Service) VerifyAccessToken(ctx context.Context, token string) (*domain.User, error) {
	claims, err := s.validateToken(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.ValidateSessionUser(ctx, claims)
}

// ValidateSessionUser re-fetches the user behind verified token claims,
// rejecting tokens whose owner no longer exists.
func (s *Service) ValidateSessionUser(ctx context.Context, claims *Claims) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrTokenInvalid
		}
		return nil, err
	}
	return sanitizeUser(user), nil
}

// validateToken normalises codec failures to ErrTokenInvalid while keeping
// expiry and tampering distinguishable in logs.
func (s *Service) validateToken(ctx context.Context, token string) (*Claims, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		if errors.Is(err, domain.ErrTokenExpired) {
			s.logger.InfoContext(ctx, "token rejected", "reason", "expired")
		} else {
			s.logger.WarnContext(ctx, "token rejected", "reason", "invalid")
		}
		return nil, domain.ErrTokenInvalid
	}
	return claims, nil
}

func sanitizeUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	copy := *u
	copy.PasswordHash = ""
	return &copy
}
