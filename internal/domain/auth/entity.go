package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrInvalidCredentials indicates a login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailExists signals a duplicate email registration.
	ErrEmailExists = errors.New("email already registered")
	// ErrTokenInvalid means a supplied access or refresh token cannot be validated.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenExpired means a token was well-formed but past its expiry.
	// Normalised to ErrTokenInvalid at the service boundary; kept distinct for logs.
	ErrTokenExpired = errors.New("token expired")
	// ErrUserNotFound indicates missing user.
	ErrUserNotFound = errors.New("user not found")
	// ErrResetTokenInvalid covers both unknown and already-used reset tokens.
	// Deliberately indistinguishable to the caller.
	ErrResetTokenInvalid = errors.New("reset token does not exist or was already used")
	// ErrResetTokenExpired indicates a known but expired reset token.
	ErrResetTokenExpired = errors.New("reset token expired")
	// ErrCurrentPasswordRequired indicates a password change without the current password.
	ErrCurrentPasswordRequired = errors.New("current password is required")
	// ErrPasswordMismatch indicates the current password is incorrect.
	ErrPasswordMismatch = errors.New("current password does not match")
)

// TokenPurpose tags single-use tokens with the flow they belong to.
type TokenPurpose string

const (
	// PurposePasswordReset marks tokens issued by the forgot-password flow.
	PurposePasswordReset TokenPurpose = "password_reset"
)

// User models the credential entity persisted in storage.
// PasswordHash is empty for social-login-only accounts and is never serialised.
type User struct {
	ID           int64      `json:"id"`
	Email        string     `json:"email"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	PasswordHash string     `json:"-"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	DeletedAt    *time.Time `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// DisplayName returns the name used in outbound notifications.
func (u *User) DisplayName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// ResetToken is a single-use, time-bounded opaque token tied to a user and a purpose.
// It is valid only while Used is false and the expiry has not passed.
type ResetToken struct {
	ID        uuid.UUID    `json:"id"`
	Token     string       `json:"-"`
	Purpose   TokenPurpose `json:"purpose"`
	UserID    int64        `json:"user_id"`
	ExpiresAt time.Time    `json:"expires_at"`
	Used      bool         `json:"used"`
	UsedAt    *time.Time   `json:"used_at,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

// Credentials captures raw credential input for login.
type Credentials struct {
	Email    string
	Password string
}
