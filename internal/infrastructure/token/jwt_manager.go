package token

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	domain "github.com/Jatyon/bid-battle/internal/domain/auth"
	usecase "github.com/Jatyon/bid-battle/internal/usecase/auth"

	"github.com/golang-jwt/jwt/v5"
)

// JWTManager issues and validates HS256-signed token pairs.
type JWTManager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	issuer     string
}

// NewJWTManager constructs a manager with the provided secret and lifetimes.
func NewJWTManager(secret string, accessTTL, refreshTTL time.Duration, issuer string) *JWTManager {
	return &JWTManager{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		issuer:     issuer,
	}
}

// Ensure JWTManager implements the TokenManager interface.
var _ usecase.TokenManager = (*JWTManager)(nil)

// Claims represents token claims. The subject is the numeric user id.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// GeneratePair signs an access and a refresh token carrying the same
// identity but distinct lifetimes.
func (m *JWTManager) GeneratePair(userID int64, email string) (*usecase.TokenPair, error) {
	access, err := m.sign(userID, email, m.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := m.sign(userID, email, m.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &usecase.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (m *JWTManager) sign(userID int64, email string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Validate parses and validates the token, returning its claims when valid.
// Expired tokens map to ErrTokenExpired, everything else to ErrTokenInvalid.
func (m *JWTManager) Validate(tokenString string) (*usecase.Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", domain.ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, domain.ErrTokenInvalid
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad subject", domain.ErrTokenInvalid)
	}
	return &usecase.Claims{UserID: userID, Email: claims.Email}, nil
}
