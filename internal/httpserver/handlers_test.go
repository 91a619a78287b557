package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Jatyon/bid-battle/internal/config"
	domain "github.com/Jatyon/bid-battle/internal/domain/auth"
	"github.com/Jatyon/bid-battle/internal/i18n"
	"github.com/Jatyon/bid-battle/internal/infrastructure/token"
	authusecase "github.com/Jatyon/bid-battle/internal/usecase/auth"
	"github.com/Jatyon/bid-battle/internal/usecase/resettoken"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// --- in-memory collaborators ---

type memUserRepo struct {
	users  map[int64]*domain.User
	nextID int64
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: map[int64]*domain.User{}, nextID: 1}
}

func (m *memUserRepo) Create(_ context.Context, user *domain.User) error {
	for _, u := range m.users {
		if u.Email == user.Email {
			return domain.ErrEmailExists
		}
	}
	user.ID = m.nextID
	m.nextID++
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *memUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	u, err := m.findByEmail(email)
	if err != nil {
		return nil, err
	}
	cp := *u
	cp.PasswordHash = ""
	return &cp, nil
}

func (m *memUserRepo) GetWithPasswordByEmail(_ context.Context, email string) (*domain.User, error) {
	u, err := m.findByEmail(email)
	if err != nil {
		return nil, err
	}
	cp := *u
	return &cp, nil
}

func (m *memUserRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	u, ok := m.users[id]
	if !ok || u.DeletedAt != nil {
		return nil, domain.ErrUserNotFound
	}
	cp := *u
	cp.PasswordHash = ""
	return &cp, nil
}

func (m *memUserRepo) UpdateLastLogin(_ context.Context, id int64, at time.Time) error {
	u, ok := m.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.LastLoginAt = &at
	return nil
}

func (m *memUserRepo) UpdatePassword(_ context.Context, id int64, passwordHash string, updatedAt time.Time) error {
	u, ok := m.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = updatedAt
	return nil
}

func (m *memUserRepo) findByEmail(email string) (*domain.User, error) {
	for _, u := range m.users {
		if u.Email == email && u.DeletedAt == nil {
			return u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

type memResetRepo struct {
	tokens map[uuid.UUID]*domain.ResetToken
}

func (m *memResetRepo) Create(_ context.Context, t *domain.ResetToken) error {
	cp := *t
	m.tokens[t.ID] = &cp
	return nil
}

func (m *memResetRepo) GetActive(_ context.Context, tok string, purpose domain.TokenPurpose) (*domain.ResetToken, error) {
	for _, t := range m.tokens {
		if t.Token == tok && t.Purpose == purpose && !t.Used {
			cp := *t
			return &cp, nil
		}
	}
	return nil, domain.ErrResetTokenInvalid
}

func (m *memResetRepo) MarkUsed(_ context.Context, id uuid.UUID, usedAt time.Time) error {
	t, ok := m.tokens[id]
	if !ok {
		return domain.ErrResetTokenInvalid
	}
	t.Used = true
	t.UsedAt = &usedAt
	return nil
}

func (m *memResetRepo) DeleteByUserAndPurpose(_ context.Context, userID int64, purpose domain.TokenPurpose) error {
	for id, t := range m.tokens {
		if t.UserID == userID && t.Purpose == purpose {
			delete(m.tokens, id)
		}
	}
	return nil
}

func (m *memResetRepo) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	var count int64
	for id, t := range m.tokens {
		if t.ExpiresAt.Before(before) {
			delete(m.tokens, id)
			count++
		}
	}
	return count, nil
}

type recordingMailer struct {
	resetTokens []string
	changed     int
}

func (m *recordingMailer) SendPasswordReset(_, _, _ string, _ time.Duration, token string) {
	m.resetTokens = append(m.resetTokens, token)
}

func (m *recordingMailer) SendPasswordChanged(_, _, _ string) {
	m.changed++
}

func newTestServer(t *testing.T) (*Server, *recordingMailer) {
	t.Helper()

	translator, err := i18n.New("en")
	require.NoError(t, err)

	mail := &recordingMailer{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokens := token.NewJWTManager("0123456789abcdef0123456789abcdef", time.Hour, 24*time.Hour, "bid-battle")
	ledger := resettoken.NewService(&memResetRepo{tokens: map[uuid.UUID]*domain.ResetToken{}})

	svc := authusecase.NewService(
		newMemUserRepo(),
		tokens,
		authusecase.NewBcryptHasher(bcrypt.MinCost),
		ledger,
		mail,
		logger,
		15*time.Minute,
	)

	cfg := config.Config{
		HTTPPort:       "0",
		AllowedOrigins: []string{"*"},
	}
	return NewServer(cfg, svc, translator), mail
}

func doJSON(t *testing.T, srv *Server, method, path string, payload any, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	for key, values := range header {
		for _, v := range values {
			req.Header.Set(key, v)
		}
	}
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func registerUser(t *testing.T, srv *Server) {
	t.Helper()
	rec := doJSON(t, srv, http.MethodPost, "/auth/register", map[string]string{
		"email":            "a@x.com",
		"password":         "Secret1!",
		"confirm_password": "Secret1!",
		"first_name":       "Ada",
		"last_name":        "Lovelace",
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
}

func loginUser(t *testing.T, srv *Server) (access, refresh string) {
	t.Helper()
	rec := doJSON(t, srv, http.MethodPost, "/auth/login", map[string]string{
		"email":    "a@x.com",
		"password": "Secret1!",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var pair struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pair))
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	return pair.AccessToken, pair.RefreshToken
}

// --- tests ---

func TestRegisterValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/auth/register", map[string]string{
		"email":            "not-an-email",
		"password":         "short",
		"confirm_password": "different",
	}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp struct {
		Fields []FieldError `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	fields := map[string]bool{}
	for _, f := range resp.Fields {
		fields[f.Field] = true
	}
	assert.True(t, fields["email"])
	assert.True(t, fields["password"])
	assert.True(t, fields["confirm_password"])
}

func TestRegisterConflict(t *testing.T) {
	srv, _ := newTestServer(t)
	registerUser(t, srv)

	rec := doJSON(t, srv, http.MethodPost, "/auth/register", map[string]string{
		"email":            "a@x.com",
		"password":         "Secret1!",
		"confirm_password": "Secret1!",
		"first_name":       "Ada",
		"last_name":        "Lovelace",
	}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLoginWrongPassword(t *testing.T) {
	srv, _ := newTestServer(t)
	registerUser(t, srv)

	rec := doJSON(t, srv, http.MethodPost, "/auth/login", map[string]string{
		"email":    "a@x.com",
		"password": "Wrong1!!",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefreshEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	registerUser(t, srv)
	_, refresh := loginUser(t, srv)

	rec := doJSON(t, srv, http.MethodPost, "/auth/refresh", map[string]string{
		"refresh_token": refresh,
	}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/auth/refresh", map[string]string{
		"refresh_token": "garbage",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestForgotAndResetPasswordFlow(t *testing.T) {
	srv, mail := newTestServer(t)
	registerUser(t, srv)

	// Unknown email answers exactly like a known one.
	recUnknown := doJSON(t, srv, http.MethodPost, "/auth/forgot-password", map[string]string{
		"email": "unknown@x.com",
	}, nil)
	recKnown := doJSON(t, srv, http.MethodPost, "/auth/forgot-password", map[string]string{
		"email": "a@x.com",
	}, nil)
	assert.Equal(t, http.StatusOK, recUnknown.Code)
	assert.Equal(t, http.StatusOK, recKnown.Code)
	assert.Equal(t, recUnknown.Body.String(), recKnown.Body.String())
	require.Len(t, mail.resetTokens, 1)

	rec := doJSON(t, srv, http.MethodPost, "/auth/reset-password", map[string]string{
		"token":            mail.resetTokens[0],
		"password":         "Changed1!",
		"confirm_password": "Changed1!",
	}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, mail.changed)

	// Consumed token cannot be replayed.
	rec = doJSON(t, srv, http.MethodPost, "/auth/reset-password", map[string]string{
		"token":            mail.resetTokens[0],
		"password":         "Another1!",
		"confirm_password": "Another1!",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthenticatedEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)
	registerUser(t, srv)
	access, _ := loginUser(t, srv)

	rec := doJSON(t, srv, http.MethodGet, "/users/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	header := http.Header{"Authorization": []string{"Bearer " + access}}
	rec = doJSON(t, srv, http.MethodGet, "/users/me", nil, header)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		User struct {
			Email string `json:"email"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "a@x.com", resp.User.Email)

	rec = doJSON(t, srv, http.MethodPost, "/users/change-password", map[string]string{
		"current_password": "Secret1!",
		"new_password":     "Changed1!",
	}, header)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/auth/login", map[string]string{
		"email":    "a@x.com",
		"password": "Changed1!",
	}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLocalizedErrorMessages(t *testing.T) {
	srv, _ := newTestServer(t)
	registerUser(t, srv)

	header := http.Header{"Accept-Language": []string{"pl-PL,pl;q=0.9"}}
	rec := doJSON(t, srv, http.MethodPost, "/auth/login", map[string]string{
		"email":    "a@x.com",
		"password": "Wrong1!!",
	}, header)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var resp struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Nieprawidłowy email lub hasło", resp.Error)
}
