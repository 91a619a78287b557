package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	authdomain "github.com/Jatyon/bid-battle/internal/domain/auth"
	authusecase "github.com/Jatyon/bid-battle/internal/usecase/auth"
)

func (s *Server) registerRoutes() {
	s.router.Handle("/health", http.HandlerFunc(s.handleHealth))
	s.router.Handle("/auth/register", http.HandlerFunc(s.handleRegister))
	s.router.Handle("/auth/login", http.HandlerFunc(s.handleLogin))
	s.router.Handle("/auth/refresh", http.HandlerFunc(s.handleRefresh))
	s.router.Handle("/auth/forgot-password", http.HandlerFunc(s.handleForgotPassword))
	s.router.Handle("/auth/reset-password", http.HandlerFunc(s.handleResetPassword))

	authenticated := s.authMiddleware
	s.router.Handle("/users/change-password", authenticated(http.HandlerFunc(s.handleChangePassword)))
	s.router.Handle("/users/me", authenticated(http.HandlerFunc(s.handleCurrentUser)))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, http.MethodPost)
		return
	}
	locale := s.requestLocale(r)

	var payload struct {
		Email           string `json:"email"`
		Password        string `json:"password"`
		ConfirmPassword string `json:"confirm_password"`
		FirstName       string `json:"first_name"`
		LastName        string `json:"last_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	fields := validateRegister(payload.Email, payload.Password, payload.ConfirmPassword, payload.FirstName, payload.LastName)
	if len(fields) > 0 {
		writeFieldErrors(w, fields)
		return
	}

	_, err := s.authService.Register(r.Context(), authusecase.RegisterInput{
		Email:     payload.Email,
		Password:  payload.Password,
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
	})
	if err != nil {
		switch {
		case errors.Is(err, authdomain.ErrEmailExists):
			writeError(w, http.StatusConflict, s.translator.Translate("auth.errors.user_with_email_exists", locale, payload.Email))
		default:
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"message": s.translator.Translate("auth.info.registration_completed_successfully", locale),
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, http.MethodPost)
		return
	}
	locale := s.requestLocale(r)

	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	pair, err := s.authService.Login(r.Context(), authdomain.Credentials{
		Email:    payload.Email,
		Password: payload.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, authdomain.ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, s.translator.Translate("auth.errors.invalid_credential", locale))
		default:
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	writeJSON(w, http.StatusOK, pair)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, http.MethodPost)
		return
	}
	locale := s.requestLocale(r)

	var payload struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		if errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "refresh_token required")
		} else {
			writeError(w, http.StatusBadRequest, "invalid JSON payload")
		}
		return
	}
	token := strings.TrimSpace(payload.RefreshToken)
	if token == "" {
		writeError(w, http.StatusBadRequest, "refresh_token required")
		return
	}

	pair, err := s.authService.Refresh(r.Context(), token)
	if err != nil {
		if errors.Is(err, authdomain.ErrTokenInvalid) {
			writeError(w, http.StatusUnauthorized, s.translator.Translate("auth.errors.refresh_token_not_recognized", locale))
		} else {
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	writeJSON(w, http.StatusOK, pair)
}

func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, http.MethodPost)
		return
	}
	locale := s.requestLocale(r)

	var payload struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if fields := validateEmailField(payload.Email); len(fields) > 0 {
		writeFieldErrors(w, fields)
		return
	}

	if err := s.authService.ForgotPassword(r.Context(), payload.Email, locale); err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	// Same response whether or not the account exists.
	writeJSON(w, http.StatusOK, map[string]string{
		"message": s.translator.Translate("auth.info.reset_link_sent", locale),
	})
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, http.MethodPost)
		return
	}
	locale := s.requestLocale(r)

	var payload struct {
		Token           string `json:"token"`
		Password        string `json:"password"`
		ConfirmPassword string `json:"confirm_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	fields := validatePasswordPair(payload.Password, payload.ConfirmPassword)
	if strings.TrimSpace(payload.Token) == "" {
		fields = append(fields, FieldError{Field: "token", Message: "token is required"})
	}
	if len(fields) > 0 {
		writeFieldErrors(w, fields)
		return
	}

	err := s.authService.ResetPassword(r.Context(), payload.Token, payload.Password, locale)
	if err != nil {
		switch {
		case errors.Is(err, authdomain.ErrResetTokenInvalid):
			writeError(w, http.StatusBadRequest, s.translator.Translate("auth.errors.token_not_exist_or_used", locale))
		case errors.Is(err, authdomain.ErrResetTokenExpired):
			writeError(w, http.StatusBadRequest, s.translator.Translate("auth.errors.token_expired", locale))
		default:
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": s.translator.Translate("auth.info.password_changed", locale),
	})
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, http.MethodPost)
		return
	}
	locale := s.requestLocale(r)

	user, ok := currentUserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var payload struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		if errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "new_password required")
		} else {
			writeError(w, http.StatusBadRequest, "invalid JSON payload")
		}
		return
	}

	if fields := validatePassword("new_password", payload.NewPassword); len(fields) > 0 {
		writeFieldErrors(w, fields)
		return
	}

	err := s.authService.ChangePassword(r.Context(), user.Email, payload.CurrentPassword, payload.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, authdomain.ErrCurrentPasswordRequired):
			writeError(w, http.StatusBadRequest, s.translator.Translate("auth.errors.current_password_required", locale))
		case errors.Is(err, authdomain.ErrPasswordMismatch):
			writeError(w, http.StatusBadRequest, s.translator.Translate("auth.errors.current_password_incorrect", locale))
		case errors.Is(err, authdomain.ErrUserNotFound):
			writeError(w, http.StatusNotFound, s.translator.Translate("users.user_not_found", locale))
		default:
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": s.translator.Translate("auth.info.password_changed", locale),
	})
}

func (s *Server) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, http.MethodGet)
		return
	}

	user, ok := currentUserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		locale := s.requestLocale(r)

		token := extractBearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "authorization token required")
			return
		}

		user, err := s.authService.VerifyAccessToken(r.Context(), token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, s.translator.Translate("auth.errors.unauthorized", locale))
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeyUser{}, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func currentUserFromContext(ctx context.Context) (*authdomain.User, bool) {
	user, ok := ctx.Value(ctxKeyUser{}).(*authdomain.User)
	if !ok || user == nil {
		return nil, false
	}
	return user, true
}

func (s *Server) requestLocale(r *http.Request) string {
	return s.translator.Resolve(r.Header.Get("Accept-Language"))
}

type ctxKeyUser struct{}

func extractBearerToken(header string) string {
	if header == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
