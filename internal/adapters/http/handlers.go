package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shieldops/auth/internal/application"
)

// Handler is the HTTP adapter entrypoint for auth use-cases.
// Keeping only the application dependency plus cookie policy here preserves
// clean adapter boundaries.
type Handler struct {
	service    *application.Service
	cookies    CookieConfig
	accessTTL  time.Duration
	refreshTTL time.Duration
}

type HandlerConfig struct {
	Cookies         CookieConfig
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// NewHandler constructs an HTTP handler bound to the application service.
func NewHandler(service *application.Service, cfg HandlerConfig) *Handler {
	return &Handler{
		service:    service,
		cookies:    cfg.Cookies,
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTokenTTL,
	}
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, http.StatusOK, "ok")
}

func (h *Handler) readyz(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, http.StatusOK, "ready")
}

// accessTokenFromRequest prefers the Authorization header and falls back to
// the access_token cookie so browser and API clients share every endpoint.
func accessTokenFromRequest(r *http.Request) string {
	if token, err := bearerTokenFromHeader(r.Header.Get("Authorization")); err == nil {
		return token
	}
	if c, err := r.Cookie(accessTokenCookie); err == nil {
		return c.Value
	}
	return ""
}

func (h *Handler) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := accessTokenFromRequest(r)
		if raw == "" {
			writeError(w, http.StatusUnauthorized, "TOKEN_INVALID", "missing access token")
			return
		}

		user, claims, err := h.service.ValidateAccessToken(r.Context(), raw)
		if err != nil {
			status, code, msg := mapDomainError(err)
			writeError(w, status, code, msg)
			return
		}

		ctx := contextWithAuth(r.Context(), raw, user, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) signup(w http.ResponseWriter, r *http.Request) {
	var req application.SignupRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	user, err := h.service.Signup(r.Context(), req)
	if err != nil {
		status, code, msg := mapDomainError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req application.LoginRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	req.IPAddress = readIP(r)
	req.UserAgent = r.UserAgent()

	pair, err := h.service.Login(r.Context(), req)
	if err != nil {
		status, code, msg := mapDomainError(err)
		writeError(w, status, code, msg)
		return
	}

	h.setAuthCookies(w, pair.AccessToken, pair.RefreshToken)
	writeJSON(w, http.StatusOK, pair)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	// Body is optional; cookie-only clients send none at all.
	if err := decodeBody(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	raw := req.RefreshToken
	if raw == "" {
		if c, err := r.Cookie(refreshTokenCookie); err == nil {
			raw = c.Value
		}
	}
	if raw == "" {
		writeError(w, http.StatusUnauthorized, "TOKEN_INVALID", "refresh token required")
		return
	}

	pair, err := h.service.Refresh(r.Context(), raw)
	if err != nil {
		status, code, msg := mapDomainError(err)
		writeError(w, status, code, msg)
		return
	}

	h.setAccessCookie(w, pair.AccessToken)
	writeJSON(w, http.StatusOK, pair)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	res := h.service.Logout(r.Context(), accessTokenFromRequest(r))
	if res.State == application.LogoutStorageError {
		// Storage failures are logged, never surfaced to the client.
		logHTTPOperationError(r.Context(), "logout", http.StatusOK, "LOGOUT_STORAGE_ERROR", "session deactivation failed", res.Err)
	}

	h.clearAuthCookies(w)
	writeMessage(w, http.StatusOK, "Logged out successfully")
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

func (h *Handler) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	res, err := h.service.RequestPasswordReset(r.Context(), req.Email)
	if err != nil {
		status, code, msg := mapDomainError(err)
		writeError(w, status, code, msg)
		return
	}

	const generic = "If the email exists, a password reset link has been sent."
	if res.Outcome == application.ResetRequestThrottled {
		seconds := int(res.RetryAfter.Round(time.Second).Seconds())
		if seconds < 1 {
			seconds = 1
		}
		writeMessage(w, http.StatusOK, fmt.Sprintf("%s Please wait %d seconds before requesting another.", generic, seconds))
		return
	}
	writeMessage(w, http.StatusOK, generic)
}

func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req application.ResetPasswordRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	if err := h.service.ResetPassword(r.Context(), req); err != nil {
		status, code, msg := mapDomainError(err)
		writeError(w, status, code, msg)
		return
	}
	writeMessage(w, http.StatusOK, "Password has been reset successfully")
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "TOKEN_INVALID", "missing access token")
		return
	}
	writeJSON(w, http.StatusOK, application.UserInfo{
		UserID:     user.UserID,
		Email:      user.Email,
		FullName:   user.FullName,
		IsActive:   user.IsActive,
		IsVerified: user.IsVerified,
		CreatedAt:  user.CreatedAt,
	})
}

func decodeBody(r *http.Request, dst any) error {
	defer func() {
		_, _ = io.Copy(io.Discard, r.Body)
	}()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return err
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
