package http

import (
	"net/http"
	"time"
)

const (
	accessTokenCookie  = "access_token"
	refreshTokenCookie = "refresh_token"
)

// CookieConfig carries the attributes shared by every auth cookie write.
// Clearing uses the exact same attribute set as setting, otherwise browsers
// treat the expired cookie as a different one and keep the original.
type CookieConfig struct {
	Secure   bool
	SameSite http.SameSite
}

func setCookie(w http.ResponseWriter, cfg CookieConfig, name, value string, maxAge time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: cfg.SameSite,
	})
}

func clearCookie(w http.ResponseWriter, cfg CookieConfig, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: cfg.SameSite,
	})
}

func (h *Handler) setAuthCookies(w http.ResponseWriter, accessToken, refreshToken string) {
	setCookie(w, h.cookies, accessTokenCookie, accessToken, h.accessTTL)
	setCookie(w, h.cookies, refreshTokenCookie, refreshToken, h.refreshTTL)
}

func (h *Handler) setAccessCookie(w http.ResponseWriter, accessToken string) {
	setCookie(w, h.cookies, accessTokenCookie, accessToken, h.accessTTL)
}

func (h *Handler) clearAuthCookies(w http.ResponseWriter) {
	clearCookie(w, h.cookies, accessTokenCookie)
	clearCookie(w, h.cookies, refreshTokenCookie)
}
