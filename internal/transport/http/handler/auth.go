package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/fintrack-api/internal/application/auth"
	"github.com/fintrack-api/internal/application/session"
	"github.com/fintrack-api/internal/domain"
	pkgdevice "github.com/fintrack-api/internal/pkg/device"
	"github.com/fintrack-api/internal/transport/http/middleware"
)

// AuthHandler handles OTP login and the session lifecycle.
type AuthHandler struct {
	auth     auth.Service
	sessions session.Service
	cookies  *middleware.Cookies
}

func NewAuthHandler(authSvc auth.Service, sessions session.Service, cookies *middleware.Cookies) *AuthHandler {
	return &AuthHandler{auth: authSvc, sessions: sessions, cookies: cookies}
}

func (h *AuthHandler) SendOTP(w http.ResponseWriter, r *http.Request) {
	var req domain.SendOTPRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.auth.RequestCode(r.Context(), req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "OTP sent"})
}

func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req domain.VerifyOTPRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.auth.VerifyCode(r.Context(), req, pkgdevice.FromRequest(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.cookies.SetAccess(w, res.AccessToken)
	h.cookies.SetRefresh(w, res.RefreshToken)
	writeJSON(w, http.StatusOK, LoginEnvelope{Message: "login successful", IsNewUser: res.IsNewUser})
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	token := middleware.CookieValue(r, middleware.RefreshCookie)
	if token == "" {
		h.cookies.ClearAll(w)
		writeError(w, http.StatusUnauthorized, "refresh token missing")
		return
	}
	access, err := h.sessions.Refresh(r.Context(), token)
	if errors.Is(err, domain.ErrUnauthorized) {
		h.cookies.ClearAll(w)
		writeError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.cookies.SetAccess(w, access)
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "token refreshed"})
}

// Logout revokes the caller's refresh token if any and always clears both cookies.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := middleware.CookieValue(r, middleware.RefreshCookie); token != "" {
		if err := h.sessions.RevokeOne(r.Context(), token); err != nil {
			slog.Error("revoke refresh token failed", "err", err)
		}
	}
	h.cookies.ClearAll(w)
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "logged out"})
}

func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	p, err := h.sessions.Identify(middleware.CookieValue(r, middleware.RefreshCookie))
	if err != nil {
		h.cookies.ClearAll(w)
		writeError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}
	if err := h.sessions.RevokeAll(r.Context(), p.UserID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.cookies.ClearAll(w)
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "logged out from all devices"})
}
