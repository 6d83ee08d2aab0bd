package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"flashdeck/internal/auth"
	"flashdeck/internal/notify"
)

// Authenticator is the part of the hosted auth API handlers call.
type Authenticator interface {
	SignIn(ctx context.Context, email, password string) (auth.Session, error)
	SignOut(ctx context.Context, token string) error
}

type AuthHandler struct {
	Auth     Authenticator
	Sessions *auth.Resolver
	Notify   *notify.Center
	Log      *zap.Logger
}

type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if !decode(w, r, &req) {
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	s, err := h.Auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		h.loginFailed(w, err)
		return
	}
	h.Sessions.Remember(s)

	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": s.AccessToken,
		"expires_in":   s.ExpiresIn,
		"user":         s.User,
	})
}

func (h *AuthHandler) loginFailed(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
	case errors.Is(err, auth.ErrUnavailable):
		h.Log.Warn("sign-in unavailable", zap.Error(err))
		http.Error(w, "auth unavailable", http.StatusServiceUnavailable)
	default:
		h.Log.Error("sign-in failed", zap.Error(err))
		http.Error(w, "server error", http.StatusInternalServerError)
	}
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := auth.TokenFromContext(r.Context())
	u, _ := auth.UserFromContext(r.Context())

	h.Sessions.Invalidate(token)
	h.Notify.Forget(u.ID)
	if err := h.Auth.SignOut(r.Context(), token); err != nil {
		h.Log.Warn("sign-out failed", zap.String("user_id", u.ID), zap.Error(err))
	}
	w.WriteHeader(http.StatusNoContent)
}
