package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/rjweb/internal/account"
	"github.com/dukerupert/rjweb/internal/auth"
	"github.com/dukerupert/rjweb/internal/middleware"
	"github.com/dukerupert/rjweb/internal/model"
	"github.com/dukerupert/rjweb/internal/store"
)

// SessionManager creates and revokes login sessions.
type SessionManager interface {
	Create(ctx context.Context, userID int64) (*model.Session, error)
	Delete(ctx context.Context, id int64) error
}

type AuthHandler struct {
	accounts *account.Service
	sessions SessionManager
	rd       *Renderer
	logger   *slog.Logger
}

func NewAuthHandler(accounts *account.Service, sessions SessionManager, rd *Renderer, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		accounts: accounts,
		sessions: sessions,
		rd:       rd,
		logger:   logger,
	}
}

func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	h.rd.render(w, r, "login.html", nil)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")

	user, err := h.accounts.Authenticate(r.Context(), username, password)
	switch {
	case errors.Is(err, account.ErrEmailNotVerified):
		h.rd.redirect(w, r, middleware.LoginPath, flashError,
			"Your email is not verified. Check your inbox for the verification link.")
		return
	case errors.Is(err, account.ErrInvalidCredentials):
		h.logger.Info("failed login", "username", username, "ip", middleware.RealIP(r))
		h.rd.redirect(w, r, middleware.LoginPath, flashError, "Invalid username or password")
		return
	case err != nil:
		h.rd.serverError(w, "authenticate", err)
		return
	}

	sess, err := h.sessions.Create(r.Context(), user.ID)
	if err != nil {
		h.rd.serverError(w, "create session", err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    sess.Token,
		Path:     "/",
		MaxAge:   int(store.SessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.rd.secure(r),
	})

	h.logger.Info("login", "user_id", user.ID, "ip", middleware.RealIP(r))
	h.rd.redirect(w, r, "/admin", flashSuccess, "Login successful!")
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if ac, ok := auth.FromContext(r.Context()); ok {
		if err := h.sessions.Delete(r.Context(), ac.SessionID); err != nil {
			h.logger.Error("delete session", "error", err)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	h.rd.redirect(w, r, "/", flashInfo, "You have been logged out.")
}

func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	user, err := h.accounts.VerifyToken(r.Context(), r.PathValue("token"))
	if errors.Is(err, account.ErrInvalidOrExpiredToken) {
		h.rd.redirect(w, r, middleware.LoginPath, flashError, "Invalid or expired verification link.")
		return
	}
	if err != nil {
		h.rd.serverError(w, "verify email", err)
		return
	}

	h.logger.Info("email verified", "user_id", user.ID)
	h.rd.redirect(w, r, middleware.LoginPath, flashSuccess, "Email verified! You can now log in.")
}
