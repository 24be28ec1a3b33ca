package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dukerupert/rjweb/internal/auth"
	"github.com/dukerupert/rjweb/internal/model"
)

const (
	SessionCookieName = "rjweb_session"
	LoginPath         = "/admin/login"
)

type SessionLookup interface {
	GetByToken(ctx context.Context, token string) (*model.Session, error)
}

type UserLookup interface {
	GetByID(ctx context.Context, id int64) (*model.AdminUser, error)
}

// RequireAuth validates the session cookie and populates AuthContext.
// Requests without a live session, or whose user has been deleted, are
// redirected to the login page and never reach next.
func RequireAuth(sessions SessionLookup, users UserLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				redirectToLogin(w, r)
				return
			}

			sess, err := sessions.GetByToken(r.Context(), cookie.Value)
			if err != nil {
				slog.Error("session lookup", "error", err)
			}
			if err != nil || sess == nil {
				redirectToLogin(w, r)
				return
			}

			user, err := users.GetByID(r.Context(), sess.UserID)
			if err != nil {
				slog.Error("session user lookup", "error", err)
			}
			if err != nil || user == nil {
				redirectToLogin(w, r)
				return
			}

			ac := auth.AuthContext{
				UserID:    user.ID,
				Username:  user.Username,
				SessionID: sess.ID,
			}

			ctx := auth.WithAuth(r.Context(), ac)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func redirectToLogin(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, LoginPath, http.StatusSeeOther)
}
