package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/rjweb/internal/account"
	"github.com/dukerupert/rjweb/internal/auth"
)

const (
	usersPath   = "/admin/users"
	profilePath = "/admin/profile"
)

type UserHandler struct {
	accounts *account.Service
	rd       *Renderer
	logger   *slog.Logger
}

func NewUserHandler(accounts *account.Service, rd *Renderer, logger *slog.Logger) *UserHandler {
	return &UserHandler{accounts: accounts, rd: rd, logger: logger}
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.accounts.List(r.Context())
	if err != nil {
		h.rd.serverError(w, "list users", err)
		return
	}
	h.rd.render(w, r, "admin_users.html", map[string]any{"Users": users})
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.FormValue("username"))
	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")

	user, err := h.accounts.CreateUser(r.Context(), username, email, password)
	switch {
	case errors.Is(err, account.ErrMissingField):
		h.rd.redirect(w, r, usersPath, flashError, "Username, email and password are required.")
	case errors.Is(err, account.ErrDuplicateIdentity):
		h.rd.redirect(w, r, usersPath, flashError, "Username or email already exists.")
	case errors.Is(err, account.ErrMailDispatch):
		h.logger.Warn("verification mail failed", "user_id", user.ID, "error", err)
		h.rd.redirect(w, r, usersPath, flashWarning,
			fmt.Sprintf("User '%s' created, but the verification email could not be sent. Use Resend to try again.", user.Username))
	case err != nil:
		h.rd.serverError(w, "create user", err)
	default:
		h.logger.Info("admin user created", "user_id", user.ID, "by", auth.UserID(r.Context()))
		h.rd.redirect(w, r, usersPath, flashSuccess,
			fmt.Sprintf("User '%s' created. A verification email has been sent.", user.Username))
	}
}

func (h *UserHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r.PathValue("id"))
	if !ok {
		h.rd.redirect(w, r, usersPath, flashError, "User not found.")
		return
	}

	user, err := h.accounts.ResendVerification(r.Context(), id)
	switch {
	case errors.Is(err, account.ErrUserNotFound):
		h.rd.redirect(w, r, usersPath, flashError, "User not found.")
	case errors.Is(err, account.ErrAlreadyVerified):
		h.rd.redirect(w, r, usersPath, flashInfo, fmt.Sprintf("User '%s' is already verified.", user.Username))
	case errors.Is(err, account.ErrMailDispatch):
		h.logger.Warn("verification mail failed", "user_id", id, "error", err)
		h.rd.redirect(w, r, usersPath, flashWarning, "Could not send the verification email. Try again later.")
	case err != nil:
		h.rd.serverError(w, "resend verification", err)
	default:
		h.rd.redirect(w, r, usersPath, flashSuccess, fmt.Sprintf("Verification email sent to %s.", user.Email))
	}
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r.PathValue("id"))
	if !ok {
		h.rd.redirect(w, r, usersPath, flashError, "User not found.")
		return
	}

	err := h.accounts.DeleteUser(r.Context(), auth.UserID(r.Context()), id)
	switch {
	case errors.Is(err, account.ErrSelfDeletion):
		h.rd.redirect(w, r, usersPath, flashError, "You cannot delete your own account.")
	case errors.Is(err, account.ErrLastAdmin):
		h.rd.redirect(w, r, usersPath, flashError, "Cannot delete the last admin user.")
	case errors.Is(err, account.ErrUserNotFound):
		h.rd.redirect(w, r, usersPath, flashError, "User not found.")
	case err != nil:
		h.rd.serverError(w, "delete user", err)
	default:
		h.logger.Info("admin user deleted", "user_id", id, "by", auth.UserID(r.Context()))
		h.rd.redirect(w, r, usersPath, flashSuccess, "User deleted.")
	}
}

func (h *UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	user, err := h.accounts.Get(r.Context(), auth.UserID(r.Context()))
	if errors.Is(err, account.ErrUserNotFound) {
		http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
		return
	}
	if err != nil {
		h.rd.serverError(w, "get profile", err)
		return
	}
	h.rd.render(w, r, "admin_profile.html", map[string]any{"User": user})
}

func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	change := account.ProfileChange{
		Username:        strings.TrimSpace(r.FormValue("username")),
		Email:           strings.TrimSpace(r.FormValue("email")),
		Password:        r.FormValue("password"),
		ConfirmPassword: r.FormValue("confirm_password"),
	}

	res, err := h.accounts.ChangeProfile(r.Context(), auth.UserID(r.Context()), change)
	switch {
	case errors.Is(err, account.ErrMissingField):
		h.rd.redirect(w, r, profilePath, flashError, "Username and email are required.")
		return
	case errors.Is(err, account.ErrPasswordMismatch):
		h.rd.redirect(w, r, profilePath, flashError, "Passwords do not match")
		return
	case errors.Is(err, account.ErrDuplicateIdentity):
		h.rd.redirect(w, r, profilePath, flashError, "Username or email already taken")
		return
	case errors.Is(err, account.ErrUserNotFound):
		http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
		return
	case errors.Is(err, account.ErrMailDispatch):
		h.logger.Warn("verification mail failed", "user_id", auth.UserID(r.Context()), "error", err)
		h.rd.redirect(w, r, profilePath, flashWarning,
			"Email updated, but the verification email could not be sent. Ask another admin to resend it.")
		return
	case err != nil:
		h.rd.serverError(w, "update profile", err)
		return
	}

	if res.ReverifyRequired {
		h.rd.redirect(w, r, profilePath, flashInfo,
			"Email changed. Check your new inbox for a verification link before your next login.")
		return
	}
	h.rd.redirect(w, r, profilePath, flashSuccess, "Profile updated successfully!")
}
