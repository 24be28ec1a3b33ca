package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dukerupert/rjweb/internal/account"
	"github.com/dukerupert/rjweb/internal/config"
	"github.com/dukerupert/rjweb/internal/database"
	"github.com/dukerupert/rjweb/internal/upload"
)

type captureMailer struct {
	mu     sync.Mutex
	tokens map[string]string
}

func (m *captureMailer) SendVerification(_ context.Context, email, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[email] = token
	return nil
}

func (m *captureMailer) token(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokens[email]
}

type testApp struct {
	srv    *Server
	router http.Handler
	mailer *captureMailer
}

func setupTestApp(t *testing.T) *testApp {
	t.Helper()

	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := config.Default()
	cfg.Uploads.Dir = t.TempDir()
	storage, err := upload.New(cfg.Uploads)
	require.NoError(t, err)

	mailer := &captureMailer{tokens: make(map[string]string)}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	srv, err := New(db, cfg, mailer, storage, logger, account.WithHashCost(bcrypt.MinCost))
	require.NoError(t, err)

	_, err = srv.Accounts().Bootstrap(context.Background(), account.BootstrapUser{
		Username: "admin",
		Email:    "admin@example.com",
		Password: "admin123",
	})
	require.NoError(t, err)

	return &testApp{srv: srv, router: srv.Router(), mailer: mailer}
}

func (a *testApp) do(method, path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, path, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for _, c := range cookies {
		if c != nil {
			req.AddCookie(c)
		}
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func responseCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// flashText renders the login page with the flash cookie set by rec.
func (a *testApp) flashText(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	flash := responseCookie(rec, "rjweb_flash")
	require.NotNil(t, flash, "expected a flash cookie")
	page := a.do(http.MethodGet, "/admin/login", nil, flash)
	require.Equal(t, http.StatusOK, page.Code)
	return page.Body.String()
}

func (a *testApp) login(t *testing.T, username, password string) *http.Cookie {
	t.Helper()
	rec := a.do(http.MethodPost, "/admin/login", url.Values{"username": {username}, "password": {password}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/admin", rec.Header().Get("Location"))
	session := responseCookie(rec, "rjweb_session")
	require.NotNil(t, session)
	return session
}

func TestHealth(t *testing.T) {
	app := setupTestApp(t)
	rec := app.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestPublicPages(t *testing.T) {
	app := setupTestApp(t)
	for _, path := range []string{"/", "/about", "/services", "/blog", "/contact", "/admin/login", "/static/css/site.css"} {
		rec := app.do(http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestAdminRequiresSession(t *testing.T) {
	app := setupTestApp(t)

	for _, path := range []string{"/admin", "/admin/users", "/admin/profile", "/admin/edit-home"} {
		rec := app.do(http.MethodGet, path, nil)
		assert.Equal(t, http.StatusSeeOther, rec.Code, path)
		assert.Equal(t, "/admin/login", rec.Header().Get("Location"), path)
		assert.Contains(t, rec.Header().Get("Cache-Control"), "no-store", path)
	}

	bogus := &http.Cookie{Name: "rjweb_session", Value: "not-a-token"}
	rec := app.do(http.MethodGet, "/admin", nil, bogus)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestLoginAndDashboard(t *testing.T) {
	app := setupTestApp(t)
	session := app.login(t, "admin", "admin123")
	assert.True(t, session.HttpOnly)

	rec := app.do(http.MethodGet, "/admin", nil, session)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Dashboard")
	assert.Contains(t, rec.Header().Get("Cache-Control"), "no-store")
}

func TestLoginWrongPassword(t *testing.T) {
	app := setupTestApp(t)
	rec := app.do(http.MethodPost, "/admin/login", url.Values{"username": {"admin"}, "password": {"nope"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/login", rec.Header().Get("Location"))
	assert.Nil(t, responseCookie(rec, "rjweb_session"))
	assert.Contains(t, app.flashText(t, rec), "Invalid username or password")
}

func TestCreateVerifyAndLogin(t *testing.T) {
	app := setupTestApp(t)
	session := app.login(t, "admin", "admin123")

	rec := app.do(http.MethodPost, "/admin/users", url.Values{
		"username": {"editor"},
		"email":    {"editor@example.com"},
		"password": {"s3cret"},
	}, session)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, app.flashText(t, rec), "User &#39;editor&#39; created. A verification email has been sent.")

	token := app.mailer.token("editor@example.com")
	require.NotEmpty(t, token)

	// Unverified users cannot log in.
	rec = app.do(http.MethodPost, "/admin/login", url.Values{"username": {"editor"}, "password": {"s3cret"}})
	assert.Equal(t, "/admin/login", rec.Header().Get("Location"))
	assert.Contains(t, app.flashText(t, rec), "Your email is not verified")

	rec = app.do(http.MethodGet, "/verify-email/"+token, nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, app.flashText(t, rec), "Email verified")

	app.login(t, "editor", "s3cret")

	// Tokens are single use.
	rec = app.do(http.MethodGet, "/verify-email/"+token, nil)
	assert.Contains(t, app.flashText(t, rec), "Invalid or expired verification link.")
}

func TestCreateDuplicateUser(t *testing.T) {
	app := setupTestApp(t)
	session := app.login(t, "admin", "admin123")

	rec := app.do(http.MethodPost, "/admin/users", url.Values{
		"username": {"admin"},
		"email":    {"other@example.com"},
		"password": {"pw"},
	}, session)
	assert.Contains(t, app.flashText(t, rec), "Username or email already exists.")
}

func TestDeleteUserRules(t *testing.T) {
	app := setupTestApp(t)
	session := app.login(t, "admin", "admin123")

	rec := app.do(http.MethodPost, "/admin/delete-user/1", nil, session)
	assert.Equal(t, "/admin/users", rec.Header().Get("Location"))
	assert.Contains(t, app.flashText(t, rec), "You cannot delete your own account.")

	rec = app.do(http.MethodPost, "/admin/users", url.Values{
		"username": {"editor"},
		"email":    {"editor@example.com"},
		"password": {"pw"},
	}, session)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	rec = app.do(http.MethodPost, "/admin/delete-user/2", nil, session)
	assert.Contains(t, app.flashText(t, rec), "User deleted.")

	rec = app.do(http.MethodPost, "/admin/delete-user/2", nil, session)
	assert.Contains(t, app.flashText(t, rec), "Cannot delete the last admin user.")
}

func TestLogout(t *testing.T) {
	app := setupTestApp(t)
	session := app.login(t, "admin", "admin123")

	rec := app.do(http.MethodGet, "/admin/logout", nil, session)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	rec = app.do(http.MethodGet, "/admin", nil, session)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/login", rec.Header().Get("Location"))
}

func TestContactReachesDashboard(t *testing.T) {
	app := setupTestApp(t)

	rec := app.do(http.MethodPost, "/contact", url.Values{
		"name":    {"Jane"},
		"email":   {"jane@example.com"},
		"message": {"Do you do kitchens?"},
	})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/contact", rec.Header().Get("Location"))

	session := app.login(t, "admin", "admin123")
	rec = app.do(http.MethodGet, "/admin", nil, session)
	assert.Contains(t, rec.Body.String(), "Do you do kitchens?")
	assert.Contains(t, rec.Body.String(), `<strong id="unread-count">1</strong>`)
}

func TestContactMissingFields(t *testing.T) {
	app := setupTestApp(t)
	rec := app.do(http.MethodPost, "/contact", url.Values{"name": {"Jane"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, app.flashText(t, rec), "Please fill in all fields.")
}

func TestProfileUpdate(t *testing.T) {
	app := setupTestApp(t)
	session := app.login(t, "admin", "admin123")

	rec := app.do(http.MethodGet, "/admin/profile", nil, session)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `value="admin@example.com"`)

	rec = app.do(http.MethodPost, "/admin/profile", url.Values{
		"username":         {"boss"},
		"email":            {"admin@example.com"},
		"password":         {"newpass"},
		"confirm_password": {"other"},
	}, session)
	assert.Contains(t, app.flashText(t, rec), "Passwords do not match")

	rec = app.do(http.MethodPost, "/admin/profile", url.Values{
		"username":         {"boss"},
		"email":            {"admin@example.com"},
		"password":         {"newpass"},
		"confirm_password": {"newpass"},
	}, session)
	assert.Equal(t, "/admin/profile", rec.Header().Get("Location"))
	assert.Contains(t, app.flashText(t, rec), "Profile updated successfully!")

	app.login(t, "boss", "newpass")
}

func TestProfileEmailChangeRequiresVerification(t *testing.T) {
	app := setupTestApp(t)
	session := app.login(t, "admin", "admin123")

	rec := app.do(http.MethodPost, "/admin/profile", url.Values{
		"username": {"admin"},
		"email":    {"new@example.com"},
	}, session)
	assert.Contains(t, app.flashText(t, rec), "Check your new inbox")

	token := app.mailer.token("new@example.com")
	require.NotEmpty(t, token)

	rec = app.do(http.MethodPost, "/admin/login", url.Values{"username": {"admin"}, "password": {"admin123"}})
	assert.Equal(t, "/admin/login", rec.Header().Get("Location"))

	app.do(http.MethodGet, "/verify-email/"+token, nil)
	app.login(t, "admin", "admin123")
}

func TestResendVerification(t *testing.T) {
	app := setupTestApp(t)
	session := app.login(t, "admin", "admin123")

	rec := app.do(http.MethodPost, "/admin/resend-verification/1", nil, session)
	assert.Contains(t, app.flashText(t, rec), "is already verified")

	app.do(http.MethodPost, "/admin/users", url.Values{
		"username": {"editor"},
		"email":    {"editor@example.com"},
		"password": {"pw"},
	}, session)
	first := app.mailer.token("editor@example.com")

	rec = app.do(http.MethodPost, "/admin/resend-verification/2", nil, session)
	assert.Contains(t, app.flashText(t, rec), "Verification email sent to editor@example.com.")
	assert.Equal(t, first, app.mailer.token("editor@example.com"))
}
