package server

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/dukerupert/rjweb/internal/account"
	"github.com/dukerupert/rjweb/internal/config"
	"github.com/dukerupert/rjweb/internal/handler"
	"github.com/dukerupert/rjweb/internal/middleware"
	"github.com/dukerupert/rjweb/internal/store"
	"github.com/dukerupert/rjweb/internal/upload"
	ws "github.com/dukerupert/rjweb/internal/websocket"
	"github.com/dukerupert/rjweb/web"
)

type Server struct {
	db           *sql.DB
	hub          *ws.Hub
	accounts     *account.Service
	publicH      *handler.PublicHandler
	authH        *handler.AuthHandler
	userH        *handler.UserHandler
	adminH       *handler.AdminHandler
	sessionStore *store.SessionStore
	userStore    *store.AdminUserStore
	storage      upload.Storage
	origins      []string
	logger       *slog.Logger
}

// New wires stores, services and handlers around db. mailer delivers
// verification links and storage receives admin image uploads.
func New(db *sql.DB, cfg *config.Config, mailer account.VerificationSender, storage upload.Storage, logger *slog.Logger, opts ...account.Option) (*Server, error) {
	hub := ws.NewHub(logger)

	userStore := store.NewAdminUserStore(db)
	sessionStore := store.NewSessionStore(db)
	contentStore := store.NewContentStore(db)
	postStore := store.NewPostStore(db)
	messageStore := store.NewMessageStore(db)

	accounts := account.NewService(userStore, mailer, opts...)

	tmpl, err := handler.LoadTemplates(web.Templates())
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}
	rd := handler.NewRenderer(tmpl, cfg.SiteName, cfg.SecureCookies, logger.With("component", "render"))

	httpLogger := logger.With("component", "handler")

	// Browsers on the public base URL may open the dashboard socket.
	var origins []string
	if u, err := url.Parse(cfg.BaseURL); err == nil && u.Host != "" {
		origins = append(origins, u.Host)
	}

	return &Server{
		db:           db,
		hub:          hub,
		accounts:     accounts,
		publicH:      handler.NewPublicHandler(contentStore, postStore, messageStore, hub, rd, httpLogger),
		authH:        handler.NewAuthHandler(accounts, sessionStore, rd, httpLogger),
		userH:        handler.NewUserHandler(accounts, rd, httpLogger),
		adminH:       handler.NewAdminHandler(contentStore, postStore, messageStore, upload.NewUploader(storage), hub, rd, httpLogger),
		sessionStore: sessionStore,
		userStore:    userStore,
		storage:      storage,
		origins:      origins,
		logger:       logger,
	}, nil
}

// Accounts exposes the account service for startup bootstrapping.
func (s *Server) Accounts() *account.Service {
	return s.accounts
}

// SessionStore exposes the session store for expiry cleanup.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

func (s *Server) Hub() *ws.Hub {
	return s.hub
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	// Public site
	mux.HandleFunc("GET /{$}", s.publicH.Home)
	mux.HandleFunc("GET /about", s.publicH.About)
	mux.HandleFunc("GET /services", s.publicH.Services)
	mux.HandleFunc("GET /blog", s.publicH.Blog)
	mux.HandleFunc("GET /contact", s.publicH.ContactPage)
	mux.HandleFunc("POST /contact", s.publicH.Contact)
	mux.HandleFunc("GET /health", s.healthHandler)

	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(web.Static())))
	if local, ok := s.storage.(*upload.LocalStorage); ok {
		mux.Handle("GET /static/uploads/", http.StripPrefix("/static/uploads/", http.FileServer(http.Dir(local.Dir()))))
	}

	// Login and email verification
	mux.HandleFunc("GET /admin/login", s.authH.LoginPage)
	mux.HandleFunc("POST /admin/login", s.authH.Login)
	mux.HandleFunc("GET /verify-email/{token}", s.authH.VerifyEmail)

	s.registerAdminRoutes(mux)

	return middleware.RequestLogger(s.logger.With("component", "http"))(mux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("health check", "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"status": "unavailable"})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// registerAdminRoutes mounts every /admin page behind the session gate.
// Responses are never cached, including the redirect to the login page.
func (s *Server) registerAdminRoutes(mux *http.ServeMux) {
	requireAuth := middleware.RequireAuth(s.sessionStore, s.userStore)
	admin := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, middleware.Chain(h, middleware.NoCache, requireAuth))
	}

	admin("GET /admin", s.adminH.Dashboard)
	admin("GET /admin/{$}", s.adminH.Dashboard)
	admin("GET /admin/logout", s.authH.Logout)
	admin("POST /admin/logout", s.authH.Logout)

	admin("GET /admin/edit-home", s.adminH.EditHomePage)
	admin("POST /admin/edit-home", s.adminH.EditHome)
	admin("GET /admin/edit-about", s.adminH.EditAboutPage)
	admin("POST /admin/edit-about", s.adminH.EditAbout)
	admin("GET /admin/edit-services", s.adminH.EditServicesPage)
	admin("POST /admin/edit-services", s.adminH.EditServices)
	admin("GET /admin/manage-blog", s.adminH.ManageBlogPage)
	admin("POST /admin/manage-blog", s.adminH.ManageBlog)

	// Inbox actions also answer plain GET links.
	admin("GET /admin/mark-read/{id}", s.adminH.MarkRead)
	admin("POST /admin/mark-read/{id}", s.adminH.MarkRead)
	admin("GET /admin/delete-message/{id}", s.adminH.DeleteMessage)
	admin("POST /admin/delete-message/{id}", s.adminH.DeleteMessage)

	admin("GET /admin/users", s.userH.List)
	admin("POST /admin/users", s.userH.Create)
	admin("POST /admin/resend-verification/{id}", s.userH.ResendVerification)
	admin("POST /admin/delete-user/{id}", s.userH.Delete)
	admin("GET /admin/profile", s.userH.Profile)
	admin("POST /admin/profile", s.userH.UpdateProfile)

	admin("GET /admin/ws", ws.HandleWebSocket(s.hub, s.origins...))
}
