package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukerupert/rjweb/internal/account"
	"github.com/dukerupert/rjweb/internal/config"
	"github.com/dukerupert/rjweb/internal/database"
	"github.com/dukerupert/rjweb/internal/logging"
	"github.com/dukerupert/rjweb/internal/mail"
	"github.com/dukerupert/rjweb/internal/server"
	"github.com/dukerupert/rjweb/internal/store"
	"github.com/dukerupert/rjweb/internal/upload"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	sender, err := mail.New(cfg.Mail, logger.With("component", "mail"))
	if err != nil {
		logger.Error("failed to configure mail", "error", err)
		os.Exit(1)
	}
	mailer := mail.NewDispatcher(sender, cfg.BaseURL, cfg.SiteName)

	storage, err := upload.New(cfg.Uploads)
	if err != nil {
		logger.Error("failed to configure uploads", "error", err)
		os.Exit(1)
	}

	srv, err := server.New(db, cfg, mailer, storage, logger)
	if err != nil {
		logger.Error("failed to build server", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	created, err := srv.Accounts().Bootstrap(ctx, account.BootstrapUser{
		Username: cfg.Admin.Username,
		Email:    cfg.Admin.Email,
		Password: cfg.Admin.Password,
	})
	if err != nil {
		logger.Error("failed to bootstrap admin user", "error", err)
		os.Exit(1)
	}
	if created {
		logger.Warn("created default admin user, change its password after first login", "username", cfg.Admin.Username)
	}

	if seeded, err := store.NewPostStore(db).SeedIfEmpty(ctx, time.Now().Format(store.PostDateLayout)); err != nil {
		logger.Error("failed to seed blog", "error", err)
		os.Exit(1)
	} else if seeded {
		logger.Info("seeded welcome blog post")
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Background cleanup goroutine
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n, err := srv.SessionStore().DeleteExpired(cleanupCtx); err != nil {
					logger.Error("cleanup expired sessions", "error", err)
				} else if n > 0 {
					logger.Info("cleaned up expired sessions", "count", n)
				}
			case <-cleanupCtx.Done():
				return
			}
		}
	}()

	go func() {
		logger.Info("rjweb starting", "addr", httpServer.Addr, "base_url", cfg.BaseURL)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	cleanupCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
