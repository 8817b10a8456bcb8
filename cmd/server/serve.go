package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ashureev/coachlab/internal/api"
	"github.com/ashureev/coachlab/internal/coach"
	"github.com/ashureev/coachlab/internal/config"
	"github.com/ashureev/coachlab/internal/identity"
	"github.com/ashureev/coachlab/internal/middleware"
	"github.com/ashureev/coachlab/internal/scenario"
	"github.com/ashureev/coachlab/internal/session"
	"github.com/ashureev/coachlab/internal/socket"
	"github.com/ashureev/coachlab/internal/store"
	"github.com/ashureev/coachlab/web"
)

const (
	shutdownTimeout = 10 * time.Second
	pruneInterval   = time.Hour
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and WebSocket server (default)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(os.Stdout)
		if err != nil {
			return err
		}
		return runServer(cmd.Context(), cfg)
	},
}

func runServer(ctx context.Context, cfg *config.Config) error {
	slog.Info("Starting server",
		"port", cfg.Port,
		"dev", cfg.IsDevelopment(),
		"provider", cfg.LLM.Provider,
		"model", cfg.LLM.Model)

	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()
	slog.Info("Database connected", "path", cfg.DBPath)

	completer, err := newCompleter(ctx, cfg.LLM)
	if err != nil {
		return fmt.Errorf("initialize %s client: %w", cfg.LLM.Provider, err)
	}

	sessions := session.NewManager()
	sockets := socket.NewRegistry()
	sessions.KeepIf(sockets.Connected)
	sessions.OnExpire(func(userID, sessionID string) {
		sockets.Close(userID, sessionID, "session expired")
	})

	svc := coach.NewService(coach.NewDispatcher(completer, cfg.LLM.Model), sessions, scenario.Default())

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newRouter(cfg, repo, svc, sockets),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      0, // remote calls have no deadline
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		err := srv.Shutdown(shutdownCtx)
		sockets.CloseAll("server shutting down")
		if err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return session.RunSweeper(gctx, sessions, cfg.SessionTTL, cfg.SweepInterval)
	})

	g.Go(func() error {
		return store.RunPruner(gctx, repo, identity.CookieMaxAge, pruneInterval)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("Server stopped successfully")
	return nil
}

func newRouter(cfg *config.Config, repo store.Repository, svc *coach.Service, sockets *socket.Registry) http.Handler {
	origins := []string{"*"}
	if cfg.FrontendURL != "" {
		origins = []string{cfg.FrontendURL}
	}

	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS(origins, identity.SessionHeaderName))
	r.Use(identity.Middleware(repo, cfg.IsDevelopment()))

	api.NewHealthHandler(repo, cfg.LLM.Provider, cfg.LLM.Model).RegisterRoutes(r)
	api.NewCoachHandler(svc, cfg.MaxRequestBodySize).RegisterRoutes(r)

	wsOrigin := cfg.FrontendURL
	if wsOrigin == "" {
		wsOrigin = "*"
	}
	r.Get("/ws/chat", socket.NewChatHandler(svc, sockets, wsOrigin, cfg.IsDevelopment(), cfg.MaxRequestBodySize).ServeHTTP)

	r.Handle("/*", web.SPAHandler())

	return r
}
