// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Shivanand-hulikatti/eventpulse/internal/analytics"
	"github.com/Shivanand-hulikatti/eventpulse/internal/auth"
	"github.com/Shivanand-hulikatti/eventpulse/internal/catalog"
	"github.com/Shivanand-hulikatti/eventpulse/internal/config"
	"github.com/Shivanand-hulikatti/eventpulse/internal/database"
	"github.com/Shivanand-hulikatti/eventpulse/internal/docstore"
	"github.com/Shivanand-hulikatti/eventpulse/internal/engagement"
	"github.com/Shivanand-hulikatti/eventpulse/internal/handler"
	"github.com/Shivanand-hulikatti/eventpulse/internal/ledger"
	"github.com/Shivanand-hulikatti/eventpulse/internal/metrics"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	if err := run(log); err != nil {
		log.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	// ── 1. Open the document store ────────────────────────────────────────
	storeOpts := []docstore.Option{
		docstore.WithMaxAttempts(cfg.TxMaxAttempts),
		docstore.WithRerunHook(m.TxReruns.Inc),
	}

	var store docstore.Store
	switch cfg.StoreDriver {
	case "memory":
		store = docstore.NewMemoryStore(storeOpts...)
		log.Info("using in-memory document store")
	case "postgres":
		pool, err := database.NewPool(ctx, cfg.Database, log)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer pool.Close()

		pg := docstore.NewPostgresStore(pool, storeOpts...)
		if err := pg.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("schema: %w", err)
		}
		store = pg
		log.Info("connected to postgres document store")
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	// ── 2. Wire up layers ────────────────────────────────────────────────
	cat := catalog.New(store)
	led := ledger.New(store)
	tog := engagement.New(store)
	agg := analytics.New(store, log)
	h := handler.NewEventHandler(cat, led, tog, agg, m)

	// ── 3. Build the router ───────────────────────────────────────────────
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(handler.Logger(log))
	r.Use(handler.Instrument(m))
	r.Use(handler.CORS)
	r.Use(auth.Middleware)

	r.Get("/health", handler.HealthCheck)
	r.Method(http.MethodGet, "/metrics", metrics.Handler(registry))

	r.Route("/events", func(r chi.Router) {
		r.Get("/", h.ListEvents)
		r.Get("/{id}", h.GetEvent)
		r.Get("/{id}/registrations", h.ListRegistrations)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireUser)
			r.Post("/", h.CreateEvent)
			r.Put("/{id}", h.UpdateEvent)
			r.Delete("/{id}", h.DeleteEvent)
			r.Post("/{id}/register", h.Register)
			r.Post("/{id}/like", h.ToggleLike)
		})
	})

	r.Route("/organizers/me", func(r chi.Router) {
		r.Use(auth.RequireUser)
		r.Get("/events", h.OrganizerEvents)
		r.Get("/stats", h.OrganizerStats)
	})

	// ── 4. Start server with graceful shutdown ────────────────────────────
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case sig := <-quit:
		log.Info("shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	log.Info("server stopped")
	return nil
}
