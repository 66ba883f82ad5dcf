package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/evenly-app/evenly/internal/config"
	"github.com/evenly-app/evenly/internal/engine"
	"github.com/evenly-app/evenly/internal/models"
	"github.com/evenly-app/evenly/internal/service"
	"github.com/evenly-app/evenly/internal/storage/sqlite"
	"github.com/evenly-app/evenly/pkg/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.SlogLevel())

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", cfg.DBPath)

	// The coordinator republishes every snapshot; the log publisher
	// stands in for the dashboard's push channel.
	coord := engine.New(logPublisher{})

	r := mux.NewRouter()
	service.NewProfileService(store).Register(r)
	service.NewGroupService(store, coord).Register(r)
	service.NewExpenseService(store, coord).Register(r)
	service.NewSettlementService(store, coord).Register(r)

	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)

	handler := loggingMiddleware(corsMiddleware(r))

	slog.Info("Server starting", "address", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, handler); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

// logPublisher logs republished snapshots at debug level.
type logPublisher struct{}

func (logPublisher) Publish(_ context.Context, snap *models.Snapshot) {
	slog.Debug("Snapshot published",
		"group_id", snap.GroupID,
		"transfers", len(snap.Plan),
	)
}

// loggingMiddleware logs all incoming requests.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		next.ServeHTTP(w, r)

		slog.Info("Request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// corsMiddleware adds CORS headers for browser access.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
