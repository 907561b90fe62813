package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mnjoroge/rentdash/internal/agentedit"
	"github.com/mnjoroge/rentdash/internal/config"
	"github.com/mnjoroge/rentdash/internal/db"
	"github.com/mnjoroge/rentdash/internal/logger"
	"github.com/mnjoroge/rentdash/internal/metrics"
	"github.com/mnjoroge/rentdash/internal/middleware"
	"github.com/mnjoroge/rentdash/internal/reconcile"
	"github.com/mnjoroge/rentdash/internal/repository"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load(".")
	if err != nil {
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	// Setup database connection
	conn, err := db.NewConnection(ctx, cfg.Database)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	// Run migrations
	if err := db.RunMigrations(cfg.Database, cfg.MigrationsPath); err != nil {
		log.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	// Create repositories
	agentRepo := repository.NewAgentRepository(conn.Pool)
	historyRepo := repository.NewHistoryRepository(conn.Pool)
	derived := []repository.DenormalizedRepository{
		repository.NewTenantRepository(conn.Pool),
		repository.NewEarningsRepository(conn.Pool),
		repository.NewActivityLogRepository(conn.Pool),
	}

	// Wire the edit engine
	propagator := agentedit.NewPropagator(agentRepo, historyRepo, derived, log)
	undoEngine := agentedit.NewUndoEngine(historyRepo, propagator,
		time.Duration(cfg.UndoWindowHours)*time.Hour, log)
	service := agentedit.NewService(
		agentedit.NewValidator(),
		agentedit.NewConflictChecker(agentRepo, log),
		propagator,
		undoEngine,
		historyRepo,
		m,
		log,
	)

	// Scheduled consistency scan for partially-applied edits
	if cfg.Reconcile.Enabled {
		scanner := reconcile.NewScanner(agentRepo, derived, m, log)
		job, jobErr := reconcile.NewJob(scanner, cfg.Reconcile.Schedule, log)
		if jobErr != nil {
			log.Error("failed to schedule reconciliation scan", "error", jobErr)
			os.Exit(1)
		}
		job.Start()
		defer job.Stop()
	}

	// Setup CORS
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
	})

	editHandler := agentedit.NewHTTPHandler(service)

	mux := http.NewServeMux()
	mux.Handle("/api/agents/edits", editHandler)
	mux.Handle("/api/agents/edits/", editHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if pingErr := conn.Pool.Ping(r.Context()); pingErr != nil {
			http.Error(w, "database unreachable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	handler := corsHandler.Handler(middleware.Logging(log, m)(mux))

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info("starting server", "addr", cfg.Server.Addr)
		if serveErr := server.ListenAndServe(); serveErr != nil && serveErr != http.ErrServerClosed {
			log.Error("server failed", "error", serveErr)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	log.Info("server exited")
}
