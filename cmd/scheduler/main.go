package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"github.com/example/firm-scheduler/internal/application"
	"github.com/example/firm-scheduler/internal/config"
	httptransport "github.com/example/firm-scheduler/internal/http"
	"github.com/example/firm-scheduler/internal/persistence/sqlite"
	"github.com/example/firm-scheduler/internal/provider/google"
	"github.com/example/firm-scheduler/internal/secrets"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Missing .env is fine; real deployments configure the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	pool, err := sqlite.NewConnectionPool(cfg.SQLiteDSN)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := pool.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := pool.Migrate(context.Background()); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	handler, err := buildHandler(cfg, pool, logger)
	if err != nil {
		logger.Error("failed to assemble services", "error", err)
		os.Exit(1)
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("scheduler API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

// buildHandler wires repositories, services and handlers into the HTTP stack.
func buildHandler(cfg config.Config, pool *sqlite.ConnectionPool, logger *slog.Logger) (http.Handler, error) {
	sealer, err := secrets.NewSealer(cfg.SealingKey)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize credential sealer: %w", err)
	}

	events := sqlite.NewEventRepository(pool)
	availability := sqlite.NewAvailabilityRepository(pool)
	appointments := sqlite.NewAppointmentRepository(pool)
	integrations := sqlite.NewIntegrationRepository(pool)
	shares := sqlite.NewShareRepository(pool)
	directory := sqlite.NewDirectoryRepository(pool)

	providers := application.NewProviderRegistry()
	providers.Register(google.Name, google.New(nil))

	idGenerator := uuid.NewString
	now := time.Now

	eventService := application.NewEventService(events, availability, directory, directory, nil, logger, idGenerator, now)
	availabilityService := application.NewAvailabilityService(availability, directory, logger, idGenerator, now)
	notifier := application.NewLogNotifier(logger)
	appointmentService := application.NewAppointmentService(appointments, events, availability, directory, notifier, nil, logger, idGenerator, now)
	bulkService := application.NewBulkService(events, availability, nil, logger, now, cfg.BulkWorkers)
	syncService := application.NewSyncService(integrations, events, directory, providers, sealer, nil, logger, idGenerator, now, cfg.ProviderTimeout, cfg.SyncWorkers)
	shareService := application.NewShareService(shares, directory, logger, idGenerator, now)

	return httptransport.NewRouter(httptransport.RouterConfig{
		Events:       httptransport.NewEventHandler(eventService, logger),
		Bulk:         httptransport.NewBulkHandler(bulkService, logger),
		Availability: httptransport.NewAvailabilityHandler(availabilityService, logger),
		Appointments: httptransport.NewAppointmentHandler(appointmentService, logger),
		Integrations: httptransport.NewIntegrationHandler(syncService, logger),
		Shares:       httptransport.NewShareHandler(shareService, logger),
		Middleware: []mux.MiddlewareFunc{
			httptransport.RequestLogger(logger),
			httptransport.RequireScope(logger),
		},
	}), nil
}
