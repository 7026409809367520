package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"spinify/internal/api"
	"spinify/internal/config"
	"spinify/internal/database"
	"spinify/internal/domain"
	"spinify/internal/events"
	"spinify/internal/export"
	"spinify/internal/google"
	"spinify/internal/logging"
	"spinify/internal/metrics"
	"spinify/internal/repository"
	"spinify/internal/secret"
	"spinify/internal/service"
	"spinify/internal/worker"

	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	metrics.Register()

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return err
	}
	defer db.Close()

	box, err := secret.NewBox(cfg.Security.EncryptionKey)
	if err != nil {
		return fmt.Errorf("init encryption: %w", err)
	}

	nonceRepo := initNonceRepository(cfg, &logger)
	defer nonceRepo.Close()

	bus := events.NewEventBus()
	subscribeMetrics(bus)

	userService := service.NewUserService(db, bus, cfg.Limits, &logger)
	groupService := service.NewGroupService(db, userService, bus, cfg.Limits, &logger)
	sessionService := service.NewSessionService(db, box, bus, &logger)
	nonceService := service.NewNonceService(nonceRepo, time.Duration(cfg.Limits.NonceTTLSeconds)*time.Second, &logger)
	exporter := export.NewExporter(db, cfg.Exports.Path, &logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startRosterWorker(ctx, cfg, db, bus, &logger)

	backupService := database.NewBackupService(cfg.Database.Path, cfg.Backup, &logger)
	go backupService.Start(ctx)

	if !cfg.API.Enabled {
		logger.Warn().Msg("API is disabled in config, but starting API application. Check your config.")
	}

	httpServer := api.NewHTTPServer(api.Options{
		Config:     cfg.API,
		BotToken:   cfg.Telegram.BotToken,
		Users:      userService,
		Groups:     groupService,
		Sessions:   sessionService,
		Nonces:     nonceService,
		Stats:      db,
		Export:     exporter,
		UserLimit:  cfg.Limits.UserRateLimit,
		UserWindow: time.Duration(cfg.Limits.UserRateWindow) * time.Second,
		Logger:     &logger,
	})

	return serve(ctx, httpServer, cfg, &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, logger, closer, nil
}

// initNonceRepository prefers redis with an in-memory fallback; without a
// configured redis address login nonces live in memory only.
func initNonceRepository(cfg *config.Config, logger *zerolog.Logger) domain.NonceRepository {
	memory := repository.NewMemoryNonceRepository()

	if cfg.Redis.Address == "" {
		logger.Info().Msg("redis not configured, using in-memory nonce store")
		return memory
	}

	client := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(context.Background(), client); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, will keep retrying through failover")
	} else {
		logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	}

	return repository.NewFailoverNonceRepository(repository.NewRedisNonceRepository(client), memory, logger)
}

func subscribeMetrics(bus *events.EventBus) {
	bus.Subscribe(events.EventGroupAdded, func(*events.Event) error {
		metrics.IncGroupsAdded()
		return nil
	})
	bus.Subscribe(events.EventGroupEvicted, func(*events.Event) error {
		metrics.IncGroupsEvicted()
		return nil
	})
	bus.Subscribe(events.EventSessionBound, func(*events.Event) error {
		metrics.IncSessionsBound()
		return nil
	})
	bus.Subscribe(events.EventSessionRevoked, func(*events.Event) error {
		metrics.IncSessionsRevoked()
		return nil
	})
}

// startRosterWorker wires the spreadsheet mirror when google is configured.
// Roster-changing events request a sync; the worker also refreshes on a timer.
func startRosterWorker(ctx context.Context, cfg *config.Config, db *database.DB, bus *events.EventBus, logger *zerolog.Logger) {
	if cfg.Google.CredentialsFile == "" || cfg.Google.RosterSpreadsheetID == "" {
		return
	}

	sheetsService, err := google.NewSheetsService(cfg.Google.CredentialsFile, cfg.Google.RosterSpreadsheetID)
	if err != nil {
		logger.Warn().Err(err).Msg("google sheets init failed, continuing without sheets")
		return
	}
	if err := sheetsService.TestConnection(ctx); err != nil {
		logger.Warn().Err(err).Msg("google sheets connection check failed, continuing without sheets")
		return
	}
	logger.Info().Msg("google sheets connected")

	rosterWorker := worker.NewRosterWorker(
		db,
		sheetsService,
		time.Duration(cfg.Google.SyncIntervalMinutes)*time.Minute,
		worker.RetryPolicy{},
		logger,
	)

	for _, eventType := range []string{
		events.EventUserRegistered,
		events.EventUserDeleted,
		events.EventSessionBound,
		events.EventSessionRevoked,
		events.EventGroupAdded,
		events.EventGroupRemoved,
		events.EventPlanChanged,
	} {
		bus.Subscribe(eventType, func(e *events.Event) error {
			return rosterWorker.EnqueueSync(ctx)
		})
	}

	go rosterWorker.Start(ctx)
}

func serve(ctx context.Context, httpServer *api.HTTPServer, cfg *config.Config, logger *zerolog.Logger) error {
	go func() {
		if !cfg.API.HTTP.Enabled {
			return
		}
		if err := httpServer.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	logger.Info().Int("http_port", cfg.API.HTTP.Port).Msg("API server started")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = httpServer.Shutdown(shutdownCtx)

	logger.Info().Msg("API server stopped")
	return nil
}
