package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/tiv91/intimshopbot/internal/handler"
	"github.com/tiv91/intimshopbot/internal/repositories"
	"github.com/tiv91/intimshopbot/internal/router"
	"github.com/tiv91/intimshopbot/internal/service"
	"github.com/tiv91/intimshopbot/internal/telegram"
	"github.com/tiv91/intimshopbot/pkg/config"
	"github.com/tiv91/intimshopbot/pkg/database"
	"github.com/tiv91/intimshopbot/pkg/flags"
	"github.com/tiv91/intimshopbot/pkg/logger"
	"github.com/tiv91/intimshopbot/pkg/metrics"
	"github.com/tiv91/intimshopbot/pkg/shutdownsetup"
	"github.com/tiv91/intimshopbot/pkg/tracing"
)

func run(parent context.Context, fc flags.Config) error {
	cfg, err := loadConfig(fc)
	if err != nil {
		return err
	}

	appLogger := logger.New(cfg.Log)
	defer appLogger.Close()

	if err := cfg.Validate(); err != nil {
		appLogger.Error("Invalid configuration", "error", err)
		return fmt.Errorf("invalid configuration: %w", err)
	}

	appLogger.Info("Starting store bot",
		"version", Version,
		"environment", cfg.Log.Environment,
		"log_level", cfg.Log.Level,
		"session_backend", cfg.Session.Backend)

	ctx, stop := shutdownsetup.NotifyContext(parent)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, appName, cfg.Tracing.Exporter, cfg.Tracing.Endpoint)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownsetup.DefaultTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			appLogger.Warn("Failed to flush traces", "error", err)
		}
	}()

	appMetrics := metrics.NewDefault()

	// Spreadsheet
	sheetsClient, err := repositories.NewSheetsClient(ctx, repositories.SheetsClientConfig{
		SpreadsheetID:     cfg.Sheets.SpreadsheetID,
		SpreadsheetName:   cfg.Sheets.SpreadsheetName,
		RequestsPerMinute: cfg.Sheets.RequestsPerMinute,
		Burst:             cfg.Sheets.Burst,
		Timeout:           cfg.Sheets.Timeout,
	}, appMetrics, appLogger, googleOptions(cfg.Sheets)...)
	if err != nil {
		appLogger.Error("Failed to open spreadsheet", "error", err)
		return err
	}

	appLogger.Info("Using spreadsheet",
		"spreadsheet_id", sheetsClient.SpreadsheetID(),
		"orders_sheet", cfg.Sheets.OrdersSheet,
		"currency", cfg.Shop.Currency)

	cols := cfg.Sheets.Columns
	catalogRepo := repositories.NewCatalogRepository(sheetsClient, cfg.Sheets.OrdersSheet, repositories.Columns{
		ID:          cols.ID,
		Name:        cols.Name,
		Description: cols.Description,
		Price:       cols.Price,
		Photo:       cols.Photo,
	}, cfg.Shop.Currency, appLogger)
	orderRepo := repositories.NewOrderRepository(sheetsClient, cfg.Sheets.OrdersSheet, cfg.Shop.Currency, appLogger)

	sessions, health, closeSessions, err := openSessions(ctx, cfg, appLogger)
	if err != nil {
		return err
	}
	defer closeSessions()

	// Services
	catalogService := service.NewCatalogService(catalogRepo, appLogger)
	cartService := service.NewCartService(sessions, appLogger)
	orderService := service.NewOrderService(orderRepo, sessions, appMetrics, appLogger)

	// Telegram
	tgConfig := telegram.Config{
		Token:                cfg.Telegram.Token,
		PollTimeout:          cfg.Telegram.PollTimeout,
		MaxConcurrentUpdates: cfg.Telegram.MaxConcurrentUpdates,
		Debug:                cfg.Telegram.Debug,
	}
	bot, err := telegram.NewBotAPI(tgConfig)
	if err != nil {
		appLogger.Error("Failed to authorize bot", "error", err)
		return err
	}
	appLogger.Info("Authorized on Telegram", "bot", bot.Self.UserName)

	filters := make([]handler.PriceFilter, 0, len(cfg.Shop.PriceFilters))
	for _, f := range cfg.Shop.PriceFilters {
		filters = append(filters, handler.PriceFilter{Label: f.Label, Min: f.Min, Max: f.Max})
	}

	botHandler := handler.NewBotHandler(catalogService, cartService, orderService,
		telegram.NewMessenger(bot, appLogger),
		handler.Options{
			Currency:     cfg.Shop.Currency,
			AdminChatID:  cfg.Telegram.AdminChatID,
			PriceFilters: filters,
		}, appMetrics, appLogger)

	gateway := telegram.NewGateway(bot, router.New(botHandler, appMetrics, appLogger), tgConfig, appLogger)

	// Ops server
	mux := http.NewServeMux()
	mux.Handle("/metrics", appMetrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := health(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr:         cfg.Ops.Host + ":" + cfg.Ops.Port,
		Handler:      appLogger.HTTPMiddleware(mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		appLogger.Info("Starting ops HTTP server", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("Ops server error", "error", err)
			return err
		}
		return nil
	})
	g.Go(func() error {
		return shutdownsetup.ShutdownServer(gctx, server, shutdownsetup.DefaultTimeout, appLogger)
	})
	g.Go(func() error {
		return gateway.Run(gctx)
	})

	err = g.Wait()
	appLogger.Info("Store bot stopped")
	return err
}

// googleOptions picks credentials, or an unauthenticated endpoint for emulators.
func googleOptions(cfg config.SheetsConfig) []option.ClientOption {
	if cfg.Endpoint != "" {
		return []option.ClientOption{
			option.WithEndpoint(cfg.Endpoint),
			option.WithoutAuthentication(),
		}
	}
	return []option.ClientOption{
		option.WithCredentialsFile(cfg.CredentialsFile),
		option.WithScopes(sheets.SpreadsheetsScope, drive.DriveReadonlyScope),
	}
}

// openSessions builds the configured session store along with a health
// check and a close function.
func openSessions(ctx context.Context, cfg *config.Config, log *logger.Logger) (repositories.SessionRepositoryInterface, func(context.Context) error, func(), error) {
	noHealth := func(context.Context) error { return nil }

	switch cfg.Session.Backend {
	case config.BackendRedis:
		store, err := repositories.NewRedisSessionRepository(ctx, cfg.Session.RedisURL, cfg.Session.TTL, log)
		if err != nil {
			log.Error("Failed to open redis session store", "error", err)
			return nil, nil, nil, err
		}
		return store, store.Ping, func() {
			if err := store.Close(); err != nil {
				log.Warn("Failed to close redis client", "error", err)
			}
		}, nil

	case config.BackendPostgres:
		db, err := database.NewConnection(ctx, cfg.Database, log)
		if err != nil {
			return nil, nil, nil, err
		}
		store := repositories.NewPostgresSessionRepository(db, log)
		if err := store.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, nil, err
		}
		return store, db.HealthCheck, func() {
			db.LogStats()
			if err := db.Close(); err != nil {
				log.Error("Failed to close database connection", "error", err)
			}
		}, nil

	default:
		log.Warn("Using in-memory sessions; carts are lost on restart")
		return repositories.NewMemorySessionRepository(log), noHealth, func() {}, nil
	}
}
