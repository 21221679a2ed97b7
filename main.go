package main

import (
	"context"
	"log" // Use standard log only for initial fatal errors before logger is set up
	"os/signal"
	"syscall"
	"time"

	"paperTrader/config"
	"paperTrader/internal/adapters/binanceclient"
	"paperTrader/internal/adapters/dexapi"
	"paperTrader/internal/adapters/logger"
	"paperTrader/internal/adapters/rediscache"
	"paperTrader/internal/adapters/sqlite"
	"paperTrader/internal/app"
	"paperTrader/internal/auth"
	"paperTrader/internal/ledger"
	"paperTrader/internal/ports"
	"paperTrader/internal/server"
	"paperTrader/internal/server/handler"
	"paperTrader/internal/server/ws"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Initialize Logger
	appLogger := logger.NewStdLogger(cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	appLogger.Info(ctx, "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String()})

	// 3. Initialize State Store (Database Adapter)
	store, err := sqlite.NewStore(sqlite.Config{
		DBPath: cfg.DBPath,
		Logger: appLogger,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize state store: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			appLogger.Error(ctx, err, "Error closing state store")
		}
	}()

	// 4. Initialize Ledger and restore persisted state
	positionLedger, err := ledger.New(ledger.Config{
		Store:  store,
		Logger: appLogger,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize ledger: %v", err)
	}
	if err := positionLedger.Load(ctx); err != nil {
		log.Fatalf("FATAL: Failed to restore ledger state: %v", err)
	}

	// 5. Initialize Price Source (optionally behind the Redis cache)
	var priceSource ports.PriceSource
	dexClient, err := dexapi.New(dexapi.Config{
		BaseURL: cfg.PriceAPIURL,
		Timeout: cfg.PriceTimeout,
		Logger:  appLogger,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize price API client: %v", err)
	}
	priceSource = dexClient
	if cfg.RedisAddr != "" {
		cached, err := rediscache.New(rediscache.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.PriceCacheTTL,
			Logger:   appLogger,
		}, dexClient)
		if err != nil {
			log.Fatalf("FATAL: Failed to initialize price cache: %v", err)
		}
		defer cached.Close()
		priceSource = cached
		appLogger.Info(ctx, "Price cache enabled", map[string]interface{}{"addr": cfg.RedisAddr})
	}

	// 6. Initialize Quote Ticker (optional USD reference)
	var quoteTicker ports.QuoteTicker
	if cfg.QuoteSymbol != "" {
		quoteTicker, err = binanceclient.New(binanceclient.Config{Logger: appLogger})
		if err != nil {
			log.Fatalf("FATAL: Failed to initialize market-data client: %v", err)
		}
	}

	// 7. Initialize Sessions and WebSocket Hub
	sessions, err := auth.NewManager(auth.Config{
		SessionTTL: cfg.SessionTTL,
		Logger:     appLogger,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize session manager: %v", err)
	}
	hub := ws.NewHub(appLogger)

	// 8. Initialize Application Service
	dashboard, err := app.NewDashboardService(app.Config{
		RefreshInterval: cfg.RefreshInterval,
		QuoteSymbol:     cfg.QuoteSymbol,
	}, appLogger, positionLedger, priceSource, quoteTicker, hub)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize dashboard service: %v", err)
	}

	// 9. Build the HTTP server
	srv := server.NewServer(server.Config{
		Port:        cfg.HTTPPort,
		CORSOrigins: cfg.CORSOrigins,
	}, server.Handlers{
		Health:    handler.NewHealthHandler(),
		Auth:      handler.NewAuthHandler(sessions, appLogger),
		Positions: handler.NewPositionHandler(dashboard, appLogger),
		Summary:   handler.NewSummaryHandler(dashboard),
		Proxy: handler.NewProxyHandler(map[string]string{
			"chain":  cfg.ChainAPIURL,
			"route":  cfg.PriceAPIURL,
			"market": cfg.MarketAPIURL,
		}, cfg.PriceTimeout, appLogger),
	}, sessions, hub, appLogger)

	// 10. Run: refresh driver, session janitor, HTTP server
	go func() {
		if err := dashboard.Start(ctx); err != nil {
			appLogger.Error(ctx, err, "Refresh driver exited with error")
		}
	}()
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := sessions.Sweep(); removed > 0 {
					appLogger.Debug(ctx, "Expired sessions swept", map[string]interface{}{"removed": removed})
				}
			}
		}
	}()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case <-ctx.Done():
		appLogger.Info(ctx, "Shutdown signal received")
	case err := <-errCh:
		if err != nil {
			appLogger.Error(ctx, err, "HTTP server exited with error")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(shutdownCtx, err, "Graceful shutdown failed")
	}
	hub.CloseAll()
	appLogger.Info(context.Background(), "Dashboard service stopped")
}
