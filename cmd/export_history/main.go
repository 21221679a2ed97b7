package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"paperTrader/config"
	"paperTrader/internal/adapters/logger"
	"paperTrader/internal/adapters/sqlite"
	"paperTrader/internal/ledger"
	"paperTrader/internal/utils"
)

// Exports the closed-position history from the persisted ledger snapshot to a
// CSV file. Usage: export_history [output.csv]
func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Initialize Logger
	appLogger := logger.NewStdLogger(cfg.LogLevel)
	ctx := context.Background()

	// 3. Open the ledger snapshot read-only via the regular store
	store, err := sqlite.NewStore(sqlite.Config{DBPath: cfg.DBPath, Logger: appLogger})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to open state store")
		log.Fatalf("FATAL: Failed to open state store: %v", err)
	}
	defer store.Close()

	lgr, err := ledger.New(ledger.Config{Store: store, Logger: appLogger})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize ledger")
		log.Fatalf("FATAL: Failed to initialize ledger: %v", err)
	}
	if err := lgr.Load(ctx); err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to load ledger snapshot")
		log.Fatalf("FATAL: Failed to load ledger snapshot: %v", err)
	}

	closed := lgr.ListClosed()
	if len(closed) == 0 {
		fmt.Println("No closed positions to export.")
		return
	}

	filename := fmt.Sprintf("data/trade_history_%s.csv", time.Now().Format("20060102"))
	if len(os.Args) > 1 {
		filename = os.Args[1]
	}

	if err := utils.WriteClosedPositionsToCSV(closed, filename); err != nil {
		appLogger.Error(ctx, err, "Error writing CSV")
		log.Fatalf("Error writing CSV: %v", err)
	}
	appLogger.Info(ctx, "Trade history exported", map[string]interface{}{
		"filename": filename, "positions": len(closed),
	})
}
