package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/menulens/menu-digitizer/internal/common"
	"github.com/menulens/menu-digitizer/internal/repository"
)

// dbhealth pings the configured database and exits non-zero on failure.
func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	cfg, err := common.LoadConfig()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if cfg.Database.DSN == "" {
		logger.Error("DB_URL is required")
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := repository.Open(ctx, repository.Config{
		DSN:         cfg.Database.DSN,
		MaxConns:    1,
		MinConns:    1,
		DialTimeout: cfg.Database.DialTimeout,
	}, logger)
	if err != nil {
		logger.Error("connect failed", "error", err)
		os.Exit(1)
	}
	defer repository.Close(pool, logger)

	if err := repository.HealthCheck(ctx, pool, 5*time.Second, logger); err != nil {
		logger.Error("ping failed", "error", err)
		os.Exit(1)
	}
	fmt.Println("database ok")
}
