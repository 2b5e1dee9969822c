package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/menulens/menu-digitizer/internal/common"
	"github.com/menulens/menu-digitizer/internal/export"
	"github.com/menulens/menu-digitizer/internal/repository"
)

// menu-export writes one digitized job's menu to an XLSX file.
func main() {
	var (
		jobStr = flag.String("job", "", "digitization job ID (required)")
		out    = flag.String("out", "menu.xlsx", "output XLSX file path")
	)
	flag.Parse()

	if *jobStr == "" {
		fmt.Fprintln(os.Stderr, "Error: --job is required")
		os.Exit(1)
	}
	jobID, err := uuid.Parse(*jobStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid --job: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := common.LoadConfig()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := repository.Open(ctx, repository.Config{
		DSN:         cfg.Database.DSN,
		MaxConns:    2,
		MinConns:    1,
		DialTimeout: cfg.Database.DialTimeout,
	}, logger)
	if err != nil {
		logger.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer repository.Close(pool, logger)

	menuRepo := repository.NewMenuRepository(pool, logger)
	svc := export.NewService(menuRepo, logger)

	xlsx, err := svc.ExportMenuXLSX(ctx, jobID)
	if err != nil {
		logger.Error("export failed", "job_id", jobID, "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, xlsx, 0644); err != nil {
		logger.Error("failed to write output file", "error", err)
		os.Exit(1)
	}

	fmt.Printf("Exported menu for job %s to %s\n", jobID, *out)
}
