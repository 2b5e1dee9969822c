package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/menulens/menu-digitizer/internal/async"
	"github.com/menulens/menu-digitizer/internal/common"
	"github.com/menulens/menu-digitizer/internal/llm/openai"
	"github.com/menulens/menu-digitizer/internal/pipeline"
	"github.com/menulens/menu-digitizer/internal/repository"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := common.LoadConfig()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := repository.Open(ctx, repository.Config{
		DSN:              cfg.Database.DSN,
		MaxConns:         cfg.Database.MaxConns,
		MinConns:         cfg.Database.MinConns,
		MaxConnLifetime:  cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:  cfg.Database.MaxConnIdleTime,
		DialTimeout:      cfg.Database.DialTimeout,
		StatementTimeout: cfg.Database.StatementTimeout,
	}, logger)
	if err != nil {
		logger.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer repository.Close(pool, logger)

	jobsRepo := repository.NewJobRepository(pool, logger)
	menuRepo := repository.NewMenuRepository(pool, logger)

	gateway := openai.NewClient(openai.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		VisionModel: cfg.LLM.VisionModel,
		TextModel:   cfg.LLM.TextModel,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	}, logger)
	logger.Info("model gateway initialized",
		"vision_model", cfg.LLM.VisionModel,
		"text_model", cfg.LLM.TextModel,
		"timeout", cfg.LLM.Timeout.String(),
	)

	digitizer := pipeline.NewDigitizer(gateway, pipeline.Config{
		OCRAttempts:         cfg.Pipeline.OCRAttempts,
		StructuringAttempts: cfg.Pipeline.StructuringAttempts,
	}, logger)
	processor := pipeline.NewProcessor(logger, jobsRepo, menuRepo, digitizer)

	workers := async.NewPool(logger, processor, cfg.Worker.Workers, cfg.Worker.QueueSize)
	workers.Start(ctx, cfg.Worker.Workers)
	logger.Info("worker pool started", "workers", cfg.Worker.Workers)

	// Poll loop: pick up QUEUED jobs and feed the pool. A full queue is not an
	// error; the job stays QUEUED for the next tick. Re-enqueued duplicates are
	// rejected by the processor's claim guard.
	ticker := time.NewTicker(cfg.Worker.PollInterval)
	defer ticker.Stop()

poll:
	for {
		select {
		case <-ctx.Done():
			break poll
		case <-ticker.C:
			queued, err := jobsRepo.ListQueued(ctx, cfg.Worker.PollBatch)
			if err != nil {
				logger.Error("poll queued jobs failed", "error", err)
				continue
			}
			for _, job := range queued {
				task := async.Task{JobID: job.ID, SubmittedAt: time.Now()}
				if err := workers.Enqueue(ctx, task); err != nil {
					if errors.Is(err, async.ErrQueueFull) {
						logger.Warn("queue full, deferring job", "job_id", job.ID)
						break
					}
					logger.Error("enqueue failed", "job_id", job.ID, "error", err)
				}
			}
		}
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	workers.Shutdown(shutdownCtx)
}
