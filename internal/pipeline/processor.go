package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/menulens/menu-digitizer/constants"
	"github.com/menulens/menu-digitizer/internal/llm"
	"github.com/menulens/menu-digitizer/internal/repository"
)

// Processor glues the digitizer to persistence: it claims a queued job, runs
// the pipeline, and records the outcome. A failed job records its error and
// raw payloads and never affects other jobs.
type Processor struct {
	logger *slog.Logger
	jobs   repository.JobRepository
	menu   repository.MenuRepository
	dig    *Digitizer
}

func NewProcessor(logger *slog.Logger, jobs repository.JobRepository, menu repository.MenuRepository, dig *Digitizer) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{logger: logger, jobs: jobs, menu: menu, dig: dig}
}

// ProcessJob digitizes one QUEUED job end to end.
func (p *Processor) ProcessJob(ctx context.Context, jobID uuid.UUID) error {
	start := time.Now()

	job, err := p.jobs.GetByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load job: %w", err)
	}
	if job.Status != constants.JobStatusQueued {
		return fmt.Errorf("job %s not queued: status=%s", jobID, job.Status)
	}
	if len(job.ImageRefs) == 0 {
		msg := "job has no menu images"
		_ = p.jobs.FinishFailure(ctx, jobID, msg, "", "")
		return errors.New(msg)
	}
	if err := p.jobs.MarkProcessing(ctx, jobID); err != nil {
		return fmt.Errorf("claim job: %w", err)
	}

	images := make([]llm.ImageRef, len(job.ImageRefs))
	for i, ref := range job.ImageRefs {
		images[i] = llm.ImageRef{URL: ref}
	}

	res, err := p.dig.Run(ctx, images)
	if err != nil {
		var derr *DigitizationError
		if errors.As(err, &derr) {
			_ = p.jobs.FinishFailure(ctx, jobID, derr.Error(), derr.RawOCR, derr.RawLLM)
		} else {
			_ = p.jobs.FinishFailure(ctx, jobID, err.Error(), "", "")
		}
		p.logger.Error("processor.digitize.failed", "job_id", jobID, "err", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return err
	}

	if err := p.menu.ReplaceMenu(ctx, job.ID, job.VenueID, res.Menu); err != nil {
		_ = p.jobs.FinishFailure(ctx, jobID, fmt.Sprintf("persist menu: %v", err), res.RawOCR, res.RawLLM)
		return fmt.Errorf("persist menu: %w", err)
	}
	if err := p.jobs.FinishSuccess(ctx, jobID, res.RawOCR, res.RawLLM); err != nil {
		return err
	}

	p.logger.Info("processor.digitize.ok",
		"job_id", jobID,
		"venue_id", job.VenueID,
		"categories", len(res.Menu.Categories),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}
