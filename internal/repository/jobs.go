package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"

	"github.com/menulens/menu-digitizer/constants"
	"github.com/menulens/menu-digitizer/internal/entity"
)

var jobColumns = []string{
	"id", "venue_id", "status", "is_published", "error_message",
	"raw_ocr_response", "raw_llm_response", "image_refs", "published_at",
	"created_at", "updated_at",
}

type JobRepository interface {
	Create(ctx context.Context, venueID uuid.UUID, imageRefs []string) (*entity.DigitizationJob, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.DigitizationJob, error)
	ListQueued(ctx context.Context, limit int) ([]*entity.DigitizationJob, error)
	MarkProcessing(ctx context.Context, id uuid.UUID) error
	FinishSuccess(ctx context.Context, id uuid.UUID, rawOCR, rawLLM string) error
	FinishFailure(ctx context.Context, id uuid.UUID, message, rawOCR, rawLLM string) error
}

type jobRepo struct {
	db  DB
	log *slog.Logger
}

func NewJobRepository(db DB, log *slog.Logger) JobRepository {
	if log == nil {
		log = slog.Default()
	}
	return &jobRepo{db: db, log: log}
}

func (r *jobRepo) Create(ctx context.Context, venueID uuid.UUID, imageRefs []string) (*entity.DigitizationJob, error) {
	query, args, err := psql.Insert("digitization_jobs").
		Columns("id", "venue_id", "status", "image_refs").
		Values(uuid.New(), venueID, constants.JobStatusQueued, imageRefs).
		Suffix("RETURNING " + columnList(jobColumns)).
		ToSql()
	if err != nil {
		return nil, err
	}
	job, err := r.scanJob(ctx, query, args)
	if err != nil {
		r.log.Error("job create failed", "venue_id", venueID, "err", err)
		return nil, err
	}
	r.log.Info("job created", "job_id", job.ID, "venue_id", venueID, "images", len(imageRefs))
	return job, nil
}

func (r *jobRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.DigitizationJob, error) {
	query, args, err := psql.Select(jobColumns...).
		From("digitization_jobs").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}
	return r.scanJob(ctx, query, args)
}

func (r *jobRepo) ListQueued(ctx context.Context, limit int) ([]*entity.DigitizationJob, error) {
	query, args, err := psql.Select(jobColumns...).
		From("digitization_jobs").
		Where(sq.Eq{"status": constants.JobStatusQueued}).
		OrderBy("created_at ASC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	var jobs []*entity.DigitizationJob
	if err := pgxscan.ScanAll(&jobs, rows); err != nil {
		return nil, err
	}
	return jobs, nil
}

// MarkProcessing moves QUEUED -> PROCESSING. The status guard keeps transitions
// monotonic: a terminal or already-claimed job is not reprocessed.
func (r *jobRepo) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	return r.transition(ctx, id,
		map[string]any{"status": constants.JobStatusProcessing},
		sq.Eq{"status": constants.JobStatusQueued},
	)
}

func (r *jobRepo) FinishSuccess(ctx context.Context, id uuid.UUID, rawOCR, rawLLM string) error {
	err := r.transition(ctx, id,
		map[string]any{
			"status":           constants.JobStatusCompleted,
			"error_message":    nil,
			"raw_ocr_response": nullIfEmpty(rawOCR),
			"raw_llm_response": nullIfEmpty(rawLLM),
		},
		sq.Eq{"status": constants.JobStatusProcessing},
	)
	if err != nil {
		r.log.Error("job finish(COMPLETED) failed", "job_id", id, "err", err)
		return err
	}
	r.log.Info("job finished (COMPLETED)", "job_id", id)
	return nil
}

func (r *jobRepo) FinishFailure(ctx context.Context, id uuid.UUID, message, rawOCR, rawLLM string) error {
	err := r.transition(ctx, id,
		map[string]any{
			"status":           constants.JobStatusFailed,
			"error_message":    message,
			"raw_ocr_response": nullIfEmpty(rawOCR),
			"raw_llm_response": nullIfEmpty(rawLLM),
		},
		sq.Eq{"status": []constants.JobStatus{constants.JobStatusQueued, constants.JobStatusProcessing}},
	)
	if err != nil {
		r.log.Error("job finish(FAILED) failed", "job_id", id, "err", err)
		return err
	}
	r.log.Warn("job finished (FAILED)", "job_id", id, "error", message)
	return nil
}

func (r *jobRepo) transition(ctx context.Context, id uuid.UUID, set map[string]any, guard sq.Eq) error {
	set["updated_at"] = time.Now().UTC()
	query, args, err := psql.Update("digitization_jobs").
		SetMap(set).
		Where(sq.Eq{"id": id}).
		Where(guard).
		ToSql()
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("job %s: no row in expected status", id)
	}
	return nil
}

func (r *jobRepo) scanJob(ctx context.Context, query string, args []any) (*entity.DigitizationJob, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	var job entity.DigitizationJob
	if err := pgxscan.ScanOne(&job, rows); err != nil {
		return nil, err
	}
	return &job, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func columnList(cols []string) string {
	out := cols[0]
	for _, c := range cols[1:] {
		out += ", " + c
	}
	return out
}
