package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/menulens/menu-digitizer/internal/entity"
)

// ErrJobNotFound is returned when the publish target does not exist or does not
// belong to the venue.
var ErrJobNotFound = errors.New("digitization job not found for venue")

// PublishRepository owns the at-most-one-published invariant: for any venue, at
// most one digitization job is published at any observable instant.
type PublishRepository interface {
	Publish(ctx context.Context, venueID, jobID uuid.UUID) (time.Time, error)
	Unpublish(ctx context.Context, venueID uuid.UUID) error
	GetPublished(ctx context.Context, venueID uuid.UUID) (*entity.DigitizationJob, error)
}

type publishRepo struct {
	db  DB
	log *slog.Logger
}

func NewPublishRepository(db DB, log *slog.Logger) PublishRepository {
	if log == nil {
		log = slog.Default()
	}
	return &publishRepo{db: db, log: log}
}

// Publish unpublishes whatever the venue currently shows and publishes the
// target job, as one transaction. The venue row is locked first so concurrent
// publishers for the same venue serialize instead of both reading "nothing
// published" under READ COMMITTED. Rollback leaves no observable change.
//
// Preconditions (job belongs to venue, status COMPLETED) are the caller's job;
// the venue check is still enforced here by the guarded UPDATE.
func (r *publishRepo) Publish(ctx context.Context, venueID, jobID uuid.UUID) (time.Time, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return time.Time{}, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `SELECT id FROM venues WHERE id = $1 FOR UPDATE`, venueID); err != nil {
		return time.Time{}, fmt.Errorf("lock venue: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE digitization_jobs SET is_published = FALSE, published_at = NULL
		 WHERE venue_id = $1 AND is_published`, venueID); err != nil {
		return time.Time{}, fmt.Errorf("unpublish current: %w", err)
	}

	var publishedAt time.Time
	err = tx.QueryRow(ctx,
		`UPDATE digitization_jobs SET is_published = TRUE, published_at = now()
		 WHERE id = $1 AND venue_id = $2
		 RETURNING published_at`, jobID, venueID).Scan(&publishedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, ErrJobNotFound
		}
		return time.Time{}, fmt.Errorf("publish target: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return time.Time{}, fmt.Errorf("commit: %w", err)
	}
	r.log.Info("job published", "venue_id", venueID, "job_id", jobID, "published_at", publishedAt)
	return publishedAt, nil
}

// Unpublish hides the venue's menu entirely. Publishing zero jobs is a valid
// state; it is only the transient middle of Publish that must never be visible.
func (r *publishRepo) Unpublish(ctx context.Context, venueID uuid.UUID) error {
	_, err := r.db.Exec(ctx,
		`UPDATE digitization_jobs SET is_published = FALSE, published_at = NULL
		 WHERE venue_id = $1 AND is_published`, venueID)
	if err != nil {
		return fmt.Errorf("unpublish: %w", err)
	}
	r.log.Info("venue unpublished", "venue_id", venueID)
	return nil
}

func (r *publishRepo) GetPublished(ctx context.Context, venueID uuid.UUID) (*entity.DigitizationJob, error) {
	query, args, err := psql.Select(jobColumns...).
		From("digitization_jobs").
		Where(sq.Eq{"venue_id": venueID, "is_published": true}).
		ToSql()
	if err != nil {
		return nil, err
	}
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
