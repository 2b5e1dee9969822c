// Package menus is the service layer in front of the publish enforcer and the
// guest-facing menu reads.
package menus

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/menulens/menu-digitizer/constants"
	"github.com/menulens/menu-digitizer/internal/common"
	"github.com/menulens/menu-digitizer/internal/entity"
	"github.com/menulens/menu-digitizer/internal/repository"
)

type Service struct {
	logger  *slog.Logger
	venues  repository.VenueRepository
	jobs    repository.JobRepository
	publish repository.PublishRepository
	menu    repository.MenuRepository
}

func NewService(
	logger *slog.Logger,
	venues repository.VenueRepository,
	jobs repository.JobRepository,
	publish repository.PublishRepository,
	menu repository.MenuRepository,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger, venues: venues, jobs: jobs, publish: publish, menu: menu}
}

// Publish makes jobID the venue's guest-visible menu version. The enforcer
// itself only swaps pointers atomically; the preconditions live here: the job
// must exist, belong to the venue, and be COMPLETED.
func (s *Service) Publish(ctx context.Context, venueID, jobID uuid.UUID) (time.Time, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return time.Time{}, common.NewAppError("JOB_NOT_FOUND", "digitization job not found", common.ErrNotFound)
	}
	if job.VenueID != venueID {
		return time.Time{}, common.NewAppError("JOB_VENUE_MISMATCH", "job belongs to a different venue", common.ErrInvalidInput)
	}
	if job.Status != constants.JobStatusCompleted {
		return time.Time{}, common.NewAppError("JOB_NOT_COMPLETED",
			"only completed jobs can be published, status="+string(job.Status), common.ErrConflict)
	}

	publishedAt, err := s.publish.Publish(ctx, venueID, jobID)
	if err != nil {
		return time.Time{}, common.WrapError(err, "publish job")
	}
	s.logger.Info("menus.publish.ok", "venue_id", venueID, "job_id", jobID)
	return publishedAt, nil
}

// Unpublish hides the venue's menu from guests.
func (s *Service) Unpublish(ctx context.Context, venueID uuid.UUID) error {
	return s.publish.Unpublish(ctx, venueID)
}

// PublishedMenu is the guest-facing view of a venue's current menu.
type PublishedMenu struct {
	Venue    entity.Venue
	Job      entity.DigitizationJob
	Sections []repository.MenuView
}

// PublishedByShortCode resolves a venue by its short code and returns its
// published menu, if any.
func (s *Service) PublishedByShortCode(ctx context.Context, code string) (*PublishedMenu, error) {
	venue, err := s.venues.GetByShortCode(ctx, code)
	if err != nil {
		return nil, common.NewAppError("VENUE_NOT_FOUND", "no venue for short code", common.ErrNotFound)
	}
	job, err := s.publish.GetPublished(ctx, venue.ID)
	if err != nil {
		return nil, common.NewAppError("MENU_NOT_PUBLISHED", "venue has no published menu", common.ErrNotFound)
	}
	sections, err := s.menu.ListMenu(ctx, job.ID)
	if err != nil {
		return nil, common.WrapError(err, "load menu")
	}
	return &PublishedMenu{Venue: *venue, Job: *job, Sections: sections}, nil
}

// GuestLink allocates the venue's short code on first use and returns it.
func (s *Service) GuestLink(ctx context.Context, venueID uuid.UUID) (string, error) {
	return s.venues.EnsureShortCode(ctx, venueID)
}
