package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/menulens/menu-digitizer/constants"
)

// DigitizationJob is one attempt to digitize a venue's menu images.
// Raw model payloads are kept verbatim for diagnosing model drift, even on failure.
// Jobs are never deleted by the pipeline; retention is an external concern.
type DigitizationJob struct {
	ID             uuid.UUID           `db:"id"`
	VenueID        uuid.UUID           `db:"venue_id"`
	Status         constants.JobStatus `db:"status"`
	IsPublished    bool                `db:"is_published"`
	ErrorMessage   *string             `db:"error_message"`
	RawOcrResponse *string             `db:"raw_ocr_response"`
	RawLlmResponse *string             `db:"raw_llm_response"`
	ImageRefs      []string            `db:"image_refs"`
	PublishedAt    *time.Time          `db:"published_at"`
	CreatedAt      time.Time           `db:"created_at"`
	UpdatedAt      time.Time           `db:"updated_at"`
}
