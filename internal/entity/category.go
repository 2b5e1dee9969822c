package entity

import "github.com/google/uuid"

// Category is one menu section of a digitized job. Rows are replaced wholesale
// whenever the parent job's menu is rewritten.
type Category struct {
	ID           uuid.UUID `db:"id"`
	JobID        uuid.UUID `db:"job_id"`
	VenueID      uuid.UUID `db:"venue_id"`
	NameEn       string    `db:"name_en"`
	NameOriginal *string   `db:"name_original"`
	NameRu       string    `db:"name_ru"`
	Position     int       `db:"position"`
}
