package entity

import (
	"time"

	"github.com/google/uuid"
)

// Venue is one physical place whose menu we digitize.
// ShortCode is allocated lazily on first guest-facing access (see repository.VenueRepository).
type Venue struct {
	ID        uuid.UUID `db:"id"`
	Name      string    `db:"name"`
	ShortCode *string   `db:"short_code"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}
