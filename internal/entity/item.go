package entity

import "github.com/google/uuid"

// Item is one dish or drink. JobID and VenueID are denormalized copies of the
// parent category's references, kept for query convenience.
type Item struct {
	ID             uuid.UUID `db:"id"`
	CategoryID     uuid.UUID `db:"category_id"`
	JobID          uuid.UUID `db:"job_id"`
	VenueID        uuid.UUID `db:"venue_id"`
	OriginalName   string    `db:"original_name"`
	NameEn         string    `db:"name_en"`
	NameRu         string    `db:"name_ru"`
	DescriptionEn  *string   `db:"description_en"`
	DescriptionRu  *string   `db:"description_ru"`
	PriceValue     *int64    `db:"price_value"`
	PriceCurrency  string    `db:"price_currency"`
	IsSpicy        bool      `db:"is_spicy"`
	ApproxCalories *int      `db:"approx_calories"`
	IsLocalSpecial bool      `db:"is_local_special"`
	Position       int       `db:"position"`
}
