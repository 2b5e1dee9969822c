package llm

import (
	"context"
	"encoding/json"

	"github.com/menulens/menu-digitizer/constants"
)

// ImageRef points at one uploaded menu photo: either an externally reachable URL
// or inline bytes with their MIME type.
type ImageRef struct {
	URL      string
	Data     []byte
	MIMEType string
}

// Completion is a single model reply: the choice's message content plus the full
// raw response body for diagnostics.
type Completion struct {
	Content string
	Raw     []byte
}

// Gateway is the model interface the digitization pipeline depends on.
// Both calls issue one outbound request and own timeout/cancellation.
type Gateway interface {
	RunOCR(ctx context.Context, images []ImageRef) (Completion, error)
	RunStructuring(ctx context.Context, ocrResult []byte) (Completion, error)
}

// StructuredMenu is the normalized shape we want from the structuring call.
type StructuredMenu struct {
	Categories []MenuCategory `json:"categories"`
}

type MenuCategory struct {
	NameEn       string     `json:"nameEn"`
	NameOriginal *string    `json:"nameOriginal"`
	NameRu       string     `json:"nameRu"`
	Items        []MenuItem `json:"items"`
}

type MenuItem struct {
	OriginalName   string  `json:"originalName"`
	NameEn         string  `json:"nameEn"`
	NameRu         string  `json:"nameRu"`
	DescriptionEn  *string `json:"descriptionEn"`
	DescriptionRu  *string `json:"descriptionRu"`
	PriceValue     *int64  `json:"priceValue"`
	PriceCurrency  string  `json:"priceCurrency"`
	IsSpicy        bool    `json:"isSpicy"`
	ApproxCalories *int    `json:"approxCalories"`
	IsLocalSpecial bool    `json:"isLocalSpecial"`
}

// DecodeMenu unmarshals an already schema-validated menu document and fills in
// the defaults the schema leaves optional: priceCurrency and the boolean flags.
func DecodeMenu(data []byte) (StructuredMenu, error) {
	var m StructuredMenu
	if err := json.Unmarshal(data, &m); err != nil {
		return StructuredMenu{}, err
	}
	for ci := range m.Categories {
		items := m.Categories[ci].Items
		for ii := range items {
			items[ii].PriceCurrency = constants.NormalizeCurrency(items[ii].PriceCurrency)
		}
	}
	return m, nil
}
