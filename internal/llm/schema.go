package llm

// BuildOCRResultSchema returns the JSON-Schema (draft 2020-12 subset) for the
// canonical OCR result: ordered pages of text lines. The normalizer never
// produces a string pageIndex or non-string lines, but the schema still guards
// the contract for anything that bypasses it, and it rejects an empty page list
// (the normalizer's degraded output for unrecognized shapes).
func BuildOCRResultSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"pages": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"properties": map[string]any{
						"pageIndex": map[string]any{"type": "integer", "minimum": 0},
						"lines": map[string]any{
							"type":  "array",
							"items": map[string]any{"type": "string"},
						},
					},
					"required": []string{"pageIndex", "lines"},
				},
			},
		},
		"required": []string{"pages"},
	}
}

// BuildMenuSchema returns the JSON-Schema for the structured menu. We pass it to
// the model as part of the structuring prompt and use it locally to validate the
// reply. priceCurrency and the boolean flags stay optional; DecodeMenu fills
// their defaults after validation.
func BuildMenuSchema() map[string]any {
	item := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"originalName":   map[string]any{"type": "string", "minLength": 1},
			"nameEn":         map[string]any{"type": "string", "minLength": 1},
			"nameRu":         map[string]any{"type": "string", "minLength": 1},
			"descriptionEn":  map[string]any{"type": []string{"string", "null"}},
			"descriptionRu":  map[string]any{"type": []string{"string", "null"}},
			"priceValue":     map[string]any{"type": []string{"integer", "null"}, "minimum": 0},
			"priceCurrency":  map[string]any{"type": "string"},
			"isSpicy":        map[string]any{"type": "boolean"},
			"approxCalories": map[string]any{"type": []string{"integer", "null"}, "minimum": 0},
			"isLocalSpecial": map[string]any{"type": "boolean"},
		},
		"required": []string{"originalName", "nameEn", "nameRu"},
	}
	category := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"nameEn":       map[string]any{"type": "string", "minLength": 1},
			"nameOriginal": map[string]any{"type": []string{"string", "null"}},
			"nameRu":       map[string]any{"type": "string", "minLength": 1},
			"items":        map[string]any{"type": "array", "items": item},
		},
		"required": []string{"nameEn", "nameRu", "items"},
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"categories": map[string]any{"type": "array", "items": category},
		},
		"required": []string{"categories"},
	}
}
