package constants

import "strings"

// DefaultCurrency is assumed for item prices when the model omits one.
// Prices are stored in minor units (whole Rupiah for IDR).
const DefaultCurrency = "IDR"

// ShortCodeLength is the length of a venue's URL-safe short code.
const ShortCodeLength = 8

// NormalizeCurrency uppercases and trims a currency code, falling back to the default.
func NormalizeCurrency(code string) string {
	c := strings.ToUpper(strings.TrimSpace(code))
	if c == "" {
		return DefaultCurrency
	}
	return c
}
