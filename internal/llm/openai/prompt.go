package openai

import (
	"encoding/json"
	"strings"

	"github.com/menulens/menu-digitizer/internal/llm"
)

const structuringSystemPrompt = "You are a restaurant menu parser. " +
	"Return ONLY JSON that matches the JSON Schema provided. " +
	"Never output commentary or markdown fences."

func buildOCRPrompt() string {
	parts := []string{
		"Read every attached photo of a printed venue menu.",
		"Return ONLY JSON of the form {\"pages\":[{\"pageIndex\":0,\"lines\":[\"...\"]}]}.",
		"pageIndex is the zero-based photo order. Each line is one printed line of text, top to bottom.",
		"Keep prices and original-language names exactly as printed. Do not translate.",
	}
	return strings.Join(parts, " ")
}

func buildStructuringPrompt(ocrResult []byte) string {
	var b strings.Builder
	b.WriteString("Recognized menu text, one JSON document of pages and lines:\n")
	b.Write(ocrResult)
	b.WriteString("\n\nGroup the lines into categories and items.")
	b.WriteString(" Translate names into English (nameEn) and Russian (nameRu);")
	b.WriteString(" transliterate when no translation exists, never leave them empty.")
	b.WriteString(" Keep the printed name in originalName.")
	b.WriteString(" Prices are integers in minor currency units; omit priceValue when no price is printed.")
	b.WriteString(" Mark clearly spicy dishes with isSpicy and regional specialties with isLocalSpecial.")
	b.WriteString("\n\nReturn ONLY JSON that matches this schema:\n")
	b.WriteString(mustJSON(llm.BuildMenuSchema()))
	return b.String()
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
