package llm

import (
	"encoding/json"
	"strings"
)

// RecoverJSON extracts a JSON value from free-form model output. Models wrap
// JSON in commentary or code fences often enough that a failed direct parse
// falls back to the substring between the first '{' and the last '}'.
func RecoverJSON(text string) (any, error) {
	s := strings.TrimSpace(text)

	var v any
	direct := json.Unmarshal([]byte(s), &v)
	if direct == nil {
		return v, nil
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(s[start:end+1]), &v); err == nil {
			return v, nil
		}
	}
	return nil, &ParseError{Cause: direct}
}
