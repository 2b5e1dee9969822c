// Package ocr turns whatever JSON the vision model returned into the canonical
// pages-of-lines document the rest of the pipeline assumes.
package ocr

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

// Result is the canonical OCR document: pages ordered by index, every line a
// trimmed non-empty string.
type Result struct {
	Pages []Page `json:"pages"`
}

type Page struct {
	PageIndex int      `json:"pageIndex"`
	Lines     []string `json:"lines"`
}

// Normalize coerces an arbitrary decoded JSON value into the canonical shape.
// Branches run in fixed priority order and the first match wins; values that
// match no branch degrade to an empty page list for the schema validator to
// reject. Normalize never panics, whatever the model sends.
func Normalize(v any) any {
	if isCanonical(v) {
		return v
	}
	if m, ok := v.(map[string]any); ok {
		// one level of result/data wrapping, then start over
		if inner, ok := m["result"]; ok {
			return Normalize(inner)
		}
		if inner, ok := m["data"]; ok {
			return Normalize(inner)
		}
	}
	return map[string]any{"pages": coercePages(v)}
}

// Decode converts a canonical value into the typed Result.
func Decode(v any) (Result, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return Result{}, err
	}
	var r Result
	if err := json.Unmarshal(b, &r); err != nil {
		return Result{}, err
	}
	return r, nil
}

// isCanonical requires an exact match: {"pages":[{"pageIndex":n,"lines":[s...]}]}
// with no extra keys anywhere, pages in non-decreasing index order, and every
// line trimmed and non-empty. Anything looser goes through coercion, which
// restores those properties.
func isCanonical(v any) bool {
	m, ok := v.(map[string]any)
	if !ok || len(m) != 1 {
		return false
	}
	pages, ok := m["pages"].([]any)
	if !ok {
		return false
	}
	prev := -1
	for _, p := range pages {
		pm, ok := p.(map[string]any)
		if !ok || len(pm) != 2 {
			return false
		}
		idx, ok := asIndex(pm["pageIndex"])
		if !ok || idx < prev {
			return false
		}
		prev = idx
		lines, ok := pm["lines"].([]any)
		if !ok {
			return false
		}
		for _, l := range lines {
			s, ok := l.(string)
			if !ok || s == "" || strings.TrimSpace(s) != s {
				return false
			}
		}
	}
	return true
}

func coercePages(v any) []any {
	var pages []map[string]any

	switch t := v.(type) {
	case string:
		pages = append(pages, newPage(0, splitLines(t)))
	case []any:
		if lines, ok := allStrings(t); ok {
			pages = append(pages, newPage(0, lines))
			break
		}
		pages = pagesFromEntries(t)
	case map[string]any:
		switch pv := t["pages"].(type) {
		case []any:
			pages = pagesFromEntries(pv)
		case map[string]any:
			pages = pagesFromMap(pv)
		default:
			if lines, ok := t["lines"].([]any); ok {
				pages = append(pages, newPage(0, stringifyLines(lines)))
			} else if text, ok := t["text"].(string); ok {
				pages = append(pages, newPage(0, splitLines(text)))
			}
		}
	}

	sort.SliceStable(pages, func(i, j int) bool {
		return pages[i]["pageIndex"].(float64) < pages[j]["pageIndex"].(float64)
	})
	out := make([]any, len(pages))
	for i, p := range pages {
		out[i] = p
	}
	return out
}

func pagesFromEntries(entries []any) []map[string]any {
	var pages []map[string]any
	for i, e := range entries {
		if p, ok := pageFromEntry(e, i); ok {
			pages = append(pages, p)
		}
	}
	return pages
}

// pagesFromMap handles a pages object map: keys sorted numerically when they
// all parse as integers, lexically otherwise, and used as fallback indices.
func pagesFromMap(m map[string]any) []map[string]any {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	numeric := true
	for _, k := range keys {
		if _, err := strconv.Atoi(k); err != nil {
			numeric = false
			break
		}
	}
	if numeric {
		sort.Slice(keys, func(i, j int) bool {
			a, _ := strconv.Atoi(keys[i])
			b, _ := strconv.Atoi(keys[j])
			return a < b
		})
	} else {
		sort.Strings(keys)
	}

	var pages []map[string]any
	for pos, k := range keys {
		fallback := pos
		if numeric {
			if n, err := strconv.Atoi(k); err == nil && n >= 0 {
				fallback = n
			}
		}
		if p, ok := pageFromEntry(m[k], fallback); ok {
			pages = append(pages, p)
		}
	}
	return pages
}

// pageFromEntry builds one page from a per-page entry: a string (split into
// lines), an array (elements stringified), or an object exposing a known lines
// array or text string. The entry's own declared index wins over the fallback.
func pageFromEntry(e any, fallback int) (map[string]any, bool) {
	switch t := e.(type) {
	case string:
		return newPage(fallback, splitLines(t)), true
	case []any:
		return newPage(fallback, stringifyLines(t)), true
	case map[string]any:
		idx := fallback
		for _, key := range []string{"pageIndex", "index", "page"} {
			if n, ok := asIndex(t[key]); ok {
				idx = n
				break
			}
		}
		for _, key := range []string{"lines", "line", "textLines"} {
			if arr, ok := t[key].([]any); ok {
				return newPage(idx, stringifyLines(arr)), true
			}
		}
		for _, key := range []string{"text", "content", "pageText"} {
			if s, ok := t[key].(string); ok {
				return newPage(idx, splitLines(s)), true
			}
		}
		return newPage(idx, nil), true
	default:
		return nil, false
	}
}

// newPage builds a page using JSON-decoded value types (float64 index, []any
// lines) so coerced output is indistinguishable from canonical input for both
// re-normalization and schema validation.
func newPage(index int, lines []string) map[string]any {
	ls := make([]any, len(lines))
	for i, l := range lines {
		ls[i] = l
	}
	return map[string]any{"pageIndex": float64(index), "lines": ls}
}

// asIndex accepts a non-negative integral JSON number as a page index.
func asIndex(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		if n >= 0 && n == float64(int(n)) {
			return int(n), true
		}
	case int:
		if n >= 0 {
			return n, true
		}
	}
	return 0, false
}

func allStrings(arr []any) ([]string, bool) {
	lines := make([]string, 0, len(arr))
	for _, e := range arr {
		s, ok := e.(string)
		if !ok {
			return nil, false
		}
		if s = strings.TrimSpace(s); s != "" {
			lines = append(lines, s)
		}
	}
	return lines, true
}

// stringifyLines renders each element to text, trims, and drops empties.
func stringifyLines(arr []any) []string {
	lines := make([]string, 0, len(arr))
	for _, e := range arr {
		var s string
		switch t := e.(type) {
		case string:
			s = t
		case float64:
			s = strconv.FormatFloat(t, 'f', -1, 64)
		case bool:
			s = strconv.FormatBool(t)
		default:
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			lines = append(lines, s)
		}
	}
	return lines
}

func splitLines(s string) []string {
	raw := strings.FieldsFunc(s, func(r rune) bool {
		return r == '\n' || r == '\r'
	})
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}
