package query

import (
	"encoding/json"
	"strings"
)

// SplitCSV splits a comma-separated string into trimmed parts,
// dropping empty entries.
func SplitCSV(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ParseJSON unmarshals raw JSON into out, leaving out untouched on
// failure so callers can pre-load it with a default value.
func ParseJSON(raw string, out interface{}) bool {
	if raw == "" {
		return false
	}
	return json.Unmarshal([]byte(raw), out) == nil
}

// EscapeLike escapes the LIKE pattern metacharacters in a literal term.
func EscapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}

// NormalizeTerm trims and lower-cases a search term.
func NormalizeTerm(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Tokenize splits a term on whitespace, dropping empty tokens.
func Tokenize(s string) []string {
	return strings.Fields(s)
}
