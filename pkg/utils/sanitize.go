package utils

import (
	"strings"
)

// SanitizeFilename converts a company name into a safe file name component.
// Anything outside [A-Za-z0-9._-] becomes an underscore; runs of
// underscores collapse to one, and leading/trailing underscores are
// trimmed so "Apple Inc." and "Apple  Inc" map to stable names.
func SanitizeFilename(name string) string {
	var b strings.Builder
	b.Grow(len(name))

	lastUnderscore := false
	for _, r := range name {
		safe := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '.' || r == '-'
		switch {
		case safe:
			b.WriteRune(r)
			lastUnderscore = false
		case lastUnderscore:
			// collapse
		default:
			b.WriteByte('_')
			lastUnderscore = true
		}
	}

	out := strings.Trim(b.String(), "_.")
	if out == "" {
		return "unnamed"
	}
	return out
}

// NormalizeName canonicalizes a company name for matching and cache keys:
// lowercased with interior whitespace collapsed to single spaces.
func NormalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
