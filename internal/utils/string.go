package utils

import (
	"path"
	"strings"
)

// NormalizeEmailAddress lower-cases and trims an address so configured inbox
// addresses and webhook recipients compare consistently.
func NormalizeEmailAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// FileExtension returns the lower-cased extension of a filename without the
// leading dot, or the fallback when the filename carries none.
func FileExtension(filename, fallback string) string {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(filename)), ".")
	if ext == "" {
		return fallback
	}
	return ext
}
