package fileutils

import (
	"strings"
)

// SplitNames splits a string of names by common delimiters (comma and
// semicolon), trims whitespace from each name, and returns non-empty
// names. Used for parsing author and genre/tag lists out of embedded
// metadata.
func SplitNames(s string) []string {
	if s == "" {
		return nil
	}

	var parts []string
	for _, segment := range strings.Split(s, ";") {
		for _, part := range strings.Split(segment, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				parts = append(parts, trimmed)
			}
		}
	}
	return parts
}
