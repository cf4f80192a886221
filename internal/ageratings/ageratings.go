// Package ageratings parses the age-rating grammar spec.md §6 describes:
// canonical MPAA-style ratings, common ComicInfo/OPDS phrases, and
// free-form numeric forms ("13 and up", "13", "13-17"). There's no
// off-the-shelf parser for this exact vocabulary in the retrieval pack, so
// it's a small table + regexp parser (see DESIGN.md).
package ageratings

import (
	"regexp"
	"strconv"
	"strings"
)

// canonical maps a normalized (upper-cased, trimmed) input to its
// canonical output form.
var canonical = map[string]string{
	"G":               "G",
	"PG":              "PG",
	"PG-13":           "PG-13",
	"R":               "R",
	"ALL AGES":        "All Ages",
	"TEEN":            "Teen",
	"TEEN+":           "Teen+",
	"MATURE":          "Mature",
	"MATURE 17+":      "Mature 17+",
	"ADULTS ONLY 18+": "Adults Only 18+",
	"R18+":            "R18+",
	"X18+":            "X18+",
}

var freeformRE = regexp.MustCompile(`^(\d+)\s*(?:and up|\+)?(?:\s*-\s*\d+)?$`)

// Parse returns the canonical rating for a free-form input string, or
// ("", false) when the input doesn't match any recognized form.
func Parse(s string) (string, bool) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return "", false
	}

	if canon, ok := canonical[strings.ToUpper(trimmed)]; ok {
		return canon, true
	}

	if m := freeformRE.FindStringSubmatch(trimmed); m != nil {
		if _, err := strconv.Atoi(m[1]); err == nil {
			return m[1], true
		}
	}

	return "", false
}
