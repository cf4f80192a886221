package scanner

import (
	"os"
	"path/filepath"

	"github.com/segmentio/encoding/json"
)

// seriesJSON is the on-disk shape of a series.json sidecar, an optional
// override file a library curator can drop beside a series' files, per
// spec.md §3.
type seriesJSON struct {
	Year    *int    `json:"year"`
	Summary *string `json:"summary"`
}

// readSeriesJSON looks for a series.json sidecar directly inside dir and
// returns the year/summary it carries. A missing or unparseable sidecar is
// not an error: it simply yields ok=false so the caller leaves the
// Series' derived fields unset, the same "absence is not failure"
// treatment internal/ignore gives a missing .stumpignore.
func readSeriesJSON(dir string) (*int, *string, bool) {
	data, err := os.ReadFile(filepath.Join(dir, "series.json"))
	if err != nil {
		return nil, nil, false
	}

	var parsed seriesJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, nil, false
	}
	if parsed.Year == nil && parsed.Summary == nil {
		return nil, nil, false
	}

	return parsed.Year, parsed.Summary, true
}
