package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	SeriesStatusReady   = "READY"
	SeriesStatusMissing = "MISSING"
	SeriesStatusError   = "ERROR"
)

// Series is a directory under a Library's root, owned by the scanner —
// nothing outside internal/scanner creates or renames one. In
// COLLECTION_BASED libraries a Library effectively has one implicit
// Series per spec.md §3; the scanner still materializes a row so Media
// always has a consistent parent.
type Series struct {
	bun.BaseModel `bun:"table:series,alias:s"`

	ID                 int        `bun:",pk,autoincrement" json:"id"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
	DeletedAt          *time.Time `bun:",soft_delete" json:"-"`
	LibraryID          string     `bun:",nullzero" json:"library_id"`
	Library            *Library   `bun:"rel:belongs-to" json:"library,omitempty"`
	Name               string     `bun:",nullzero" json:"name"`
	Path               string     `bun:",nullzero" json:"path"`
	Status             string     `bun:",nullzero,default:'READY'" json:"status"`
	SortName           string     `bun:",notnull" json:"sort_name"`
	Description        *string    `json:"description,omitempty"`
	CoverImageFilename *string    `json:"cover_image_filename,omitempty"`

	// Fields below are only populated when a series.json sidecar exists;
	// spec.md §3 treats them as optional overrides of what the scanner
	// would otherwise derive from the directory name.
	ParsedYear    *int    `json:"parsed_year,omitempty"`
	ParsedSummary *string `json:"parsed_summary,omitempty"`

	MediaCount int `bun:",scanonly" json:"media_count"`
}
