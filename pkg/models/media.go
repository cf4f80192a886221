package models

import (
	"time"

	"github.com/segmentio/encoding/json"
	"github.com/uptrace/bun"
)

const (
	MediaStatusReady   = "READY"
	MediaStatusMissing = "MISSING"
	MediaStatusError   = "ERROR"
)

const (
	MediaKindComic = "COMIC"
	MediaKindEpub  = "EPUB"
	MediaKindPdf   = "PDF"
)

// MediaMetadata collapses the teacher's normalized author/publisher/
// imprint/genre/tag tables into flat attributes of a single Media row,
// per spec.md §3 (see DESIGN.md for the reasoning).
type MediaMetadata struct {
	Title       string   `json:"title,omitempty"`
	Authors     []string `json:"authors,omitempty"`
	Publisher   string   `json:"publisher,omitempty"`
	Imprint     string   `json:"imprint,omitempty"`
	ReleaseYear *int     `json:"release_year,omitempty"`
	AgeRating   string   `json:"age_rating,omitempty"`
	Characters  []string `json:"characters,omitempty"`
	Genres      []string `json:"genres,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Description string   `json:"description,omitempty"`
	SeriesNumber *float64 `json:"series_number,omitempty"`
}

// Media is a single scannable file: a comic archive, an EPUB, or a PDF.
type Media struct {
	bun.BaseModel `bun:"table:media,alias:m"`

	ID              int        `bun:",pk,autoincrement" json:"id"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	DeletedAt       *time.Time `bun:",soft_delete" json:"-"`
	SeriesID        int        `bun:",nullzero" json:"series_id"`
	Series          *Series    `bun:"rel:belongs-to" json:"series,omitempty"`
	Filename        string     `bun:",nullzero" json:"filename"`
	Extension       string     `bun:",nullzero" json:"extension"`
	Path            string     `bun:",nullzero" json:"path"`
	Kind            string     `bun:",nullzero" json:"kind"`
	Status          string     `bun:",nullzero,default:'READY'" json:"status"`
	SizeBytes       int64      `json:"size_bytes"`
	PageCount       int        `json:"page_count"`
	ContentHash     string     `bun:",nullzero" json:"content_hash"`
	ModifiedAt      time.Time  `json:"modified_at"`

	MetadataData     string        `bun:"metadata,nullzero" json:"-"`
	Metadata         MediaMetadata `bun:"-" json:"metadata"`
	PageDimensionsData string      `bun:"page_dimensions,nullzero" json:"-"`
	PageDimensions     []PageDimension `bun:"-" json:"page_dimensions,omitempty"`
}

// PageDimension records the pixel size of one page, used by reader
// clients to reflow layout without re-opening the archive.
type PageDimension struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (m *Media) MarshalMetadata() error {
	b, err := json.Marshal(m.Metadata)
	if err != nil {
		return err
	}
	m.MetadataData = string(b)

	if m.PageDimensions != nil {
		pd, err := json.Marshal(m.PageDimensions)
		if err != nil {
			return err
		}
		m.PageDimensionsData = string(pd)
	}
	return nil
}

func (m *Media) UnmarshalMetadata() error {
	if m.MetadataData != "" {
		if err := json.Unmarshal([]byte(m.MetadataData), &m.Metadata); err != nil {
			return err
		}
	}
	if m.PageDimensionsData != "" {
		if err := json.Unmarshal([]byte(m.PageDimensionsData), &m.PageDimensions); err != nil {
			return err
		}
	}
	return nil
}
