package models

import (
	"github.com/segmentio/encoding/json"
	"github.com/uptrace/bun"
)

const (
	LibraryPatternSeriesBased     = "SERIES_BASED"
	LibraryPatternCollectionBased = "COLLECTION_BASED"
)

const (
	ReadingDirectionLTR = "LTR"
	ReadingDirectionRTL = "RTL"
)

// ThumbnailConfig controls how internal/thumbnails renders page images for
// a library. It is stored as a JSON column the way the teacher stores
// Job.Data, since it is never queried on, only loaded whole.
type ThumbnailConfig struct {
	Format       string `json:"format"`        // webp|jpeg|png
	ResizeMethod string `json:"resize_method"`  // scale|crop
	Quality      int    `json:"quality"`
	Page         int    `json:"page"`
}

// LibraryConfig holds the scan/processing options for one Library. It is
// split out of Library the way the teacher splits connection/runtime
// config from the domain row it governs.
type LibraryConfig struct {
	bun.BaseModel `bun:"table:library_configs,alias:lc"`

	ID                      string          `bun:",pk" json:"id"`
	Pattern                 string          `bun:",nullzero,default:'SERIES_BASED'" json:"pattern"`
	ConvertRarToZip         bool            `json:"convert_rar_to_zip"`
	DeleteOriginalAfterConvert bool         `json:"delete_original_after_convert"`
	GenerateHashes          bool            `bun:",default:true" json:"generate_hashes"`
	ProcessMetadata         bool            `bun:",default:true" json:"process_metadata"`
	ThumbnailConfigData     string          `bun:"thumbnail_config,nullzero" json:"-"`
	ThumbnailConfig         ThumbnailConfig `bun:"-" json:"thumbnail_config"`
	IgnoreRulesData         string          `bun:"ignore_rules,nullzero" json:"-"`
	IgnoreRules             []string        `bun:"-" json:"ignore_rules"`
	DefaultReadingDirection string          `bun:",nullzero,default:'LTR'" json:"default_reading_direction"`
}

// MarshalConfig serializes ThumbnailConfig/IgnoreRules into their bun
// columns. Call before insert/update, the way Job.MarshalOutput and
// Job.MarshalInput are.
func (c *LibraryConfig) MarshalConfig() error {
	tc, err := json.Marshal(c.ThumbnailConfig)
	if err != nil {
		return err
	}
	c.ThumbnailConfigData = string(tc)

	ir, err := json.Marshal(c.IgnoreRules)
	if err != nil {
		return err
	}
	c.IgnoreRulesData = string(ir)

	return nil
}

// UnmarshalConfig is the inverse of MarshalConfig, called after a row is
// loaded from the database.
func (c *LibraryConfig) UnmarshalConfig() error {
	if c.ThumbnailConfigData != "" {
		if err := json.Unmarshal([]byte(c.ThumbnailConfigData), &c.ThumbnailConfig); err != nil {
			return err
		}
	}
	if c.IgnoreRulesData != "" {
		if err := json.Unmarshal([]byte(c.IgnoreRulesData), &c.IgnoreRules); err != nil {
			return err
		}
	}
	return nil
}
