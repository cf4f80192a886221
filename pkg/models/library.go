package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	LibraryStatusReady   = "READY"
	LibraryStatusMissing = "MISSING"
	LibraryStatusError   = "ERROR"
)

// Library is a single scanned root directory. Unlike the teacher's
// Library/LibraryPath split, a Library here owns exactly one filesystem
// path (see DESIGN.md Open Question decisions).
type Library struct {
	bun.BaseModel `bun:"table:libraries,alias:l"`

	ID              string         `bun:",pk" json:"id"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       *time.Time     `bun:",soft_delete" json:"-"`
	Name            string         `bun:",nullzero" json:"name"`
	Path            string         `bun:",nullzero" json:"path"`
	Status          string         `bun:",nullzero,default:'READY'" json:"status"`
	StatusMessage   *string        `json:"status_message,omitempty"`
	LibraryConfigID string         `bun:",nullzero" json:"library_config_id"`
	LibraryConfig   *LibraryConfig `bun:"rel:belongs-to,join:library_config_id=id" json:"library_config,omitempty"`
	LastScanAt      *time.Time     `json:"last_scan_at,omitempty"`
}
