package models

import (
	"time"

	"github.com/uptrace/bun"
)

// ReadingSession tracks one user's progress through one Media. User
// management is external to this core (spec.md §1); UserID is an opaque
// foreign key the core never resolves or validates. The core only
// cascades deletes into this table when the owning Media is removed —
// it never creates or mutates rows directly.
type ReadingSession struct {
	bun.BaseModel `bun:"table:reading_sessions,alias:rs"`

	ID          int        `bun:",pk,autoincrement" json:"id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	UserID      string     `bun:",nullzero" json:"user_id"`
	MediaID     int        `bun:",nullzero" json:"media_id"`
	Media       *Media     `bun:"rel:belongs-to" json:"media,omitempty"`
	Page        *int       `json:"page,omitempty"`
	CFI         *string    `json:"cfi,omitempty"`
	Percentage  float64    `json:"percentage"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}
