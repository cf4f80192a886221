package jobs

// CreateJobPayload is the command route's request body (pkg/server wires
// this against internal/controller — job commands aren't plain CRUD on
// this package's own handler).
type CreateJobPayload struct {
	Type      string  `json:"type" validate:"required,oneof=SCAN SERIES_SCAN THUMBNAIL ANALYZE_MEDIA"`
	LibraryID *string `json:"library_id,omitempty"`
	SeriesID  *int    `json:"series_id,omitempty"`
	MediaID   *int    `json:"media_id,omitempty"`
	MediaIDs  []int   `json:"media_ids,omitempty"`

	ThumbnailFormat  string `json:"thumbnail_format,omitempty" validate:"omitempty,oneof=jpeg png webp"`
	ThumbnailQuality int    `json:"thumbnail_quality,omitempty" validate:"omitempty,min=1,max=100"`
	ForceRegenerate  bool   `json:"force_regenerate,omitempty"`
}

type ListJobsQuery struct {
	Limit     int      `query:"limit" json:"limit,omitempty" default:"10" validate:"min=1,max=100"`
	Offset    int       `query:"offset" json:"offset,omitempty" validate:"min=0"`
	Status    []string `query:"status" json:"status,omitempty" validate:"dive,oneof=QUEUED RUNNING PAUSED COMPLETED CANCELLED FAILED"`
	LibraryID *string  `query:"library_id" json:"library_id,omitempty"`
}

type UpdateJobStatusPayload struct {
	Status string `json:"status" validate:"required,oneof=PAUSED RUNNING CANCELLED"`
}
