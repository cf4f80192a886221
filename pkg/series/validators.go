package series

type ListSeriesQuery struct {
	Limit     int     `query:"limit" json:"limit,omitempty" default:"24" validate:"min=1,max=50"`
	Offset    int     `query:"offset" json:"offset,omitempty" validate:"min=0"`
	LibraryID *string `query:"library_id" json:"library_id,omitempty" validate:"omitempty"`
	Search    *string `query:"search" json:"search,omitempty" validate:"omitempty,max=100"`
}

// UpdateSeriesPayload covers the only field a user can override on a
// scanner-owned series: a hand-written description takes precedence over
// whatever a series.json sidecar or directory name would otherwise give it.
type UpdateSeriesPayload struct {
	Description *string `json:"description,omitempty" validate:"omitempty,max=2000"`
}
