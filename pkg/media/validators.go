package media

type ListMediaQuery struct {
	Limit     int     `query:"limit" json:"limit,omitempty" default:"24" validate:"min=1,max=100"`
	Offset    int     `query:"offset" json:"offset,omitempty" validate:"min=0"`
	SeriesID  *int    `query:"series_id" json:"series_id,omitempty" validate:"omitempty,min=1"`
	LibraryID *string `query:"library_id" json:"library_id,omitempty"`
	Search    *string `query:"search" json:"search,omitempty" validate:"omitempty,max=100"`
}

// UpdateMediaPayload covers the user-facing metadata overrides; everything
// else on a Media row is owned by the scanner and file processors.
type UpdateMediaPayload struct {
	Title       *string  `json:"title,omitempty" validate:"omitempty,max=300"`
	Description *string  `json:"description,omitempty" validate:"omitempty,max=4000"`
	Authors     []string `json:"authors,omitempty"`
	Genres      []string `json:"genres,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	AgeRating   *string  `json:"age_rating,omitempty"`
}
