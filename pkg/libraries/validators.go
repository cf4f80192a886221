package libraries

type CreateLibraryPayload struct {
	Name                    string   `json:"name" validate:"required,max=100"`
	Path                    string   `json:"path" validate:"required"`
	Pattern                 string   `json:"pattern" validate:"required,oneof=SERIES_BASED COLLECTION_BASED"`
	ConvertRarToZip         bool     `json:"convert_rar_to_zip"`
	DeleteOriginalAfterConvert bool  `json:"delete_original_after_convert"`
	GenerateHashes          *bool    `json:"generate_hashes,omitempty"`
	ProcessMetadata         *bool    `json:"process_metadata,omitempty"`
	IgnoreRules             []string `json:"ignore_rules,omitempty"`
	DefaultReadingDirection *string  `json:"default_reading_direction,omitempty" validate:"omitempty,oneof=LTR RTL"`
}

type ListLibrariesQuery struct {
	Limit   int  `query:"limit" json:"limit,omitempty" default:"10" validate:"min=1,max=100"`
	Offset  int  `query:"offset" json:"offset,omitempty" validate:"min=0"`
	Deleted bool `query:"deleted" json:"deleted,omitempty"`
}

type UpdateLibraryPayload struct {
	Name    *string `json:"name,omitempty" validate:"omitempty,max=100"`
	Deleted *bool   `json:"deleted,omitempty"`
}
