// Package mediafile defines the contract every scannable file type
// (comic archive, EPUB, PDF) implements, and the closed set of error
// kinds a Processor can fail with. internal/processors/{cbz,cbr,epub,pdf}
// each implement Processor; internal/processors/registry.go dispatches to
// one of them by sniffed container type.
package mediafile

import (
	"errors"
	"time"
)

// Kind is a closed set of reasons a Processor call can fail, mirroring
// how pkg/errcodes closes the HTTP-facing error set.
type Kind int

const (
	Unsupported Kind = iota
	Empty
	Corrupt
	Io
	PageOutOfRange
	MetadataParse
)

func (k Kind) String() string {
	switch k {
	case Unsupported:
		return "unsupported"
	case Empty:
		return "empty"
	case Corrupt:
		return "corrupt"
	case Io:
		return "io"
	case PageOutOfRange:
		return "page_out_of_range"
	case MetadataParse:
		return "metadata_parse"
	default:
		return "unknown"
	}
}

// Error wraps a Kind with the underlying cause, the way errcodes.Error
// wraps an HTTP status with a message.
type Error struct {
	Kind  Kind
	Path  string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Kind.String() + ": " + e.Path + ": " + e.Cause.Error()
	}
	return e.Kind.String() + ": " + e.Path
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func NewError(kind Kind, path string, cause error) *Error {
	return &Error{Kind: kind, Path: path, Cause: cause}
}

// Is lets callers check `errors.Is(err, mediafile.Corrupt)`-style sentinels
// by kind instead of type-asserting *Error everywhere.
func Is(err error, kind Kind) bool {
	var mfErr *Error
	if errors.As(err, &mfErr) {
		return mfErr.Kind == kind
	}
	return false
}

// ParsedAuthor is one creator credit extracted from embedded metadata.
type ParsedAuthor struct {
	Name string
	Role string
}

// ParsedIdentifier is a scheme-tagged external identifier (ISBN, GTIN, ...)
// extracted from embedded metadata.
type ParsedIdentifier struct {
	Type  string
	Value string
}

// ParsedMetadata is what ReadEmbeddedMetadata returns: everything a
// processor could pull out of a file's embedded metadata, flattened to
// match models.MediaMetadata's shape.
type ParsedMetadata struct {
	Title        string
	Authors      []ParsedAuthor
	Series       string
	SeriesNumber *float64
	Genres       []string
	Tags         []string
	Description  string
	Publisher    string
	Imprint      string
	URL          string
	ReleaseDate  *time.Time
	AgeRating    string

	CoverMimeType string
	CoverData     []byte
	CoverPage     *int
	PageCount     *int

	Identifiers []ParsedIdentifier
}

// Processor is implemented by every supported container format.
type Processor interface {
	// GetPageCount returns the number of renderable pages in the file at path.
	GetPageCount(path string) (int, error)
	// GetPage returns the raw bytes and content type of the given
	// zero-indexed page.
	GetPage(path string, page int) (data []byte, contentType string, err error)
	// GetCover returns the raw bytes and content type of the file's cover
	// image, falling back to the first page when no cover is marked.
	GetCover(path string) (data []byte, contentType string, err error)
	// ReadEmbeddedMetadata extracts whatever metadata the container format
	// embeds (ComicInfo.xml, OPF, PDF info dict, ...).
	ReadEmbeddedMetadata(path string) (*ParsedMetadata, error)
	// ContentHash returns a stable hash identifying the file's content,
	// used to detect in-place edits across rescans.
	ContentHash(path string) (string, error)
}
