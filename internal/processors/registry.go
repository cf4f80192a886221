package processors

import (
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"

	"github.com/stumpgo/stump/pkg/mediafile"
)

// KindForExtension maps a file extension (case-insensitive, with or
// without leading dot) to the Media kind it belongs to, or "" if the
// extension isn't one internal/scanner treats as media.
func KindForExtension(ext string) string {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "cbz", "zip":
		return "COMIC"
	case "cbr", "rar":
		return "COMIC"
	case "epub":
		return "EPUB"
	case "pdf":
		return "PDF"
	default:
		return ""
	}
}

// Registry dispatches a file path to the mediafile.Processor that handles
// its container format, sniffing magic bytes first and falling back to
// the extension when sniffing is inconclusive — the same two-step gate
// the teacher's scan walk uses (mimetype.DetectFile, then extension).
type Registry struct {
	cbz mediafile.Processor
	cbr mediafile.Processor
	epub mediafile.Processor
	pdf mediafile.Processor
}

// NewRegistry builds a Registry from the four concrete processors.
// Accepting them as parameters (rather than constructing internally)
// keeps this package free of an import cycle with internal/processors/pdf,
// which itself imports internal/processors for ContentHash.
func NewRegistry(cbz, cbr, epub, pdf mediafile.Processor) *Registry {
	return &Registry{cbz: cbz, cbr: cbr, epub: epub, pdf: pdf}
}

// ErrUnknownFormat is returned when neither sniffing nor the extension
// identifies a supported container.
var ErrUnknownFormat = errors.New("unrecognized media container")

// For returns the Processor that handles path's container format.
func (r *Registry) For(path string) (mediafile.Processor, error) {
	ext := strings.ToLower(filepath.Ext(path))

	mtype, err := mimetype.DetectFile(path)
	if err == nil {
		switch {
		case mtype.Is("application/epub+zip") || ext == ".epub":
			return r.epub, nil
		case mtype.Is("application/pdf") || ext == ".pdf":
			return r.pdf, nil
		case mtype.Is("application/zip") || ext == ".cbz" || ext == ".zip":
			return r.cbz, nil
		case mtype.Is("application/x-rar-compressed") || ext == ".cbr" || ext == ".rar":
			return r.cbr, nil
		}
	}

	switch ext {
	case ".cbz", ".zip":
		return r.cbz, nil
	case ".cbr", ".rar":
		return r.cbr, nil
	case ".epub":
		return r.epub, nil
	case ".pdf":
		return r.pdf, nil
	}

	return nil, mediafile.NewError(mediafile.Unsupported, path, ErrUnknownFormat)
}

// IsImage reports whether path looks like a raster image, sniffing magic
// bytes first and falling back to extension, per spec.md §4.1's
// "Is image" check.
func IsImage(path string) bool {
	mtype, err := mimetype.DetectFile(path)
	if err == nil && strings.HasPrefix(mtype.String(), "image/") {
		return true
	}
	return IsImageExt(path)
}

// IsImageExt reports whether name's extension is one of the fallback
// raster-image extensions. It's the extension half of IsImage, exposed
// separately for callers (archive entry listings) that only have a name
// and can't always afford to extract bytes for sniffing.
func IsImageExt(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png", ".webp", ".gif", ".avif":
		return true
	}
	return false
}

// IsImageData reports whether data looks like a raster image, sniffing its
// magic bytes first and falling back to name's extension — the
// bytes-in-hand equivalent of IsImage for archive entries that haven't
// been extracted to disk.
func IsImageData(name string, data []byte) bool {
	if strings.HasPrefix(mimetype.Detect(data).String(), "image/") {
		return true
	}
	return IsImageExt(name)
}
