// Package epub implements mediafile.Processor for EPUB e-books by serving
// each spine item as a "page": spine order already matches reading order,
// so no separate pagination scheme is needed.
package epub

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"

	"github.com/stumpgo/stump/internal/processors"
	"github.com/stumpgo/stump/pkg/epub"
	"github.com/stumpgo/stump/pkg/mediafile"
)

// Processor implements mediafile.Processor for EPUB e-books.
type Processor struct{}

var _ mediafile.Processor = Processor{}

func (Processor) GetPageCount(path string) (int, error) {
	spine, err := spineItems(path)
	if err != nil {
		return 0, err
	}
	return len(spine), nil
}

func (Processor) GetPage(path string, page int) ([]byte, string, error) {
	spine, err := spineItems(path)
	if err != nil {
		return nil, "", err
	}
	if page < 0 || page >= len(spine) {
		return nil, "", mediafile.NewError(mediafile.PageOutOfRange, path, nil)
	}
	return readZipEntry(path, spine[page].href, spine[page].mediaType)
}

func (Processor) GetCover(path string) ([]byte, string, error) {
	metadata, err := epub.Parse(path)
	if err != nil {
		return nil, "", err
	}
	if len(metadata.CoverData) == 0 {
		return nil, "", mediafile.NewError(mediafile.Empty, path, nil)
	}
	return metadata.CoverData, metadata.CoverMimeType, nil
}

func (Processor) ReadEmbeddedMetadata(path string) (*mediafile.ParsedMetadata, error) {
	return epub.Parse(path)
}

func (Processor) ContentHash(path string) (string, error) {
	return processors.ContentHash(path)
}

type spineItem struct {
	href      string
	mediaType string
}

// spineItems opens the EPUB's content.opf, resolves its spine (the reading
// order) against the manifest, and returns each item's archive-relative
// href and declared media type.
func spineItems(path string) ([]spineItem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, mediafile.NewError(mediafile.Io, path, err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, mediafile.NewError(mediafile.Io, path, err)
	}

	zr, err := zip.NewReader(f, stat.Size())
	if err != nil {
		return nil, mediafile.NewError(mediafile.Corrupt, path, err)
	}

	var result *epub.ParseOPFResult
	for _, file := range zr.File {
		if filepath.Ext(file.Name) == ".opf" {
			r, err := file.Open()
			if err != nil {
				return nil, mediafile.NewError(mediafile.Corrupt, path, err)
			}
			result, err = epub.ParseOPF(file.Name, r)
			if err != nil {
				return nil, mediafile.NewError(mediafile.MetadataParse, path, err)
			}
			break
		}
	}
	if result == nil {
		return nil, mediafile.NewError(mediafile.Corrupt, path, nil)
	}

	itemsByID := make(map[string]struct{ href, mediaType string })
	for _, item := range result.Package.Manifest.Item {
		itemsByID[item.ID] = struct{ href, mediaType string }{item.Href, item.MediaType}
	}

	var spine []spineItem
	for _, ref := range result.Package.Spine.Itemref {
		item, ok := itemsByID[ref.Idref]
		if !ok {
			continue
		}
		href, err := epub.CleanArchivePath(result.BasePath, item.href)
		if err != nil {
			continue
		}
		spine = append(spine, spineItem{
			href:      href,
			mediaType: item.mediaType,
		})
	}

	if len(spine) == 0 {
		return nil, mediafile.NewError(mediafile.Empty, path, nil)
	}

	return spine, nil
}

func readZipEntry(path, name, mediaType string) ([]byte, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", mediafile.NewError(mediafile.Io, path, err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, "", mediafile.NewError(mediafile.Io, path, err)
	}

	zr, err := zip.NewReader(f, stat.Size())
	if err != nil {
		return nil, "", mediafile.NewError(mediafile.Corrupt, path, err)
	}

	for _, file := range zr.File {
		if file.Name != name {
			continue
		}
		r, err := file.Open()
		if err != nil {
			return nil, "", mediafile.NewError(mediafile.Corrupt, path, err)
		}
		defer r.Close()

		data, err := io.ReadAll(r)
		if err != nil {
			return nil, "", mediafile.NewError(mediafile.Io, path, err)
		}
		return data, mediaType, nil
	}

	return nil, "", mediafile.NewError(mediafile.Corrupt, path, nil)
}
