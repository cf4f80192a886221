// Package cbz implements mediafile.Processor for comic archive (.cbz/.zip)
// files by wrapping pkg/cbz's metadata parsing with page-serving logic.
package cbz

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/stumpgo/stump/internal/processors"
	"github.com/stumpgo/stump/pkg/cbz"
	"github.com/stumpgo/stump/pkg/cbzpages"
	"github.com/stumpgo/stump/pkg/fileutils"
	"github.com/stumpgo/stump/pkg/mediafile"
)

// maxImageSize caps a single extracted page to guard against decompression
// bombs hidden in a malformed archive.
const maxImageSize = 100 * 1024 * 1024

// Processor implements mediafile.Processor for CBZ/ZIP comic archives.
// Cache is optional: when set, GetPage serves already-extracted pages
// straight from disk instead of re-opening the archive.
type Processor struct {
	Cache *cbzpages.Cache
}

var _ mediafile.Processor = Processor{}

func (Processor) GetPageCount(path string) (int, error) {
	files, err := openSortedImages(path)
	if err != nil {
		return 0, err
	}
	return len(files), nil
}

func (p Processor) GetPage(path string, page int) ([]byte, string, error) {
	if p.Cache == nil {
		return p.getPageUncached(path, page)
	}

	data, contentType, err := p.Cache.GetPage(path, page, func() ([]byte, string, error) {
		f, zr, err := openZip(path)
		if err != nil {
			return nil, "", err
		}
		defer f.Close()

		images := sortedImageEntries(zr)
		if page < 0 || page >= len(images) {
			return nil, "", mediafile.NewError(mediafile.PageOutOfRange, path, nil)
		}
		raw, _, err := readZipEntry(images[page])
		if err != nil {
			return nil, "", err
		}
		return raw, images[page].Name, nil
	})
	if err != nil {
		return nil, "", err
	}
	return data, contentType, nil
}

func (Processor) getPageUncached(path string, page int) ([]byte, string, error) {
	f, zr, err := openZip(path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	images := sortedImageEntries(zr)
	if page < 0 || page >= len(images) {
		return nil, "", mediafile.NewError(mediafile.PageOutOfRange, path, nil)
	}

	return readZipEntry(images[page])
}

func (Processor) GetCover(path string) ([]byte, string, error) {
	metadata, err := cbz.Parse(path)
	if err != nil {
		return nil, "", err
	}
	if len(metadata.CoverData) == 0 {
		return nil, "", mediafile.NewError(mediafile.Empty, path, nil)
	}
	return metadata.CoverData, metadata.CoverMimeType, nil
}

func (Processor) ReadEmbeddedMetadata(path string) (*mediafile.ParsedMetadata, error) {
	return cbz.Parse(path)
}

// ContentHash samples the first min(5, imageCount) image entries' raw
// bytes, per spec.md §4.1, so repacking an archive with the same leading
// pages doesn't change the hash.
func (Processor) ContentHash(path string) (string, error) {
	f, zr, err := openZip(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	images := sortedImageEntries(zr)
	if len(images) > processors.MaxHashImages {
		images = images[:processors.MaxHashImages]
	}

	samples := make([][]byte, 0, len(images))
	for _, entry := range images {
		data, _, err := readZipEntry(entry)
		if err != nil {
			return "", err
		}
		samples = append(samples, data)
	}

	return processors.ContentHashFromImages(samples)
}

func openZip(path string) (*os.File, *zip.Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, mediafile.NewError(mediafile.Io, path, err)
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, mediafile.NewError(mediafile.Io, path, err)
	}

	zr, err := zip.NewReader(f, stat.Size())
	if err != nil {
		f.Close()
		return nil, nil, mediafile.NewError(mediafile.Corrupt, path, err)
	}

	return f, zr, nil
}

func openSortedImages(path string) ([]*zip.File, error) {
	f, zr, err := openZip(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return sortedImageEntries(zr), nil
}

func sortedImageEntries(zr *zip.Reader) []*zip.File {
	var images []*zip.File
	for _, file := range zr.File {
		if isImageEntry(file) {
			images = append(images, file)
		}
	}
	sort.Slice(images, func(i, j int) bool { return images[i].Name < images[j].Name })
	return images
}

// sniffSize is how many leading bytes of an entry are read to sniff its
// magic bytes, per processors.IsImage's sniff-first rule.
const sniffSize = 512

func isImageEntry(entry *zip.File) bool {
	r, err := entry.Open()
	if err != nil {
		return processors.IsImageExt(entry.Name)
	}
	defer r.Close()

	buf := make([]byte, sniffSize)
	n, _ := io.ReadFull(r, buf)
	return processors.IsImageData(entry.Name, buf[:n])
}

func readZipEntry(entry *zip.File) ([]byte, string, error) {
	r, err := entry.Open()
	if err != nil {
		return nil, "", mediafile.NewError(mediafile.Corrupt, entry.Name, err)
	}
	defer r.Close()

	data, err := io.ReadAll(io.LimitReader(r, maxImageSize))
	if err != nil {
		return nil, "", mediafile.NewError(mediafile.Io, entry.Name, err)
	}

	return data, fileutils.MimeTypeFromExtension(filepath.Ext(entry.Name)), nil
}
