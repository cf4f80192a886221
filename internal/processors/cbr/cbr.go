// Package cbr implements mediafile.Processor for comic archive (.cbr/.rar)
// files using rardecode, and supports converting an archive to CBZ when a
// library's LibraryConfig.ConvertRarToZip is enabled.
package cbr

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nwaples/rardecode/v2"

	"github.com/stumpgo/stump/internal/processors"
	"github.com/stumpgo/stump/pkg/cbz"
	"github.com/stumpgo/stump/pkg/cbzpages"
	"github.com/stumpgo/stump/pkg/fileutils"
	"github.com/stumpgo/stump/pkg/mediafile"
)

const maxImageSize = 100 * 1024 * 1024

// Processor implements mediafile.Processor for RAR/CBR comic archives.
// RAR doesn't support efficient random access the way ZIP does, so every
// page read walks the archive from the start; Cache, when set, avoids
// paying that cost for a page already served once. ConvertToCBZ exists
// for libraries that would rather pay the sequential-read cost once, at
// scan time, and gain ZIP's random access for every read after.
type Processor struct {
	Cache *cbzpages.Cache
}

var _ mediafile.Processor = Processor{}

func (Processor) GetPageCount(path string) (int, error) {
	images, err := sortedImageNames(path)
	if err != nil {
		return 0, err
	}
	return len(images), nil
}

func (p Processor) GetPage(path string, page int) ([]byte, string, error) {
	if p.Cache == nil {
		return p.getPageUncached(path, page)
	}

	data, contentType, err := p.Cache.GetPage(path, page, func() ([]byte, string, error) {
		images, err := sortedImageNames(path)
		if err != nil {
			return nil, "", err
		}
		if page < 0 || page >= len(images) {
			return nil, "", mediafile.NewError(mediafile.PageOutOfRange, path, nil)
		}
		raw, _, err := readEntry(path, images[page])
		if err != nil {
			return nil, "", err
		}
		return raw, images[page], nil
	})
	if err != nil {
		return nil, "", err
	}
	return data, contentType, nil
}

func (Processor) getPageUncached(path string, page int) ([]byte, string, error) {
	images, err := sortedImageNames(path)
	if err != nil {
		return nil, "", err
	}
	if page < 0 || page >= len(images) {
		return nil, "", mediafile.NewError(mediafile.PageOutOfRange, path, nil)
	}
	return readEntry(path, images[page])
}

func (Processor) GetCover(path string) ([]byte, string, error) {
	images, err := sortedImageNames(path)
	if err != nil {
		return nil, "", err
	}
	if len(images) == 0 {
		return nil, "", mediafile.NewError(mediafile.Empty, path, nil)
	}
	return readEntry(path, images[0])
}

// ReadEmbeddedMetadata extracts ComicInfo.xml the same way the CBZ
// processor does; RAR archives package the same sidecar format.
func (Processor) ReadEmbeddedMetadata(path string) (*mediafile.ParsedMetadata, error) {
	r, err := rardecode.OpenReader(path)
	if err != nil {
		return nil, mediafile.NewError(mediafile.Io, path, err)
	}
	defer r.Close()

	var imageNames []string
	var comicInfo *cbz.ComicInfo
	for {
		header, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, mediafile.NewError(mediafile.Corrupt, path, err)
		}
		if header.IsDir {
			continue
		}
		if strings.ToLower(header.Name) == "comicinfo.xml" {
			parsed, err := cbz.ParseComicInfo(io.NopCloser(io.LimitReader(r, maxImageSize)))
			if err != nil {
				return nil, mediafile.NewError(mediafile.MetadataParse, path, err)
			}
			comicInfo = parsed
			continue
		}
		if isImageEntry(header.Name, r) {
			imageNames = append(imageNames, header.Name)
		}
	}

	if len(imageNames) == 0 {
		return nil, mediafile.NewError(mediafile.Empty, path, nil)
	}
	sort.Strings(imageNames)

	cover, coverType, err := readEntry(path, imageNames[0])
	var coverPage *int
	if err == nil {
		coverPage = intPtr(0)
	}

	pageCount := len(imageNames)
	metadata := cbz.BuildParsedMetadata(comicInfo, filepath.Base(path), cover, coverType, coverPage, &pageCount)
	return metadata, nil
}

// ContentHash samples the first min(5, imageCount) image entries' raw
// bytes, the same rule internal/processors/cbz uses, per spec.md §4.1.
func (Processor) ContentHash(path string) (string, error) {
	images, err := sortedImageNames(path)
	if err != nil {
		return "", err
	}
	if len(images) > processors.MaxHashImages {
		images = images[:processors.MaxHashImages]
	}

	samples := make([][]byte, 0, len(images))
	for _, name := range images {
		data, _, err := readEntry(path, name)
		if err != nil {
			return "", err
		}
		samples = append(samples, data)
	}

	return processors.ContentHashFromImages(samples)
}

// ConvertToCBZ repackages a RAR archive's entries into a standard ZIP file
// at dstPath, for libraries configured with ConvertRarToZip.
func ConvertToCBZ(srcPath, dstPath string) error {
	r, err := rardecode.OpenReader(srcPath)
	if err != nil {
		return mediafile.NewError(mediafile.Io, srcPath, err)
	}
	defer r.Close()

	out, err := os.Create(dstPath)
	if err != nil {
		return mediafile.NewError(mediafile.Io, dstPath, err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	for {
		header, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return mediafile.NewError(mediafile.Corrupt, srcPath, err)
		}
		if header.IsDir {
			continue
		}

		w, err := zw.Create(header.Name)
		if err != nil {
			return mediafile.NewError(mediafile.Io, dstPath, err)
		}
		if _, err := io.Copy(w, r); err != nil {
			return mediafile.NewError(mediafile.Io, srcPath, err)
		}
	}

	if err := zw.Close(); err != nil {
		return mediafile.NewError(mediafile.Io, dstPath, err)
	}
	return nil
}

func sortedImageNames(path string) ([]string, error) {
	r, err := rardecode.OpenReader(path)
	if err != nil {
		return nil, mediafile.NewError(mediafile.Io, path, err)
	}
	defer r.Close()

	var names []string
	for {
		header, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, mediafile.NewError(mediafile.Corrupt, path, err)
		}
		if !header.IsDir && isImageEntry(header.Name, r) {
			names = append(names, header.Name)
		}
	}

	sort.Strings(names)
	return names, nil
}

func readEntry(path, name string) ([]byte, string, error) {
	r, err := rardecode.OpenReader(path)
	if err != nil {
		return nil, "", mediafile.NewError(mediafile.Io, path, err)
	}
	defer r.Close()

	for {
		header, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, "", mediafile.NewError(mediafile.Corrupt, path, err)
		}
		if header.IsDir || header.Name != name {
			continue
		}
		data, err := io.ReadAll(io.LimitReader(r, maxImageSize))
		if err != nil {
			return nil, "", mediafile.NewError(mediafile.Io, path, err)
		}
		return data, fileutils.MimeTypeFromExtension(filepath.Ext(name)), nil
	}

	return nil, "", mediafile.NewError(mediafile.Corrupt, path, nil)
}

// sniffSize is how many leading bytes of an entry are read to sniff its
// magic bytes, per processors.IsImage's sniff-first rule.
const sniffSize = 512

// isImageEntry sniffs up to sniffSize leading bytes of the current entry's
// reader, then falls back to name's extension. r must be positioned at the
// start of the entry's content (as rardecode.Reader is immediately after
// Next()); reading the sniff prefix here doesn't disturb the next Next()
// call, the same way partially reading a tar/zip entry doesn't.
func isImageEntry(name string, r io.Reader) bool {
	buf := make([]byte, sniffSize)
	n, _ := io.ReadFull(r, buf)
	return processors.IsImageData(name, buf[:n])
}

func intPtr(v int) *int { return &v }
