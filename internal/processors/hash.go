// Package processors hosts the file-type implementations of
// mediafile.Processor plus the dispatch registry and the shared
// content-hashing helpers they all use.
package processors

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"io"
	"os"

	"github.com/pkg/errors"
)

// MaxHashImages is N in spec.md §4.1's hash rule: the sample is the
// concatenation of a file's first min(5, imageCount) image entries' raw
// bytes. The comic archive processors (cbz, cbr) read images up to this
// count and pass them to ContentHashFromImages.
const MaxHashImages = 5

// ContentHashFromImages computes the content hash over the declared
// sample-size rule: the hash input is the image count followed by the
// concatenated bytes of up to MaxHashImages images, already truncated to
// that count by the caller. Passing zero images still produces a stable
// hash (the count alone), per DESIGN.md's Open Question decision on small
// files.
func ContentHashFromImages(images [][]byte) (string, error) {
	h := sha256.New()

	var countBuf [8]byte
	binary.LittleEndian.PutUint64(countBuf[:], uint64(len(images)))
	h.Write(countBuf[:])

	for _, img := range images {
		if _, err := h.Write(img); err != nil {
			return "", errors.WithStack(err)
		}
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// sampleWindow is how many bytes are hashed from the head and tail of a
// file for formats with no notion of "image entries" (PDF). Hashing the
// whole file would make rescans of large PDFs prohibitively slow; sampling
// plus the file size catches the overwhelming majority of in-place edits
// without reading gigabytes on every scan.
const sampleWindow = 64 * 1024

// ContentHash computes a stable identifier for a file's content from its
// size and the first/last sampleWindow bytes, grounded in the teacher's
// sha256-then-hex fingerprinting pattern (pkg/downloadcache/fingerprint.go).
// Used by internal/processors/pdf and internal/processors/epub, which hash
// these head/tail bytes rather than sampling image entries.
func ContentHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.WithStack(err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return "", errors.WithStack(err)
	}
	size := stat.Size()

	h := sha256.New()

	var sizeBuf [8]byte
	binary.LittleEndian.PutUint64(sizeBuf[:], uint64(size))
	h.Write(sizeBuf[:])

	head := io.LimitReader(f, sampleWindow)
	if _, err := io.Copy(h, head); err != nil {
		return "", errors.WithStack(err)
	}

	if size > sampleWindow {
		tailStart := size - sampleWindow
		if tailStart < sampleWindow {
			tailStart = sampleWindow
		}
		if _, err := f.Seek(tailStart, io.SeekStart); err != nil {
			return "", errors.WithStack(err)
		}
		if _, err := io.Copy(h, f); err != nil {
			return "", errors.WithStack(err)
		}
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
