// Package thumbnails generates and caches derived page images for Media
// rows. Resizing follows the teacher's draw.BiLinear.Scale pattern
// (pkg/kobo/handlers.go); atomic writes follow pkg/cbzpages/cache.go's
// extract-then-rename idiom, generalized to support webp/jpeg/png encode
// and batch generation bounded by a shared concurrency cap.
package thumbnails

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strconv"

	"github.com/chai2010/webp"
	"github.com/pkg/errors"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register WebP decoder
	"golang.org/x/sync/errgroup"

	"github.com/stumpgo/stump/pkg/mediafile"
)

const (
	ResizeMethodNone            = "None"
	ResizeMethodExact           = "Exact"
	ResizeMethodScaleByFactor   = "ScaleByFactor"
	ResizeMethodScaleDimension  = "ScaleDimension"
)

const (
	DimensionHeight = "Height"
	DimensionWidth  = "Width"
)

// Options controls how a single thumbnail is produced, per spec.md §4.2.
type Options struct {
	Format       string // webp|jpeg|png
	ResizeMethod string
	Width        int
	Height       int
	Factor       float64
	Dimension    string // Height|Width, used when ResizeMethod == ScaleDimension
	Quality      int
	Page         int
	Force        bool
}

// Engine generates thumbnails into a single flat directory keyed by Media
// id, calling out to a mediafile.Processor to get the source page bytes.
type Engine struct {
	dir         string
	concurrency int
}

// NewEngine builds an Engine rooted at dir (config.Config.ThumbnailsDir),
// fanning batch work out across concurrency workers.
func NewEngine(dir string, concurrency int) *Engine {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Engine{dir: dir, concurrency: concurrency}
}

// PathFor returns the path a thumbnail for mediaID would occupy under the
// given format, without checking whether it exists.
func (e *Engine) PathFor(mediaID int, format string) string {
	return filepath.Join(e.dir, strconv.Itoa(mediaID)+"."+extForFormat(format))
}

// Generate produces (or returns the cached) thumbnail for a single Media,
// reading its source page via proc. Returns the thumbnail path.
func (e *Engine) Generate(proc mediafile.Processor, sourcePath string, mediaID int, opts Options) (string, error) {
	target := e.PathFor(mediaID, opts.Format)

	if !opts.Force {
		if _, err := os.Stat(target); err == nil {
			return target, nil
		}
	}

	data, _, err := proc.GetPage(sourcePath, opts.Page)
	if err != nil {
		if mediafile.Is(err, mediafile.Unsupported) {
			// PDF rendering disabled, or a format with no page images:
			// spec.md §4.1 says thumbnail generation falls back to "no
			// thumbnail" without failing the scan.
			return "", nil
		}
		return "", err
	}

	return target, e.writeThumbnail(target, data, opts)
}

func (e *Engine) writeThumbnail(target string, raw []byte, opts Options) error {
	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return errors.WithStack(err)
	}

	resized := resize(src, opts)

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return errors.WithStack(err)
	}

	tmp := target + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return errors.WithStack(err)
	}

	if err := encode(f, resized, opts); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return errors.WithStack(err)
	}

	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return errors.WithStack(err)
	}
	return nil
}

// BatchItem is one unit of batch thumbnail work.
type BatchItem struct {
	Processor  mediafile.Processor
	SourcePath string
	MediaID    int
	Options    Options
}

// BatchResult pairs a BatchItem's MediaID with its outcome.
type BatchResult struct {
	MediaID int
	Path    string
	Err     error
}

// GenerateBatch runs items chunked into groups (default 5), bounded by
// the Engine's configured concurrency. A failing item is recorded in its
// BatchResult but never aborts the rest of the batch, per spec.md §4.2.
func (e *Engine) GenerateBatch(items []BatchItem, chunkSize int) []BatchResult {
	if chunkSize <= 0 {
		chunkSize = 5
	}

	results := make([]BatchResult, len(items))
	for start := 0; start < len(items); start += chunkSize {
		end := start + chunkSize
		if end > len(items) {
			end = len(items)
		}
		chunk := items[start:end]

		var g errgroup.Group
		g.SetLimit(e.concurrency)
		for i, item := range chunk {
			i, item := i, item
			idx := start + i
			g.Go(func() error {
				path, err := e.Generate(item.Processor, item.SourcePath, item.MediaID, item.Options)
				results[idx] = BatchResult{MediaID: item.MediaID, Path: path, Err: err}
				return nil
			})
		}
		_ = g.Wait()
	}

	return results
}

func resize(src image.Image, opts Options) image.Image {
	bounds := src.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()

	var targetW, targetH int
	switch opts.ResizeMethod {
	case ResizeMethodExact:
		targetW, targetH = opts.Width, opts.Height
	case ResizeMethodScaleByFactor:
		factor := opts.Factor
		if factor <= 0 {
			factor = 1
		}
		targetW = int(float64(srcW) * factor)
		targetH = int(float64(srcH) * factor)
	case ResizeMethodScaleDimension:
		if opts.Dimension == DimensionWidth && opts.Width > 0 {
			targetW = opts.Width
			targetH = srcH * opts.Width / srcW
		} else if opts.Height > 0 {
			targetH = opts.Height
			targetW = srcW * opts.Height / srcH
		} else {
			return src
		}
	default: // ResizeMethodNone or unrecognized
		return src
	}

	if targetW <= 0 || targetH <= 0 {
		return src
	}

	dst := image.NewRGBA(image.Rect(0, 0, targetW, targetH))
	draw.BiLinear.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
	return dst
}

func encode(w *os.File, img image.Image, opts Options) error {
	quality := opts.Quality
	if quality <= 0 {
		quality = 80
	}

	switch opts.Format {
	case "png":
		return errors.WithStack(png.Encode(w, img))
	case "webp":
		return errors.WithStack(webp.Encode(w, img, &webp.Options{Quality: float32(quality)}))
	default: // jpeg
		return errors.WithStack(jpeg.Encode(w, img, &jpeg.Options{Quality: quality}))
	}
}

func extForFormat(format string) string {
	switch format {
	case "png":
		return "png"
	case "webp":
		return "webp"
	default:
		return "jpg"
	}
}
