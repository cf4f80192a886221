// Package pdf implements mediafile.Processor for PDF files. Page count and
// metadata come from pdfcpu; page/cover rendering to an image is done with
// go-pdfium and is feature-flagged, since spinning up a PDFium instance per
// file is expensive and most libraries never need PDF page images.
package pdf

import (
	"bytes"
	"image/png"
	"sync"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfium "github.com/klippa-app/go-pdfium"
	"github.com/klippa-app/go-pdfium/requests"
	"github.com/klippa-app/go-pdfium/single_threaded"

	"github.com/stumpgo/stump/internal/processors"
	"github.com/stumpgo/stump/pkg/mediafile"
)

// Processor implements mediafile.Processor for PDF files. RenderingEnabled
// mirrors config.Config.PDFRenderingEnabled: when false, GetPage/GetCover
// report the file as unsupported instead of paying for a PDFium instance.
type Processor struct {
	RenderingEnabled bool

	poolOnce sync.Once
	pool     pdfium.Pool
}

var _ mediafile.Processor = (*Processor)(nil)

func (p *Processor) GetPageCount(path string) (int, error) {
	count, err := api.PageCountFile(path)
	if err != nil {
		return 0, mediafile.NewError(mediafile.Corrupt, path, err)
	}
	return count, nil
}

func (p *Processor) GetPage(path string, page int) ([]byte, string, error) {
	if !p.RenderingEnabled {
		return nil, "", mediafile.NewError(mediafile.Unsupported, path, nil)
	}

	count, err := p.GetPageCount(path)
	if err != nil {
		return nil, "", err
	}
	if page < 0 || page >= count {
		return nil, "", mediafile.NewError(mediafile.PageOutOfRange, path, nil)
	}

	return p.renderPage(path, page)
}

func (p *Processor) GetCover(path string) ([]byte, string, error) {
	if !p.RenderingEnabled {
		return nil, "", mediafile.NewError(mediafile.Unsupported, path, nil)
	}
	return p.renderPage(path, 0)
}

// ReadEmbeddedMetadata reads the document info dictionary (Title, Author,
// Subject, Keywords) via pdfcpu's cross-reference table.
func (p *Processor) ReadEmbeddedMetadata(path string) (*mediafile.ParsedMetadata, error) {
	ctx, err := api.ReadContextFile(path)
	if err != nil {
		return nil, mediafile.NewError(mediafile.Corrupt, path, err)
	}

	metadata := &mediafile.ParsedMetadata{}

	xref := ctx.XRefTable
	if xref.Title != "" {
		metadata.Title = xref.Title
	}
	if xref.Author != "" {
		metadata.Authors = []mediafile.ParsedAuthor{{Name: xref.Author}}
	}
	if xref.Subject != "" {
		metadata.Description = xref.Subject
	}
	if xref.Keywords != "" {
		metadata.Tags = splitKeywords(xref.Keywords)
	}

	pageCount, err := ctx.PageCount()
	if err == nil {
		metadata.PageCount = &pageCount
	}

	if p.RenderingEnabled {
		if data, contentType, err := p.renderPage(path, 0); err == nil {
			metadata.CoverData = data
			metadata.CoverMimeType = contentType
			zero := 0
			metadata.CoverPage = &zero
		}
	}

	return metadata, nil
}

func (p *Processor) ContentHash(path string) (string, error) {
	return processors.ContentHash(path)
}

func splitKeywords(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' || s[i] == ';' {
			if word := trimSpace(s[start:i]); word != "" {
				out = append(out, word)
			}
			start = i + 1
		}
	}
	return out
}

func trimSpace(s string) string {
	for len(s) > 0 && (s[0] == ' ' || s[0] == '\t') {
		s = s[1:]
	}
	for len(s) > 0 && (s[len(s)-1] == ' ' || s[len(s)-1] == '\t') {
		s = s[:len(s)-1]
	}
	return s
}

// renderPage rasterizes a single PDF page to PNG via a lazily-initialized,
// process-wide single-threaded PDFium pool.
func (p *Processor) renderPage(path string, page int) ([]byte, string, error) {
	pool, err := p.pdfiumPool()
	if err != nil {
		return nil, "", mediafile.NewError(mediafile.Io, path, err)
	}

	instance, err := pool.GetInstance(30 * time.Second)
	if err != nil {
		return nil, "", mediafile.NewError(mediafile.Io, path, err)
	}
	defer instance.Close()

	doc, err := instance.OpenDocument(&requests.OpenDocument{FilePath: &path})
	if err != nil {
		return nil, "", mediafile.NewError(mediafile.Corrupt, path, err)
	}
	defer instance.FPDF_CloseDocument(&requests.FPDF_CloseDocument{Document: doc.Document})

	rendered, err := instance.RenderPageInDPI(&requests.RenderPageInDPI{
		Page: requests.Page{
			Document: doc.Document,
			Index:    page,
		},
		DPI: 150,
	})
	if err != nil {
		return nil, "", mediafile.NewError(mediafile.Corrupt, path, err)
	}

	var buf bytes.Buffer
	if rendered.Result.Image != nil {
		if err := png.Encode(&buf, rendered.Result.Image); err != nil {
			return nil, "", mediafile.NewError(mediafile.Io, path, err)
		}
	}

	return buf.Bytes(), "image/png", nil
}

func (p *Processor) pdfiumPool() (pdfium.Pool, error) {
	var initErr error
	p.poolOnce.Do(func() {
		p.pool, initErr = single_threaded.Init(single_threaded.Config{})
	})
	return p.pool, initErr
}
