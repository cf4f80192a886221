package server

import (
	"context"
	"os"

	"github.com/pkg/errors"

	"github.com/stumpgo/stump/internal/processors"
	"github.com/stumpgo/stump/internal/thumbnails"
	"github.com/stumpgo/stump/pkg/errcodes"
	"github.com/stumpgo/stump/pkg/libraries"
	"github.com/stumpgo/stump/pkg/media"
	"github.com/stumpgo/stump/pkg/series"
)

// pageServer bridges pkg/media's pageReader interface to the concrete
// internal/processors.Registry and internal/thumbnails.Engine, the way
// the teacher's pkg/server wires pkg/cbzpages/pkg/epub into pkg/books'
// page handlers.
type pageServer struct {
	mediaService   *media.Service
	seriesService  *series.Service
	libraryService *libraries.Service
	registry       *processors.Registry
	thumbnails     *thumbnails.Engine
}

// Page implements pkg/media's pageReader, returning the raw bytes and
// content type of one zero-indexed page of a Media's underlying file.
func (p *pageServer) Page(ctx context.Context, mediaID int, page int) ([]byte, string, error) {
	m, err := p.mediaService.RetrieveMedia(ctx, media.RetrieveMediaOptions{ID: &mediaID})
	if err != nil {
		return nil, "", errors.WithStack(err)
	}

	proc, err := p.registry.For(m.Path)
	if err != nil {
		return nil, "", err
	}

	data, contentType, err := proc.GetPage(m.Path, page)
	if err != nil {
		return nil, "", err
	}
	return data, contentType, nil
}

// Thumbnail implements pkg/media's pageReader, generating (or returning
// the cached) thumbnail for a Media using its library's ThumbnailConfig.
func (p *pageServer) Thumbnail(ctx context.Context, mediaID int) ([]byte, string, error) {
	m, err := p.mediaService.RetrieveMedia(ctx, media.RetrieveMediaOptions{ID: &mediaID})
	if err != nil {
		return nil, "", errors.WithStack(err)
	}

	sr, err := p.seriesService.RetrieveSeries(ctx, series.RetrieveSeriesOptions{ID: &m.SeriesID})
	if err != nil {
		return nil, "", errors.WithStack(err)
	}

	lib, err := p.libraryService.RetrieveLibrary(ctx, libraries.RetrieveLibraryOptions{ID: &sr.LibraryID})
	if err != nil {
		return nil, "", errors.WithStack(err)
	}
	if lib.LibraryConfig == nil {
		return nil, "", errors.Errorf("pages: library %s has no config loaded", lib.ID)
	}

	proc, err := p.registry.For(m.Path)
	if err != nil {
		return nil, "", err
	}

	cfg := lib.LibraryConfig.ThumbnailConfig
	opts := thumbnails.Options{
		Format:       cfg.Format,
		ResizeMethod: cfg.ResizeMethod,
		Quality:      cfg.Quality,
		Page:         cfg.Page,
	}
	if opts.Format == "" {
		opts.Format = "jpeg"
	}

	path, err := p.thumbnails.Generate(proc, m.Path, mediaID, opts)
	if err != nil {
		return nil, "", err
	}
	if path == "" {
		return nil, "", errcodes.NotFound("Thumbnail")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", errcodes.NotFound("Thumbnail")
		}
		return nil, "", errors.WithStack(err)
	}

	return data, contentTypeForFormat(opts.Format), nil
}

func contentTypeForFormat(format string) string {
	switch format {
	case "png":
		return "image/png"
	case "webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
