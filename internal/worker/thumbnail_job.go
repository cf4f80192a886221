package worker

import (
	"context"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"

	"github.com/stumpgo/stump/internal/thumbnails"
	"github.com/stumpgo/stump/pkg/joblogs"
	"github.com/stumpgo/stump/pkg/libraries"
	"github.com/stumpgo/stump/pkg/media"
	"github.com/stumpgo/stump/pkg/models"
	"github.com/stumpgo/stump/pkg/series"
)

// runThumbnailGeneration implements the ThumbnailGeneration job spec
// (spec.md §4.2/§6): build a Media target set from the job's input (a
// specific set of media, a whole series, or a whole library) and hand it
// to internal/thumbnails in chunks, the way the teacher's batch cover
// jobs fan out across goroutines bounded by a worker pool.
func (w *Worker) runThumbnailGeneration(ctx context.Context, jobLog *joblogs.JobLogger) error {
	targets, err := w.resolveThumbnailTargets(ctx)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		return nil
	}

	w.control.SetTotal(len(targets))

	configCache := map[string]*models.LibraryConfig{}
	items := make([]thumbnails.BatchItem, 0, len(targets))

	for _, m := range targets {
		cfg, cerr := w.libraryConfigForSeries(ctx, m.SeriesID, configCache)
		if cerr != nil {
			return cerr
		}

		proc, perr := w.deps.Registry.For(m.Path)
		if perr != nil {
			jobLog.Warn("no processor for media, skipping thumbnail", logger.Data{"media_id": m.ID, "path": m.Path})
			continue
		}

		items = append(items, thumbnails.BatchItem{
			Processor:  proc,
			SourcePath: m.Path,
			MediaID:    m.ID,
			Options:    thumbnailOptionsFor(cfg, w.job.Input),
		})
	}

	chunkSize := w.deps.ThumbChunkSize
	if chunkSize <= 0 {
		chunkSize = 5
	}

	for start := 0; start < len(items); start += chunkSize {
		if err := w.control.Checkpoint(ctx); err != nil {
			return err
		}

		end := start + chunkSize
		if end > len(items) {
			end = len(items)
		}

		results := w.deps.Thumbnails.GenerateBatch(items[start:end], chunkSize)
		for _, r := range results {
			if r.Err != nil {
				jobLog.Warn("thumbnail generation failed", logger.Data{"media_id": r.MediaID, "error": r.Err.Error()})
			}
			w.control.Advance()
		}
	}

	return nil
}

// resolveThumbnailTargets turns the job's input into the concrete list of
// Media rows to thumbnail: an explicit media_ids list, a single series, or
// an entire library, in that precedence order.
func (w *Worker) resolveThumbnailTargets(ctx context.Context) ([]*models.Media, error) {
	in := w.job.Input

	if in != nil && len(in.MediaIDs) > 0 {
		out := make([]*models.Media, 0, len(in.MediaIDs))
		for _, id := range in.MediaIDs {
			id := id
			m, err := w.deps.MediaService.RetrieveMedia(ctx, media.RetrieveMediaOptions{ID: &id})
			if err != nil {
				return nil, errors.WithStack(err)
			}
			out = append(out, m)
		}
		return out, nil
	}

	if in != nil && in.SeriesID != nil {
		out, err := w.deps.MediaService.ListMedia(ctx, media.ListMediaOptions{SeriesID: in.SeriesID})
		return out, errors.WithStack(err)
	}

	if w.job.LibraryID != nil {
		out, err := w.deps.MediaService.ListMedia(ctx, media.ListMediaOptions{LibraryID: w.job.LibraryID})
		return out, errors.WithStack(err)
	}

	return nil, errors.New("worker: thumbnail job has no target (media_ids, series_id, or library_id)")
}

func (w *Worker) libraryConfigForSeries(ctx context.Context, seriesID int, cache map[string]*models.LibraryConfig) (*models.LibraryConfig, error) {
	sr, err := w.deps.SeriesService.RetrieveSeries(ctx, series.RetrieveSeriesOptions{ID: &seriesID})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	if cfg, ok := cache[sr.LibraryID]; ok {
		return cfg, nil
	}

	lib, err := w.deps.LibraryService.RetrieveLibrary(ctx, libraries.RetrieveLibraryOptions{ID: &sr.LibraryID})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if lib.LibraryConfig == nil {
		return nil, errors.Errorf("worker: library %s has no config loaded", lib.ID)
	}

	cache[sr.LibraryID] = lib.LibraryConfig
	return lib.LibraryConfig, nil
}

// thumbnailOptionsFor builds generation Options from the library's default
// ThumbnailConfig, letting the job's Input override format/quality/force
// per spec.md §4.2's "force regenerate" and "override target format".
func thumbnailOptionsFor(cfg *models.LibraryConfig, in *models.JobInput) thumbnails.Options {
	opts := thumbnails.Options{
		Format:       cfg.ThumbnailConfig.Format,
		ResizeMethod: cfg.ThumbnailConfig.ResizeMethod,
		Quality:      cfg.ThumbnailConfig.Quality,
		Page:         cfg.ThumbnailConfig.Page,
	}

	if in != nil {
		if in.ThumbnailFormat != "" {
			opts.Format = in.ThumbnailFormat
		}
		if in.ThumbnailQuality > 0 {
			opts.Quality = in.ThumbnailQuality
		}
		opts.Force = in.ForceRegenerate
	}

	return opts
}
