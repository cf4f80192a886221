package worker

import (
	"context"

	"github.com/pkg/errors"

	"github.com/stumpgo/stump/internal/scanner"
	"github.com/stumpgo/stump/pkg/joblogs"
	"github.com/stumpgo/stump/pkg/libraries"
	"github.com/stumpgo/stump/pkg/media"
	"github.com/stumpgo/stump/pkg/models"
	"github.com/stumpgo/stump/pkg/series"
)

// runAnalyzeMedia implements the AnalyzeMedia job spec (spec.md §6): force
// re-extraction of metadata and/or the content hash for either one Media
// (media_id) or every Media in a library (library_id), without walking the
// directory tree for new files.
func (w *Worker) runAnalyzeMedia(ctx context.Context, jobLog *joblogs.JobLogger) error {
	in := w.job.Input
	if in == nil || (in.MediaID == nil && w.job.LibraryID == nil) {
		return errors.New("worker: analyze job has no target (media_id or library_id)")
	}

	var libraryID string
	var medias []*models.Media

	if in.MediaID != nil {
		id := *in.MediaID
		m, err := w.deps.MediaService.RetrieveMedia(ctx, media.RetrieveMediaOptions{ID: &id})
		if err != nil {
			return errors.WithStack(err)
		}
		sr, err := w.deps.SeriesService.RetrieveSeries(ctx, series.RetrieveSeriesOptions{ID: &m.SeriesID})
		if err != nil {
			return errors.WithStack(err)
		}
		libraryID = sr.LibraryID
		medias = []*models.Media{m}
	} else {
		libraryID = *w.job.LibraryID
		list, err := w.deps.MediaService.ListMedia(ctx, media.ListMediaOptions{LibraryID: w.job.LibraryID})
		if err != nil {
			return errors.WithStack(err)
		}
		medias = list
	}

	lib, err := w.deps.LibraryService.RetrieveLibrary(ctx, libraries.RetrieveLibraryOptions{ID: &libraryID})
	if err != nil {
		return errors.WithStack(err)
	}
	if lib.LibraryConfig == nil {
		return errors.Errorf("worker: library %s has no config loaded", lib.ID)
	}

	sc := scanner.New(lib, lib.LibraryConfig, w.deps.Registry, w.deps.SeriesService, w.deps.MediaService)

	visitStrategy, err := visitStrategyFromJob(w.job)
	if err != nil {
		return err
	}
	if visitStrategy == scanner.VisitDefault {
		visitStrategy = scanner.VisitRegenMeta
	}

	plan := sc.InitMediaUpdate(medias, scanner.Options{VisitStrategy: visitStrategy})
	return w.runTaskLoop(ctx, sc, plan, jobLog)
}
