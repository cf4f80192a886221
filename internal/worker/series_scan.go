package worker

import (
	"context"

	"github.com/pkg/errors"

	"github.com/stumpgo/stump/internal/scanner"
	"github.com/stumpgo/stump/pkg/joblogs"
	"github.com/stumpgo/stump/pkg/libraries"
	"github.com/stumpgo/stump/pkg/series"
)

// runSeriesScan implements the SeriesScan job spec (spec.md §4.3/§6):
// re-walk a single, already-existing Series instead of the whole library,
// for a user-triggered "rescan this series" action.
func (w *Worker) runSeriesScan(ctx context.Context, jobLog *joblogs.JobLogger) error {
	if w.job.Input == nil || w.job.Input.SeriesID == nil {
		return errors.New("worker: series scan job missing series_id")
	}

	sr, err := w.deps.SeriesService.RetrieveSeries(ctx, series.RetrieveSeriesOptions{ID: w.job.Input.SeriesID})
	if err != nil {
		return errors.WithStack(err)
	}

	lib, err := w.deps.LibraryService.RetrieveLibrary(ctx, libraries.RetrieveLibraryOptions{ID: &sr.LibraryID})
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

	// Resuming a RUNNING/PAUSED job from a prior process replays the same
	// re-init + diff that a fresh run does (spec.md §4.4's restore path);
	// runTaskLoop skips back to job.Output.CompletedIdx either way.
	plan, err := sc.InitSeries(ctx, sr, scanner.Options{VisitStrategy: visitStrategy}, jobLog)
	if err != nil {
		return err
	}

	return w.runTaskLoop(ctx, sc, plan, jobLog)
}
