package worker

import (
	"context"

	"github.com/pkg/errors"

	"github.com/stumpgo/stump/internal/scanner"
	"github.com/stumpgo/stump/pkg/joblogs"
	"github.com/stumpgo/stump/pkg/libraries"
	"github.com/stumpgo/stump/pkg/models"
)

// runLibraryScan implements the LibraryScan job spec (spec.md §4.3/§6):
// walk the library's tree, diff against the database, and execute the
// resulting task plan.
func (w *Worker) runLibraryScan(ctx context.Context, jobLog *joblogs.JobLogger) error {
	if w.job.LibraryID == nil {
		return errors.New("worker: scan job missing library_id")
	}

	lib, err := w.deps.LibraryService.RetrieveLibrary(ctx, libraries.RetrieveLibraryOptions{ID: w.job.LibraryID})
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

	// A RUNNING/PAUSED job restored from a prior process (spec.md §4.4)
	// re-walks the tree the same way a fresh scan does: Init's directory
	// walk is deterministic for unchanged directory contents, so the Plan
	// it builds lines up index-for-index with the one checkpointed before
	// the restart, and runTaskLoop's CompletedIdx skip picks up where the
	// prior process left off without redoing finished tasks.
	plan, err := sc.Init(ctx, scanner.Options{VisitStrategy: visitStrategy}, jobLog)
	if err != nil {
		return err
	}

	if err := w.runTaskLoop(ctx, sc, plan, jobLog); err != nil {
		return err
	}

	lib.LastScanAt = nowPtr()
	return errors.WithStack(w.deps.LibraryService.UpdateLibrary(ctx, lib, libraries.UpdateLibraryOptions{Columns: []string{"last_scan_at"}}))
}

func visitStrategyFromJob(job *models.Job) (scanner.VisitStrategy, error) {
	if job.Input == nil || job.Input.VisitStrategy == "" {
		return scanner.VisitDefault, nil
	}
	switch scanner.VisitStrategy(job.Input.VisitStrategy) {
	case scanner.VisitRegenMeta:
		return scanner.VisitRegenMeta, nil
	case scanner.VisitRegenHashes:
		return scanner.VisitRegenHashes, nil
	default:
		return scanner.VisitDefault, nil
	}
}
