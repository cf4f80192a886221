package scanner

import (
	"context"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/stumpgo/stump/internal/ignore"
	"github.com/stumpgo/stump/pkg/joblogs"
	"github.com/stumpgo/stump/pkg/media"
	"github.com/stumpgo/stump/pkg/models"
)

// InitSeries builds a Plan scoped to a single, already-existing Series,
// for the SeriesScan job type (spec.md §6/SPEC_FULL.md §5.6): it re-walks
// only that series' subtree, never touching SeriesCreate/SeriesMark tasks
// for any other Series in the library. It is otherwise the same diff
// logic as Init, narrowed to one path.
func (s *Scanner) InitSeries(ctx context.Context, sr *models.Series, opts Options, log *joblogs.JobLogger) (*Plan, error) {
	if opts.VisitStrategy == "" {
		opts.VisitStrategy = VisitDefault
	}
	s.Opts = opts

	libIgnorePath := filepath.Join(s.Library.Path, ".stumpignore")
	libIgnore, err := ignore.Parse(libIgnorePath)
	if err != nil {
		return nil, err
	}
	s.libraryIgnore = libIgnore

	seriesIgnore, err := ignore.Parse(filepath.Join(sr.Path, ".stumpignore"))
	if err != nil {
		return nil, err
	}
	combined := ignore.Compose(s.libraryIgnore, seriesIgnore)

	existingMedia, err := s.MediaSvc.ListMedia(ctx, media.ListMediaOptions{SeriesID: &sr.ID})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	for _, m := range existingMedia {
		s.existingMediaByPath[cleanPath(m.Path)] = m
	}

	w := &walker{scanner: s, opts: opts, log: log}
	s.visitedSeries[cleanPath(sr.Path)] = true
	s.seriesIDByPath[cleanPath(sr.Path)] = sr.ID

	if err := w.walkMediaTree(ctx, sr.Path, sr.Path, combined); err != nil {
		return nil, err
	}

	tasks := w.tasks
	for path, m := range s.existingMediaByPath {
		if !s.visitedMedia[path] {
			tasks = append(tasks, Task{Kind: TaskMediaMark, Path: m.Path, ExistingMediaID: m.ID, PresentOnDisk: false})
		}
	}

	return &Plan{Tasks: tasks}, nil
}
