package scanner

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"

	"github.com/stumpgo/stump/internal/ignore"
	"github.com/stumpgo/stump/internal/processors"
	"github.com/stumpgo/stump/pkg/joblogs"
)

// walker holds the per-run state the two traversal strategies share: the
// case-insensitive duplicate guard (see DESIGN.md's Open Question
// decision — comparisons stay case-sensitive everywhere except this one
// guard) and the task list being built.
type walker struct {
	scanner *Scanner
	opts    Options
	log     *joblogs.JobLogger

	seenLower map[string]string
	tasks     []Task
}

// walkSeriesBased treats every immediate child directory of the library
// root as a Series, and every media file found beneath it (at any depth)
// as belonging to that Series. It is grounded in the teacher's
// pkg/worker/scan.go walk, which likewise builds the full file list before
// dispatching per-file work so the job's total task count is known up
// front for progress reporting.
func (w *walker) walkSeriesBased(ctx context.Context) ([]Task, error) {
	w.seenLower = make(map[string]string)

	entries, err := os.ReadDir(w.scanner.Library.Path)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	for _, entry := range entries {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !entry.IsDir() {
			continue
		}
		if isHidden(entry.Name()) {
			continue
		}

		seriesPath := filepath.Join(w.scanner.Library.Path, entry.Name())
		if w.scanner.libraryIgnore.Match(entry.Name()) {
			if w.log != nil {
				w.log.Info("skipping ignored series directory", logger.Data{"path": seriesPath})
			}
			continue
		}
		if !w.checkDuplicate(seriesPath) {
			continue
		}

		clean := cleanPath(seriesPath)
		w.scanner.visitedSeries[clean] = true
		if _, ok := w.scanner.existingSeriesByPath[clean]; !ok {
			w.tasks = append(w.tasks, Task{Kind: TaskSeriesCreate, Path: seriesPath, PresentOnDisk: true})
		}

		seriesIgnore, err := ignore.Parse(filepath.Join(seriesPath, ".stumpignore"))
		if err != nil {
			return nil, err
		}
		combined := ignore.Compose(w.scanner.libraryIgnore, seriesIgnore)

		if err := w.walkMediaTree(ctx, seriesPath, seriesPath, combined); err != nil {
			return nil, err
		}
	}

	return w.tasks, nil
}

// walkCollectionBased creates a Series for each terminal directory beneath
// the library root — a directory containing a media file directly, with no
// subdirectory (at any depth) that itself contains media — per spec.md's
// COLLECTION_BASED pattern. A flat library with media sitting directly in
// the library root yields a single Series whose path equals the library's,
// which spec.md's GLOSSARY permits as a "collection root" Series.
func (w *walker) walkCollectionBased(ctx context.Context) ([]Task, error) {
	w.seenLower = make(map[string]string)

	terminals, err := w.findTerminalDirs(ctx, w.scanner.Library.Path)
	if err != nil {
		return nil, err
	}

	for _, seriesPath := range terminals {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !w.checkDuplicate(seriesPath) {
			continue
		}

		clean := cleanPath(seriesPath)
		w.scanner.visitedSeries[clean] = true
		if _, ok := w.scanner.existingSeriesByPath[clean]; !ok {
			w.tasks = append(w.tasks, Task{Kind: TaskSeriesCreate, Path: seriesPath, PresentOnDisk: true})
		}

		seriesIgnore, err := ignore.Parse(filepath.Join(seriesPath, ".stumpignore"))
		if err != nil {
			return nil, err
		}
		combined := ignore.Compose(w.scanner.libraryIgnore, seriesIgnore)

		if err := w.walkMediaTree(ctx, seriesPath, seriesPath, combined); err != nil {
			return nil, err
		}
	}

	return w.tasks, nil
}

// findTerminalDirs walks root depth-first and returns every directory that
// contains a media file directly and has no subdirectory that (at any
// depth) also contains one. Traversal is post-order, so a branch's deepest
// terminal directories are found and appended before its shallower
// siblings are evaluated, matching spec.md's depth-first requirement.
func (w *walker) findTerminalDirs(ctx context.Context, root string) ([]string, error) {
	var terminals []string

	var visit func(dir string) (hasMediaBelow bool, err error)
	visit = func(dir string) (bool, error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}

		entries, err := os.ReadDir(dir)
		if err != nil {
			return false, errors.WithStack(err)
		}

		hasMedia := false
		childHasMedia := false
		for _, entry := range entries {
			if isHidden(entry.Name()) {
				continue
			}

			full := filepath.Join(dir, entry.Name())
			rel, err := filepath.Rel(root, full)
			if err != nil {
				return false, errors.WithStack(err)
			}
			if w.scanner.libraryIgnore.Match(rel) {
				continue
			}

			if entry.IsDir() {
				sub, err := visit(full)
				if err != nil {
					return false, err
				}
				if sub {
					childHasMedia = true
				}
				continue
			}

			if processors.KindForExtension(filepath.Ext(entry.Name())) != "" {
				hasMedia = true
			}
		}

		if hasMedia && !childHasMedia {
			terminals = append(terminals, dir)
		}

		return hasMedia || childHasMedia, nil
	}

	if _, err := visit(root); err != nil {
		return nil, err
	}

	return terminals, nil
}

// walkMediaTree recursively visits every file beneath root, classifying
// media files into MediaCreate/MediaUpdate tasks. seriesPath identifies
// the owning Series for every file found, regardless of nesting depth.
func (w *walker) walkMediaTree(ctx context.Context, seriesPath, root string, ig *ignore.Set) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return errors.WithStack(err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if path == root {
			return nil
		}

		name := d.Name()
		if isHidden(name) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return errors.WithStack(err)
		}
		if !ig.Empty() && ig.Match(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			if w.log != nil {
				w.log.Info("skipping ignored file", logger.Data{"path": path})
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}
		if strings.EqualFold(name, "series.json") {
			return nil
		}

		kind := processors.KindForExtension(filepath.Ext(name))
		if kind == "" {
			return nil
		}

		if !w.checkDuplicate(path) {
			return nil
		}

		clean := cleanPath(path)
		w.scanner.visitedMedia[clean] = true

		if existing, ok := w.scanner.existingMediaByPath[clean]; ok {
			w.tasks = append(w.tasks, Task{
				Kind:            TaskMediaUpdate,
				Path:            path,
				SeriesPath:      seriesPath,
				ExistingMediaID: existing.ID,
				PresentOnDisk:   true,
			})
		} else {
			w.tasks = append(w.tasks, Task{
				Kind:          TaskMediaCreate,
				Path:          path,
				SeriesPath:    seriesPath,
				PresentOnDisk: true,
			})
		}

		return nil
	})
}

// checkDuplicate guards against two distinct-cased paths colliding on a
// case-insensitive filesystem (DESIGN.md's Open Question decision): the
// first path seen for a given lower-cased form wins, later ones are
// skipped with a warning rather than silently double-processed.
func (w *walker) checkDuplicate(path string) bool {
	lower := strings.ToLower(cleanPath(path))
	if first, ok := w.seenLower[lower]; ok && first != path {
		if w.log != nil {
			w.log.Warn("skipping path that collides case-insensitively with another", logger.Data{
				"path":  path,
				"first": first,
			})
		}
		return false
	}
	w.seenLower[lower] = path
	return true
}
