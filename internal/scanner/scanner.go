// Package scanner walks a library's directory tree, diffs it against the
// Series/Media rows already in the database, and produces an ordered list
// of Tasks the worker executes one at a time, per spec.md §4.3. A Scanner
// is constructed fresh for each scan job: its in-memory path maps are
// job-scoped state, freed when the job ends (spec.md §5's "shared resource
// policy").
package scanner

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/stumpgo/stump/internal/ignore"
	"github.com/stumpgo/stump/internal/processors"
	"github.com/stumpgo/stump/pkg/joblogs"
	"github.com/stumpgo/stump/pkg/media"
	"github.com/stumpgo/stump/pkg/models"
	"github.com/stumpgo/stump/pkg/series"
)

// VisitStrategy controls how MediaUpdate re-processes a file that already
// has a row, per spec.md §4.3.
type VisitStrategy string

const (
	VisitDefault     VisitStrategy = "Default"
	VisitRegenMeta   VisitStrategy = "RegenMeta"
	VisitRegenHashes VisitStrategy = "RegenHashes"
)

// Options configures one scan run.
type Options struct {
	VisitStrategy VisitStrategy
}

// TaskKind is the closed set of task variants spec.md §4.3 names.
type TaskKind int

const (
	TaskSeriesCreate TaskKind = iota
	TaskSeriesMark
	TaskMediaCreate
	TaskMediaUpdate
	TaskMediaMark
)

func (k TaskKind) String() string {
	switch k {
	case TaskSeriesCreate:
		return "SeriesCreate"
	case TaskSeriesMark:
		return "SeriesMark"
	case TaskMediaCreate:
		return "MediaCreate"
	case TaskMediaUpdate:
		return "MediaUpdate"
	case TaskMediaMark:
		return "MediaMark"
	default:
		return "Unknown"
	}
}

// Task is one unit of scan work. Which fields are meaningful depends on
// Kind: series tasks use Path (and ExistingSeriesID for Mark); media tasks
// use Path + SeriesPath (and ExistingMediaID for Update/Mark).
type Task struct {
	Kind             TaskKind
	Path             string
	SeriesPath       string
	ExistingSeriesID int
	ExistingMediaID  int
	PresentOnDisk    bool
}

// Plan is the output of Init: the ordered task list and the denominator
// for progress reporting (len(Tasks)).
type Plan struct {
	Tasks []Task
}

// Scanner holds the job-scoped state for one library scan: the existing
// Series/Media rows loaded once at Init, and the path->id map SeriesCreate
// tasks populate as they execute so later MediaCreate tasks in the same
// series can resolve their parent id without a second DB round trip.
type Scanner struct {
	Library       *models.Library
	LibraryConfig *models.LibraryConfig
	Registry      *processors.Registry
	SeriesSvc     *series.Service
	MediaSvc      *media.Service
	Opts          Options

	existingSeriesByPath map[string]*models.Series
	existingMediaByPath  map[string]*models.Media
	seriesIDByPath       map[string]int
	visitedSeries        map[string]bool
	visitedMedia         map[string]bool

	libraryIgnore *ignore.Set
}

// New builds a Scanner for one library scan job.
func New(library *models.Library, cfg *models.LibraryConfig, registry *processors.Registry, seriesSvc *series.Service, mediaSvc *media.Service) *Scanner {
	return &Scanner{
		Library:       library,
		LibraryConfig: cfg,
		Registry:      registry,
		SeriesSvc:     seriesSvc,
		MediaSvc:      mediaSvc,

		existingSeriesByPath: make(map[string]*models.Series),
		existingMediaByPath:  make(map[string]*models.Media),
		seriesIDByPath:       make(map[string]int),
		visitedSeries:        make(map[string]bool),
		visitedMedia:         make(map[string]bool),
	}
}

// Init resolves ignore rules, walks the library's tree, loads existing rows,
// and classifies the diff into an ordered Plan. A malformed .stumpignore
// aborts with a GlobParseError, per spec.md §4.3.
func (s *Scanner) Init(ctx context.Context, opts Options, log *joblogs.JobLogger) (*Plan, error) {
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

	existingSeries, err := s.SeriesSvc.ListSeries(ctx, series.ListSeriesOptions{LibraryID: &s.Library.ID})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	for _, sr := range existingSeries {
		s.existingSeriesByPath[cleanPath(sr.Path)] = sr
		s.seriesIDByPath[cleanPath(sr.Path)] = sr.ID
	}

	existingMedia, err := s.MediaSvc.ListMedia(ctx, media.ListMediaOptions{LibraryID: &s.Library.ID})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	for _, m := range existingMedia {
		s.existingMediaByPath[cleanPath(m.Path)] = m
	}

	w := &walker{scanner: s, opts: opts, log: log}

	var tasks []Task
	switch s.LibraryConfig.Pattern {
	case models.LibraryPatternCollectionBased:
		tasks, err = w.walkCollectionBased(ctx)
	default:
		tasks, err = w.walkSeriesBased(ctx)
	}
	if err != nil {
		return nil, err
	}

	for path, sr := range s.existingSeriesByPath {
		if !s.visitedSeries[path] {
			tasks = append(tasks, Task{Kind: TaskSeriesMark, Path: sr.Path, ExistingSeriesID: sr.ID, PresentOnDisk: false})
		}
	}
	for path, m := range s.existingMediaByPath {
		if !s.visitedMedia[path] {
			tasks = append(tasks, Task{Kind: TaskMediaMark, Path: m.Path, ExistingMediaID: m.ID, PresentOnDisk: false})
		}
	}

	return &Plan{Tasks: tasks}, nil
}

// cleanPath normalizes a path for use as a map key: cleaned and with its
// trailing separator stripped. Comparisons stay case-sensitive throughout
// (see DESIGN.md's Open Question decision); case-insensitive-filesystem
// duplicates are caught separately by the walker's lower-cased guard.
func cleanPath(p string) string {
	return filepath.Clean(p)
}

// isHidden reports whether name (a path base, not a full path) is a dotfile
// spec.md §4.3 says to omit entirely.
func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
