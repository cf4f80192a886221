package scanner

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"

	"github.com/stumpgo/stump/internal/processors/cbr"
	"github.com/stumpgo/stump/pkg/joblogs"
	"github.com/stumpgo/stump/pkg/mediafile"
	"github.com/stumpgo/stump/pkg/models"
	"github.com/stumpgo/stump/pkg/series"
	"github.com/stumpgo/stump/pkg/sortname"
)

// ExecuteTask runs one Task to completion, mutating the database through
// the Scanner's series/media services. It is the counterpart to the
// teacher's scanFile: a single-file/single-directory unit of work the
// worker can interleave with a cancellation check between calls.
func (s *Scanner) ExecuteTask(ctx context.Context, task Task, log *joblogs.JobLogger) error {
	switch task.Kind {
	case TaskSeriesCreate:
		return s.executeSeriesCreate(ctx, task, log)
	case TaskSeriesMark:
		return s.executeSeriesMark(ctx, task)
	case TaskMediaCreate:
		return s.executeMediaCreate(ctx, task, log)
	case TaskMediaUpdate:
		return s.executeMediaUpdate(ctx, task, log)
	case TaskMediaMark:
		return s.executeMediaMark(ctx, task)
	default:
		return errors.Errorf("scanner: unknown task kind %d", task.Kind)
	}
}

func (s *Scanner) executeSeriesCreate(ctx context.Context, task Task, log *joblogs.JobLogger) error {
	name := filepath.Base(task.Path)
	if task.Path == s.Library.Path {
		name = s.Library.Name
	}

	sr := &models.Series{
		LibraryID: s.Library.ID,
		Name:      name,
		Path:      task.Path,
		Status:    models.SeriesStatusReady,
		SortName:  sortname.ForTitle(name),
	}

	if year, summary, ok := readSeriesJSON(task.Path); ok {
		sr.ParsedYear = year
		sr.ParsedSummary = summary
	}

	if err := s.SeriesSvc.CreateSeries(ctx, sr); err != nil {
		return err
	}

	clean := cleanPath(task.Path)
	s.existingSeriesByPath[clean] = sr
	s.seriesIDByPath[clean] = sr.ID
	if log != nil {
		log.Info("created series", logger.Data{"path": task.Path, "series_id": sr.ID})
	}
	return nil
}

func (s *Scanner) executeSeriesMark(ctx context.Context, task Task) error {
	sr, ok := s.existingSeriesByPath[cleanPath(task.Path)]
	if !ok {
		return errors.Errorf("scanner: no existing series for path %q", task.Path)
	}
	if sr.Status == models.SeriesStatusMissing {
		return nil
	}
	sr.Status = models.SeriesStatusMissing
	return s.SeriesSvc.UpdateSeries(ctx, sr, series.UpdateSeriesOptions{Columns: []string{"status"}})
}

func (s *Scanner) executeMediaMark(ctx context.Context, task Task) error {
	m, ok := s.existingMediaByPath[cleanPath(task.Path)]
	if !ok {
		return errors.Errorf("scanner: no existing media for path %q", task.Path)
	}
	if m.Status == models.MediaStatusMissing {
		return nil
	}
	m.Status = models.MediaStatusMissing
	return s.MediaSvc.UpdateMedia(ctx, m, false, []string{"status"})
}

func (s *Scanner) executeMediaCreate(ctx context.Context, task Task, log *joblogs.JobLogger) error {
	seriesID, ok := s.seriesIDByPath[cleanPath(task.SeriesPath)]
	if !ok {
		return errors.Errorf("scanner: series %q not yet resolved for media %q", task.SeriesPath, task.Path)
	}

	path, ext, kind, err := s.resolvePath(task.Path, log)
	if err != nil {
		return err
	}

	info, err := os.Stat(path)
	if err != nil {
		return errors.WithStack(err)
	}

	m := &models.Media{
		SeriesID:   seriesID,
		Filename:   filepath.Base(path),
		Extension:  ext,
		Path:       path,
		Kind:       kind,
		Status:     models.MediaStatusReady,
		SizeBytes:  info.Size(),
		ModifiedAt: info.ModTime(),
	}

	if err := s.populateMedia(m, path, log); err != nil {
		return err
	}

	if err := s.MediaSvc.CreateMedia(ctx, m); err != nil {
		return err
	}
	s.existingMediaByPath[cleanPath(m.Path)] = m
	if log != nil {
		log.Info("created media", logger.Data{"path": m.Path, "media_id": m.ID})
	}
	return nil
}

func (s *Scanner) executeMediaUpdate(ctx context.Context, task Task, log *joblogs.JobLogger) error {
	m, ok := s.existingMediaByPath[cleanPath(task.Path)]
	if !ok {
		return errors.Errorf("scanner: no existing media for path %q", task.Path)
	}

	path, ext, kind, err := s.resolvePath(task.Path, log)
	if err != nil {
		return err
	}

	info, err := os.Stat(path)
	if err != nil {
		return errors.WithStack(err)
	}

	fileChanged := m.Status != models.MediaStatusReady ||
		m.SizeBytes != info.Size() ||
		info.ModTime().After(m.ModifiedAt)

	columns := []string{}

	if m.Status != models.MediaStatusReady {
		m.Status = models.MediaStatusReady
		columns = append(columns, "status")
	}

	if !fileChanged {
		// The file itself hasn't changed, but RegenMeta/RegenHashes force a
		// narrow re-process of just that one field (spec.md §4.3: "If
		// visit_strategy=RegenMeta, always re-process metadata; if
		// RegenHashes, always recompute hash"), independent of each other
		// and without touching page count or the other field.
		touchedMetadata := false
		switch s.Opts.VisitStrategy {
		case VisitRegenMeta:
			if err := s.populateMetadata(m, path, log); err != nil {
				return err
			}
			touchedMetadata = true
		case VisitRegenHashes:
			if err := s.populateHash(m, path, log); err != nil {
				return err
			}
			columns = append(columns, "content_hash")
		}
		if len(columns) == 0 && !touchedMetadata {
			return nil
		}
		return s.MediaSvc.UpdateMedia(ctx, m, touchedMetadata, columns)
	}

	m.Path = path
	m.Extension = ext
	m.Kind = kind
	m.SizeBytes = info.Size()
	m.ModifiedAt = info.ModTime()
	columns = append(columns, "path", "extension", "kind", "size_bytes", "modified_at")

	if err := s.populateMedia(m, path, log); err != nil {
		return err
	}
	columns = append(columns, "page_count", "content_hash")

	return s.MediaSvc.UpdateMedia(ctx, m, true, columns)
}

// resolvePath converts a RAR/CBR file to CBZ in place when the library is
// configured to do so, per DESIGN.md's Open Question decision: convert and
// delete-original are independent flags, and delete only takes effect when
// convert is also enabled. Returns the path, extension, and Kind to record
// for the Media row, which may differ from the original when converted.
func (s *Scanner) resolvePath(path string, log *joblogs.JobLogger) (string, string, string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	kind := "COMIC"
	switch ext {
	case ".epub":
		kind = models.MediaKindEpub
	case ".pdf":
		kind = models.MediaKindPdf
	}

	if (ext == ".cbr" || ext == ".rar") && s.LibraryConfig.ConvertRarToZip {
		dst := strings.TrimSuffix(path, filepath.Ext(path)) + ".cbz"
		if err := cbr.ConvertToCBZ(path, dst); err != nil {
			return "", "", "", err
		}
		if s.LibraryConfig.DeleteOriginalAfterConvert {
			if err := os.Remove(path); err != nil && log != nil {
				log.Warn("failed to remove original after rar->cbz conversion", logger.Data{"path": path, "error": err.Error()})
			}
		}
		return dst, ".cbz", models.MediaKindComic, nil
	}

	return path, ext, kind, nil
}

// populateMedia fills in the derived fields of a Media row by dispatching
// to the appropriate mediafile.Processor: the page count always, the
// content hash when GenerateHashes is set, and embedded metadata when
// ProcessMetadata is set. Page dimensions are not filled in.
func (s *Scanner) populateMedia(m *models.Media, path string, log *joblogs.JobLogger) error {
	proc, err := s.Registry.For(path)
	if err != nil {
		if mediafile.Is(err, mediafile.Unsupported) {
			m.Status = models.MediaStatusError
			return nil
		}
		return err
	}

	pageCount, err := proc.GetPageCount(path)
	if err != nil {
		if isContentError(err) {
			m.Status = models.MediaStatusError
			if log != nil {
				log.Warn("failed to read page count", logger.Data{"path": path, "error": err.Error()})
			}
			return nil
		}
		return err
	}
	m.PageCount = pageCount

	if s.LibraryConfig.GenerateHashes {
		if err := s.populateHash(m, path, log); err != nil {
			return err
		}
	}

	if s.LibraryConfig.ProcessMetadata {
		if err := s.populateMetadata(m, path, log); err != nil {
			return err
		}
	}

	return nil
}

// populateHash recomputes just the content hash, used both by a full
// populateMedia pass and by the RegenHashes visit strategy on an otherwise
// unchanged file.
func (s *Scanner) populateHash(m *models.Media, path string, log *joblogs.JobLogger) error {
	proc, err := s.Registry.For(path)
	if err != nil {
		if mediafile.Is(err, mediafile.Unsupported) {
			return nil
		}
		return err
	}

	hash, err := proc.ContentHash(path)
	if err != nil {
		if !isContentError(err) {
			return err
		}
		if log != nil {
			log.Warn("failed to compute content hash", logger.Data{"path": path, "error": err.Error()})
		}
		return nil
	}
	m.ContentHash = hash
	return nil
}

// populateMetadata re-parses just the embedded metadata, used both by a
// full populateMedia pass and by the RegenMeta visit strategy on an
// otherwise unchanged file.
func (s *Scanner) populateMetadata(m *models.Media, path string, log *joblogs.JobLogger) error {
	proc, err := s.Registry.For(path)
	if err != nil {
		if mediafile.Is(err, mediafile.Unsupported) {
			return nil
		}
		return err
	}

	parsed, err := proc.ReadEmbeddedMetadata(path)
	if err != nil {
		if !isContentError(err) {
			return err
		}
		if log != nil {
			log.Warn("failed to read embedded metadata", logger.Data{"path": path, "error": err.Error()})
		}
		return nil
	}
	applyParsedMetadata(m, parsed)
	return nil
}

// isContentError reports whether err reflects a problem with the file's
// contents (corrupt archive, unreadable metadata, ...) rather than an I/O
// or programming failure. Content errors never fail the scan: one from the
// page count marks the row ERROR, while one from the content hash or the
// embedded metadata is only logged and leaves the row's status as it is.
func isContentError(err error) bool {
	for _, k := range []mediafile.Kind{mediafile.Empty, mediafile.Corrupt, mediafile.MetadataParse, mediafile.PageOutOfRange} {
		if mediafile.Is(err, k) {
			return true
		}
	}
	return false
}

func applyParsedMetadata(m *models.Media, parsed *mediafile.ParsedMetadata) {
	if parsed.Title != "" {
		m.Metadata.Title = parsed.Title
	}
	if len(parsed.Authors) > 0 {
		authors := make([]string, 0, len(parsed.Authors))
		for _, a := range parsed.Authors {
			authors = append(authors, a.Name)
		}
		m.Metadata.Authors = authors
	}
	if parsed.Publisher != "" {
		m.Metadata.Publisher = parsed.Publisher
	}
	if parsed.Imprint != "" {
		m.Metadata.Imprint = parsed.Imprint
	}
	if parsed.ReleaseDate != nil {
		year := parsed.ReleaseDate.Year()
		m.Metadata.ReleaseYear = &year
	}
	if parsed.AgeRating != "" {
		m.Metadata.AgeRating = parsed.AgeRating
	}
	if len(parsed.Genres) > 0 {
		m.Metadata.Genres = parsed.Genres
	}
	if len(parsed.Tags) > 0 {
		m.Metadata.Tags = parsed.Tags
	}
	if parsed.Description != "" {
		m.Metadata.Description = parsed.Description
	}
	if parsed.SeriesNumber != nil {
		m.Metadata.SeriesNumber = parsed.SeriesNumber
	}
}
