package scanner

import (
	"github.com/stumpgo/stump/pkg/models"
)

// InitMediaUpdate builds a Plan that re-processes an explicit list of
// already-known Media rows (the AnalyzeMedia job, spec.md §6), skipping
// the directory walk entirely since no new files are being discovered —
// only existing ones re-hashed or re-parsed. opts.VisitStrategy controls
// what executeMediaUpdate forces: RegenMeta, RegenHashes, or both via two
// successive InitMediaUpdate/ExecuteTask passes.
func (s *Scanner) InitMediaUpdate(medias []*models.Media, opts Options) *Plan {
	if opts.VisitStrategy == "" {
		opts.VisitStrategy = VisitRegenMeta
	}
	s.Opts = opts

	tasks := make([]Task, 0, len(medias))
	for _, m := range medias {
		s.existingMediaByPath[cleanPath(m.Path)] = m
		tasks = append(tasks, Task{
			Kind:            TaskMediaUpdate,
			Path:            m.Path,
			ExistingMediaID: m.ID,
			PresentOnDisk:   true,
		})
	}

	return &Plan{Tasks: tasks}
}
