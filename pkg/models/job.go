package models

import (
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
	"github.com/uptrace/bun"
)

// Job status machine per spec.md §4.6:
//
//	QUEUED -> RUNNING -> (PAUSED <-> RUNNING)* -> (COMPLETED|CANCELLED|FAILED)
const (
	JobStatusQueued    = "QUEUED"
	JobStatusRunning   = "RUNNING"
	JobStatusPaused    = "PAUSED"
	JobStatusCompleted = "COMPLETED"
	JobStatusCancelled = "CANCELLED"
	JobStatusFailed    = "FAILED"
)

const (
	JobTypeScan         = "SCAN"
	JobTypeSeriesScan   = "SERIES_SCAN"
	JobTypeThumbnail    = "THUMBNAIL"
	JobTypeAnalyzeMedia = "ANALYZE_MEDIA"
)

// Job is a strict superset of the teacher's pending/in_progress/completed/
// failed model, extended with PAUSED and CANCELLED and a resumable Output
// blob per spec.md §4.4/§4.6.
type Job struct {
	bun.BaseModel `bun:"table:jobs,alias:j"`

	ID          string     `bun:",pk" json:"id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Name        string     `bun:",nullzero" json:"name"`
	Description *string    `json:"description,omitempty"`
	Type        string     `bun:",nullzero" json:"type"`
	Status      string     `bun:",nullzero,default:'QUEUED'" json:"status"`
	LibraryID   *string    `json:"library_id,omitempty"`
	ElapsedMS   int64      `json:"elapsed_ms"`

	OutputData string     `bun:"output,nullzero" json:"-"`
	Output     *JobOutput `bun:"-" json:"output,omitempty"`

	InputData string    `bun:"input,nullzero" json:"-"`
	Input     *JobInput `bun:"-" json:"input,omitempty"`
}

// JobOutput is the resume checkpoint for a job: the full task list plus
// how far the worker got, so a restart after a crash or a cooperative
// pause can pick up where it left off instead of rescanning everything.
type JobOutput struct {
	Tasks         []string `json:"tasks"`
	CompletedIdx  int      `json:"completed_idx"`
	FailureReason string   `json:"failure_reason,omitempty"`
}

// JobInput carries the per-type parameters a JobSpec is constructed with
// (spec.md §6: LibraryScan{options}, SeriesScan{series_id},
// ThumbnailGeneration{target,options,force}, AnalyzeMedia{media_id|
// library_id}), mirroring the teacher's Job.Data/DataParsed split but kept
// as one flat struct rather than a per-type interface, since every field
// here is optional and the job Type column already discriminates which
// ones apply.
type JobInput struct {
	VisitStrategy string `json:"visit_strategy,omitempty"`

	SeriesID *int `json:"series_id,omitempty"`

	MediaIDs          []int  `json:"media_ids,omitempty"`
	ThumbnailFormat   string `json:"thumbnail_format,omitempty"`
	ThumbnailQuality  int    `json:"thumbnail_quality,omitempty"`
	ForceRegenerate   bool   `json:"force_regenerate,omitempty"`

	MediaID *int `json:"media_id,omitempty"`
}

func (j *Job) MarshalOutput() error {
	if j.Output == nil {
		j.OutputData = ""
		return nil
	}
	b, err := json.Marshal(j.Output)
	if err != nil {
		return errors.WithStack(err)
	}
	j.OutputData = string(b)
	return nil
}

func (j *Job) UnmarshalOutput() error {
	if j.OutputData == "" {
		j.Output = nil
		return nil
	}
	j.Output = &JobOutput{}
	if err := json.Unmarshal([]byte(j.OutputData), j.Output); err != nil {
		return errors.WithStack(err)
	}
	return nil
}

func (j *Job) MarshalInput() error {
	if j.Input == nil {
		j.InputData = ""
		return nil
	}
	b, err := json.Marshal(j.Input)
	if err != nil {
		return errors.WithStack(err)
	}
	j.InputData = string(b)
	return nil
}

func (j *Job) UnmarshalInput() error {
	if j.InputData == "" {
		j.Input = nil
		return nil
	}
	j.Input = &JobInput{}
	if err := json.Unmarshal([]byte(j.InputData), j.Input); err != nil {
		return errors.WithStack(err)
	}
	return nil
}

// Terminal reports whether status is one the worker will never transition
// out of on its own.
func Terminal(status string) bool {
	switch status {
	case JobStatusCompleted, JobStatusCancelled, JobStatusFailed:
		return true
	default:
		return false
	}
}
