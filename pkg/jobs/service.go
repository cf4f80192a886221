package jobs

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stumpgo/stump/pkg/errcodes"
	"github.com/stumpgo/stump/pkg/models"
	"github.com/uptrace/bun"
)

type RetrieveJobOptions struct {
	ID *string
}

type ListJobsOptions struct {
	Limit     *int
	Offset    *int
	Statuses  []string
	LibraryID *string

	includeTotal bool
}

type UpdateJobOptions struct {
	Columns []string
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

func (svc *Service) CreateJob(ctx context.Context, job *models.Job) error {
	now := time.Now()
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = job.CreatedAt
	if job.Status == "" {
		job.Status = models.JobStatusQueued
	}

	if err := job.MarshalOutput(); err != nil {
		return errors.WithStack(err)
	}
	if err := job.MarshalInput(); err != nil {
		return errors.WithStack(err)
	}

	_, err := svc.db.
		NewInsert().
		Model(job).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

func (svc *Service) RetrieveJob(ctx context.Context, opts RetrieveJobOptions) (*models.Job, error) {
	job := &models.Job{}

	q := svc.db.
		NewSelect().
		Model(job)

	if opts.ID != nil {
		q = q.Where("j.id = ?", *opts.ID)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Job")
		}
		return nil, errors.WithStack(err)
	}

	if err := job.UnmarshalOutput(); err != nil {
		return nil, errors.WithStack(err)
	}
	if err := job.UnmarshalInput(); err != nil {
		return nil, errors.WithStack(err)
	}

	return job, nil
}

func (svc *Service) ListJobs(ctx context.Context, opts ListJobsOptions) ([]*models.Job, error) {
	j, _, err := svc.listJobsWithTotal(ctx, opts)
	return j, errors.WithStack(err)
}

func (svc *Service) ListJobsWithTotal(ctx context.Context, opts ListJobsOptions) ([]*models.Job, int, error) {
	opts.includeTotal = true
	return svc.listJobsWithTotal(ctx, opts)
}

func (svc *Service) listJobsWithTotal(ctx context.Context, opts ListJobsOptions) ([]*models.Job, int, error) {
	jobs := []*models.Job{}
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&jobs).
		Order("j.created_at ASC")

	if opts.Limit != nil {
		q = q.Limit(*opts.Limit)
	}
	if opts.Offset != nil {
		q = q.Offset(*opts.Offset)
	}
	if opts.Statuses != nil {
		q = q.WhereGroup(" AND ", func(sq *bun.SelectQuery) *bun.SelectQuery {
			for _, s := range opts.Statuses {
				sq = sq.WhereOr("j.status = ?", s)
			}
			return sq
		})
	}
	if opts.LibraryID != nil {
		q = q.Where("j.library_id = ?", *opts.LibraryID)
	}

	if opts.includeTotal {
		total, err = q.ScanAndCount(ctx)
	} else {
		err = q.Scan(ctx)
	}
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	for _, job := range jobs {
		if err := job.UnmarshalOutput(); err != nil {
			return nil, 0, errors.WithStack(err)
		}
		if err := job.UnmarshalInput(); err != nil {
			return nil, 0, errors.WithStack(err)
		}
	}

	return jobs, total, nil
}

// HasActiveJobByType checks whether a queued, running, or paused job of the
// given type already exists, used by the controller to reject duplicate
// scan requests for the same library.
func (svc *Service) HasActiveJobByType(ctx context.Context, jobType string, libraryID *string) (bool, error) {
	q := svc.db.NewSelect().
		Model((*models.Job)(nil)).
		Where("type = ?", jobType).
		WhereGroup(" AND ", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.Where("status = ?", models.JobStatusQueued).
				WhereOr("status = ?", models.JobStatusRunning).
				WhereOr("status = ?", models.JobStatusPaused)
		})

	if libraryID != nil {
		q = q.Where("library_id = ?", *libraryID)
	}

	count, err := q.Count(ctx)
	if err != nil {
		return false, errors.WithStack(err)
	}
	return count > 0, nil
}

// ResumableJobs returns jobs left RUNNING or PAUSED by an unclean shutdown,
// so Controller.Restore can hand them back to the controller at boot.
func (svc *Service) ResumableJobs(ctx context.Context) ([]*models.Job, error) {
	return svc.ListJobs(ctx, ListJobsOptions{Statuses: []string{models.JobStatusRunning, models.JobStatusPaused}})
}

func (svc *Service) UpdateJob(ctx context.Context, job *models.Job, opts UpdateJobOptions) error {
	if len(opts.Columns) == 0 {
		return nil
	}

	if err := job.MarshalOutput(); err != nil {
		return errors.WithStack(err)
	}
	if err := job.MarshalInput(); err != nil {
		return errors.WithStack(err)
	}

	now := time.Now()
	job.UpdatedAt = now
	columns := append(opts.Columns, "updated_at")

	_, err := svc.db.
		NewUpdate().
		Model(job).
		Column(columns...).
		WherePK().
		Exec(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errcodes.NotFound("Job")
		}
		return errors.WithStack(err)
	}

	return nil
}

// CleanupOldJobs deletes terminal jobs older than retention, generalizing
// the teacher's retention idea to the new COMPLETED/CANCELLED/FAILED set.
func (svc *Service) CleanupOldJobs(ctx context.Context, retention time.Duration) (int, error) {
	cutoff := time.Now().Add(-retention)

	res, err := svc.db.NewDelete().
		Model((*models.Job)(nil)).
		Where("status IN (?)", bun.In([]string{
			models.JobStatusCompleted,
			models.JobStatusCancelled,
			models.JobStatusFailed,
		})).
		Where("completed_at IS NOT NULL AND completed_at < ?", cutoff).
		Exec(ctx)
	if err != nil {
		return 0, errors.WithStack(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.WithStack(err)
	}
	return int(n), nil
}
