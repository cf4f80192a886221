// Package controller serializes job dispatch decisions behind a single
// command channel, the way the teacher's pkg/worker splits fetchJobs,
// processJobs, and scheduleScanJobs across goroutines that all read or
// write the jobs table concurrently. Here there is exactly one command
// loop goroutine: every Enqueue/Cancel/Pause/Resume/Complete call is a
// closure submitted to that loop, so "is a job currently running" and
// "which job is it" are never read or written from two goroutines at
// once, per spec.md §4.6.
package controller

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"

	"github.com/stumpgo/stump/internal/worker"
	"github.com/stumpgo/stump/pkg/errcodes"
	"github.com/stumpgo/stump/pkg/jobs"
	"github.com/stumpgo/stump/pkg/models"
)

// activeJob is the controller's record of the one job currently being run
// by a Worker goroutine.
type activeJob struct {
	job     *models.Job
	control *worker.Control
	cancel  context.CancelFunc
	done    chan struct{}
}

// Controller owns dispatch of Jobs to Workers: at most one RUNNING job at
// a time (spec.md §4.6), queued jobs wait in the jobs table until the
// current one finishes, is cancelled, or the process restarts.
type Controller struct {
	deps              worker.Deps
	jobService        *jobs.Service
	log               logger.Logger
	shutdownDeadline  time.Duration

	cmds    chan func()
	stopped chan struct{}
	current *activeJob
}

// New builds a Controller and starts its command loop. Callers must call
// Shutdown before the process exits so in-flight jobs get a chance to
// reach a terminal state.
func New(deps worker.Deps, jobService *jobs.Service, shutdownDeadline time.Duration) *Controller {
	if shutdownDeadline <= 0 {
		shutdownDeadline = 30 * time.Second
	}
	c := &Controller{
		deps:             deps,
		jobService:       jobService,
		log:              deps.Log,
		shutdownDeadline: shutdownDeadline,
		cmds:             make(chan func(), 64),
		stopped:          make(chan struct{}),
	}
	go c.loop()
	return c
}

func (c *Controller) loop() {
	for cmd := range c.cmds {
		cmd()
	}
	close(c.stopped)
}

// submit schedules cmd on the command loop. It never blocks the caller
// past the channel's buffer; once Shutdown has closed cmds, submit is a
// no-op, since the loop is no longer reading.
func (c *Controller) submit(cmd func()) {
	select {
	case c.cmds <- cmd:
	case <-c.stopped:
	}
}

// call runs cmd on the loop and waits for its result, bounded by ctx.
func (c *Controller) call(ctx context.Context, cmd func() error) error {
	resultCh := make(chan error, 1)
	c.submit(func() {
		resultCh <- cmd()
	})
	select {
	case err := <-resultCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// EnqueueLibraryScan creates and enqueues a LibraryScan job for libraryID,
// satisfying pkg/libraries' jobEnqueuer interface. A scan already queued,
// running, or paused for this library is a no-op success rather than an
// error, since library creation fires this unconditionally.
func (c *Controller) EnqueueLibraryScan(ctx context.Context, libraryID string) error {
	return c.enqueueDeduped(ctx, &models.Job{
		Type:      models.JobTypeScan,
		Name:      "Library scan",
		LibraryID: &libraryID,
	})
}

// EnqueueSeriesScan creates and enqueues a SeriesScan job for seriesID,
// scoped to the given library (spec.md §6).
func (c *Controller) EnqueueSeriesScan(ctx context.Context, libraryID string, seriesID int) error {
	return c.enqueue(ctx, &models.Job{
		Type:      models.JobTypeSeriesScan,
		Name:      "Series scan",
		LibraryID: &libraryID,
		Input:     &models.JobInput{SeriesID: &seriesID},
	})
}

// ThumbnailTarget selects which Media a ThumbnailGeneration job covers:
// exactly one of MediaIDs, SeriesID, or LibraryID should be set.
type ThumbnailTarget struct {
	LibraryID *string
	SeriesID  *int
	MediaIDs  []int
}

// EnqueueThumbnailGeneration creates and enqueues a ThumbnailGeneration
// job for target, optionally overriding format/quality and forcing
// regeneration of thumbnails that already exist (spec.md §4.2/§6).
func (c *Controller) EnqueueThumbnailGeneration(ctx context.Context, target ThumbnailTarget, format string, quality int, force bool) error {
	job := &models.Job{
		Type:      models.JobTypeThumbnail,
		Name:      "Thumbnail generation",
		LibraryID: target.LibraryID,
		Input: &models.JobInput{
			SeriesID:        target.SeriesID,
			MediaIDs:        target.MediaIDs,
			ThumbnailFormat: format,
			ThumbnailQuality: quality,
			ForceRegenerate: force,
		},
	}
	return c.enqueue(ctx, job)
}

// EnqueueAnalyzeMedia creates and enqueues an AnalyzeMedia job for a
// single Media (mediaID) or every Media in libraryID (spec.md §6).
// Exactly one of mediaID or libraryID must be non-nil.
func (c *Controller) EnqueueAnalyzeMedia(ctx context.Context, libraryID *string, mediaID *int) error {
	return c.enqueue(ctx, &models.Job{
		Type:      models.JobTypeAnalyzeMedia,
		Name:      "Analyze media",
		LibraryID: libraryID,
		Input:     &models.JobInput{MediaID: mediaID},
	})
}

func (c *Controller) enqueueDeduped(ctx context.Context, job *models.Job) error {
	active, err := c.jobService.HasActiveJobByType(ctx, job.Type, job.LibraryID)
	if err != nil {
		return errors.WithStack(err)
	}
	if active {
		return nil
	}
	return c.enqueue(ctx, job)
}

func (c *Controller) enqueue(ctx context.Context, job *models.Job) error {
	if err := c.jobService.CreateJob(ctx, job); err != nil {
		return errors.WithStack(err)
	}
	c.submit(func() { c.maybeDispatch() })
	return nil
}

// maybeDispatch runs on the command loop: if no job is currently running,
// pull the oldest QUEUED job and hand it to a fresh Worker.
func (c *Controller) maybeDispatch() {
	if c.current != nil {
		return
	}

	ctx := context.Background()
	limit := 1
	queued, err := c.jobService.ListJobs(ctx, jobs.ListJobsOptions{
		Statuses: []string{models.JobStatusQueued},
		Limit:    &limit,
	})
	if err != nil {
		c.log.Err(err).Error("controller: list queued jobs", nil)
		return
	}
	if len(queued) == 0 {
		return
	}

	c.dispatch(queued[0])
}

// dispatch starts job on a fresh Worker goroutine and records it as the
// controller's current job. Called only from the command loop.
func (c *Controller) dispatch(job *models.Job) {
	w, ctrl := worker.New(c.deps, job)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	c.current = &activeJob{job: job, control: ctrl, cancel: cancel, done: done}

	go func() {
		if err := w.Run(ctx); err != nil {
			c.log.Err(err).Error("controller: job finished with error", logger.Data{"job_id": job.ID})
		}
		cancel()
		close(done)
		c.submit(func() {
			c.current = nil
			c.maybeDispatch()
		})
	}()
}

// Cancel requests cancellation of jobID, whether it's currently running
// (cooperative, honored at the next task boundary) or merely QUEUED
// (cancelled immediately since no Worker owns it yet).
func (c *Controller) Cancel(ctx context.Context, jobID string) error {
	return c.call(ctx, func() error {
		if c.current != nil && c.current.job.ID == jobID {
			c.current.cancel()
			return nil
		}

		job, err := c.jobService.RetrieveJob(ctx, jobs.RetrieveJobOptions{ID: &jobID})
		if err != nil {
			return err
		}
		if models.Terminal(job.Status) {
			return errcodes.Conflict("Job has already finished.")
		}

		job.Status = models.JobStatusCancelled
		now := time.Now()
		job.CompletedAt = &now
		return c.jobService.UpdateJob(ctx, job, jobs.UpdateJobOptions{Columns: []string{"status", "completed_at"}})
	})
}

// Pause requests the running jobID pause at its next task boundary.
func (c *Controller) Pause(ctx context.Context, jobID string) error {
	return c.call(ctx, func() error {
		if c.current == nil || c.current.job.ID != jobID {
			return errcodes.Conflict("Job is not running.")
		}
		if c.current.job.Status != models.JobStatusRunning {
			return errcodes.Conflict("Job is not running.")
		}

		c.current.control.Pause()
		c.current.job.Status = models.JobStatusPaused
		return c.jobService.UpdateJob(ctx, c.current.job, jobs.UpdateJobOptions{Columns: []string{"status"}})
	})
}

// Resume un-pauses jobID, letting its Worker goroutine proceed past its
// next Checkpoint call.
func (c *Controller) Resume(ctx context.Context, jobID string) error {
	return c.call(ctx, func() error {
		if c.current == nil || c.current.job.ID != jobID {
			return errcodes.Conflict("Job is not paused.")
		}
		if c.current.job.Status != models.JobStatusPaused {
			return errcodes.Conflict("Job is not paused.")
		}

		c.current.job.Status = models.JobStatusRunning
		if err := c.jobService.UpdateJob(ctx, c.current.job, jobs.UpdateJobOptions{Columns: []string{"status"}}); err != nil {
			return err
		}
		c.current.control.Resume()
		return nil
	})
}

// Restore hands any RUNNING/PAUSED jobs left over from an unclean
// shutdown back to the controller, dispatching the first and requeuing
// the rest (in practice there is never more than one, since this
// controller only ever ran one job at a time before it stopped).
func (c *Controller) Restore(ctx context.Context) error {
	return c.call(ctx, func() error {
		resumable, err := c.jobService.ResumableJobs(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		for _, job := range resumable {
			if c.current == nil {
				job.Status = models.JobStatusQueued
				if err := c.jobService.UpdateJob(ctx, job, jobs.UpdateJobOptions{Columns: []string{"status"}}); err != nil {
					return errors.WithStack(err)
				}
				c.dispatch(job)
				continue
			}

			job.Status = models.JobStatusQueued
			if err := c.jobService.UpdateJob(ctx, job, jobs.UpdateJobOptions{Columns: []string{"status"}}); err != nil {
				return errors.WithStack(err)
			}
		}
		return nil
	})
}

// Shutdown cancels the current job (if any), drains every QUEUED job to
// CANCELLED, and waits up to the configured deadline for the current job to
// reach a terminal state before returning — mirroring the teacher's
// Worker.Shutdown drain but bounded by a timeout instead of an unbounded
// channel receive, per spec.md §4.6: "cancel the running job, drain the
// queue to CANCELLED, stop the watcher; ack on completion."
func (c *Controller) Shutdown(ctx context.Context) error {
	doneCh := make(chan chan struct{}, 1)
	c.submit(func() {
		if err := c.drainQueued(ctx); err != nil {
			c.log.Err(err).Error("controller: failed to drain queued jobs on shutdown", nil)
		}

		if c.current == nil {
			doneCh <- nil
			return
		}
		c.current.cancel()
		doneCh <- c.current.done
	})

	var jobDone chan struct{}
	select {
	case jobDone = <-doneCh:
	case <-ctx.Done():
		return ctx.Err()
	}

	if jobDone != nil {
		select {
		case <-jobDone:
		case <-time.After(c.shutdownDeadline):
			c.log.Error("controller: shutdown deadline exceeded, aborting with job still in flight", nil)
		}
	}

	close(c.cmds)
	<-c.stopped
	return nil
}

// drainQueued marks every QUEUED job CANCELLED so none of them are
// mistaken for still-pending work after the process restarts. Must only be
// called from the command loop, since it reads jobService without the
// current-job guard that submit otherwise provides.
func (c *Controller) drainQueued(ctx context.Context) error {
	queued, err := c.jobService.ListJobs(ctx, jobs.ListJobsOptions{
		Statuses: []string{models.JobStatusQueued},
	})
	if err != nil {
		return errors.WithStack(err)
	}

	now := time.Now()
	for _, job := range queued {
		job.Status = models.JobStatusCancelled
		job.CompletedAt = &now
		if err := c.jobService.UpdateJob(ctx, job, jobs.UpdateJobOptions{Columns: []string{"status", "completed_at"}}); err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}
