// Package worker executes one Job at a time with progress reporting,
// cancellation, and pause/resume, per spec.md §4.5. Unlike the teacher's
// pkg/worker (which polls the jobs table from N goroutines racing on
// process_id), a Worker here is driven by push dispatch from
// internal/controller: one Worker instance processes exactly one job at a
// time, cooperatively, start to finish.
package worker

import (
	"context"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"

	"github.com/stumpgo/stump/internal/eventbus"
	"github.com/stumpgo/stump/internal/processors"
	"github.com/stumpgo/stump/internal/scanner"
	"github.com/stumpgo/stump/internal/thumbnails"
	"github.com/stumpgo/stump/pkg/joblogs"
	"github.com/stumpgo/stump/pkg/jobs"
	"github.com/stumpgo/stump/pkg/libraries"
	"github.com/stumpgo/stump/pkg/media"
	"github.com/stumpgo/stump/pkg/models"
	"github.com/stumpgo/stump/pkg/series"
)

var errJobPanicked = errors.New("job panicked")

// Deps bundles the collaborators a Worker needs to carry out any job type.
// internal/controller constructs one Deps and shares it across every
// Worker it spins up.
type Deps struct {
	JobService      *jobs.Service
	JobLogService   *joblogs.Service
	LibraryService  *libraries.Service
	SeriesService   *series.Service
	MediaService    *media.Service
	Registry        *processors.Registry
	Thumbnails      *thumbnails.Engine
	ThumbChunkSize  int
	TaskSoftDeadline time.Duration
	Publisher       eventbus.Publisher
	Log             logger.Logger
}

// Worker runs a single Job's init -> execute_task* -> finalize lifecycle.
// It is not reused across jobs: internal/controller constructs a fresh
// Worker per dispatch, matching the job-scoped-state rule in spec.md §9
// ("Traversal for a scan materializes path->id maps once per job").
type Worker struct {
	deps    Deps
	job     *models.Job
	control *Control
}

// New builds a Worker for one job. The returned Control is handed back to
// the caller (internal/controller) so Pause/Resume/Cancel commands can
// reach the in-flight job.
func New(deps Deps, job *models.Job) (*Worker, *Control) {
	ctrl := newControl(job.ID, derefString(job.LibraryID), deps.Publisher)
	return &Worker{deps: deps, job: job, control: ctrl}, ctrl
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Run executes the worker's job to completion (or cancellation/failure),
// persisting the final status. It recovers from panics the way the
// teacher's processJobs does, turning them into a FAILED job rather than
// crashing the controller's process.
func (w *Worker) Run(ctx context.Context) (err error) {
	id, uerr := uuid.NewRandom()
	if uerr != nil {
		id = uuid.New()
	}
	log := w.deps.Log.ID(id.String()).Root(logger.Data{"job_id": w.job.ID, "type": w.job.Type})
	jobLog := w.deps.JobLogService.NewJobLogger(log.WithContext(ctx), w.job.ID, log)

	defer func() {
		if r := recover(); r != nil {
			jobLog.Fatal("job panicked", errors.Wrapf(errJobPanicked, "%v", r), logger.Data{"panic": r})
			err = w.finish(ctx, models.JobStatusFailed, "panic")
		}
	}()

	w.job.Status = models.JobStatusRunning
	if updErr := w.deps.JobService.UpdateJob(ctx, w.job, jobs.UpdateJobOptions{Columns: []string{"status"}}); updErr != nil {
		return errors.WithStack(updErr)
	}
	w.control.publish(eventbus.EventJobStarted, "")

	runErr := w.dispatch(ctx, jobLog)

	switch {
	case errors.Is(runErr, context.Canceled):
		return w.finish(ctx, models.JobStatusCancelled, "")
	case runErr != nil:
		jobLog.Error("job failed", runErr, nil)
		return w.finish(ctx, models.JobStatusFailed, runErr.Error())
	default:
		return w.finish(ctx, models.JobStatusCompleted, "")
	}
}

func (w *Worker) dispatch(ctx context.Context, jobLog *joblogs.JobLogger) error {
	switch w.job.Type {
	case models.JobTypeScan:
		return w.runLibraryScan(ctx, jobLog)
	case models.JobTypeSeriesScan:
		return w.runSeriesScan(ctx, jobLog)
	case models.JobTypeThumbnail:
		return w.runThumbnailGeneration(ctx, jobLog)
	case models.JobTypeAnalyzeMedia:
		return w.runAnalyzeMedia(ctx, jobLog)
	default:
		return errors.Errorf("worker: unknown job type %q", w.job.Type)
	}
}

func (w *Worker) finish(ctx context.Context, status, failureReason string) error {
	done, total := w.control.Snapshot()

	w.job.Status = status
	now := time.Now()
	w.job.CompletedAt = &now
	if w.job.Output != nil {
		w.job.Output.CompletedIdx = done
		w.job.Output.FailureReason = failureReason
	}

	if updErr := w.deps.JobService.UpdateJob(ctx, w.job, jobs.UpdateJobOptions{
		Columns: []string{"status", "completed_at", "output"},
	}); updErr != nil {
		return errors.WithStack(updErr)
	}

	evt := eventbus.EventJobCompleted
	switch status {
	case models.JobStatusCancelled:
		evt = eventbus.EventJobCancelled
	case models.JobStatusFailed:
		evt = eventbus.EventJobFailed
	}
	w.control.mu.Lock()
	w.control.total = total
	w.control.mu.Unlock()
	w.control.publish(evt, failureReason)

	if status == models.JobStatusFailed {
		return errors.New(failureReason)
	}
	return nil
}

// checkpoint persists the job's resumable Output (task list + completed
// index) after a batch of tasks, per spec.md §4.4 ("not flushed on every
// tick ... only on state transitions ... and batched task-completion
// boundaries").
func (w *Worker) checkpoint(ctx context.Context, tasks []string) error {
	done, _ := w.control.Snapshot()
	w.job.Output = &models.JobOutput{Tasks: tasks, CompletedIdx: done}
	return errors.WithStack(w.deps.JobService.UpdateJob(ctx, w.job, jobs.UpdateJobOptions{Columns: []string{"output"}}))
}

const checkpointEvery = 25

// runTaskLoop drives a scanner.Plan to completion, checking for
// pause/cancel between every task (never mid-task, per spec.md §4.5) and
// applying the one-retry-then-fail policy for resource errors (spec.md §7).
func (w *Worker) runTaskLoop(ctx context.Context, sc *scanner.Scanner, plan *scanner.Plan, jobLog *joblogs.JobLogger) error {
	w.control.SetTotal(len(plan.Tasks))

	taskNames := make([]string, len(plan.Tasks))
	for i, t := range plan.Tasks {
		taskNames[i] = t.Kind.String() + ":" + t.Path
	}

	resumeFrom := 0
	if w.job.Output != nil && w.job.Output.CompletedIdx > 0 && w.job.Output.CompletedIdx <= len(plan.Tasks) {
		resumeFrom = w.job.Output.CompletedIdx
		for i := 0; i < resumeFrom; i++ {
			w.control.Advance()
		}
	}

	for i := resumeFrom; i < len(plan.Tasks); i++ {
		if err := w.control.Checkpoint(ctx); err != nil {
			return err
		}

		task := plan.Tasks[i]
		if err := w.runTaskWithRetry(ctx, sc, task, jobLog); err != nil {
			return err
		}
		w.control.Advance()

		if (i+1)%checkpointEvery == 0 || i == len(plan.Tasks)-1 {
			if err := w.checkpoint(ctx, taskNames); err != nil {
				return err
			}
		}
	}

	return nil
}

// runTaskWithRetry wraps one scanner task with the soft deadline and the
// single-retry-on-resource-error policy from spec.md §7: a DB/IO failure
// is retried once with a short backoff before promoting to job failure.
// Per-file parse errors are not resource errors — ExecuteTask already
// records those on the Media row and returns nil, never reaching here.
func (w *Worker) runTaskWithRetry(ctx context.Context, sc *scanner.Scanner, task scanner.Task, jobLog *joblogs.JobLogger) error {
	deadline := w.deps.TaskSoftDeadline
	if deadline <= 0 {
		deadline = 5 * time.Minute
	}

	run := func() error {
		taskCtx, cancel := context.WithTimeout(ctx, deadline)
		defer cancel()
		return sc.ExecuteTask(taskCtx, task, jobLog)
	}

	err := run()
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if jobLog != nil {
		jobLog.Warn("task failed, retrying once", logger.Data{"path": task.Path, "error": err.Error()})
	}

	time.Sleep(backoff())
	if err := w.control.Checkpoint(ctx); err != nil {
		return err
	}
	return run()
}

func backoff() time.Duration {
	return time.Duration(200+rand.Intn(300)) * time.Millisecond
}

func nowPtr() *time.Time {
	t := time.Now()
	return &t
}
