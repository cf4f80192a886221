package worker

import (
	"context"
	"sync"

	"github.com/stumpgo/stump/internal/eventbus"
)

// Control is handed to a ProcessFunc so it can report progress and
// cooperatively honor pause/cancel requests between task-sized units of
// work, per spec.md §4.5: a job is never interrupted mid-task, only at
// the boundary between tasks.
type Control struct {
	jobID     string
	libraryID string
	publisher eventbus.Publisher

	mu       sync.Mutex
	total    int
	done     int
	paused   bool
	resumeCh chan struct{}
}

func newControl(jobID, libraryID string, publisher eventbus.Publisher) *Control {
	return &Control{jobID: jobID, libraryID: libraryID, publisher: publisher, resumeCh: make(chan struct{})}
}

// SetTotal records the denominator for progress reporting, known once the
// scanner (or batch thumbnail planner) has built its task list.
func (c *Control) SetTotal(total int) {
	c.mu.Lock()
	c.total = total
	c.mu.Unlock()
	c.publish(eventbus.EventJobProgress, "")
}

// Advance records one completed task and publishes a progress event. It
// intentionally does not persist to the database on every call: spec.md
// §4.4 only requires the Job row be updated periodically, not per task.
func (c *Control) Advance() {
	c.mu.Lock()
	c.done++
	c.mu.Unlock()
	c.publish(eventbus.EventJobProgress, "")
}

// Snapshot returns the current (completed, total) counts, used when the
// worker persists a checkpoint to Job.Output.
func (c *Control) Snapshot() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done, c.total
}

// Checkpoint blocks while the job is paused and returns ctx.Err() as soon
// as the job is cancelled or the process is shutting down, whether that
// happens before or during the pause. Call it between tasks, never in the
// middle of one.
func (c *Control) Checkpoint(ctx context.Context) error {
	for {
		c.mu.Lock()
		paused := c.paused
		resumeCh := c.resumeCh
		c.mu.Unlock()

		if !paused {
			return ctx.Err()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-resumeCh:
		}
	}
}

// Pause flips the job into PAUSED: the next Checkpoint call between tasks
// blocks until Resume or cancellation. internal/controller calls this in
// response to a Pause command.
func (c *Control) Pause() {
	c.pause()
}

// Resume un-blocks a paused job's next Checkpoint call. internal/controller
// calls this in response to a Resume command.
func (c *Control) Resume() {
	c.resume()
}

func (c *Control) pause() {
	c.mu.Lock()
	if !c.paused {
		c.paused = true
	}
	c.mu.Unlock()
	c.publish(eventbus.EventJobPaused, "")
}

func (c *Control) resume() {
	c.mu.Lock()
	if c.paused {
		c.paused = false
		close(c.resumeCh)
		c.resumeCh = make(chan struct{})
	}
	c.mu.Unlock()
	c.publish(eventbus.EventJobResumed, "")
}

func (c *Control) publish(evType eventbus.EventType, msg string) {
	if c.publisher == nil {
		return
	}
	done, total := c.Snapshot()
	c.publisher.Publish(eventbus.Event{
		Type:           evType,
		JobID:          c.jobID,
		LibraryID:      c.libraryID,
		CompletedTasks: done,
		TotalTasks:     total,
		Message:        msg,
	})
}
