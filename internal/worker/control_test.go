package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stumpgo/stump/internal/eventbus"
)

// recordingPublisher captures every event published through it so tests can
// assert on ordering and monotonicity, per spec.md §8's "progress is
// monotonic within a job" invariant.
type recordingPublisher struct {
	mu     sync.Mutex
	events []eventbus.Event
}

func (r *recordingPublisher) Publish(e eventbus.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingPublisher) snapshot() []eventbus.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]eventbus.Event, len(r.events))
	copy(out, r.events)
	return out
}

func TestControl_AdvanceIsMonotonic(t *testing.T) {
	pub := &recordingPublisher{}
	c := newControl("job-1", "lib-1", pub)
	c.SetTotal(5)

	for i := 0; i < 5; i++ {
		c.Advance()
	}

	done, total := c.Snapshot()
	assert.Equal(t, 5, done)
	assert.Equal(t, 5, total)

	last := -1
	for _, e := range pub.snapshot() {
		if e.Type != eventbus.EventJobProgress {
			continue
		}
		assert.GreaterOrEqual(t, e.CompletedTasks, last)
		last = e.CompletedTasks
	}
}

func TestControl_CheckpointPassesThroughWhenNotPaused(t *testing.T) {
	c := newControl("job-1", "lib-1", nil)
	err := c.Checkpoint(context.Background())
	require.NoError(t, err)
}

func TestControl_CheckpointBlocksUntilResume(t *testing.T) {
	c := newControl("job-1", "lib-1", nil)
	c.Pause()

	resultCh := make(chan error, 1)
	go func() {
		resultCh <- c.Checkpoint(context.Background())
	}()

	select {
	case <-resultCh:
		t.Fatal("Checkpoint returned before Resume was called")
	case <-time.After(50 * time.Millisecond):
	}

	c.Resume()

	select {
	case err := <-resultCh:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Checkpoint did not unblock after Resume")
	}
}

func TestControl_CheckpointHonorsCancelWhilePaused(t *testing.T) {
	c := newControl("job-1", "lib-1", nil)
	c.Pause()

	ctx, cancel := context.WithCancel(context.Background())
	resultCh := make(chan error, 1)
	go func() {
		resultCh <- c.Checkpoint(ctx)
	}()

	cancel()

	select {
	case err := <-resultCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Checkpoint did not honor cancellation while paused")
	}
}

func TestControl_PauseResumeCycle(t *testing.T) {
	pub := &recordingPublisher{}
	c := newControl("job-1", "lib-1", pub)

	c.Pause()
	c.Pause() // idempotent: a second Pause must not re-close resumeCh
	c.Resume()
	c.Resume() // idempotent: a second Resume must not double-close

	var sawPaused, sawResumed bool
	for _, e := range pub.snapshot() {
		switch e.Type {
		case eventbus.EventJobPaused:
			sawPaused = true
		case eventbus.EventJobResumed:
			sawResumed = true
		}
	}
	assert.True(t, sawPaused)
	assert.True(t, sawResumed)
}
