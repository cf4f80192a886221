package controller

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/robinjoseph08/golib/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/stumpgo/stump/internal/worker"
	"github.com/stumpgo/stump/pkg/jobs"
	"github.com/stumpgo/stump/pkg/migrations"
	"github.com/stumpgo/stump/pkg/models"
)

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	_, err = migrations.BringUpToDate(context.Background(), db)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// TestController_ShutdownDrainsQueuedJobs covers spec.md §4.6's
// "Shutdown(ack) — cancel the running job, drain the queue to CANCELLED"
// requirement: with no job currently running, every QUEUED job must still
// reach CANCELLED by the time Shutdown returns.
func TestController_ShutdownDrainsQueuedJobs(t *testing.T) {
	db := newTestDB(t)
	jobService := jobs.NewService(db)

	queuedA := &models.Job{Name: "scan a", Type: models.JobTypeScan, Status: models.JobStatusQueued}
	require.NoError(t, jobService.CreateJob(context.Background(), queuedA))
	queuedB := &models.Job{Name: "scan b", Type: models.JobTypeScan, Status: models.JobStatusQueued}
	require.NoError(t, jobService.CreateJob(context.Background(), queuedB))

	c := New(worker.Deps{JobService: jobService, Log: logger.New()}, jobService, 0)

	// Jobs were created directly through jobService, bypassing
	// Controller.enqueue, so no dispatch was ever submitted and c.current
	// stays nil: Shutdown's drain step is the only thing that should move
	// these out of QUEUED.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.Shutdown(ctx))

	for _, job := range []*models.Job{queuedA, queuedB} {
		got, err := jobService.RetrieveJob(context.Background(), jobs.RetrieveJobOptions{ID: &job.ID})
		require.NoError(t, err)
		assert.Equal(t, models.JobStatusCancelled, got.Status)
		assert.NotNil(t, got.CompletedAt)
	}
}
