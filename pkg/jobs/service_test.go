package jobs

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stumpgo/stump/pkg/migrations"
	"github.com/stumpgo/stump/pkg/models"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
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

func TestHasActiveJobByType_NoJobs(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	hasActive, err := svc.HasActiveJobByType(ctx, models.JobTypeScan, nil)
	require.NoError(t, err)
	assert.False(t, hasActive)
}

func TestHasActiveJobByType_Queued(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	job := &models.Job{Name: "scan", Type: models.JobTypeScan, Status: models.JobStatusQueued}
	require.NoError(t, svc.CreateJob(ctx, job))

	hasActive, err := svc.HasActiveJobByType(ctx, models.JobTypeScan, nil)
	require.NoError(t, err)
	assert.True(t, hasActive)
}

func TestHasActiveJobByType_Paused(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	job := &models.Job{Name: "scan", Type: models.JobTypeScan, Status: models.JobStatusPaused}
	require.NoError(t, svc.CreateJob(ctx, job))

	hasActive, err := svc.HasActiveJobByType(ctx, models.JobTypeScan, nil)
	require.NoError(t, err)
	assert.True(t, hasActive)
}

func TestHasActiveJobByType_CompletedJob(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	job := &models.Job{Name: "scan", Type: models.JobTypeScan, Status: models.JobStatusCompleted}
	require.NoError(t, svc.CreateJob(ctx, job))

	hasActive, err := svc.HasActiveJobByType(ctx, models.JobTypeScan, nil)
	require.NoError(t, err)
	assert.False(t, hasActive)
}

func TestHasActiveJobByType_DifferentType(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	job := &models.Job{Name: "thumb", Type: models.JobTypeThumbnail, Status: models.JobStatusQueued}
	require.NoError(t, svc.CreateJob(ctx, job))

	hasActive, err := svc.HasActiveJobByType(ctx, models.JobTypeScan, nil)
	require.NoError(t, err)
	assert.False(t, hasActive)

	hasActive, err = svc.HasActiveJobByType(ctx, models.JobTypeThumbnail, nil)
	require.NoError(t, err)
	assert.True(t, hasActive)
}

func TestHasActiveJobByType_ScopedToLibrary(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	libID := "lib-1"
	job := &models.Job{Name: "scan", Type: models.JobTypeScan, Status: models.JobStatusQueued, LibraryID: &libID}
	require.NoError(t, svc.CreateJob(ctx, job))

	otherLib := "lib-2"
	hasActive, err := svc.HasActiveJobByType(ctx, models.JobTypeScan, &otherLib)
	require.NoError(t, err)
	assert.False(t, hasActive)

	hasActive, err = svc.HasActiveJobByType(ctx, models.JobTypeScan, &libID)
	require.NoError(t, err)
	assert.True(t, hasActive)
}

func TestCreateJob_RoundTripsOutput(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	job := &models.Job{
		Name:   "scan",
		Type:   models.JobTypeScan,
		Status: models.JobStatusQueued,
		Output: &models.JobOutput{Tasks: []string{"a", "b"}, CompletedIdx: 1},
	}
	require.NoError(t, svc.CreateJob(ctx, job))

	got, err := svc.RetrieveJob(ctx, RetrieveJobOptions{ID: &job.ID})
	require.NoError(t, err)
	require.NotNil(t, got.Output)
	assert.Equal(t, []string{"a", "b"}, got.Output.Tasks)
	assert.Equal(t, 1, got.Output.CompletedIdx)
}

func TestCleanupOldJobs_OnlyDeletesOldTerminalJobs(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	old := time.Now().Add(-48 * time.Hour)
	oldJob := &models.Job{Name: "old", Type: models.JobTypeScan, Status: models.JobStatusCompleted, CompletedAt: &old}
	require.NoError(t, svc.CreateJob(ctx, oldJob))

	recent := time.Now()
	recentJob := &models.Job{Name: "recent", Type: models.JobTypeScan, Status: models.JobStatusCompleted, CompletedAt: &recent}
	require.NoError(t, svc.CreateJob(ctx, recentJob))

	activeJob := &models.Job{Name: "active", Type: models.JobTypeScan, Status: models.JobStatusRunning}
	require.NoError(t, svc.CreateJob(ctx, activeJob))

	n, err := svc.CleanupOldJobs(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = svc.RetrieveJob(ctx, RetrieveJobOptions{ID: &oldJob.ID})
	assert.Error(t, err)

	_, err = svc.RetrieveJob(ctx, RetrieveJobOptions{ID: &recentJob.ID})
	assert.NoError(t, err)
}
