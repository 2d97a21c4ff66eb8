package ingest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Kamar-Folarin/cpython-stats/internal/errors"
	"github.com/Kamar-Folarin/cpython-stats/internal/models"
)

func runningRun(pipeline string) *models.ImportRun {
	return &models.ImportRun{
		Pipeline:         pipeline,
		ProgressTracking: models.ProgressTracking{StartTime: *at(1), Status: models.RunStatusRunning},
	}
}

func TestStatusManager_UpdateStatusValidation(t *testing.T) {
	finishedWithoutTime := runningRun(PipelineCommits)
	finishedWithoutTime.Status = models.RunStatusCompleted

	runningWithTime := runningRun(PipelineCommits)
	runningWithTime.FinishedAt = at(2)

	badStatus := runningRun(PipelineCommits)
	badStatus.Status = "paused"

	tests := []struct {
		name string
		run  *models.ImportRun
	}{
		{"nil run", nil},
		{"empty pipeline", runningRun("")},
		{"unknown pipeline", runningRun("issues")},
		{"completed without finish time", finishedWithoutTime},
		{"running with finish time", runningWithTime},
		{"unknown status", badStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemoryStore()
			err := NewStatusManager(store).UpdateStatus(context.Background(), tt.run)
			assert.True(t, apperrors.IsInvalidInput(err), "got %v", err)
			assert.Zero(t, store.saves)
		})
	}
}

func TestStatusManager_RunningRunsReadThrough(t *testing.T) {
	store := newMemoryStore()
	status := NewStatusManager(store)
	ctx := context.Background()

	run := runningRun(PipelinePullRequests)
	require.NoError(t, status.UpdateStatus(ctx, run))

	// another process advances the run
	store.runs[PipelinePullRequests] = &models.ImportRun{
		Pipeline:         PipelinePullRequests,
		ProgressTracking: models.ProgressTracking{Status: models.RunStatusRunning},
		Processed:        250,
	}

	got, err := status.GetStatus(ctx, PipelinePullRequests)
	require.NoError(t, err)
	assert.Equal(t, 250, got.Processed)
	assert.Equal(t, 1, store.gets)
}

func TestStatusManager_FinishedRunsCached(t *testing.T) {
	store := newMemoryStore()
	status := NewStatusManager(store)
	ctx := context.Background()

	run := runningRun(PipelineCommits)
	require.NoError(t, status.UpdateStatus(ctx, run))
	run.Status = models.RunStatusCompleted
	run.FinishedAt = at(2)
	run.Count("commits", 10)
	require.NoError(t, status.UpdateStatus(ctx, run))

	got, err := status.GetStatus(ctx, PipelineCommits)
	require.NoError(t, err)
	assert.Zero(t, store.gets)
	assert.Equal(t, models.RunStatusCompleted, got.Status)

	// the cached copy is detached from the caller's run
	run.Count("commits", 5)
	got.Count("commits", 1)
	again, err := status.GetStatus(ctx, PipelineCommits)
	require.NoError(t, err)
	assert.Equal(t, 10, again.Counters["commits"])

	// a new run replaces the cached one
	require.NoError(t, status.UpdateStatus(ctx, runningRun(PipelineCommits)))
	got, err = status.GetStatus(ctx, PipelineCommits)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusRunning, got.Status)
	assert.Equal(t, 1, store.gets)
}

func TestStatusManager_GetStatus(t *testing.T) {
	status := NewStatusManager(newMemoryStore())

	_, err := status.GetStatus(context.Background(), PipelinePullRequests)
	assert.True(t, apperrors.IsNotFound(err))

	_, err = status.GetStatus(context.Background(), "issues")
	assert.True(t, apperrors.IsInvalidInput(err))
}

func TestStatusManager_ListStatusesOrdered(t *testing.T) {
	store := newMemoryStore()
	finished := runningRun(PipelinePullRequests)
	finished.Status = models.RunStatusFailed
	finished.FinishedAt = at(3)
	store.runs[PipelinePullRequests] = finished
	store.runs[PipelineCommits] = runningRun(PipelineCommits)

	status := NewStatusManager(store)
	runs, err := status.ListStatuses(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, PipelineCommits, runs[0].Pipeline)
	assert.Equal(t, PipelinePullRequests, runs[1].Pipeline)

	got, err := status.GetStatus(context.Background(), PipelinePullRequests)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusFailed, got.Status)
	assert.Zero(t, store.gets)
}
