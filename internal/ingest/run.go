package ingest

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Kamar-Folarin/cpython-stats/internal/models"
)

const (
	PipelinePullRequests = "pull_requests"
	PipelineCommits      = "commits"

	// saveEvery is how many processed items pass between status saves
	saveEvery = 100
)

// runRecorder keeps the ImportRun of one pipeline execution up to date
type runRecorder struct {
	status StatusManager
	logger *logrus.Logger
	run    *models.ImportRun
	now    func() time.Time
}

func startRun(ctx context.Context, status StatusManager, logger *logrus.Logger, pipeline string) *runRecorder {
	r := &runRecorder{status: status, logger: logger, now: time.Now}
	now := r.now()
	r.run = &models.ImportRun{
		Pipeline: pipeline,
		ProgressTracking: models.ProgressTracking{
			StartTime:      now,
			LastUpdateTime: now,
			Status:         models.RunStatusRunning,
		},
	}
	r.save(ctx)
	logger.WithField("pipeline", pipeline).Info("Starting import")
	return r
}

// checkpoint saves the run every saveEvery processed items
func (r *runRecorder) checkpoint(ctx context.Context) {
	done := r.run.Processed + r.run.Skipped + r.run.Failed
	if done > 0 && done%saveEvery == 0 {
		r.run.LastUpdateTime = r.now()
		r.save(ctx)
	}
}

// finish marks the run completed or failed and saves it one last time
func (r *runRecorder) finish(ctx context.Context, err error) *models.ImportRun {
	now := r.now()
	r.run.LastUpdateTime = now
	r.run.FinishedAt = &now
	r.run.Status = models.RunStatusCompleted
	if err != nil {
		r.run.Status = models.RunStatusFailed
		r.run.Error = err.Error()
	}

	// an interrupted run is still recorded
	if ctx.Err() != nil {
		ctx = context.WithoutCancel(ctx)
	}
	r.save(ctx)

	entry := r.logger.WithFields(logrus.Fields{
		"pipeline":  r.run.Pipeline,
		"processed": r.run.Processed,
		"skipped":   r.run.Skipped,
		"failed":    r.run.Failed,
		"counters":  r.run.Counters,
	})
	if err != nil {
		entry.WithError(err).Error("Import failed")
	} else {
		entry.Info("Import completed")
	}
	return r.run
}

func (r *runRecorder) save(ctx context.Context) {
	if r.status == nil {
		return
	}
	if err := r.status.UpdateStatus(ctx, r.run); err != nil {
		r.logger.WithError(err).WithField("pipeline", r.run.Pipeline).Warn("Failed to record import run")
	}
}

func isCanceled(err error) bool {
	return stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded)
}
