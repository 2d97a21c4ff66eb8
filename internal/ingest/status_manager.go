package ingest

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/Kamar-Folarin/cpython-stats/internal/db"
	"github.com/Kamar-Folarin/cpython-stats/internal/errors"
	"github.com/Kamar-Folarin/cpython-stats/internal/models"
)

// StatusManager records the state of pipeline runs
type StatusManager interface {
	GetStatus(ctx context.Context, pipeline string) (*models.ImportRun, error)
	UpdateStatus(ctx context.Context, run *models.ImportRun) error
	ListStatuses(ctx context.Context) ([]*models.ImportRun, error)
}

// StatusManagerImpl keeps the last finished run of each pipeline in memory.
// A run that is still going is always read from the store, since another
// process may be the one writing it.
type StatusManagerImpl struct {
	store    db.RunStore
	mu       sync.RWMutex
	finished map[string]*models.ImportRun
}

// NewStatusManager creates a new status manager
func NewStatusManager(store db.RunStore) StatusManager {
	return &StatusManagerImpl{
		store:    store,
		finished: make(map[string]*models.ImportRun),
	}
}

// GetStatus retrieves the last run of a pipeline
func (m *StatusManagerImpl) GetStatus(ctx context.Context, pipeline string) (*models.ImportRun, error) {
	if err := validatePipeline(pipeline); err != nil {
		return nil, err
	}

	m.mu.RLock()
	if run, exists := m.finished[pipeline]; exists {
		m.mu.RUnlock()
		return snapshot(run), nil
	}
	m.mu.RUnlock()

	run, err := m.store.GetImportRun(ctx, pipeline)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, errors.NewNotFoundError(fmt.Sprintf("no run recorded for pipeline: %s", pipeline), err)
		}
		return nil, fmt.Errorf("failed to get import run: %w", err)
	}

	m.remember(run)
	return run, nil
}

// UpdateStatus persists run. A run is either running with no finish time or
// completed/failed with one.
func (m *StatusManagerImpl) UpdateStatus(ctx context.Context, run *models.ImportRun) error {
	if run == nil {
		return errors.NewValidationError("run cannot be nil", nil)
	}
	if err := validatePipeline(run.Pipeline); err != nil {
		return err
	}

	switch run.Status {
	case models.RunStatusRunning:
		if run.FinishedAt != nil {
			return errors.NewValidationError(fmt.Sprintf("%s run is running but has a finish time", run.Pipeline), nil)
		}
	case models.RunStatusCompleted, models.RunStatusFailed:
		if run.FinishedAt == nil {
			return errors.NewValidationError(fmt.Sprintf("%s run is %s without a finish time", run.Pipeline, run.Status), nil)
		}
	default:
		return errors.NewValidationError(fmt.Sprintf("unknown run status: %q", run.Status), nil)
	}

	if err := m.store.SaveImportRun(ctx, run); err != nil {
		return fmt.Errorf("failed to update import run: %w", err)
	}

	m.remember(run)
	return nil
}

// ListStatuses retrieves the last run of every pipeline, ordered by pipeline
func (m *StatusManagerImpl) ListStatuses(ctx context.Context) ([]*models.ImportRun, error) {
	runs, err := m.store.ListImportRuns(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list import runs: %w", err)
	}

	slices.SortFunc(runs, func(a, b *models.ImportRun) int {
		return strings.Compare(a.Pipeline, b.Pipeline)
	})
	for _, run := range runs {
		m.remember(run)
	}
	return runs, nil
}

// remember caches finished runs and forgets the pipeline once a new run starts
func (m *StatusManagerImpl) remember(run *models.ImportRun) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if run.FinishedAt == nil {
		delete(m.finished, run.Pipeline)
		return
	}
	m.finished[run.Pipeline] = snapshot(run)
}

func validatePipeline(pipeline string) error {
	switch pipeline {
	case PipelinePullRequests, PipelineCommits:
		return nil
	case "":
		return errors.NewValidationError("pipeline cannot be empty", nil)
	default:
		return errors.NewValidationError(fmt.Sprintf("unknown pipeline: %q", pipeline), nil)
	}
}

// snapshot copies run so callers never share the recorder's live value
func snapshot(run *models.ImportRun) *models.ImportRun {
	cp := *run
	cp.Counters = maps.Clone(run.Counters)
	if run.BatchProgress != nil {
		bp := *run.BatchProgress
		bp.Errors = slices.Clone(run.BatchProgress.Errors)
		cp.BatchProgress = &bp
	}
	return &cp
}
