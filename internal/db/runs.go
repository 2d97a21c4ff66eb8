package db

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"

	apperrors "github.com/Kamar-Folarin/cpython-stats/internal/errors"
	"github.com/Kamar-Folarin/cpython-stats/internal/models"
)

const (
	selectImportRun = `SELECT status_json FROM import_runs WHERE pipeline = $1`

	upsertImportRun = `INSERT INTO import_runs (pipeline, status_json, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		ON CONFLICT (pipeline) DO UPDATE SET
			status_json = EXCLUDED.status_json,
			updated_at = NOW()`

	selectImportRuns = `SELECT status_json FROM import_runs ORDER BY pipeline`
)

// GetImportRun retrieves the last recorded run of a pipeline
func (s *PostgresStore) GetImportRun(ctx context.Context, pipeline string) (*models.ImportRun, error) {
	var statusJSON []byte
	err := s.db.QueryRowContext(ctx, selectImportRun, pipeline).Scan(&statusJSON)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("no import run for pipeline %s", pipeline), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get import run: %w", err)
	}

	var run models.ImportRun
	if err := json.Unmarshal(statusJSON, &run); err != nil {
		return nil, fmt.Errorf("failed to unmarshal import run: %w", err)
	}
	return &run, nil
}

// SaveImportRun upserts the status of a pipeline run
func (s *PostgresStore) SaveImportRun(ctx context.Context, run *models.ImportRun) error {
	if run == nil {
		return apperrors.NewValidationError("import run cannot be nil", nil)
	}

	statusJSON, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to marshal import run: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, upsertImportRun, run.Pipeline, statusJSON); err != nil {
		return fmt.Errorf("failed to save import run: %w", err)
	}
	return nil
}

// ListImportRuns returns the last run of every pipeline
func (s *PostgresStore) ListImportRuns(ctx context.Context) ([]*models.ImportRun, error) {
	rows, err := s.db.QueryContext(ctx, selectImportRuns)
	if err != nil {
		return nil, fmt.Errorf("failed to list import runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.ImportRun
	for rows.Next() {
		var statusJSON []byte
		if err := rows.Scan(&statusJSON); err != nil {
			return nil, fmt.Errorf("failed to scan import run: %w", err)
		}

		var run models.ImportRun
		if err := json.Unmarshal(statusJSON, &run); err != nil {
			return nil, fmt.Errorf("failed to unmarshal import run: %w", err)
		}
		runs = append(runs, &run)
	}

	return runs, rows.Err()
}
