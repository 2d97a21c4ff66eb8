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
	selectChangeData = `SELECT data FROM changes WHERE id = $1`

	upsertChange = `INSERT INTO changes (id, pr_id, commit_id, state, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET
			pr_id = EXCLUDED.pr_id,
			commit_id = EXCLUDED.commit_id,
			state = EXCLUDED.state,
			data = EXCLUDED.data,
			updated_at = NOW()`

	selectAllChanges = `SELECT id, data FROM changes ORDER BY pr_id, id`

	selectStoredChange = `SELECT id, state, data, created_at, updated_at FROM changes WHERE id = $1`

	selectChangesPage = `SELECT id, state, data, created_at, updated_at FROM changes
		WHERE ($1 = '' OR state = $1)
		ORDER BY pr_id DESC
		LIMIT $2 OFFSET $3`

	countChanges = `SELECT COUNT(*) FROM changes WHERE ($1 = '' OR state = $1)`
)

// ChangeFilter narrows ListChanges
type ChangeFilter struct {
	State  models.ChangeState
	Limit  int
	Offset int
}

// GetChange returns the change stored under key
func (s *PostgresStore) GetChange(ctx context.Context, key string) (*models.Change, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, selectChangeData, key).Scan(&data)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("change %s not found", key), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get change %s: %w", key, err)
	}

	var change models.Change
	if err := json.Unmarshal(data, &change); err != nil {
		return nil, fmt.Errorf("failed to unmarshal change %s: %w", key, err)
	}
	return &change, nil
}

// PutChange inserts or replaces the change stored under key in its own transaction
func (s *PostgresStore) PutChange(ctx context.Context, key string, change *models.Change) error {
	if change == nil {
		return apperrors.NewValidationError("change cannot be nil", nil)
	}

	data, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("failed to marshal change %s: %w", key, err)
	}

	return inTx(ctx, s.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, upsertChange,
			key, int(change.PRID), string(change.CommitID), string(change.State()), data)
		if err != nil {
			return fmt.Errorf("failed to save change %s: %w", key, err)
		}
		return nil
	})
}

// ForEachChange calls fn for every stored change in pull request order
func (s *PostgresStore) ForEachChange(ctx context.Context, fn func(key string, change *models.Change) error) error {
	rows, err := s.db.QueryContext(ctx, selectAllChanges)
	if err != nil {
		return fmt.Errorf("failed to query changes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var data []byte
		if err := rows.Scan(&key, &data); err != nil {
			return fmt.Errorf("failed to scan change: %w", err)
		}

		var change models.Change
		if err := json.Unmarshal(data, &change); err != nil {
			return fmt.Errorf("failed to unmarshal change %s: %w", key, err)
		}

		if err := fn(key, &change); err != nil {
			return err
		}
	}

	return rows.Err()
}

// GetStoredChange returns a change with its bookkeeping columns
func (s *PostgresStore) GetStoredChange(ctx context.Context, key string) (*models.StoredChange, error) {
	sc, err := scanStoredChange(s.db.QueryRowContext(ctx, selectStoredChange, key))
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("change %s not found", key), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get change %s: %w", key, err)
	}
	return sc, nil
}

// ListChanges returns a page of changes, newest pull request first, and the total count
func (s *PostgresStore) ListChanges(ctx context.Context, filter ChangeFilter) ([]*models.StoredChange, int64, error) {
	state := string(filter.State)

	var total int64
	if err := s.db.QueryRowContext(ctx, countChanges, state).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count changes: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, selectChangesPage, state, filter.Limit, filter.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list changes: %w", err)
	}
	defer rows.Close()

	var changes []*models.StoredChange
	for rows.Next() {
		sc, err := scanStoredChange(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan change: %w", err)
		}
		changes = append(changes, sc)
	}

	return changes, total, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStoredChange(row rowScanner) (*models.StoredChange, error) {
	var sc models.StoredChange
	var state string
	var data []byte
	if err := row.Scan(&sc.ID, &state, &data, &sc.CreatedAt, &sc.UpdatedAt); err != nil {
		return nil, err
	}
	sc.State = models.ChangeState(state)

	sc.Change = &models.Change{}
	if err := json.Unmarshal(data, sc.Change); err != nil {
		return nil, fmt.Errorf("failed to unmarshal change %s: %w", sc.ID, err)
	}
	return &sc, nil
}
