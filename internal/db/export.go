package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Kamar-Folarin/cpython-stats/internal/models"
)

const (
	truncateExport = `TRUNCATE export_labels, export_comments, export_contributors, export_files, export_changes`

	insertExportChange = `INSERT INTO export_changes
		(id, pr_id, branch, title, description, state, commit_id, opened_at, merged_at, closed_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	insertExportFile = `INSERT INTO export_files (change_id, name, additions, deletions, changes)
		VALUES ($1, $2, $3, $4, $5)`
	insertExportContributor = `INSERT INTO export_contributors (change_id, name, is_pr_author, did_merge_pr, is_core_dev)
		VALUES ($1, $2, $3, $4, $5)`
	insertExportComment = `INSERT INTO export_comments (change_id, author, text) VALUES ($1, $2, $3)`
	insertExportLabel   = `INSERT INTO export_labels (change_id, label) VALUES ($1, $2)`
)

// ExportRecord is one change flattened for the relational export
type ExportRecord struct {
	ID           string
	PRID         int
	Branch       string
	Title        string
	Description  string
	State        string
	CommitID     string
	OpenedAt     *time.Time
	MergedAt     *time.Time
	ClosedAt     *time.Time
	UpdatedAt    *time.Time
	Files        []models.File
	Contributors []ExportContributor
	Comments     []models.Comment
	Labels       []string
}

type ExportContributor struct {
	Name       string
	IsPRAuthor bool
	DidMergePR bool
	IsCoreDev  bool
}

// ResetExport empties the export tables
func (s *PostgresStore) ResetExport(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, truncateExport); err != nil {
		return fmt.Errorf("failed to reset export tables: %w", err)
	}
	return nil
}

// WriteExport inserts a batch of records in a single transaction
func (s *PostgresStore) WriteExport(ctx context.Context, records []*ExportRecord) error {
	return inTx(ctx, s.db, func(tx *sql.Tx) error {
		stmts := make(map[string]*sql.Stmt)
		for _, q := range []string{insertExportChange, insertExportFile, insertExportContributor, insertExportComment, insertExportLabel} {
			stmt, err := tx.PrepareContext(ctx, q)
			if err != nil {
				return fmt.Errorf("failed to prepare export statement: %w", err)
			}
			defer stmt.Close()
			stmts[q] = stmt
		}

		for _, r := range records {
			if _, err := stmts[insertExportChange].ExecContext(ctx,
				r.ID, r.PRID, r.Branch, r.Title, r.Description, r.State, r.CommitID,
				r.OpenedAt, r.MergedAt, r.ClosedAt, r.UpdatedAt,
			); err != nil {
				return fmt.Errorf("failed to export change %s: %w", r.ID, err)
			}

			for _, f := range r.Files {
				if _, err := stmts[insertExportFile].ExecContext(ctx, r.ID, f.Name, f.Additions, f.Deletions, f.Changes); err != nil {
					return fmt.Errorf("failed to export files of %s: %w", r.ID, err)
				}
			}
			for _, c := range r.Contributors {
				if _, err := stmts[insertExportContributor].ExecContext(ctx, r.ID, c.Name, c.IsPRAuthor, c.DidMergePR, c.IsCoreDev); err != nil {
					return fmt.Errorf("failed to export contributors of %s: %w", r.ID, err)
				}
			}
			for _, c := range r.Comments {
				if _, err := stmts[insertExportComment].ExecContext(ctx, r.ID, string(c.Author), c.Text); err != nil {
					return fmt.Errorf("failed to export comments of %s: %w", r.ID, err)
				}
			}
			for _, label := range r.Labels {
				if _, err := stmts[insertExportLabel].ExecContext(ctx, r.ID, label); err != nil {
					return fmt.Errorf("failed to export labels of %s: %w", r.ID, err)
				}
			}
		}
		return nil
	})
}
