package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	jsoniter "github.com/json-iterator/go"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"

	"github.com/Kamar-Folarin/cpython-stats/internal/models"
)

//go:embed migrations/*.sql
var migrations embed.FS

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ChangeStore is the keyed store of pull request records
type ChangeStore interface {
	GetChange(ctx context.Context, key string) (*models.Change, error)
	PutChange(ctx context.Context, key string, change *models.Change) error
	ForEachChange(ctx context.Context, fn func(key string, change *models.Change) error) error
}

// ChangeQuerier serves paginated reads of the change store
type ChangeQuerier interface {
	ListChanges(ctx context.Context, filter ChangeFilter) ([]*models.StoredChange, int64, error)
	GetStoredChange(ctx context.Context, key string) (*models.StoredChange, error)
}

// IdentityStore is the persistent email to login cache
type IdentityStore interface {
	Lookup(ctx context.Context, email string) (*models.User, error)
	Store(ctx context.Context, email string, user *models.User) error
	Overwrite(ctx context.Context, email string, user models.User) error
}

// RunStore persists import run statuses
type RunStore interface {
	GetImportRun(ctx context.Context, pipeline string) (*models.ImportRun, error)
	SaveImportRun(ctx context.Context, run *models.ImportRun) error
	ListImportRuns(ctx context.Context) ([]*models.ImportRun, error)
}

// ExportStore receives the relational export
type ExportStore interface {
	ResetExport(ctx context.Context) error
	WriteExport(ctx context.Context, records []*ExportRecord) error
}

type PostgresStore struct {
	db *sql.DB
}

var (
	_ ChangeStore   = (*PostgresStore)(nil)
	_ ChangeQuerier = (*PostgresStore)(nil)
	_ RunStore      = (*PostgresStore)(nil)
	_ ExportStore   = (*PostgresStore)(nil)
)

// Open connects to the stats database
func Open(connectionString string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate applies the embedded goose migrations
func (s *PostgresStore) Migrate() error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	if err := goose.Up(s.db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// inTx runs fn in a transaction, committing on success
func inTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
