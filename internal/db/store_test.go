package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Kamar-Folarin/cpython-stats/internal/errors"
	"github.com/Kamar-Folarin/cpython-stats/internal/models"
)

func newMock(t *testing.T) (*PostgresStore, *IdentityCache, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})

	return NewPostgresStore(db), NewIdentityCache(db), mock
}

func TestPostgresStore_Changes(t *testing.T) {
	ctx := context.Background()
	merged := time.Date(2021, 5, 3, 10, 0, 0, 0, time.UTC)

	t.Run("get missing change", func(t *testing.T) {
		store, _, mock := newMock(t)
		mock.ExpectQuery(selectChangeData).WithArgs("GH-1").WillReturnRows(sqlmock.NewRows([]string{"data"}))

		_, err := store.GetChange(ctx, "GH-1")
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("get change", func(t *testing.T) {
		store, _, mock := newMock(t)
		mock.ExpectQuery(selectChangeData).WithArgs("GH-7").WillReturnRows(
			sqlmock.NewRows([]string{"data"}).AddRow([]byte(`{
				"title": "bpo-1: fix",
				"contributors": ["bob", "alice"],
				"merged_at": "2021-05-03T10:00:00Z",
				"pr_id": 7,
				"commit_id": "abc"
			}`)))

		change, err := store.GetChange(ctx, "GH-7")
		require.NoError(t, err)
		assert.Equal(t, "bpo-1: fix", change.Title)
		assert.Equal(t, []models.User{"alice", "bob"}, change.Contributors.Sorted())
		assert.Equal(t, models.StateMerged, change.State())
		assert.Equal(t, models.PRID(7), change.PRID)
	})

	t.Run("put change uses a transaction", func(t *testing.T) {
		store, _, mock := newMock(t)
		change := &models.Change{Title: "bpo-2: docs", PRID: 2, CommitID: "def", MergedAt: &merged}

		mock.ExpectBegin()
		mock.ExpectExec(upsertChange).
			WithArgs("GH-2", 2, "def", "merged", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, store.PutChange(ctx, "GH-2", change))
	})

	t.Run("failed put rolls back", func(t *testing.T) {
		store, _, mock := newMock(t)

		mock.ExpectBegin()
		mock.ExpectExec(upsertChange).WillReturnError(errors.New("disk full"))
		mock.ExpectRollback()

		assert.Error(t, store.PutChange(ctx, "GH-3", &models.Change{PRID: 3}))
	})

	t.Run("for each change", func(t *testing.T) {
		store, _, mock := newMock(t)
		mock.ExpectQuery(selectAllChanges).WillReturnRows(
			sqlmock.NewRows([]string{"id", "data"}).
				AddRow("GH-1", []byte(`{"pr_id": 1, "commit_id": "a"}`)).
				AddRow("GH-2", []byte(`{"pr_id": 2}`)))

		var keys []string
		err := store.ForEachChange(ctx, func(key string, change *models.Change) error {
			keys = append(keys, key)
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"GH-1", "GH-2"}, keys)
	})

	t.Run("list changes", func(t *testing.T) {
		store, _, mock := newMock(t)
		now := time.Now()

		mock.ExpectQuery(countChanges).WithArgs("merged").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))
		mock.ExpectQuery(selectChangesPage).WithArgs("merged", 1, 5).
			WillReturnRows(sqlmock.NewRows([]string{"id", "state", "data", "created_at", "updated_at"}).
				AddRow("GH-9", "merged", []byte(`{"pr_id": 9, "title": "t"}`), now, now))

		changes, total, err := store.ListChanges(ctx, ChangeFilter{State: models.StateMerged, Limit: 1, Offset: 5})
		require.NoError(t, err)
		assert.Equal(t, int64(12), total)
		require.Len(t, changes, 1)
		assert.Equal(t, "GH-9", changes[0].ID)
		assert.Equal(t, models.StateMerged, changes[0].State)
		assert.Equal(t, "t", changes[0].Change.Title)
	})
}

func TestIdentityCache(t *testing.T) {
	ctx := context.Background()

	t.Run("lookup without a row is not found", func(t *testing.T) {
		_, cache, mock := newMock(t)
		mock.ExpectQuery(selectIdentity).WithArgs("a@example.com").
			WillReturnRows(sqlmock.NewRows([]string{"gh_user"}))

		_, err := cache.Lookup(ctx, "a@example.com")
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("lookup before the table exists is not found", func(t *testing.T) {
		_, cache, mock := newMock(t)
		mock.ExpectQuery(selectIdentity).WithArgs("a@example.com").
			WillReturnError(&pq.Error{Code: undefinedTable})

		_, err := cache.Lookup(ctx, "a@example.com")
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("cached null is a tombstone", func(t *testing.T) {
		_, cache, mock := newMock(t)
		mock.ExpectQuery(selectIdentity).WithArgs("ghost@example.com").
			WillReturnRows(sqlmock.NewRows([]string{"gh_user"}).AddRow(nil))

		user, err := cache.Lookup(ctx, "ghost@example.com")
		require.NoError(t, err)
		assert.Nil(t, user)
	})

	t.Run("cached user", func(t *testing.T) {
		_, cache, mock := newMock(t)
		mock.ExpectQuery(selectIdentity).WithArgs("alice@example.com").
			WillReturnRows(sqlmock.NewRows([]string{"gh_user"}).AddRow("alice"))

		user, err := cache.Lookup(ctx, "alice@example.com")
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, models.User("alice"), *user)
	})

	t.Run("store creates the schema once", func(t *testing.T) {
		_, cache, mock := newMock(t)
		alice := models.User("alice")

		mock.ExpectExec(createIdentityTable).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(createIdentityIndex).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(upsertIdentity).WithArgs("alice@example.com", "alice").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(upsertIdentity).WithArgs("ghost@example.com", nil).WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, cache.Store(ctx, "alice@example.com", &alice))
		require.NoError(t, cache.Store(ctx, "ghost@example.com", nil))
	})

	t.Run("overwrite deletes then inserts", func(t *testing.T) {
		_, cache, mock := newMock(t)

		mock.ExpectExec(createIdentityTable).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(createIdentityIndex).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectBegin()
		mock.ExpectExec(deleteIdentity).WithArgs("bob@example.com").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(insertIdentity).WithArgs("bob@example.com", "bob").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, cache.Overwrite(ctx, "bob@example.com", "bob"))
	})
}

func TestPostgresStore_ImportRuns(t *testing.T) {
	ctx := context.Background()

	t.Run("missing run", func(t *testing.T) {
		store, _, mock := newMock(t)
		mock.ExpectQuery(selectImportRun).WithArgs("commits").
			WillReturnRows(sqlmock.NewRows([]string{"status_json"}))

		_, err := store.GetImportRun(ctx, "commits")
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("save and list", func(t *testing.T) {
		store, _, mock := newMock(t)
		run := &models.ImportRun{Pipeline: "pull-requests", Processed: 3}
		run.Status = models.RunStatusCompleted

		mock.ExpectExec(upsertImportRun).WithArgs("pull-requests", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(selectImportRuns).WillReturnRows(
			sqlmock.NewRows([]string{"status_json"}).AddRow([]byte(run.String())))

		require.NoError(t, store.SaveImportRun(ctx, run))
		runs, err := store.ListImportRuns(ctx)
		require.NoError(t, err)
		require.Len(t, runs, 1)
		assert.Equal(t, "pull-requests", runs[0].Pipeline)
		assert.Equal(t, models.RunStatusCompleted, runs[0].Status)
		assert.Equal(t, 3, runs[0].Processed)
	})
}

func TestPostgresStore_WriteExport(t *testing.T) {
	store, _, mock := newMock(t)

	mock.ExpectBegin()
	changeStmt := mock.ExpectPrepare(insertExportChange)
	fileStmt := mock.ExpectPrepare(insertExportFile)
	contributorStmt := mock.ExpectPrepare(insertExportContributor)
	commentStmt := mock.ExpectPrepare(insertExportComment)
	labelStmt := mock.ExpectPrepare(insertExportLabel)

	changeStmt.ExpectExec().
		WithArgs("GH-5", 5, "main", "title", "", "merged", "abc",
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	fileStmt.ExpectExec().WithArgs("GH-5", "Lib/os.py", 1, 2, 3).WillReturnResult(sqlmock.NewResult(1, 1))
	contributorStmt.ExpectExec().WithArgs("GH-5", "alice", true, false, true).WillReturnResult(sqlmock.NewResult(1, 1))
	commentStmt.ExpectExec().WithArgs("GH-5", "bob", "LGTM").WillReturnResult(sqlmock.NewResult(1, 1))
	labelStmt.ExpectExec().WithArgs("GH-5", "type-bug").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := store.WriteExport(context.Background(), []*ExportRecord{{
		ID:           "GH-5",
		PRID:         5,
		Branch:       "main",
		Title:        "title",
		State:        "merged",
		CommitID:     "abc",
		Files:        []models.File{{Name: "Lib/os.py", Additions: 1, Deletions: 2, Changes: 3}},
		Contributors: []ExportContributor{{Name: "alice", IsPRAuthor: true, IsCoreDev: true}},
		Comments:     []models.Comment{{Author: "bob", Text: "LGTM"}},
		Labels:       []string{"type-bug"},
	}})
	require.NoError(t, err)
}
