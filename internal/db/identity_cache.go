package db

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/lib/pq"

	apperrors "github.com/Kamar-Folarin/cpython-stats/internal/errors"
	"github.com/Kamar-Folarin/cpython-stats/internal/models"
)

const (
	createIdentityTable = `CREATE TABLE IF NOT EXISTS email_to_gh_user (email TEXT NOT NULL, gh_user TEXT)`
	createIdentityIndex = `CREATE UNIQUE INDEX IF NOT EXISTS email_to_gh_user_email ON email_to_gh_user (email)`

	selectIdentity = `SELECT gh_user FROM email_to_gh_user WHERE email = $1`
	upsertIdentity = `INSERT INTO email_to_gh_user (email, gh_user) VALUES ($1, $2)
		ON CONFLICT (email) DO UPDATE SET gh_user = EXCLUDED.gh_user`
	deleteIdentity = `DELETE FROM email_to_gh_user WHERE email = $1`
	insertIdentity = `INSERT INTO email_to_gh_user (email, gh_user) VALUES ($1, $2)`
)

// undefinedTable is the Postgres error code for a missing relation
const undefinedTable = "42P01"

// IdentityCache maps commit emails to GitHub logins. A NULL login is a
// cached negative result. The table is created on first write so the cache
// can live in its own database.
type IdentityCache struct {
	db *sql.DB

	mu          sync.Mutex
	schemaReady bool
}

var _ IdentityStore = (*IdentityCache)(nil)

func NewIdentityCache(db *sql.DB) *IdentityCache {
	return &IdentityCache{db: db}
}

// Lookup returns the cached login for email. A nil user with a nil error is
// a cached negative result; NotFound means the email was never looked up.
func (c *IdentityCache) Lookup(ctx context.Context, email string) (*models.User, error) {
	var login sql.NullString
	err := c.db.QueryRowContext(ctx, selectIdentity, email).Scan(&login)
	if stderrors.Is(err, sql.ErrNoRows) || isUndefinedTable(err) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("no cached user for %s", email), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up %s: %w", email, err)
	}

	if !login.Valid {
		return nil, nil
	}
	user := models.User(login.String)
	return &user, nil
}

// Store records the login for email, nil meaning confirmed unknown
func (c *IdentityCache) Store(ctx context.Context, email string, user *models.User) error {
	if err := c.ensureSchema(ctx); err != nil {
		return err
	}

	if _, err := c.db.ExecContext(ctx, upsertIdentity, email, nullableUser(user)); err != nil {
		return fmt.Errorf("failed to cache user for %s: %w", email, err)
	}
	return nil
}

// Overwrite replaces whatever is cached for email with user
func (c *IdentityCache) Overwrite(ctx context.Context, email string, user models.User) error {
	if err := c.ensureSchema(ctx); err != nil {
		return err
	}

	return inTx(ctx, c.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, deleteIdentity, email); err != nil {
			return fmt.Errorf("failed to delete cached user for %s: %w", email, err)
		}
		if _, err := tx.ExecContext(ctx, insertIdentity, email, nullableUser(&user)); err != nil {
			return fmt.Errorf("failed to cache user for %s: %w", email, err)
		}
		return nil
	})
}

func (c *IdentityCache) ensureSchema(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.schemaReady {
		return nil
	}

	for _, stmt := range []string{createIdentityTable, createIdentityIndex} {
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create identity cache schema: %w", err)
		}
	}

	c.schemaReady = true
	return nil
}

func nullableUser(user *models.User) sql.NullString {
	if user == nil || *user == models.NoUser {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*user), Valid: true}
}

func isUndefinedTable(err error) bool {
	var pqErr *pq.Error
	return stderrors.As(err, &pqErr) && pqErr.Code == undefinedTable
}
