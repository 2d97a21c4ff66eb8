package gitwalk

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/sirupsen/logrus"

	"github.com/Kamar-Folarin/cpython-stats/internal/models"
)

const remoteName = "origin"

// Commit is the part of a commit the walker needs
type Commit struct {
	ID      models.SHA1
	Author  string
	Message string
}

// CommitSource yields commits one at a time
type CommitSource interface {
	ForEachCommit(ctx context.Context, fn func(Commit) error) error
}

// Repository is a local clone of the project
type Repository struct {
	repo   *git.Repository
	logger *logrus.Logger
}

// Open opens the clone at path, cloning url first if path does not exist
func Open(ctx context.Context, path, url string, logger *logrus.Logger) (*Repository, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		logger.WithFields(logrus.Fields{"path": path, "url": url}).Info("Cloning repository")
		repo, err := git.PlainCloneContext(ctx, path, false, &git.CloneOptions{URL: url, Tags: git.AllTags})
		if err != nil {
			return nil, fmt.Errorf("failed to clone %s: %w", url, err)
		}
		return &Repository{repo: repo, logger: logger}, nil
	}

	repo, err := git.PlainOpen(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open repository at %s: %w", path, err)
	}
	return &Repository{repo: repo, logger: logger}, nil
}

// NewRepository wraps an already opened repository
func NewRepository(repo *git.Repository, logger *logrus.Logger) *Repository {
	return &Repository{repo: repo, logger: logger}
}

// Fetch updates branches and tags from origin
func (r *Repository) Fetch(ctx context.Context) error {
	err := r.repo.FetchContext(ctx, &git.FetchOptions{RemoteName: remoteName, Tags: git.AllTags})
	if err != nil && !stderrors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("failed to fetch: %w", err)
	}
	return nil
}

// ResolveBranches maps each name to a commit, preferring a tag over a
// remote branch over a local branch. Names that resolve to nothing are
// logged and left out.
func (r *Repository) ResolveBranches(names []string) map[string]plumbing.Hash {
	heads := make(map[string]plumbing.Hash, len(names))
	for _, name := range names {
		hash, err := r.resolve(name)
		if err != nil {
			r.logger.WithError(err).WithField("branch", name).Warn("Branch not found, skipping")
			continue
		}
		heads[name] = hash
	}
	return heads
}

func (r *Repository) resolve(name string) (plumbing.Hash, error) {
	candidates := []plumbing.ReferenceName{
		plumbing.NewTagReferenceName(name),
		plumbing.NewRemoteReferenceName(remoteName, name),
		plumbing.NewBranchReferenceName(name),
	}

	for _, refName := range candidates {
		ref, err := r.repo.Reference(refName, true)
		if err != nil {
			continue
		}
		return r.peel(ref.Hash())
	}
	return plumbing.ZeroHash, fmt.Errorf("no tag or branch named %q", name)
}

// peel follows annotated tags down to the commit they point at
func (r *Repository) peel(hash plumbing.Hash) (plumbing.Hash, error) {
	tag, err := r.repo.TagObject(hash)
	if stderrors.Is(err, plumbing.ErrObjectNotFound) {
		return hash, nil
	}
	if err != nil {
		return plumbing.ZeroHash, err
	}

	commit, err := tag.Commit()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("tag %s does not point at a commit: %w", tag.Name, err)
	}
	return commit.Hash, nil
}

// Commits resolves branches and walks them in the given order
func (r *Repository) Commits(branches []string, since time.Time) CommitSource {
	return r.Log(r.ResolveBranches(branches), branches, since)
}

// Log returns the commits reachable from heads and committed after since
func (r *Repository) Log(heads map[string]plumbing.Hash, order []string, since time.Time) *Log {
	return &Log{repo: r.repo, heads: heads, order: order, since: since}
}

// Log walks several heads, yielding every commit once
type Log struct {
	repo  *git.Repository
	heads map[string]plumbing.Hash
	order []string
	since time.Time
}

func (l *Log) ForEachCommit(ctx context.Context, fn func(Commit) error) error {
	seen := make(map[plumbing.Hash]struct{})

	for _, name := range l.order {
		head, ok := l.heads[name]
		if !ok {
			continue
		}

		since := l.since
		iter, err := l.repo.Log(&git.LogOptions{From: head, Since: &since})
		if err != nil {
			return fmt.Errorf("failed to walk %s: %w", name, err)
		}

		err = iter.ForEach(func(c *object.Commit) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if _, ok := seen[c.Hash]; ok {
				return nil
			}
			seen[c.Hash] = struct{}{}

			return fn(Commit{
				ID:      models.SHA1(c.Hash.String()),
				Author:  fmt.Sprintf("%s <%s>", c.Author.Name, c.Author.Email),
				Message: c.Message,
			})
		})
		iter.Close()
		if err != nil && !stderrors.Is(err, storer.ErrStop) {
			return err
		}
	}
	return nil
}

// CommitList is an in-memory CommitSource
type CommitList []Commit

func (l CommitList) ForEachCommit(ctx context.Context, fn func(Commit) error) error {
	for _, c := range l {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(c); err != nil {
			return err
		}
	}
	return nil
}
