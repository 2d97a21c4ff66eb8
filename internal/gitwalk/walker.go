package gitwalk

import (
	"context"
	stderrors "errors"
	"sort"

	"github.com/sirupsen/logrus"

	apperrors "github.com/Kamar-Folarin/cpython-stats/internal/errors"
	"github.com/Kamar-Folarin/cpython-stats/internal/models"
	"github.com/Kamar-Folarin/cpython-stats/internal/progress"
)

const summaryLength = 50

// Resolver turns commit emails into logins
type Resolver interface {
	Resolve(ctx context.Context, email string) (models.User, error)
	ResolveByPRMajority(ctx context.Context, email string, prIDs []models.PRID) (models.User, error)
}

// Attribution credits a user with a commit and the pull request it merged
type Attribution struct {
	Commit models.SHA1
	PR     models.PRID
	User   models.User
}

// Stats summarizes a walk
type Stats struct {
	Commits            int
	Attributions       int
	ResolvedByMajority int
	// Unresolved, Ambiguous and Invalid count commits per email that could not be credited
	Unresolved map[string]int
	Ambiguous  map[string]int
	Invalid    map[string]int
}

// Walker attributes commits to users
type Walker struct {
	resolver Resolver
	logger   *logrus.Logger
	progress progress.Reporter
}

type WalkerOption func(*Walker)

// WithProgress reports each walked commit to p
func WithProgress(p progress.Reporter) WalkerOption {
	return func(w *Walker) {
		w.progress = p
	}
}

func NewWalker(resolver Resolver, logger *logrus.Logger, opts ...WalkerOption) *Walker {
	w := &Walker{
		resolver: resolver,
		logger:   logger,
		progress: progress.Discard,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// deferred collects the merge commits of an author the resolver could not
// place, keyed by pull request
type deferred map[string]map[models.PRID]models.SHA1

// Walk resolves the author and co-authors of every commit and emits one
// Attribution per resolved email. Authors that cannot be resolved directly
// but appear on merged pull requests get a second chance through the pull
// request majority once the walk is done.
func (w *Walker) Walk(ctx context.Context, commits CommitSource, index Index, emit func(Attribution) error) (*Stats, error) {
	stats := &Stats{
		Unresolved: make(map[string]int),
		Ambiguous:  make(map[string]int),
		Invalid:    make(map[string]int),
	}
	pending := make(deferred)

	credit := func(a Attribution) error {
		stats.Attributions++
		return emit(a)
	}

	err := commits.ForEachCommit(ctx, func(c Commit) error {
		stats.Commits++
		w.progress.Describe(summary(c.Message, summaryLength))
		defer w.progress.Advance(1)

		pr := index.PR(c.ID)
		emails := append([]string{AuthorEmail(c.Author)}, CoAuthorEmails(c.Message)...)

		for i, email := range emails {
			user, err := w.resolver.Resolve(ctx, email)
			if err == nil {
				if err := credit(Attribution{Commit: c.ID, PR: pr, User: user}); err != nil {
					return err
				}
				continue
			}
			if isCanceled(err) {
				return err
			}

			switch {
			case apperrors.IsAmbiguous(err):
				stats.Ambiguous[email]++
			case apperrors.IsInvalidInput(err):
				if stats.Invalid[email] == 0 {
					w.logger.WithField("email", email).Warn("Commit email is not an address")
				}
				stats.Invalid[email]++
			default:
				if !apperrors.IsNotFound(err) {
					w.logger.WithError(err).WithField("email", email).Warn("Failed to resolve email")
				}
				stats.Unresolved[email]++
				if i == 0 && pr != models.UnknownPR {
					if pending[email] == nil {
						pending[email] = make(map[models.PRID]models.SHA1)
					}
					pending[email][pr] = c.ID
				}
			}
		}
		return nil
	})
	if err != nil {
		return stats, err
	}

	if err := w.resolveDeferred(ctx, stats, pending, credit); err != nil {
		return stats, err
	}
	return stats, nil
}

func (w *Walker) resolveDeferred(ctx context.Context, stats *Stats, pending deferred, credit func(Attribution) error) error {
	emails := make([]string, 0, len(stats.Unresolved))
	for email := range stats.Unresolved {
		emails = append(emails, email)
	}
	sort.Slice(emails, func(i, j int) bool {
		a, b := emails[i], emails[j]
		if stats.Unresolved[a] != stats.Unresolved[b] {
			return stats.Unresolved[a] > stats.Unresolved[b]
		}
		return a < b
	})

	for _, email := range emails {
		count := stats.Unresolved[email]
		prs := pending[email]
		if len(prs) == 0 {
			w.logger.WithFields(logrus.Fields{"email": email, "commits": count}).Warn("Could not find a user for email")
			continue
		}

		ids := make([]models.PRID, 0, len(prs))
		for id := range prs {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

		user, err := w.resolver.ResolveByPRMajority(ctx, email, ids)
		if err != nil {
			if isCanceled(err) {
				return err
			}
			w.logger.WithError(err).WithFields(logrus.Fields{"email": email, "commits": count}).Warn("Could not find a user for email")
			continue
		}

		w.logger.WithFields(logrus.Fields{"email": email, "user": user, "pulls": len(ids)}).Info("Resolved email from pull request authors")
		for _, id := range ids {
			if err := credit(Attribution{Commit: prs[id], PR: id, User: user}); err != nil {
				return err
			}
		}
		delete(stats.Unresolved, email)
		stats.ResolvedByMajority++
	}
	return nil
}

func isCanceled(err error) bool {
	return stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded)
}
