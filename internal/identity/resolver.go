package identity

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	apperrors "github.com/Kamar-Folarin/cpython-stats/internal/errors"
	"github.com/Kamar-Folarin/cpython-stats/internal/github"
	"github.com/Kamar-Folarin/cpython-stats/internal/models"
	"github.com/Kamar-Folarin/cpython-stats/internal/ratelimit"
)

const defaultMajorityThreshold = 10

// Cache is the persistent email to login mapping. Lookup returns a nil user
// for a cached negative result and a NotFound error when there is no entry.
type Cache interface {
	Lookup(ctx context.Context, email string) (*models.User, error)
	Store(ctx context.Context, email string, user *models.User) error
	Overwrite(ctx context.Context, email string, user models.User) error
}

// Resolver maps commit emails to GitHub logins
type Resolver struct {
	cache     Cache
	users     github.UserDirectory
	throttler ratelimit.Throttler
	logger    *logrus.Logger

	noreplyDomain     string
	majorityThreshold int

	mu     sync.Mutex
	warned map[string]struct{}
}

// Option configures a Resolver
type Option func(*Resolver)

func WithNoreplyDomain(domain string) Option {
	return func(r *Resolver) {
		r.noreplyDomain = domain
	}
}

// WithMajorityThreshold sets the vote count at which the PR majority stops early
func WithMajorityThreshold(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.majorityThreshold = n
		}
	}
}

func NewResolver(cache Cache, users github.UserDirectory, throttler ratelimit.Throttler, logger *logrus.Logger, opts ...Option) *Resolver {
	r := &Resolver{
		cache:             cache,
		users:             users,
		throttler:         throttler,
		logger:            logger,
		noreplyDomain:     DefaultNoreplyDomain,
		majorityThreshold: defaultMajorityThreshold,
		warned:            make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the login for email. It tries the noreply pattern, then
// the cache, then a user search by email. Failures are InvalidInput for
// strings without "@", Ambiguous when the search finds several accounts, and
// a confirmed NotFound when the email is known not to resolve.
func (r *Resolver) Resolve(ctx context.Context, email string) (models.User, error) {
	if user, ok := NoreplyUser(email, r.noreplyDomain); ok {
		return user, nil
	}

	if !strings.Contains(email, "@") {
		return models.NoUser, apperrors.NewValidationError(fmt.Sprintf("not an email address: %q", email), nil)
	}

	cached, err := r.cache.Lookup(ctx, email)
	switch {
	case err == nil && cached == nil:
		return models.NoUser, apperrors.NewConfirmedNotFoundError(fmt.Sprintf("%s is cached as unknown", email), nil)
	case err == nil:
		return *cached, nil
	case !apperrors.IsNotFound(err):
		return models.NoUser, fmt.Errorf("identity cache lookup for %s: %w", email, err)
	}

	if err := r.throttler.Throttle(ctx, ratelimit.Search, true); err != nil {
		return models.NoUser, err
	}

	users, err := r.users.SearchUsers(ctx, email+" in:email")
	if err != nil {
		return models.NoUser, err
	}

	switch len(users) {
	case 0:
		if err := r.cache.Store(ctx, email, nil); err != nil {
			return models.NoUser, err
		}
		return models.NoUser, apperrors.NewConfirmedNotFoundError(fmt.Sprintf("no GitHub account uses %s", email), nil)
	case 1:
		user := users[0]
		if err := r.cache.Store(ctx, email, &user); err != nil {
			return models.NoUser, err
		}
		return user, nil
	default:
		r.warnAmbiguous(email, users)
		return models.NoUser, apperrors.NewAmbiguousError(fmt.Sprintf("%d GitHub accounts use %s", len(users), email), nil)
	}
}

// ResolveByPRMajority attributes email to whoever opened most of the given
// pull requests. Pull requests that fail to load are skipped and counting
// stops once an author reaches the majority threshold. The result replaces
// any negative cache entry for email.
func (r *Resolver) ResolveByPRMajority(ctx context.Context, email string, prIDs []models.PRID) (models.User, error) {
	cached, err := r.cache.Lookup(ctx, email)
	if err == nil && cached != nil {
		return *cached, nil
	}
	if err != nil && !apperrors.IsNotFound(err) {
		return models.NoUser, fmt.Errorf("identity cache lookup for %s: %w", email, err)
	}

	counts := make(map[models.User]int)
	var seen []models.User
	fetched := 0

	for _, id := range prIDs {
		if err := r.throttler.Throttle(ctx, ratelimit.Core, true); err != nil {
			return models.NoUser, err
		}

		author, err := r.users.PullRequestAuthor(ctx, int(id))
		if err != nil {
			if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
				return models.NoUser, err
			}
			r.logger.WithError(err).WithFields(logrus.Fields{
				"email": email,
				"pr":    id,
			}).Debug("Skipping pull request that failed to load")
			continue
		}

		fetched++
		if author == models.NoUser {
			continue
		}
		if counts[author] == 0 {
			seen = append(seen, author)
		}
		counts[author]++
		if counts[author] >= r.majorityThreshold {
			break
		}
	}

	if fetched == 0 {
		return models.NoUser, apperrors.NewNotFoundError(fmt.Sprintf("none of the %d pull requests of %s could be loaded", len(prIDs), email), nil)
	}

	winner := models.NoUser
	for _, user := range seen {
		if counts[user] > counts[winner] {
			winner = user
		}
	}
	if winner == models.NoUser {
		return models.NoUser, apperrors.NewNotFoundError(fmt.Sprintf("pull requests of %s have no known author", email), nil)
	}

	if err := r.cache.Overwrite(ctx, email, winner); err != nil {
		return models.NoUser, err
	}
	return winner, nil
}

func (r *Resolver) warnAmbiguous(email string, users []models.User) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.warned[email]; ok {
		return
	}
	r.warned[email] = struct{}{}

	r.logger.WithFields(logrus.Fields{
		"email":      email,
		"candidates": users,
	}).Warn("Multiple GitHub accounts match email")
}
