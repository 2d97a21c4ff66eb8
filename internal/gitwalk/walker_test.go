package gitwalk

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Kamar-Folarin/cpython-stats/internal/errors"
	"github.com/Kamar-Folarin/cpython-stats/internal/identity"
	"github.com/Kamar-Folarin/cpython-stats/internal/models"
	"github.com/Kamar-Folarin/cpython-stats/internal/ratelimit"
)

type MockResolver struct {
	mock.Mock
}

func (m *MockResolver) Resolve(ctx context.Context, email string) (models.User, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *MockResolver) ResolveByPRMajority(ctx context.Context, email string, prIDs []models.PRID) (models.User, error) {
	args := m.Called(ctx, email, prIDs)
	return args.Get(0).(models.User), args.Error(1)
}

type recordingReporter struct {
	descriptions []string
	done         int
}

func (r *recordingReporter) Describe(d string) { r.descriptions = append(r.descriptions, d) }
func (r *recordingReporter) Advance(n int)     { r.done += n }

func walk(t *testing.T, w *Walker, commits CommitSource, index Index) ([]Attribution, *Stats, error) {
	t.Helper()
	var got []Attribution
	stats, err := w.Walk(context.Background(), commits, index, func(a Attribution) error {
		got = append(got, a)
		return nil
	})
	return got, stats, err
}

func TestWalker_Walk(t *testing.T) {
	commits := CommitList{
		{ID: "c1", Author: "A <a@example.com>", Message: "one\n\nCo-authored-by: B <b@example.com>"},
		{ID: "c2", Author: "C <c@example.com>", Message: "two"},
		{ID: "c3", Author: "C <c@example.com>", Message: "three"},
		{ID: "c4", Author: "D <d@example.com>", Message: "four"},
		{ID: "c5", Author: "E <e@example.com>", Message: "five"},
	}
	index := Index{"c1": 10, "c2": 11, "c3": 12}

	resolver := &MockResolver{}
	resolver.On("Resolve", mock.Anything, "a@example.com").Return(models.User("alice"), nil)
	resolver.On("Resolve", mock.Anything, "b@example.com").Return(models.NoUser, apperrors.NewConfirmedNotFoundError("tombstone", nil))
	resolver.On("Resolve", mock.Anything, "c@example.com").Return(models.NoUser, apperrors.NewConfirmedNotFoundError("tombstone", nil))
	resolver.On("Resolve", mock.Anything, "d@example.com").Return(models.NoUser, apperrors.NewAmbiguousError("two users", nil))
	resolver.On("Resolve", mock.Anything, "e@example.com").Return(models.NoUser, apperrors.NewConfirmedNotFoundError("tombstone", nil))
	resolver.On("ResolveByPRMajority", mock.Anything, "c@example.com", []models.PRID{11, 12}).Return(models.User("carol"), nil)

	reporter := &recordingReporter{}
	w := NewWalker(resolver, discardLogger(), WithProgress(reporter))

	got, stats, err := walk(t, w, commits, index)
	require.NoError(t, err)

	assert.Equal(t, []Attribution{
		{Commit: "c1", PR: 10, User: "alice"},
		{Commit: "c2", PR: 11, User: "carol"},
		{Commit: "c3", PR: 12, User: "carol"},
	}, got)
	assert.Equal(t, 5, stats.Commits)
	assert.Equal(t, 3, stats.Attributions)
	assert.Equal(t, 1, stats.ResolvedByMajority)
	assert.Equal(t, map[string]int{"b@example.com": 1, "e@example.com": 1}, stats.Unresolved)
	assert.Equal(t, map[string]int{"d@example.com": 1}, stats.Ambiguous)
	assert.Equal(t, 5, reporter.done)
	assert.Equal(t, "one", reporter.descriptions[0])

	// co-authors and authors without a pull request never reach the majority
	resolver.AssertNotCalled(t, "ResolveByPRMajority", mock.Anything, "b@example.com", mock.Anything)
	resolver.AssertNotCalled(t, "ResolveByPRMajority", mock.Anything, "e@example.com", mock.Anything)
}

func TestWalker_MajorityFailureStaysUnresolved(t *testing.T) {
	resolver := &MockResolver{}
	resolver.On("Resolve", mock.Anything, "c@example.com").Return(models.NoUser, apperrors.NewConfirmedNotFoundError("tombstone", nil))
	resolver.On("ResolveByPRMajority", mock.Anything, "c@example.com", []models.PRID{11}).
		Return(models.NoUser, apperrors.NewNotFoundError("no pull request loaded", nil))

	got, stats, err := walk(t, NewWalker(resolver, discardLogger()),
		CommitList{{ID: "c2", Author: "C <c@example.com>", Message: "two"}}, Index{"c2": 11})
	require.NoError(t, err)

	assert.Empty(t, got)
	assert.Equal(t, map[string]int{"c@example.com": 1}, stats.Unresolved)
	assert.Zero(t, stats.ResolvedByMajority)
}

func TestWalker_InvalidEmailCounted(t *testing.T) {
	resolver := &MockResolver{}
	resolver.On("Resolve", mock.Anything, "nobody").Return(models.NoUser, apperrors.NewValidationError("not an email", nil))

	_, stats, err := walk(t, NewWalker(resolver, discardLogger()),
		CommitList{{ID: "c1", Author: "nobody", Message: "x"}, {ID: "c2", Author: "nobody", Message: "y"}}, Index{})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"nobody": 2}, stats.Invalid)
	assert.Empty(t, stats.Ambiguous)
	assert.Empty(t, stats.Unresolved)
}

func TestWalker_CancelAborts(t *testing.T) {
	resolver := &MockResolver{}
	resolver.On("Resolve", mock.Anything, mock.Anything).Return(models.NoUser, context.Canceled)

	_, _, err := walk(t, NewWalker(resolver, discardLogger()),
		CommitList{{ID: "c1", Author: "A <a@example.com>", Message: "x"}}, Index{"c1": 1})
	assert.ErrorIs(t, err, context.Canceled)
	resolver.AssertNotCalled(t, "ResolveByPRMajority", mock.Anything, mock.Anything, mock.Anything)
}

// memoryCache is an in-memory identity cache
type memoryCache map[string]*models.User

func (c memoryCache) Lookup(_ context.Context, email string) (*models.User, error) {
	user, ok := c[email]
	if !ok {
		return nil, apperrors.NewNotFoundError("no row", nil)
	}
	return user, nil
}

func (c memoryCache) Store(_ context.Context, email string, user *models.User) error {
	c[email] = user
	return nil
}

func (c memoryCache) Overwrite(_ context.Context, email string, user models.User) error {
	c[email] = &user
	return nil
}

type fakeDirectory struct {
	searches []string
}

func (d *fakeDirectory) SearchUsers(_ context.Context, query string) ([]models.User, error) {
	d.searches = append(d.searches, query)
	if query == "carol@example.com in:email" {
		return []models.User{"carol"}, nil
	}
	return nil, nil
}

func (d *fakeDirectory) PullRequestAuthor(context.Context, int) (models.User, error) {
	return models.NoUser, apperrors.NewNotFoundError("unused", nil)
}

type noThrottle struct{}

func (noThrottle) Throttle(context.Context, ratelimit.Domain, bool) error { return nil }

func TestWalker_EndToEnd(t *testing.T) {
	tr := newTestRepo(t)
	day := time.Date(2018, 3, 1, 0, 0, 0, 0, time.UTC)
	first := tr.commit("Alice", "12345+alice@users.noreply.github.com", "noreply author", day)
	second := tr.commit("Bob", "bob@example.com", "cached author", day.Add(time.Hour))
	third := tr.commit("Carol", "carol@example.com", "searched author", day.Add(2*time.Hour))

	bob := models.User("bob")
	cache := memoryCache{"bob@example.com": &bob}
	directory := &fakeDirectory{}
	resolver := identity.NewResolver(cache, directory, noThrottle{}, discardLogger())

	index, err := BuildIndex(context.Background(), changeList{{PRID: 7, CommitID: models.SHA1(third.String())}})
	require.NoError(t, err)

	repo := NewRepository(tr.repo, discardLogger())
	log := repo.Log(repo.ResolveBranches([]string{"master"}), []string{"master"}, time.Time{})

	got, stats, err := walk(t, NewWalker(resolver, discardLogger()), log, index)
	require.NoError(t, err)

	assert.ElementsMatch(t, []Attribution{
		{Commit: models.SHA1(first.String()), PR: models.UnknownPR, User: "alice"},
		{Commit: models.SHA1(second.String()), PR: models.UnknownPR, User: "bob"},
		{Commit: models.SHA1(third.String()), PR: 7, User: "carol"},
	}, got)
	assert.Equal(t, []string{"carol@example.com in:email"}, directory.searches)
	assert.Empty(t, stats.Unresolved)
	assert.Equal(t, models.User("carol"), *cache["carol@example.com"])
}
