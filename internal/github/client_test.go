package github

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kamar-Folarin/cpython-stats/internal/config"
	apperrors "github.com/Kamar-Folarin/cpython-stats/internal/errors"
	"github.com/Kamar-Folarin/cpython-stats/internal/models"
	"github.com/Kamar-Folarin/cpython-stats/internal/ratelimit"
)

const (
	testToken = "test-token"
	prPath    = "/repos/python/cpython/pulls/42"
)

type countingThrottler struct {
	calls []ratelimit.Domain
}

func (t *countingThrottler) Throttle(_ context.Context, domain ratelimit.Domain, _ bool) error {
	t.calls = append(t.calls, domain)
	return nil
}

func setupTestClient(t *testing.T, handler http.Handler, opts ...ClientOption) (*Client, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	cfg := config.DefaultGitHubConfig()
	cfg.Token = testToken
	cfg.APIBaseURL = server.URL

	opts = append([]ClientOption{WithRetryConfig(2, time.Millisecond, time.Millisecond)}, opts...)
	client, err := NewClient(cfg, logger, opts...)
	require.NoError(t, err)
	client.sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }
	return client, server
}

func TestClient_RateLimits(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/rate_limit", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer "+testToken, r.Header.Get("Authorization"))
		fmt.Fprint(w, `{"resources": {
			"core": {"limit": 5000, "remaining": 4999, "reset": 1622548800},
			"search": {"limit": 30, "remaining": 18, "reset": 1622548860}
		}}`)
	})
	client, _ := setupTestClient(t, mux)

	rates, err := client.RateLimits(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4999, rates[ratelimit.Core].Remaining)
	assert.Equal(t, 5000, rates[ratelimit.Core].Limit)
	assert.True(t, rates[ratelimit.Core].Reset.Equal(time.Unix(1622548800, 0)))
	assert.Equal(t, 18, rates[ratelimit.Search].Remaining)
	assert.True(t, rates[ratelimit.Search].Reset.Equal(time.Unix(1622548860, 0)))
	_, ok := rates[ratelimit.GraphQL]
	assert.False(t, ok)
}

func TestClient_SearchUsers(t *testing.T) {
	var serverURL string
	throttler := &countingThrottler{}

	mux := http.NewServeMux()
	mux.HandleFunc("/search/users", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "alice@example.com in:email", r.URL.Query().Get("q"))
		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, `{"total_count": 2, "incomplete_results": false, "items": [{"login": "alice2"}]}`)
			return
		}
		w.Header().Set("Link", fmt.Sprintf(`<%s/search/users?q=x&page=2>; rel="next"`, serverURL))
		fmt.Fprint(w, `{"total_count": 2, "incomplete_results": false, "items": [{"login": "alice"}]}`)
	})
	client, server := setupTestClient(t, mux, WithThrottler(throttler))
	serverURL = server.URL

	users, err := client.SearchUsers(context.Background(), "alice@example.com in:email")
	require.NoError(t, err)
	assert.Equal(t, []models.User{"alice", "alice2"}, users)
	// only the follow-up page is throttled here
	assert.Equal(t, []ratelimit.Domain{ratelimit.Core}, throttler.calls)
}

func TestClient_FetchPullRequest(t *testing.T) {
	var serverURL string
	filePages := 0

	mux := http.NewServeMux()
	mux.HandleFunc(prPath, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Last-Modified", "Tue, 04 May 2021 10:00:00 GMT")
		fmt.Fprint(w, `{
			"number": 42,
			"title": "bpo-43000: Fix the thing",
			"body": "Details.",
			"user": {"login": "alice"},
			"merged_by": {"login": "ambv"},
			"base": {"ref": "main"},
			"merge_commit_sha": "0123456789abcdef0123456789abcdef01234567",
			"labels": [{"name": "type-bug"}, {"name": "needs backport to 3.9"}],
			"created_at": "2021-05-01T10:00:00Z",
			"merged_at": "2021-05-03T10:00:00Z",
			"closed_at": "2021-05-03T10:00:00Z",
			"updated_at": "2021-05-04T10:00:00Z"
		}`)
	})
	mux.HandleFunc(prPath+"/files", func(w http.ResponseWriter, r *http.Request) {
		filePages++
		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, `[{"filename": "Misc/NEWS.d/next/Library/2021-05-01.bpo-43000.rst", "additions": 1, "deletions": 0, "changes": 1}]`)
			return
		}
		w.Header().Set("Link", fmt.Sprintf(`<%s%s/files?page=2>; rel="next"`, serverURL, prPath))
		fmt.Fprint(w, `[{"filename": "Lib/asyncio/tasks.py", "additions": 3, "deletions": 1, "changes": 4}]`)
	})
	mux.HandleFunc(prPath+"/commits", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"sha": "c1", "author": {"login": "alice"}, "committer": {"login": "web-flow"}},
			{"sha": "c2", "author": null, "committer": null}
		]`)
	})
	mux.HandleFunc("/repos/python/cpython/issues/42/comments", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"user": {"login": "bob"}, "body": "LGTM"}]`)
	})
	mux.HandleFunc(prPath+"/reviews", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"user": {"login": "ambv"}, "body": "", "state": "APPROVED"}]`)
	})
	mux.HandleFunc(prPath+"/comments", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"user": {"login": "bob"}, "body": "nit: typo"}]`)
	})

	throttler := &countingThrottler{}
	client, server := setupTestClient(t, mux, WithThrottler(throttler))
	serverURL = server.URL

	pr, err := client.FetchPullRequest(context.Background(), 42)
	require.NoError(t, err)

	assert.Equal(t, 42, pr.Number)
	assert.Equal(t, "bpo-43000: Fix the thing", pr.Title)
	assert.Equal(t, "main", pr.BaseRef)
	assert.Equal(t, "alice", pr.Author)
	assert.Equal(t, "ambv", pr.MergedBy)
	assert.Equal(t, []string{"type-bug", "needs backport to 3.9"}, pr.Labels)
	require.NotNil(t, pr.MergedAt)
	assert.Equal(t, time.Date(2021, 5, 3, 10, 0, 0, 0, time.UTC), *pr.MergedAt)
	require.NotNil(t, pr.LastModified)
	assert.Equal(t, time.Date(2021, 5, 4, 10, 0, 0, 0, time.UTC), *pr.LastModified)

	assert.Equal(t, 2, filePages)
	require.Len(t, pr.Files, 2)
	assert.Equal(t, PullRequestFile{Name: "Lib/asyncio/tasks.py", Additions: 3, Deletions: 1, Changes: 4}, pr.Files[0])
	assert.Equal(t, []PullRequestCommit{
		{SHA: "c1", Author: "alice", Committer: "web-flow"},
		{SHA: "c2"},
	}, pr.Commits)
	assert.Equal(t, []Comment{{Author: "bob", Body: "LGTM"}}, pr.IssueComments)
	assert.Equal(t, []Review{{Author: "ambv", State: "APPROVED"}}, pr.Reviews)
	assert.Equal(t, []Comment{{Author: "bob", Body: "nit: typo"}}, pr.ReviewComments)

	// the pull request itself plus six list pages
	assert.Len(t, throttler.calls, 7)
}

func TestClient_GetPullRequest(t *testing.T) {
	requests := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		requests++
		assert.Equal(t, prPath, r.URL.Path)
		w.Header().Set("Last-Modified", "Mon, 03 May 2021 10:00:00 GMT")
		fmt.Fprint(w, `{"number": 42, "title": "summary only", "closed_at": "2021-05-03T10:00:00Z"}`)
	})

	client, _ := setupTestClient(t, mux)

	pr, err := client.GetPullRequest(context.Background(), 42)
	require.NoError(t, err)

	assert.Equal(t, 1, requests)
	assert.Equal(t, "summary only", pr.Title)
	assert.Nil(t, pr.UpdatedAt)
	require.NotNil(t, pr.LastModified)
	assert.Equal(t, time.Date(2021, 5, 3, 10, 0, 0, 0, time.UTC), *pr.LastModified)
	assert.Empty(t, pr.Files)
}

func TestClient_Errors(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc(prPath, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"message": "Not Found"}`)
		})
		client, _ := setupTestClient(t, mux)

		_, err := client.FetchPullRequest(context.Background(), 42)
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("server errors are retried", func(t *testing.T) {
		attempts := 0
		mux := http.NewServeMux()
		mux.HandleFunc(prPath, func(w http.ResponseWriter, r *http.Request) {
			attempts++
			if attempts < 3 {
				w.WriteHeader(http.StatusBadGateway)
				fmt.Fprint(w, `{"message": "Server Error"}`)
				return
			}
			fmt.Fprint(w, `{"number": 42, "user": {"login": "alice"}}`)
		})
		client, _ := setupTestClient(t, mux)

		author, err := client.PullRequestAuthor(context.Background(), 42)
		require.NoError(t, err)
		assert.Equal(t, models.User("alice"), author)
		assert.Equal(t, 3, attempts)
	})

	t.Run("client errors are not retried", func(t *testing.T) {
		attempts := 0
		mux := http.NewServeMux()
		mux.HandleFunc("/search/users", func(w http.ResponseWriter, r *http.Request) {
			attempts++
			w.WriteHeader(http.StatusUnprocessableEntity)
			fmt.Fprint(w, `{"message": "Validation Failed"}`)
		})
		client, _ := setupTestClient(t, mux)

		_, err := client.SearchUsers(context.Background(), "bad in:email")
		assert.True(t, apperrors.IsFetchFailure(err))
		assert.Equal(t, 1, attempts)

		var ghErr *GitHubError
		require.ErrorAs(t, err, &ghErr)
		assert.Equal(t, http.StatusUnprocessableEntity, ghErr.StatusCode)
	})

	t.Run("persistent server errors are transient", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc(prPath, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprint(w, `{"message": "Unavailable"}`)
		})
		client, _ := setupTestClient(t, mux)

		_, err := client.PullRequestAuthor(context.Background(), 42)
		assert.True(t, apperrors.IsTransient(err))
	})
}

func TestClient_ListPullRequests(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/python/cpython/pulls", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "all", r.URL.Query().Get("state"))
		fmt.Fprint(w, `[
			{"number": 1, "title": "first", "updated_at": "2021-01-01T00:00:00Z"},
			{"number": 2, "title": "second"}
		]`)
	})
	client, _ := setupTestClient(t, mux)

	var numbers []int
	err := client.ListPullRequests(context.Background(), "all", func(pr *PullRequest) error {
		numbers = append(numbers, pr.Number)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, numbers)
}
