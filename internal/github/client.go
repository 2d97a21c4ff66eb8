package github

import (
	"context"
	stderrors "errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	gogithub "github.com/google/go-github/v57/github"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"github.com/Kamar-Folarin/cpython-stats/internal/config"
	"github.com/Kamar-Folarin/cpython-stats/internal/models"
	"github.com/Kamar-Folarin/cpython-stats/internal/ratelimit"
)

const defaultPerPage = 100

// Client talks to the GitHub REST API for a single repository
type Client struct {
	gh        *gogithub.Client
	owner     string
	repo      string
	logger    *logrus.Logger
	throttler ratelimit.Throttler
	perPage   int

	httpClient *http.Client
	baseURL    string

	maxRetries     int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	sleep          func(ctx context.Context, d time.Duration) error
}

// ClientOption allows configuring the GitHub client
type ClientOption func(*Client)

// WithRetryConfig configures retry behavior for transient failures
func WithRetryConfig(maxRetries int, initialBackoff, maxBackoff time.Duration) ClientOption {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.initialBackoff = initialBackoff
		c.maxBackoff = maxBackoff
	}
}

// WithHTTPClient replaces the authenticated HTTP client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBaseURL points the client at another API root, e.g. GitHub Enterprise
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithThrottler sets the limiter consulted before every page request
func WithThrottler(t ratelimit.Throttler) ClientOption {
	return func(c *Client) {
		c.throttler = t
	}
}

// WithPerPage sets the page size of list requests
func WithPerPage(n int) ClientOption {
	return func(c *Client) {
		c.perPage = n
	}
}

// NewClient creates a new GitHub client for cfg.Owner/cfg.Name
func NewClient(cfg *config.GitHubConfig, logger *logrus.Logger, opts ...ClientOption) (*Client, error) {
	c := &Client{
		owner:          cfg.Owner,
		repo:           cfg.Name,
		logger:         logger,
		perPage:        defaultPerPage,
		baseURL:        cfg.APIBaseURL,
		maxRetries:     3,
		initialBackoff: time.Second,
		maxBackoff:     time.Minute,
		sleep:          sleepContext,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		ts := oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: cfg.Token},
		)
		c.httpClient = oauth2.NewClient(context.Background(), ts)
		c.httpClient.Timeout = cfg.Timeout
	}

	c.gh = gogithub.NewClient(c.httpClient)
	if c.baseURL != "" {
		if !strings.HasSuffix(c.baseURL, "/") {
			c.baseURL += "/"
		}
		u, err := url.Parse(c.baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub API URL %q: %w", c.baseURL, err)
		}
		c.gh.BaseURL = u
	}

	return c, nil
}

// SetThrottler sets the limiter after construction; the limiter itself reads
// quotas through this client.
func (c *Client) SetThrottler(t ratelimit.Throttler) {
	c.throttler = t
}

// RateLimits returns the live quota of every domain GitHub reports
func (c *Client) RateLimits(ctx context.Context) (map[ratelimit.Domain]ratelimit.Rate, error) {
	limits, _, err := c.gh.RateLimit.Get(ctx)
	if err != nil {
		return nil, classify(err, "read rate limits")
	}

	rates := make(map[ratelimit.Domain]ratelimit.Rate)
	add := func(domain ratelimit.Domain, r *gogithub.Rate) {
		if r == nil {
			return
		}
		rates[domain] = ratelimit.Rate{
			Remaining: r.Remaining,
			Limit:     r.Limit,
			Reset:     r.Reset.Time,
		}
	}
	add(ratelimit.Core, limits.GetCore())
	add(ratelimit.Search, limits.GetSearch())
	add(ratelimit.GraphQL, limits.GetGraphQL())
	return rates, nil
}

// SearchUsers returns the logins matching a user search query
func (c *Client) SearchUsers(ctx context.Context, query string) ([]models.User, error) {
	opts := &gogithub.SearchOptions{ListOptions: gogithub.ListOptions{PerPage: c.perPage}}

	var users []models.User
	for page := 0; ; page++ {
		if page > 0 {
			if err := c.throttle(ctx); err != nil {
				return nil, err
			}
		}

		var result *gogithub.UsersSearchResult
		var resp *gogithub.Response
		err := c.withRetry(ctx, "search users", func() error {
			var err error
			result, resp, err = c.gh.Search.Users(ctx, query, opts)
			return err
		})
		if err != nil {
			return nil, classify(err, fmt.Sprintf("search users %q", query))
		}

		for _, u := range result.Users {
			users = append(users, models.User(u.GetLogin()))
		}
		if resp.NextPage == 0 {
			return users, nil
		}
		opts.Page = resp.NextPage
	}
}

// ListPullRequests pages through the repository's pull requests in the given
// state and calls fn with each summary. Summaries carry no files, commits,
// comments or reviews.
func (c *Client) ListPullRequests(ctx context.Context, state string, fn func(*PullRequest) error) error {
	opts := &gogithub.PullRequestListOptions{
		State:       state,
		Sort:        "created",
		Direction:   "asc",
		ListOptions: gogithub.ListOptions{PerPage: c.perPage},
	}

	for {
		if err := c.throttle(ctx); err != nil {
			return err
		}

		var prs []*gogithub.PullRequest
		var resp *gogithub.Response
		err := c.withRetry(ctx, "list pull requests", func() error {
			var err error
			prs, resp, err = c.gh.PullRequests.List(ctx, c.owner, c.repo, opts)
			return err
		})
		if err != nil {
			return classify(err, fmt.Sprintf("list pull requests (page %d)", opts.Page))
		}

		for _, pr := range prs {
			if err := fn(convertPullRequest(pr)); err != nil {
				return err
			}
		}

		if resp.NextPage == 0 {
			return nil
		}
		opts.Page = resp.NextPage
	}
}

// GetPullRequest loads a single pull request summary together with the
// response's Last-Modified time.
func (c *Client) GetPullRequest(ctx context.Context, number int) (*PullRequest, error) {
	if err := c.throttle(ctx); err != nil {
		return nil, err
	}

	var pr *gogithub.PullRequest
	var resp *gogithub.Response
	err := c.withRetry(ctx, "get pull request", func() error {
		var err error
		pr, resp, err = c.gh.PullRequests.Get(ctx, c.owner, c.repo, number)
		return err
	})
	if err != nil {
		return nil, classify(err, fmt.Sprintf("get pull request #%d", number))
	}

	out := convertPullRequest(pr)
	out.LastModified = lastModified(resp)
	return out, nil
}

// FetchPullRequest loads a pull request with its files, commits, comments,
// reviews and review comments.
func (c *Client) FetchPullRequest(ctx context.Context, number int) (*PullRequest, error) {
	out, err := c.GetPullRequest(ctx, number)
	if err != nil {
		return nil, err
	}

	files, err := collect(ctx, c, func(opts *gogithub.ListOptions) ([]*gogithub.CommitFile, *gogithub.Response, error) {
		return c.gh.PullRequests.ListFiles(ctx, c.owner, c.repo, number, opts)
	})
	if err != nil {
		return nil, fetchError(number, "files", err)
	}
	for _, f := range files {
		out.Files = append(out.Files, PullRequestFile{
			Name:      f.GetFilename(),
			Additions: f.GetAdditions(),
			Deletions: f.GetDeletions(),
			Changes:   f.GetChanges(),
		})
	}

	commits, err := collect(ctx, c, func(opts *gogithub.ListOptions) ([]*gogithub.RepositoryCommit, *gogithub.Response, error) {
		return c.gh.PullRequests.ListCommits(ctx, c.owner, c.repo, number, opts)
	})
	if err != nil {
		return nil, fetchError(number, "commits", err)
	}
	for _, rc := range commits {
		out.Commits = append(out.Commits, PullRequestCommit{
			SHA:       rc.GetSHA(),
			Author:    rc.GetAuthor().GetLogin(),
			Committer: rc.GetCommitter().GetLogin(),
		})
	}

	issueComments, err := collect(ctx, c, func(opts *gogithub.ListOptions) ([]*gogithub.IssueComment, *gogithub.Response, error) {
		return c.gh.Issues.ListComments(ctx, c.owner, c.repo, number, &gogithub.IssueListCommentsOptions{ListOptions: *opts})
	})
	if err != nil {
		return nil, fetchError(number, "issue comments", err)
	}
	for _, ic := range issueComments {
		out.IssueComments = append(out.IssueComments, Comment{Author: ic.GetUser().GetLogin(), Body: ic.GetBody()})
	}

	reviews, err := collect(ctx, c, func(opts *gogithub.ListOptions) ([]*gogithub.PullRequestReview, *gogithub.Response, error) {
		return c.gh.PullRequests.ListReviews(ctx, c.owner, c.repo, number, opts)
	})
	if err != nil {
		return nil, fetchError(number, "reviews", err)
	}
	for _, r := range reviews {
		out.Reviews = append(out.Reviews, Review{Author: r.GetUser().GetLogin(), Body: r.GetBody(), State: r.GetState()})
	}

	reviewComments, err := collect(ctx, c, func(opts *gogithub.ListOptions) ([]*gogithub.PullRequestComment, *gogithub.Response, error) {
		return c.gh.PullRequests.ListComments(ctx, c.owner, c.repo, number, &gogithub.PullRequestListCommentsOptions{ListOptions: *opts})
	})
	if err != nil {
		return nil, fetchError(number, "review comments", err)
	}
	for _, rc := range reviewComments {
		out.ReviewComments = append(out.ReviewComments, Comment{Author: rc.GetUser().GetLogin(), Body: rc.GetBody()})
	}

	return out, nil
}

// PullRequestAuthor returns the login of the user who opened the pull request
func (c *Client) PullRequestAuthor(ctx context.Context, number int) (models.User, error) {
	var pr *gogithub.PullRequest
	err := c.withRetry(ctx, "get pull request", func() error {
		var err error
		pr, _, err = c.gh.PullRequests.Get(ctx, c.owner, c.repo, number)
		return err
	})
	if err != nil {
		return models.NoUser, classify(err, fmt.Sprintf("get pull request #%d", number))
	}
	return models.User(pr.GetUser().GetLogin()), nil
}

func (c *Client) throttle(ctx context.Context) error {
	if c.throttler == nil {
		return nil
	}
	return c.throttler.Throttle(ctx, ratelimit.Core, false)
}

// collect pages through a list endpoint, throttling before every page
func collect[T any](ctx context.Context, c *Client, fetch func(opts *gogithub.ListOptions) ([]T, *gogithub.Response, error)) ([]T, error) {
	opts := &gogithub.ListOptions{PerPage: c.perPage}

	var all []T
	for {
		if err := c.throttle(ctx); err != nil {
			return nil, err
		}

		var items []T
		var resp *gogithub.Response
		err := c.withRetry(ctx, "list page", func() error {
			var err error
			items, resp, err = fetch(opts)
			return err
		})
		if err != nil {
			return nil, err
		}

		all = append(all, items...)
		if resp == nil || resp.NextPage == 0 {
			return all, nil
		}
		opts.Page = resp.NextPage
	}
}

// withRetry retries fn with exponential backoff while it fails with a
// server error or a network error, and waits out rate limit responses.
func (c *Client) withRetry(ctx context.Context, op string, fn func() error) error {
	backoff := c.initialBackoff

	var err error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		err = fn()
		if err == nil || !retryable(err) || attempt == c.maxRetries {
			return err
		}

		wait := backoff
		var rle *gogithub.RateLimitError
		var abuse *gogithub.AbuseRateLimitError
		switch {
		case stderrors.As(err, &rle):
			wait = time.Until(rle.Rate.Reset.Time)
		case stderrors.As(err, &abuse) && abuse.RetryAfter != nil:
			wait = *abuse.RetryAfter
		default:
			backoff = time.Duration(math.Min(float64(backoff*2), float64(c.maxBackoff)))
		}

		c.logger.WithFields(logrus.Fields{
			"operation": op,
			"attempt":   attempt + 1,
			"wait":      wait.String(),
		}).WithError(err).Warn("GitHub request failed, retrying")

		if err := c.sleep(ctx, wait); err != nil {
			return err
		}
	}
	return err
}

func lastModified(resp *gogithub.Response) *time.Time {
	if resp == nil || resp.Response == nil {
		return nil
	}
	value := resp.Header.Get("Last-Modified")
	if value == "" {
		return nil
	}
	t, err := http.ParseTime(value)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
