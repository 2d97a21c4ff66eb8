package github

import (
	"context"

	"github.com/Kamar-Folarin/cpython-stats/internal/models"
)

// PullRequestSource is the part of the API used by the pull request import
type PullRequestSource interface {
	ListPullRequests(ctx context.Context, state string, fn func(*PullRequest) error) error
	GetPullRequest(ctx context.Context, number int) (*PullRequest, error)
	FetchPullRequest(ctx context.Context, number int) (*PullRequest, error)
}

// UserDirectory is the part of the API used to resolve identities
type UserDirectory interface {
	SearchUsers(ctx context.Context, query string) ([]models.User, error)
	PullRequestAuthor(ctx context.Context, number int) (models.User, error)
}

var (
	_ PullRequestSource = (*Client)(nil)
	_ UserDirectory     = (*Client)(nil)
)
