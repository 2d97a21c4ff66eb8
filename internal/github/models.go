package github

import (
	"time"

	gogithub "github.com/google/go-github/v57/github"
)

// PullRequest is a pull request as returned by the API, flattened to the
// fields the importers use. Logins are empty when GitHub could not link the
// identity to an account.
type PullRequest struct {
	Number         int
	Title          string
	Body           string
	BaseRef        string
	Author         string
	MergedBy       string
	MergeCommitSHA string
	Labels         []string

	Files          []PullRequestFile
	Commits        []PullRequestCommit
	IssueComments  []Comment
	Reviews        []Review
	ReviewComments []Comment

	CreatedAt *time.Time
	MergedAt  *time.Time
	ClosedAt  *time.Time
	UpdatedAt *time.Time
	// LastModified is the coarse Last-Modified header of the response.
	LastModified *time.Time
}

type PullRequestFile struct {
	Name      string
	Additions int
	Deletions int
	Changes   int
}

type PullRequestCommit struct {
	SHA       string
	Author    string
	Committer string
}

type Comment struct {
	Author string
	Body   string
}

type Review struct {
	Author string
	Body   string
	State  string
}

func convertPullRequest(pr *gogithub.PullRequest) *PullRequest {
	out := &PullRequest{
		Number:         pr.GetNumber(),
		Title:          pr.GetTitle(),
		Body:           pr.GetBody(),
		BaseRef:        pr.GetBase().GetRef(),
		Author:         pr.GetUser().GetLogin(),
		MergedBy:       pr.GetMergedBy().GetLogin(),
		MergeCommitSHA: pr.GetMergeCommitSHA(),
		CreatedAt:      timePtr(pr.CreatedAt),
		MergedAt:       timePtr(pr.MergedAt),
		ClosedAt:       timePtr(pr.ClosedAt),
		UpdatedAt:      timePtr(pr.UpdatedAt),
	}
	for _, l := range pr.Labels {
		out.Labels = append(out.Labels, l.GetName())
	}
	return out
}

func timePtr(ts *gogithub.Timestamp) *time.Time {
	if ts == nil || ts.IsZero() {
		return nil
	}
	t := ts.Time.UTC()
	return &t
}
