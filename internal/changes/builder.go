package changes

import (
	"github.com/Kamar-Folarin/cpython-stats/internal/github"
	"github.com/Kamar-Folarin/cpython-stats/internal/models"
)

// reviewCommented is the state of a review that carries no verdict
const reviewCommented = "COMMENTED"

// Build turns a fully fetched pull request into a change record
func Build(pr *github.PullRequest) *models.Change {
	change := &models.Change{
		Title:        pr.Title,
		Description:  pr.Body,
		Branch:       models.Branch(pr.BaseRef),
		Contributors: models.NewSet[models.User](),
		Authors:      models.NewSet[models.User](),
		MergedBy:     models.User(pr.MergedBy),
		OpenedAt:     pr.CreatedAt,
		MergedAt:     pr.MergedAt,
		ClosedAt:     pr.ClosedAt,
		UpdatedAt:    pr.UpdatedAt,
		CommitID:     models.NotMerged,
		PRID:         models.PRID(pr.Number),
		Labels:       models.NewSet[models.Label](),
	}

	if pr.MergedAt != nil {
		change.CommitID = models.SHA1(pr.MergeCommitSHA)
	}

	for _, f := range pr.Files {
		change.Files = append(change.Files, models.File{
			Name:      f.Name,
			Additions: f.Additions,
			Deletions: f.Deletions,
			Changes:   f.Changes,
		})
	}

	if pr.Author != "" {
		change.Authors.Add(models.User(pr.Author))
	}
	change.AddContributor(models.User(pr.Author))
	change.AddContributor(models.User(pr.MergedBy))
	for _, c := range pr.Commits {
		change.AddContributor(models.User(c.Author))
		change.AddContributor(models.User(c.Committer))
	}

	// comments from deleted or unlinked accounts have no login and are dropped
	for _, c := range pr.IssueComments {
		if c.Author == "" {
			continue
		}
		change.Comments = append(change.Comments, models.Comment{Author: models.User(c.Author), Text: c.Body})
	}
	for _, r := range pr.Reviews {
		if r.Author == "" {
			continue
		}
		switch {
		case r.Body != "":
			change.Comments = append(change.Comments, models.Comment{Author: models.User(r.Author), Text: r.Body})
		case r.State != reviewCommented:
			change.Comments = append(change.Comments, models.Comment{Author: models.User(r.Author), Text: r.State})
		}
	}
	for _, c := range pr.ReviewComments {
		if c.Author == "" {
			continue
		}
		change.Comments = append(change.Comments, models.Comment{Author: models.User(c.Author), Text: c.Body})
	}

	for _, l := range pr.Labels {
		change.Labels.Add(models.Label(l))
	}

	return change
}

// IsUpToDate reports whether stored already reflects pr. The precise
// updated_at timestamp is compared when both sides have it; otherwise the
// response's Last-Modified header is compared with the stored merge or close time.
func IsUpToDate(stored *models.Change, pr *github.PullRequest) bool {
	if stored == nil {
		return false
	}

	if stored.UpdatedAt != nil && pr.UpdatedAt != nil {
		return stored.UpdatedAt.Equal(*pr.UpdatedAt)
	}

	if pr.LastModified != nil {
		if stored.MergedAt != nil && stored.MergedAt.Equal(*pr.LastModified) {
			return true
		}
		if stored.ClosedAt != nil && stored.ClosedAt.Equal(*pr.LastModified) {
			return true
		}
	}

	return false
}
