package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Kamar-Folarin/cpython-stats/internal/db"
	apperrors "github.com/Kamar-Folarin/cpython-stats/internal/errors"
	"github.com/Kamar-Folarin/cpython-stats/internal/gitwalk"
	"github.com/Kamar-Folarin/cpython-stats/internal/models"
)

// CommitGraph is the local clone the commit import walks
type CommitGraph interface {
	Fetch(ctx context.Context) error
	Commits(branches []string, since time.Time) gitwalk.CommitSource
}

// CommitWalker attributes commits to users
type CommitWalker interface {
	Walk(ctx context.Context, commits gitwalk.CommitSource, index gitwalk.Index, emit func(gitwalk.Attribution) error) (*gitwalk.Stats, error)
}

// CommitImporter credits commit authors as contributors of the pull
// request their commit was merged through
type CommitImporter struct {
	graph    CommitGraph
	store    db.ChangeStore
	walker   CommitWalker
	status   StatusManager
	logger   *logrus.Logger
	branches []string
	since    time.Time
	fetch    bool
}

func NewCommitImporter(graph CommitGraph, store db.ChangeStore, walker CommitWalker, status StatusManager, logger *logrus.Logger, branches []string, since time.Time, opts ...Option) *CommitImporter {
	o := buildOptions(opts)
	return &CommitImporter{
		graph:    graph,
		store:    store,
		walker:   walker,
		status:   status,
		logger:   logger,
		branches: branches,
		since:    since,
		fetch:    o.fetch,
	}
}

// Run walks the configured branches and adds every attributed user to the
// contributors of the matching change
func (i *CommitImporter) Run(ctx context.Context) (*models.ImportRun, error) {
	rec := startRun(ctx, i.status, i.logger, PipelineCommits)
	err := i.run(ctx, rec)
	return rec.finish(ctx, err), err
}

func (i *CommitImporter) run(ctx context.Context, rec *runRecorder) error {
	run := rec.run

	if i.fetch {
		if err := i.graph.Fetch(ctx); err != nil {
			return err
		}
	}

	index, err := gitwalk.BuildIndex(ctx, i.store)
	if err != nil {
		return err
	}
	i.logger.WithField("merged_pulls", len(index)).Info("Indexed merge commits")

	unknown := make(map[models.PRID]struct{})

	stats, err := i.walker.Walk(ctx, i.graph.Commits(i.branches, i.since), index, func(a gitwalk.Attribution) error {
		defer rec.checkpoint(ctx)

		if a.PR == models.UnknownPR {
			run.Skipped++
			run.Count("without_pull_request", 1)
			return nil
		}

		key := models.ChangeKey(a.PR)
		change, err := i.store.GetChange(ctx, key)
		if apperrors.IsNotFound(err) {
			if _, ok := unknown[a.PR]; !ok {
				unknown[a.PR] = struct{}{}
				i.logger.WithFields(logrus.Fields{"pr": a.PR, "commit": a.Commit}).Warn("Commit references an unknown pull request")
			}
			run.Skipped++
			run.Count("unknown_pull_request", 1)
			return nil
		}
		if err != nil {
			return err
		}

		run.Processed++
		if !change.AddContributor(a.User) {
			return nil
		}
		run.Count("contributors_added", 1)
		if err := i.store.PutChange(ctx, key, change); err != nil {
			return fmt.Errorf("failed to store contributors of %s: %w", key, err)
		}
		return nil
	})

	if stats != nil {
		run.Count("commits", stats.Commits)
		run.Count("attributions", stats.Attributions)
		run.Count("resolved_by_majority", stats.ResolvedByMajority)
		run.Count("unresolved_emails", len(stats.Unresolved))
		run.Count("ambiguous_emails", len(stats.Ambiguous))
		run.Count("invalid_emails", len(stats.Invalid))
	}
	return err
}
