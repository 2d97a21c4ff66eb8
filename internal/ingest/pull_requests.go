package ingest

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Kamar-Folarin/cpython-stats/internal/changes"
	"github.com/Kamar-Folarin/cpython-stats/internal/db"
	apperrors "github.com/Kamar-Folarin/cpython-stats/internal/errors"
	"github.com/Kamar-Folarin/cpython-stats/internal/github"
	"github.com/Kamar-Folarin/cpython-stats/internal/models"
	"github.com/Kamar-Folarin/cpython-stats/internal/progress"
)

// PullRequestImporter copies pull requests into the change store
type PullRequestImporter struct {
	source   github.PullRequestSource
	store    db.ChangeStore
	status   StatusManager
	logger   *logrus.Logger
	progress progress.Reporter
	state    string
}

// Option configures an importer
type Option func(*options)

type options struct {
	progress progress.Reporter
	state    string
	fetch    bool
}

// WithProgress reports each processed item to p
func WithProgress(p progress.Reporter) Option {
	return func(o *options) {
		o.progress = p
	}
}

// WithState limits the pull request listing to open, closed or all
func WithState(state string) Option {
	return func(o *options) {
		if state != "" {
			o.state = state
		}
	}
}

// WithoutFetch walks the local clone without updating it first
func WithoutFetch() Option {
	return func(o *options) {
		o.fetch = false
	}
}

func buildOptions(opts []Option) options {
	o := options{progress: progress.Discard, state: "all", fetch: true}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func NewPullRequestImporter(source github.PullRequestSource, store db.ChangeStore, status StatusManager, logger *logrus.Logger, opts ...Option) *PullRequestImporter {
	o := buildOptions(opts)
	return &PullRequestImporter{
		source:   source,
		store:    store,
		status:   status,
		logger:   logger,
		progress: o.progress,
		state:    o.state,
	}
}

// Run lists every pull request and stores the ones that changed since the
// last import. Pull requests that fail to load are skipped and counted.
func (i *PullRequestImporter) Run(ctx context.Context) (*models.ImportRun, error) {
	rec := startRun(ctx, i.status, i.logger, PipelinePullRequests)

	err := i.source.ListPullRequests(ctx, i.state, func(pr *github.PullRequest) error {
		i.progress.Describe(fmt.Sprintf("#%d %s", pr.Number, pr.Title))
		defer i.progress.Advance(1)
		defer rec.checkpoint(ctx)

		return i.importOne(ctx, rec.run, pr)
	})

	return rec.finish(ctx, err), err
}

func (i *PullRequestImporter) importOne(ctx context.Context, run *models.ImportRun, listed *github.PullRequest) error {
	key := models.ChangeKey(models.PRID(listed.Number))

	stored, err := i.store.GetChange(ctx, key)
	if err != nil && !apperrors.IsNotFound(err) {
		return err
	}
	if stored != nil && listed.UpdatedAt == nil {
		// without updated_at only the Last-Modified header can show freshness
		head, err := i.source.GetPullRequest(ctx, listed.Number)
		if err != nil {
			if isCanceled(err) {
				return err
			}
			i.logger.WithError(err).WithField("pr", listed.Number).Warn("Failed to fetch pull request, skipping")
			run.Failed++
			return nil
		}
		listed = head
	}
	if changes.IsUpToDate(stored, listed) {
		run.Skipped++
		return nil
	}

	pr, err := i.source.FetchPullRequest(ctx, listed.Number)
	if err != nil {
		if isCanceled(err) {
			return err
		}
		i.logger.WithError(err).WithField("pr", listed.Number).Warn("Failed to fetch pull request, skipping")
		run.Failed++
		return nil
	}

	fetched := changes.Build(pr)
	run.Processed++

	if stored == nil {
		run.Count("inserted", 1)
		return i.store.PutChange(ctx, key, fetched)
	}

	if !changes.Reconcile(stored, fetched) {
		run.Count("unchanged", 1)
		return nil
	}
	run.Count("updated", 1)
	return i.store.PutChange(ctx, key, stored)
}
