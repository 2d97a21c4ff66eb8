package export

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Kamar-Folarin/cpython-stats/internal/batch"
	"github.com/Kamar-Folarin/cpython-stats/internal/config"
	"github.com/Kamar-Folarin/cpython-stats/internal/db"
	"github.com/Kamar-Folarin/cpython-stats/internal/models"
)

// ChangeIterator is the part of the change store the export reads
type ChangeIterator interface {
	ForEachChange(ctx context.Context, fn func(key string, change *models.Change) error) error
}

// Exporter flattens the change store into the export tables
type Exporter struct {
	source    ChangeIterator
	sink      db.ExportStore
	processor *batch.Processor[*db.ExportRecord]
	coreDevs  models.Set[models.User]
	logger    *logrus.Logger
}

func NewExporter(source ChangeIterator, sink db.ExportStore, cfg *config.BatchConfig, coreDevs models.Set[models.User], logger *logrus.Logger) *Exporter {
	return &Exporter{
		source: source,
		sink:   sink,
		processor: batch.NewProcessor(cfg, func(r *db.ExportRecord) string {
			return r.ID
		}),
		coreDevs: coreDevs,
		logger:   logger,
	}
}

// Progress reports the latest batch progress of a running export
func (e *Exporter) Progress() <-chan models.BatchProgress {
	return e.processor.GetProgress()
}

// Run replaces the contents of the export tables with the current store
func (e *Exporter) Run(ctx context.Context) (models.BatchProgress, error) {
	var records []*db.ExportRecord
	err := e.source.ForEachChange(ctx, func(key string, change *models.Change) error {
		if _, err := models.ParseChangeKey(key); err != nil || change.PRID == models.UnknownPR {
			e.logger.WithField("key", key).Warn("Skipping change without a pull request")
			return nil
		}
		records = append(records, Record(key, change, e.coreDevs))
		return nil
	})
	if err != nil {
		return models.BatchProgress{}, fmt.Errorf("failed to read changes: %w", err)
	}

	if err := e.sink.ResetExport(ctx); err != nil {
		return models.BatchProgress{}, err
	}

	progress, err := e.processor.ProcessItems(ctx, records, func(ctx context.Context, batch []*db.ExportRecord) error {
		return e.sink.WriteExport(ctx, batch)
	})

	entry := e.logger.WithFields(logrus.Fields{
		"changes": progress.ProcessedItems,
		"batches": progress.ProcessedBatches,
	})
	if err != nil {
		entry.WithError(err).Error("Export failed")
		return progress, err
	}
	entry.Info("Export completed")
	return progress, nil
}

// Record flattens one change
func Record(key string, change *models.Change, coreDevs models.Set[models.User]) *db.ExportRecord {
	r := &db.ExportRecord{
		ID:          key,
		PRID:        int(change.PRID),
		Branch:      string(change.Branch),
		Title:       change.Title,
		Description: change.Description,
		State:       string(change.State()),
		CommitID:    string(change.CommitID),
		OpenedAt:    change.OpenedAt,
		MergedAt:    change.MergedAt,
		ClosedAt:    change.ClosedAt,
		UpdatedAt:   change.UpdatedAt,
		Files:       change.Files,
		Comments:    change.Comments,
	}

	people := models.NewSet[models.User]()
	for user := range change.Contributors {
		people.Add(user)
	}
	for user := range change.Authors {
		people.Add(user)
	}
	if change.MergedBy != models.NoUser {
		people.Add(change.MergedBy)
	}

	for _, user := range people.Sorted() {
		r.Contributors = append(r.Contributors, db.ExportContributor{
			Name:       string(user),
			IsPRAuthor: change.Authors.Has(user),
			DidMergePR: user == change.MergedBy,
			IsCoreDev:  coreDevs.Has(user),
		})
	}

	for _, label := range change.Labels.Sorted() {
		r.Labels = append(r.Labels, string(label))
	}
	return r
}
