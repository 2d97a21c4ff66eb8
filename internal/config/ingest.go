package config

import "time"

const dateLayout = "2006-01-02"

// IngestConfig holds the settings of the import pipelines
type IngestConfig struct {
	RepoLocation string   `env:"GIT_REPO_LOCATION" env-default:"cpython"`
	RepoURL      string   `env:"GIT_REPO_URL" env-default:"https://github.com/python/cpython"`
	Branches     []string `env:"GIT_REPO_BRANCHES" env-separator:"," env-default:"main,3.10,3.9,3.8,3.7,3.6,2.7"`
	// CutoffDate is the day CPython moved to pull requests; older commits are not walked.
	CutoffDate        string `env:"COMMIT_CUTOFF" env-default:"2017-02-10"`
	MajorityThreshold int    `env:"MAJORITY_THRESHOLD" env-default:"10"`
	PRState           string `env:"PR_STATE" env-default:"all"`

	Cutoff time.Time `env:"-"`
}

// BatchConfig holds batch processing configuration
type BatchConfig struct {
	Size       int           `env:"EXPORT_BATCH_SIZE" env-default:"500"`
	Workers    int           `env:"EXPORT_WORKERS" env-default:"1"`
	MaxRetries int           `env:"EXPORT_MAX_RETRIES" env-default:"3"`
	BatchDelay time.Duration `env:"EXPORT_BATCH_DELAY" env-default:"0s"`
}

// DefaultIngestConfig returns the default pipeline configuration
func DefaultIngestConfig() *IngestConfig {
	return &IngestConfig{
		RepoLocation:      "cpython",
		RepoURL:           "https://github.com/python/cpython",
		Branches:          []string{"main", "3.10", "3.9", "3.8", "3.7", "3.6", "2.7"},
		CutoffDate:        "2017-02-10",
		Cutoff:            time.Date(2017, 2, 10, 0, 0, 0, 0, time.UTC),
		MajorityThreshold: 10,
		PRState:           "all",
	}
}

// DefaultBatchConfig returns the default export batching
func DefaultBatchConfig() *BatchConfig {
	return &BatchConfig{
		Size:       500,
		Workers:    1,
		MaxRetries: 3,
		BatchDelay: 0,
	}
}
