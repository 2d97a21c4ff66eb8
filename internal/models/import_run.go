package models

import (
	"fmt"
	"time"
)

const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// ImportRun tracks one execution of an ingestion pipeline
type ImportRun struct {
	Pipeline string `json:"pipeline"`
	ProgressTracking
	FinishedAt    *time.Time     `json:"finished_at,omitempty"`
	Processed     int            `json:"processed"`
	Skipped       int            `json:"skipped"`
	Failed        int            `json:"failed"`
	Counters      map[string]int `json:"counters,omitempty"`
	BatchProgress *BatchProgress `json:"batch_progress,omitempty"`
}

// BatchProgress tracks the progress of batch processing
type BatchProgress struct {
	TotalBatches     int       `json:"total_batches"`
	ProcessedBatches int       `json:"processed_batches"`
	TotalItems       int       `json:"total_items"`
	ProcessedItems   int       `json:"processed_items"`
	LastProcessedKey string    `json:"last_processed_key"`
	StartTime        time.Time `json:"start_time"`
	LastUpdateTime   time.Time `json:"last_update_time"`
	Errors           []string  `json:"errors,omitempty"`
}

// Count increments a named counter
func (r *ImportRun) Count(name string, n int) {
	if r.Counters == nil {
		r.Counters = make(map[string]int)
	}
	r.Counters[name] += n
}

// String returns the JSON string representation of the run
func (r *ImportRun) String() string {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Sprintf(`{"error":"failed to marshal import run: %v"}`, err)
	}
	return string(data)
}
