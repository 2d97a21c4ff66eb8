package models

import "time"

// Timestamps contains the bookkeeping columns of stored rows
type Timestamps struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProgressTracking contains common fields for tracking progress
type ProgressTracking struct {
	StartTime      time.Time `json:"start_time"`
	LastUpdateTime time.Time `json:"last_update_time"`
	Status         string    `json:"status"` // e.g., "running", "completed", "failed"
	Error          string    `json:"error,omitempty"`
}
