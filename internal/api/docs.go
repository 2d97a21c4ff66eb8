package api

import (
	"github.com/Kamar-Folarin/cpython-stats/internal/experts"
	"github.com/Kamar-Folarin/cpython-stats/internal/models"
)

// ErrorResponse represents an API error
// @Description Error response from the API
// @swagger:model ErrorResponse
type ErrorResponse struct {
	// Error message
	// @example change GH-1 not found
	Error string `json:"error" example:"Failed to process request"`
}

// Pagination describes the page of a list response
type Pagination struct {
	Total  int64 `json:"total" example:"25000"`
	Limit  int   `json:"limit" example:"50"`
	Offset int   `json:"offset" example:"0"`
}

// ChangeListResponse represents a paginated list of changes
// @Description A paginated list of pull request records
// @swagger:model ChangeListResponse
type ChangeListResponse struct {
	Data       []*models.StoredChange `json:"data"`
	Pagination Pagination             `json:"pagination"`
}

// IdentityResponse is the cached login of a commit email
// @Description Cached GitHub login of an email address
// @swagger:model IdentityResponse
type IdentityResponse struct {
	// User is null when the email is known not to belong to any account
	models.Identity
	Known bool `json:"known"`
}

// ExpertsResponse lists the top contributors per category
// @swagger:model ExpertsResponse
type ExpertsResponse struct {
	Data  []experts.Entry `json:"data"`
	Count int             `json:"count" example:"420"`
}

// RunListResponse lists the last run of every import pipeline
// @swagger:model RunListResponse
type RunListResponse struct {
	Data []*models.ImportRun `json:"data"`
}
