package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Kamar-Folarin/cpython-stats/internal/db"
	apperrors "github.com/Kamar-Folarin/cpython-stats/internal/errors"
	"github.com/Kamar-Folarin/cpython-stats/internal/experts"
	"github.com/Kamar-Folarin/cpython-stats/internal/models"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

// IdentityReader looks up cached email to login mappings
type IdentityReader interface {
	Lookup(ctx context.Context, email string) (*models.User, error)
}

// ExpertsReporter builds the experts report
type ExpertsReporter interface {
	Report(ctx context.Context) ([]experts.Entry, error)
}

// RunLister lists import pipeline runs
type RunLister interface {
	ListStatuses(ctx context.Context) ([]*models.ImportRun, error)
}

type Handler struct {
	changes    db.ChangeQuerier
	identities IdentityReader
	experts    ExpertsReporter
	runs       RunLister
	logger     *logrus.Logger
}

func NewHandler(changes db.ChangeQuerier, identities IdentityReader, experts ExpertsReporter, runs RunLister, logger *logrus.Logger) *Handler {
	return &Handler{
		changes:    changes,
		identities: identities,
		experts:    experts,
		runs:       runs,
		logger:     logger,
	}
}

// ListChanges godoc
// @Summary List changes
// @Description Get a page of pull request records, newest first
// @Tags changes
// @Produce json
// @Param state query string false "Filter by state" Enums(open, merged, closed)
// @Param limit query int false "Number of changes to return" default(50)
// @Param offset query int false "Number of changes to skip" default(0)
// @Success 200 {object} ChangeListResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /changes [get]
func (h *Handler) ListChanges(c *gin.Context) {
	state := models.ChangeState(c.Query("state"))
	switch state {
	case "", models.StateOpen, models.StateMerged, models.StateClosed:
	default:
		h.respondError(c, apperrors.NewValidationError("state must be open, merged or closed", nil))
		return
	}

	limit, err := intQuery(c, "limit", defaultLimit)
	if err != nil || limit <= 0 || limit > maxLimit {
		h.respondError(c, apperrors.NewValidationError("invalid limit parameter", err))
		return
	}
	offset, err := intQuery(c, "offset", 0)
	if err != nil || offset < 0 {
		h.respondError(c, apperrors.NewValidationError("invalid offset parameter", err))
		return
	}

	changes, total, err := h.changes.ListChanges(c.Request.Context(), db.ChangeFilter{State: state, Limit: limit, Offset: offset})
	if err != nil {
		h.respondError(c, err)
		return
	}
	if changes == nil {
		changes = []*models.StoredChange{}
	}

	c.JSON(http.StatusOK, ChangeListResponse{
		Data:       changes,
		Pagination: Pagination{Total: total, Limit: limit, Offset: offset},
	})
}

// GetChange godoc
// @Summary Get a change
// @Description Get one pull request record by key (GH-123) or number
// @Tags changes
// @Produce json
// @Param id path string true "Change key or pull request number"
// @Success 200 {object} models.StoredChange
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /changes/{id} [get]
func (h *Handler) GetChange(c *gin.Context) {
	id := c.Param("id")
	if !strings.HasPrefix(id, "GH-") {
		id = "GH-" + id
	}
	prID, err := models.ParseChangeKey(id)
	if err != nil {
		h.respondError(c, apperrors.NewValidationError("invalid change id", err))
		return
	}

	change, err := h.changes.GetStoredChange(c.Request.Context(), models.ChangeKey(prID))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, change)
}

// GetIdentity godoc
// @Summary Get the login of an email
// @Description Get the cached GitHub login of a commit email
// @Tags identities
// @Produce json
// @Param email path string true "Email address"
// @Success 200 {object} IdentityResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /identities/{email} [get]
func (h *Handler) GetIdentity(c *gin.Context) {
	email := c.Param("email")
	if !strings.Contains(email, "@") {
		h.respondError(c, apperrors.NewValidationError("not an email address", nil))
		return
	}

	user, err := h.identities.Lookup(c.Request.Context(), email)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, IdentityResponse{
		Identity: models.Identity{Email: email, User: user},
		Known:    user != nil,
	})
}

// GetExperts godoc
// @Summary Get the experts report
// @Description Get the most frequent contributors of every source tree category
// @Tags experts
// @Produce json
// @Success 200 {object} ExpertsResponse
// @Failure 500 {object} ErrorResponse
// @Router /experts [get]
func (h *Handler) GetExperts(c *gin.Context) {
	entries, err := h.experts.Report(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	if entries == nil {
		entries = []experts.Entry{}
	}
	c.JSON(http.StatusOK, ExpertsResponse{Data: entries, Count: len(entries)})
}

// ListRuns godoc
// @Summary List import runs
// @Description Get the last run of every import pipeline
// @Tags runs
// @Produce json
// @Success 200 {object} RunListResponse
// @Failure 500 {object} ErrorResponse
// @Router /runs [get]
func (h *Handler) ListRuns(c *gin.Context) {
	runs, err := h.runs.ListStatuses(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	if runs == nil {
		runs = []*models.ImportRun{}
	}
	c.JSON(http.StatusOK, RunListResponse{Data: runs})
}

func (h *Handler) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case apperrors.IsNotFound(err):
		status = http.StatusNotFound
	case apperrors.IsInvalidInput(err):
		status = http.StatusBadRequest
	}

	message := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.WithError(err).WithField("path", c.FullPath()).Error("Request failed")
		message = "internal server error"
	}
	c.JSON(status, ErrorResponse{Error: message})
}

func intQuery(c *gin.Context, param string, defaultValue int) (int, error) {
	value := c.Query(param)
	if value == "" {
		return defaultValue, nil
	}
	return strconv.Atoi(value)
}
