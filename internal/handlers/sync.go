package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/adpulse/adsync/pkg/syncer"
)

// SyncHandler exposes manual sync triggers and run status
type SyncHandler struct {
	syncer *syncer.Service
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(s *syncer.Service) *SyncHandler {
	return &SyncHandler{syncer: s}
}

// RegisterRoutes registers the sync routes
func (h *SyncHandler) RegisterRoutes(g *echo.Group) {
	sync := g.Group("/sync")
	sync.GET("/status", h.Status)
	sync.POST("/accounts", h.TriggerAccounts)
	sync.POST("/accounts/:id", h.TriggerAccount)
	sync.POST("/insights", h.TriggerInsights)
}

// StatusResponse reports which scheduled jobs are currently running
type StatusResponse struct {
	Jobs map[string]bool `json:"jobs"`
}

// Status handles GET /sync/status
func (h *SyncHandler) Status(c echo.Context) error {
	jobs := map[string]bool{
		syncer.JobAccounts:     h.syncer.IsRunning(syncer.JobAccounts),
		syncer.JobCampaigns:    h.syncer.IsRunning(syncer.JobCampaigns),
		syncer.JobInsights:     h.syncer.IsRunning(syncer.JobInsights),
		syncer.JobCacheCleanup: h.syncer.IsRunning(syncer.JobCacheCleanup),
	}

	return SuccessResponse(c, StatusResponse{Jobs: jobs})
}

// TriggerAccounts handles POST /sync/accounts
func (h *SyncHandler) TriggerAccounts(c echo.Context) error {
	result, err := h.syncer.SyncAllAccounts(c.Request().Context())
	return syncResponse(c, result, err)
}

// TriggerAccount handles POST /sync/accounts/:id. Runs a full structure and
// insight sync for one account.
func (h *SyncHandler) TriggerAccount(c echo.Context) error {
	accountID, err := PathParam(c, "id")
	if err != nil {
		return err
	}

	result, err := h.syncer.SyncAccount(c.Request().Context(), accountID)
	return syncResponse(c, result, err)
}

// TriggerInsights handles POST /sync/insights
func (h *SyncHandler) TriggerInsights(c echo.Context) error {
	result, err := h.syncer.SyncInsights(c.Request().Context())
	return syncResponse(c, result, err)
}

func syncResponse(c echo.Context, result *syncer.Result, err error) error {
	if errors.Is(err, syncer.ErrSyncInProgress) {
		return Conflict("sync already in progress")
	}
	if err != nil {
		return err
	}

	status := http.StatusOK
	if result.Errors > 0 {
		status = http.StatusMultiStatus
	}
	return c.JSON(status, result)
}
