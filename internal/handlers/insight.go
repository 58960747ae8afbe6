package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/labstack/echo/v4"

	"github.com/adpulse/adsync/pkg/cache"
	"github.com/adpulse/adsync/pkg/insights"
	"github.com/adpulse/adsync/pkg/models"
	"github.com/adpulse/adsync/pkg/repositories"
)

const (
	defaultInsightLimit = 100
	maxInsightLimit     = 1000
)

// InsightHandler handles daily insight API requests
type InsightHandler struct {
	insights repositories.InsightRepo
	cache    *cache.Cache
}

// NewInsightHandler creates a new insight handler
func NewInsightHandler(repo repositories.InsightRepo, c *cache.Cache) *InsightHandler {
	return &InsightHandler{
		insights: repo,
		cache:    c,
	}
}

// RegisterRoutes registers the insight routes
func (h *InsightHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/accounts/:id/insights", h.List)
	g.GET("/accounts/:id/insights/summary", h.Summary)
}

// SummaryResponse aggregates conversion metrics over a date range
type SummaryResponse struct {
	AccountID     string  `json:"account_id"`
	Rows          int     `json:"rows"`
	Spend         float64 `json:"spend"`
	Impressions   int64   `json:"impressions"`
	Clicks        int64   `json:"clicks"`
	Purchases     float64 `json:"purchases"`
	PurchaseValue float64 `json:"purchase_value"`
	Leads         float64 `json:"leads"`
	ROAS          float64 `json:"roas"`
}

// List handles GET /accounts/:id/insights
func (h *InsightHandler) List(c echo.Context) error {
	ctx := c.Request().Context()

	accountID, err := PathParam(c, "id")
	if err != nil {
		return err
	}

	filter, err := parseInsightFilter(c, accountID)
	if err != nil {
		return err
	}

	key := insightCacheKey(accountID, filter, "list")

	var cached []models.DailyInsight
	if h.cache.GetJSON(ctx, key, &cached) {
		return SuccessResponse(c, cached)
	}

	rows, err := h.insights.List(ctx, filter)
	if err != nil {
		return err
	}

	h.cache.SetJSON(ctx, key, rows, cache.InsightsTTL)

	return SuccessResponse(c, rows)
}

// Summary handles GET /accounts/:id/insights/summary
func (h *InsightHandler) Summary(c echo.Context) error {
	ctx := c.Request().Context()

	accountID, err := PathParam(c, "id")
	if err != nil {
		return err
	}

	filter, err := parseInsightFilter(c, accountID)
	if err != nil {
		return err
	}
	filter.Limit = 0
	filter.Offset = 0

	key := insightCacheKey(accountID, filter, "summary")

	var cached SummaryResponse
	if h.cache.GetJSON(ctx, key, &cached) {
		return SuccessResponse(c, cached)
	}

	rows, err := h.insights.List(ctx, filter)
	if err != nil {
		return err
	}

	summary := SummaryResponse{AccountID: accountID, Rows: len(rows)}
	for i := range rows {
		conv := insights.Summarize(&rows[i])
		summary.Spend += rows[i].Spend
		summary.Impressions += rows[i].Impressions
		summary.Clicks += rows[i].Clicks
		summary.Purchases += conv.Purchases
		summary.PurchaseValue += conv.PurchaseValue
		summary.Leads += conv.Leads
	}
	if summary.Spend > 0 {
		summary.ROAS = summary.PurchaseValue / summary.Spend
	}

	h.cache.SetJSON(ctx, key, summary, cache.InsightsTTL)

	return SuccessResponse(c, summary)
}

func parseInsightFilter(c echo.Context, accountID string) (models.InsightFilter, error) {
	filter := models.InsightFilter{
		AccountID:  accountID,
		EntityType: c.QueryParam("entity_type"),
		EntityID:   c.QueryParam("entity_id"),
	}

	switch filter.EntityType {
	case "", models.EntityTypeCampaign, models.EntityTypeAdSet, models.EntityTypeAd:
	default:
		return filter, BadRequest("invalid entity_type")
	}

	since, err := parseDateParam(c, "since")
	if err != nil {
		return filter, err
	}
	filter.Since = since

	until, err := parseDateParam(c, "until")
	if err != nil {
		return filter, err
	}
	filter.Until = until

	limit, err := QueryInt(c, "limit", defaultInsightLimit)
	if err != nil {
		return filter, err
	}
	if limit < 1 || limit > maxInsightLimit {
		return filter, BadRequest("limit out of range")
	}
	filter.Limit = limit

	offset, err := QueryInt(c, "offset", 0)
	if err != nil {
		return filter, err
	}
	if offset < 0 {
		return filter, BadRequest("offset out of range")
	}
	filter.Offset = offset

	return filter, nil
}

func parseDateParam(c echo.Context, param string) (*time.Time, error) {
	raw := c.QueryParam(param)
	if raw == "" {
		return nil, nil
	}

	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid %s: expected YYYY-MM-DD", param)
	}
	return &t, nil
}

func insightCacheKey(accountID string, filter models.InsightFilter, view string) string {
	parts := []string{
		view,
		filter.EntityType,
		filter.EntityID,
		strconv.Itoa(filter.Limit),
		strconv.Itoa(filter.Offset),
	}
	if filter.Since != nil {
		parts = append(parts, filter.Since.Format("2006-01-02"))
	}
	if filter.Until != nil {
		parts = append(parts, filter.Until.Format("2006-01-02"))
	}
	return cache.InsightsKey(accountID, parts...)
}
