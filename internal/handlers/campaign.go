package handlers

import (
	"github.com/labstack/echo/v4"

	"github.com/adpulse/adsync/pkg/cache"
	"github.com/adpulse/adsync/pkg/models"
	"github.com/adpulse/adsync/pkg/repositories"
)

// CampaignHandler handles campaign, ad set and ad API requests
type CampaignHandler struct {
	campaigns repositories.CampaignRepo
	adsets    repositories.AdSetRepo
	ads       repositories.AdRepo
	cache     *cache.Cache
}

// NewCampaignHandler creates a new campaign handler
func NewCampaignHandler(
	campaigns repositories.CampaignRepo,
	adsets repositories.AdSetRepo,
	ads repositories.AdRepo,
	c *cache.Cache,
) *CampaignHandler {
	return &CampaignHandler{
		campaigns: campaigns,
		adsets:    adsets,
		ads:       ads,
		cache:     c,
	}
}

// RegisterRoutes registers the campaign routes
func (h *CampaignHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/accounts/:id/campaigns", h.ListByAccount)
	g.GET("/campaigns/:id", h.Get)
	g.GET("/campaigns/:id/adsets", h.ListAdSets)
	g.GET("/adsets/:id/ads", h.ListAds)
}

// ListByAccount handles GET /accounts/:id/campaigns
func (h *CampaignHandler) ListByAccount(c echo.Context) error {
	ctx := c.Request().Context()

	accountID, err := PathParam(c, "id")
	if err != nil {
		return err
	}

	key := cache.CampaignsKey(accountID, "list")

	var cached []models.Campaign
	if h.cache.GetJSON(ctx, key, &cached) {
		return SuccessResponse(c, cached)
	}

	campaigns, err := h.campaigns.ListByAccount(ctx, accountID)
	if err != nil {
		return err
	}

	h.cache.SetJSON(ctx, key, campaigns, cache.CampaignsTTL)

	return SuccessResponse(c, campaigns)
}

// Get handles GET /campaigns/:id
func (h *CampaignHandler) Get(c echo.Context) error {
	ctx := c.Request().Context()

	campaignID, err := PathParam(c, "id")
	if err != nil {
		return err
	}

	campaign, err := h.campaigns.GetByID(ctx, campaignID)
	if err != nil {
		return err
	}

	return SuccessResponse(c, campaign)
}

// ListAdSets handles GET /campaigns/:id/adsets
func (h *CampaignHandler) ListAdSets(c echo.Context) error {
	ctx := c.Request().Context()

	campaignID, err := PathParam(c, "id")
	if err != nil {
		return err
	}

	campaign, err := h.campaigns.GetByID(ctx, campaignID)
	if err != nil {
		return err
	}

	key := cache.CampaignsKey(campaign.AccountID, "adsets", campaignID)

	var cached []models.AdSet
	if h.cache.GetJSON(ctx, key, &cached) {
		return SuccessResponse(c, cached)
	}

	adsets, err := h.adsets.ListByCampaign(ctx, campaignID)
	if err != nil {
		return err
	}

	h.cache.SetJSON(ctx, key, adsets, cache.CampaignsTTL)

	return SuccessResponse(c, adsets)
}

// ListAds handles GET /adsets/:id/ads
func (h *CampaignHandler) ListAds(c echo.Context) error {
	ctx := c.Request().Context()

	adsetID, err := PathParam(c, "id")
	if err != nil {
		return err
	}

	adset, err := h.adsets.GetByID(ctx, adsetID)
	if err != nil {
		return err
	}

	key := cache.CampaignsKey(adset.AccountID, "ads", adsetID)

	var cached []models.Ad
	if h.cache.GetJSON(ctx, key, &cached) {
		return SuccessResponse(c, cached)
	}

	ads, err := h.ads.ListByAdSet(ctx, adsetID)
	if err != nil {
		return err
	}

	h.cache.SetJSON(ctx, key, ads, cache.CampaignsTTL)

	return SuccessResponse(c, ads)
}
