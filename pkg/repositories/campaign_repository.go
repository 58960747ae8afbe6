package repositories

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/adpulse/adsync/pkg/database"
	"github.com/adpulse/adsync/pkg/models"
	"github.com/adpulse/adsync/pkg/tracing"
)

const campaignsTable = "campaigns"

var campaignStruct = database.NewStruct(new(models.Campaign))

// CampaignRepository handles database operations for campaigns
type CampaignRepository struct {
	*Repository
}

// NewCampaignRepository creates a new campaign repository
func NewCampaignRepository(db database.DB, logger ectologger.Logger) *CampaignRepository {
	return &CampaignRepository{
		Repository: NewRepository(db, logger),
	}
}

// Upsert inserts or updates a campaign keyed on its external campaign_id.
// The parent account row must already exist.
func (r *CampaignRepository) Upsert(ctx context.Context, campaign *models.Campaign) error {
	ctx, span := tracing.StartSpan(ctx, "CampaignRepository.Upsert")
	defer span.End()

	now := time.Now().UTC()
	campaign.CreatedAt = now
	campaign.UpdatedAt = now

	ib := campaignStruct.InsertInto(campaignsTable, campaign)
	ub := ib.OnConflict("campaign_id")
	ub.Set(
		ub.Assign("account_id", database.Excluded("account_id")),
		ub.Assign("name", database.Excluded("name")),
		ub.Assign("objective", database.Excluded("objective")),
		ub.Assign("status", database.Excluded("status")),
		ub.Assign("configured_status", database.Excluded("configured_status")),
		ub.Assign("effective_status", database.Excluded("effective_status")),
		ub.Assign("daily_budget", database.Excluded("daily_budget")),
		ub.Assign("lifetime_budget", database.Excluded("lifetime_budget")),
		ub.Assign("budget_remaining", database.Excluded("budget_remaining")),
		ub.Assign("bid_strategy", database.Excluded("bid_strategy")),
		ub.Assign("start_time", database.Excluded("start_time")),
		ub.Assign("stop_time", database.Excluded("stop_time")),
		ub.Assign("issues", database.Excluded("issues")),
		ub.Assign("last_sync_at", database.Excluded("last_sync_at")),
		ub.Assign("updated_at", now),
	)

	query, args := ib.Build()
	_, err := r.DB().ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"campaign_id": campaign.CampaignID,
			"account_id":  campaign.AccountID,
		}).Error("failed to upsert campaign")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to upsert campaign")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"campaign_id": campaign.CampaignID,
	}).Debugf("Upserted %s", campaignsTable)
	return nil
}

// GetByID retrieves a campaign by its external ID
func (r *CampaignRepository) GetByID(ctx context.Context, campaignID string) (*models.Campaign, error) {
	ctx, span := tracing.StartSpan(ctx, "CampaignRepository.GetByID")
	defer span.End()

	sb := campaignStruct.SelectFrom(campaignsTable)
	sb.Where(sb.Equal("campaign_id", campaignID))

	query, args := sb.Build()
	var campaign models.Campaign
	err := r.DB().GetContext(ctx, &campaign, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "campaign %s does not exist", campaignID)
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"campaign_id": campaignID,
		}).Error("failed to get campaign by ID")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get campaign by ID")
	}

	return &campaign, nil
}

// ListByAccount retrieves all campaigns under an account ordered by name
func (r *CampaignRepository) ListByAccount(ctx context.Context, accountID string) ([]models.Campaign, error) {
	ctx, span := tracing.StartSpan(ctx, "CampaignRepository.ListByAccount")
	defer span.End()

	sb := campaignStruct.SelectFrom(campaignsTable)
	sb.Where(sb.Equal("account_id", accountID))
	sb.OrderBy("name")

	query, args := sb.Build()
	var campaigns []models.Campaign
	err := r.DB().SelectContext(ctx, &campaigns, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"account_id": accountID,
		}).Error("failed to list campaigns")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list campaigns")
	}

	return campaigns, nil
}

// Delete deletes a campaign by ID; ad sets and ads below it cascade
func (r *CampaignRepository) Delete(ctx context.Context, campaignID string) error {
	ctx, span := tracing.StartSpan(ctx, "CampaignRepository.Delete")
	defer span.End()

	db := database.NewDeleteBuilder()
	db.DeleteFrom(campaignsTable).
		Where(db.Equal("campaign_id", campaignID))

	query, args := db.Build()
	result, err := r.DB().ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"campaign_id": campaignID,
		}).Error("failed to delete campaign")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete campaign")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"campaign_id": campaignID,
		}).Error("failed to delete campaign")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete campaign")
	}
	if rows == 0 {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "campaign %s does not exist", campaignID)
	}

	return nil
}
