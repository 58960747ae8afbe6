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

const adsetsTable = "adsets"

var adsetStruct = database.NewStruct(new(models.AdSet))

// AdSetRepository handles database operations for ad sets
type AdSetRepository struct {
	*Repository
}

// NewAdSetRepository creates a new ad set repository
func NewAdSetRepository(db database.DB, logger ectologger.Logger) *AdSetRepository {
	return &AdSetRepository{
		Repository: NewRepository(db, logger),
	}
}

// Upsert inserts or updates an ad set keyed on its external adset_id
func (r *AdSetRepository) Upsert(ctx context.Context, adset *models.AdSet) error {
	ctx, span := tracing.StartSpan(ctx, "AdSetRepository.Upsert")
	defer span.End()

	now := time.Now().UTC()
	adset.CreatedAt = now
	adset.UpdatedAt = now

	ib := adsetStruct.InsertInto(adsetsTable, adset)
	ub := ib.OnConflict("adset_id")
	ub.Set(
		ub.Assign("campaign_id", database.Excluded("campaign_id")),
		ub.Assign("account_id", database.Excluded("account_id")),
		ub.Assign("name", database.Excluded("name")),
		ub.Assign("status", database.Excluded("status")),
		ub.Assign("configured_status", database.Excluded("configured_status")),
		ub.Assign("effective_status", database.Excluded("effective_status")),
		ub.Assign("daily_budget", database.Excluded("daily_budget")),
		ub.Assign("lifetime_budget", database.Excluded("lifetime_budget")),
		ub.Assign("budget_remaining", database.Excluded("budget_remaining")),
		ub.Assign("optimization_goal", database.Excluded("optimization_goal")),
		ub.Assign("billing_event", database.Excluded("billing_event")),
		ub.Assign("targeting", database.Excluded("targeting")),
		ub.Assign("start_time", database.Excluded("start_time")),
		ub.Assign("end_time", database.Excluded("end_time")),
		ub.Assign("last_sync_at", database.Excluded("last_sync_at")),
		ub.Assign("updated_at", now),
	)

	query, args := ib.Build()
	_, err := r.DB().ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"adset_id":    adset.AdSetID,
			"campaign_id": adset.CampaignID,
		}).Error("failed to upsert ad set")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to upsert ad set")
	}

	return nil
}

// GetByID retrieves an ad set by its external ID
func (r *AdSetRepository) GetByID(ctx context.Context, adsetID string) (*models.AdSet, error) {
	ctx, span := tracing.StartSpan(ctx, "AdSetRepository.GetByID")
	defer span.End()

	sb := adsetStruct.SelectFrom(adsetsTable)
	sb.Where(sb.Equal("adset_id", adsetID))

	query, args := sb.Build()
	var adset models.AdSet
	err := r.DB().GetContext(ctx, &adset, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "ad set %s does not exist", adsetID)
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"adset_id": adsetID,
		}).Error("failed to get ad set by ID")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get ad set by ID")
	}

	return &adset, nil
}

// ListByCampaign retrieves all ad sets under a campaign ordered by name
func (r *AdSetRepository) ListByCampaign(ctx context.Context, campaignID string) ([]models.AdSet, error) {
	ctx, span := tracing.StartSpan(ctx, "AdSetRepository.ListByCampaign")
	defer span.End()

	sb := adsetStruct.SelectFrom(adsetsTable)
	sb.Where(sb.Equal("campaign_id", campaignID))
	sb.OrderBy("name")

	query, args := sb.Build()
	var adsets []models.AdSet
	err := r.DB().SelectContext(ctx, &adsets, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"campaign_id": campaignID,
		}).Error("failed to list ad sets by campaign")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list ad sets by campaign")
	}

	return adsets, nil
}

// ListByAccount retrieves all ad sets under an account ordered by name
func (r *AdSetRepository) ListByAccount(ctx context.Context, accountID string) ([]models.AdSet, error) {
	ctx, span := tracing.StartSpan(ctx, "AdSetRepository.ListByAccount")
	defer span.End()

	sb := adsetStruct.SelectFrom(adsetsTable)
	sb.Where(sb.Equal("account_id", accountID))
	sb.OrderBy("name")

	query, args := sb.Build()
	var adsets []models.AdSet
	err := r.DB().SelectContext(ctx, &adsets, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"account_id": accountID,
		}).Error("failed to list ad sets by account")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list ad sets by account")
	}

	return adsets, nil
}
