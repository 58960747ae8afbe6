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

const adsTable = "ads"

var adStruct = database.NewStruct(new(models.Ad))

// AdRepository handles database operations for ads
type AdRepository struct {
	*Repository
}

// NewAdRepository creates a new ad repository
func NewAdRepository(db database.DB, logger ectologger.Logger) *AdRepository {
	return &AdRepository{
		Repository: NewRepository(db, logger),
	}
}

// Upsert inserts or updates an ad keyed on its external ad_id
func (r *AdRepository) Upsert(ctx context.Context, ad *models.Ad) error {
	ctx, span := tracing.StartSpan(ctx, "AdRepository.Upsert")
	defer span.End()

	now := time.Now().UTC()
	ad.CreatedAt = now
	ad.UpdatedAt = now

	ib := adStruct.InsertInto(adsTable, ad)
	ub := ib.OnConflict("ad_id")
	ub.Set(
		ub.Assign("adset_id", database.Excluded("adset_id")),
		ub.Assign("campaign_id", database.Excluded("campaign_id")),
		ub.Assign("account_id", database.Excluded("account_id")),
		ub.Assign("name", database.Excluded("name")),
		ub.Assign("status", database.Excluded("status")),
		ub.Assign("configured_status", database.Excluded("configured_status")),
		ub.Assign("effective_status", database.Excluded("effective_status")),
		ub.Assign("creative", database.Excluded("creative")),
		ub.Assign("preview_url", database.Excluded("preview_url")),
		ub.Assign("last_sync_at", database.Excluded("last_sync_at")),
		ub.Assign("updated_at", now),
	)

	query, args := ib.Build()
	_, err := r.DB().ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"ad_id":    ad.AdID,
			"adset_id": ad.AdSetID,
		}).Error("failed to upsert ad")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to upsert ad")
	}

	return nil
}

// GetByID retrieves an ad by its external ID
func (r *AdRepository) GetByID(ctx context.Context, adID string) (*models.Ad, error) {
	ctx, span := tracing.StartSpan(ctx, "AdRepository.GetByID")
	defer span.End()

	sb := adStruct.SelectFrom(adsTable)
	sb.Where(sb.Equal("ad_id", adID))

	query, args := sb.Build()
	var ad models.Ad
	err := r.DB().GetContext(ctx, &ad, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "ad %s does not exist", adID)
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"ad_id": adID,
		}).Error("failed to get ad by ID")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get ad by ID")
	}

	return &ad, nil
}

// ListByAdSet retrieves all ads under an ad set ordered by name
func (r *AdRepository) ListByAdSet(ctx context.Context, adsetID string) ([]models.Ad, error) {
	ctx, span := tracing.StartSpan(ctx, "AdRepository.ListByAdSet")
	defer span.End()

	sb := adStruct.SelectFrom(adsTable)
	sb.Where(sb.Equal("adset_id", adsetID))
	sb.OrderBy("name")

	query, args := sb.Build()
	var ads []models.Ad
	err := r.DB().SelectContext(ctx, &ads, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"adset_id": adsetID,
		}).Error("failed to list ads by ad set")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list ads by ad set")
	}

	return ads, nil
}

// ListByAccount retrieves all ads under an account ordered by name
func (r *AdRepository) ListByAccount(ctx context.Context, accountID string) ([]models.Ad, error) {
	ctx, span := tracing.StartSpan(ctx, "AdRepository.ListByAccount")
	defer span.End()

	sb := adStruct.SelectFrom(adsTable)
	sb.Where(sb.Equal("account_id", accountID))
	sb.OrderBy("name")

	query, args := sb.Build()
	var ads []models.Ad
	err := r.DB().SelectContext(ctx, &ads, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"account_id": accountID,
		}).Error("failed to list ads by account")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list ads by account")
	}

	return ads, nil
}
