package repositories

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/adpulse/adsync/pkg/database"
	"github.com/adpulse/adsync/pkg/models"
	"github.com/adpulse/adsync/pkg/tracing"
)

const insightsTable = "daily_insights"

var insightStruct = database.NewStruct(new(models.DailyInsight))

// InsightRepository handles database operations for daily insight rows
type InsightRepository struct {
	*Repository
}

// NewInsightRepository creates a new daily insight repository
func NewInsightRepository(db database.DB, logger ectologger.Logger) *InsightRepository {
	return &InsightRepository{
		Repository: NewRepository(db, logger),
	}
}

// Upsert inserts or updates a metric row keyed on
// (entity_type, entity_id, date_start). Re-syncing a window replays rows
// without duplication: later values for the same day overwrite earlier ones.
func (r *InsightRepository) Upsert(ctx context.Context, insight *models.DailyInsight) error {
	ctx, span := tracing.StartSpan(ctx, "InsightRepository.Upsert")
	defer span.End()

	now := time.Now().UTC()

	ib := database.NewInsertBuilder()
	ib.InsertInto(insightsTable).
		Cols("entity_type", "entity_id", "entity_name", "account_id", "date_start",
			"spend", "impressions", "clicks", "reach", "frequency", "ctr", "cpc", "cpm", "cpp",
			"actions", "action_values", "conversions", "conversion_values", "video_metrics",
			"created_at", "updated_at").
		Values(insight.EntityType, insight.EntityID, insight.EntityName, insight.AccountID, insight.DateStart,
			insight.Spend, insight.Impressions, insight.Clicks, insight.Reach, insight.Frequency,
			insight.CTR, insight.CPC, insight.CPM, insight.CPP,
			insight.Actions, insight.ActionValues, insight.Conversions, insight.ConversionValues, insight.VideoMetrics,
			now, now)
	ub := ib.OnConflict("entity_type", "entity_id", "date_start")
	ub.Set(
		ub.Assign("entity_name", database.Excluded("entity_name")),
		ub.Assign("account_id", database.Excluded("account_id")),
		ub.Assign("spend", database.Excluded("spend")),
		ub.Assign("impressions", database.Excluded("impressions")),
		ub.Assign("clicks", database.Excluded("clicks")),
		ub.Assign("reach", database.Excluded("reach")),
		ub.Assign("frequency", database.Excluded("frequency")),
		ub.Assign("ctr", database.Excluded("ctr")),
		ub.Assign("cpc", database.Excluded("cpc")),
		ub.Assign("cpm", database.Excluded("cpm")),
		ub.Assign("cpp", database.Excluded("cpp")),
		ub.Assign("actions", database.Excluded("actions")),
		ub.Assign("action_values", database.Excluded("action_values")),
		ub.Assign("conversions", database.Excluded("conversions")),
		ub.Assign("conversion_values", database.Excluded("conversion_values")),
		ub.Assign("video_metrics", database.Excluded("video_metrics")),
		ub.Assign("updated_at", now),
	)

	query, args := ib.Build()
	_, err := r.DB().ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"entity_type": insight.EntityType,
			"entity_id":   insight.EntityID,
			"date_start":  insight.DateStart.Format("2006-01-02"),
		}).Error("failed to upsert daily insight")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to upsert daily insight")
	}

	return nil
}

// List retrieves insight rows matching the filter, newest day first and
// highest spend first within a day.
func (r *InsightRepository) List(ctx context.Context, filter models.InsightFilter) ([]models.DailyInsight, error) {
	ctx, span := tracing.StartSpan(ctx, "InsightRepository.List")
	defer span.End()

	sb := insightStruct.SelectFrom(insightsTable)
	if filter.AccountID != "" {
		sb.Where(sb.Equal("account_id", filter.AccountID))
	}
	if filter.EntityType != "" {
		sb.Where(sb.Equal("entity_type", filter.EntityType))
	}
	if filter.EntityID != "" {
		sb.Where(sb.Equal("entity_id", filter.EntityID))
	}
	if filter.Since != nil {
		sb.Where(sb.GreaterEqualThan("date_start", *filter.Since))
	}
	if filter.Until != nil {
		sb.Where(sb.LessEqualThan("date_start", *filter.Until))
	}
	sb.OrderBy("date_start DESC", "spend DESC")
	if filter.Limit > 0 {
		sb.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		sb.Offset(filter.Offset)
	}

	query, args := sb.Build()
	var insights []models.DailyInsight
	err := r.DB().SelectContext(ctx, &insights, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"account_id":  filter.AccountID,
			"entity_type": filter.EntityType,
		}).Error("failed to list daily insights")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list daily insights")
	}

	return insights, nil
}

// DeleteByAccount removes all insight rows for an account. Insight rows are
// keyed polymorphically and do not participate in the FK cascade, so account
// removal prunes them here.
func (r *InsightRepository) DeleteByAccount(ctx context.Context, accountID string) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "InsightRepository.DeleteByAccount")
	defer span.End()

	db := database.NewDeleteBuilder()
	db.DeleteFrom(insightsTable).
		Where(db.Equal("account_id", accountID))

	query, args := db.Build()

	txCtx, tx, err := r.DB().GetTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	result, err := tx.ExecContext(txCtx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"account_id": accountID,
		}).Error("failed to delete insights by account")
		return 0, err
	}

	rows, _ := result.RowsAffected()
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"account_id": accountID,
		"count":      rows,
	}).Info("Deleted insights by account")
	return rows, nil
}
