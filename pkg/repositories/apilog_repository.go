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

const apiLogsTable = "api_logs"

var apiLogStruct = database.NewStruct(new(models.APILog))

// APILogRepository handles the append-only request and security audit log
type APILogRepository struct {
	*Repository
}

// NewAPILogRepository creates a new API log repository
func NewAPILogRepository(db database.DB, logger ectologger.Logger) *APILogRepository {
	return &APILogRepository{
		Repository: NewRepository(db, logger),
	}
}

// Insert appends an audit row. Rows are never updated after insert.
func (r *APILogRepository) Insert(ctx context.Context, log *models.APILog) error {
	ctx, span := tracing.StartSpan(ctx, "APILogRepository.Insert")
	defer span.End()

	ib := database.NewInsertBuilder()
	ib.InsertInto(apiLogsTable).
		Cols("request_id", "event_type", "method", "path", "status_code",
			"duration_ms", "caller_ip", "user_agent", "severity", "detail", "created_at").
		Values(log.RequestID, log.EventType, log.Method, log.Path, log.StatusCode,
			log.DurationMs, log.CallerIP, log.UserAgent, log.Severity, log.Detail, time.Now().UTC())

	query, args := ib.Build()
	_, err := r.DB().ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"event_type": log.EventType,
			"path":       log.Path,
		}).Error("failed to insert api log")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to insert api log")
	}

	return nil
}

// ListRecent retrieves the most recent audit rows, optionally filtered by
// event type
func (r *APILogRepository) ListRecent(ctx context.Context, eventType string, limit int) ([]models.APILog, error) {
	ctx, span := tracing.StartSpan(ctx, "APILogRepository.ListRecent")
	defer span.End()

	sb := apiLogStruct.SelectFrom(apiLogsTable)
	if eventType != "" {
		sb.Where(sb.Equal("event_type", eventType))
	}
	sb.OrderBy("created_at DESC")
	if limit > 0 {
		sb.Limit(limit)
	}

	query, args := sb.Build()
	var logs []models.APILog
	err := r.DB().SelectContext(ctx, &logs, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list api logs")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list api logs")
	}

	return logs, nil
}

// DeleteOlderThan prunes audit rows created before the cutoff
func (r *APILogRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "APILogRepository.DeleteOlderThan")
	defer span.End()

	db := database.NewDeleteBuilder()
	db.DeleteFrom(apiLogsTable).
		Where(db.LessThan("created_at", cutoff))

	query, args := db.Build()
	result, err := r.DB().ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to prune api logs")
		return 0, err
	}

	rows, _ := result.RowsAffected()
	return rows, nil
}
