package repositories

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/adpulse/adsync/pkg/database"
	"github.com/adpulse/adsync/pkg/models"
	"github.com/adpulse/adsync/pkg/tracing"
)

const tokensTable = "system_tokens"

var tokenStruct = database.NewStruct(new(models.SystemToken))

// TokenRepository persists the long-lived system credential so a refreshed
// token survives restarts
type TokenRepository struct {
	*Repository
}

// NewTokenRepository creates a new system token repository
func NewTokenRepository(db database.DB, logger ectologger.Logger) *TokenRepository {
	return &TokenRepository{
		Repository: NewRepository(db, logger),
	}
}

// Save inserts or replaces a system token
func (r *TokenRepository) Save(ctx context.Context, token *models.SystemToken) error {
	ctx, span := tracing.StartSpan(ctx, "TokenRepository.Save")
	defer span.End()

	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	now := time.Now().UTC()
	token.CreatedAt = now
	token.UpdatedAt = now

	ib := tokenStruct.InsertInto(tokensTable, token)
	ub := ib.OnConflict("id")
	ub.Set(
		ub.Assign("token", database.Excluded("token")),
		ub.Assign("expires_at", database.Excluded("expires_at")),
		ub.Assign("updated_at", now),
	)

	query, args := ib.Build()
	_, err := r.DB().ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"token_id": token.ID,
		}).Error("failed to save system token")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to save system token")
	}

	return nil
}

// GetLatest retrieves the most recently saved system token
func (r *TokenRepository) GetLatest(ctx context.Context) (*models.SystemToken, error) {
	ctx, span := tracing.StartSpan(ctx, "TokenRepository.GetLatest")
	defer span.End()

	sb := tokenStruct.SelectFrom(tokensTable)
	sb.OrderBy("updated_at DESC")
	sb.Limit(1)

	query, args := sb.Build()
	var token models.SystemToken
	err := r.DB().GetContext(ctx, &token, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "no system token stored")
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to get latest system token")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get latest system token")
	}

	return &token, nil
}
