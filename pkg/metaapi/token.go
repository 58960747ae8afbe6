package metaapi

import (
	"context"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/adpulse/adsync/pkg/models"
	"github.com/adpulse/adsync/pkg/repositories"
	"github.com/adpulse/adsync/pkg/tracing"
)

// refreshMargin is how close to expiry a token is still trusted. Refreshing
// early keeps a sync pass from starting on a token that dies mid-run.
const refreshMargin = 24 * time.Hour

// Exchanger trades a token for a fresh long-lived one
type Exchanger interface {
	ExchangeToken(ctx context.Context, appID, appSecret, token string) (string, time.Time, error)
}

// StoredTokenSource serves the persisted system token and refreshes it
// lazily when it nears expiry. Safe for concurrent use.
type StoredTokenSource struct {
	repo      repositories.TokenRepo
	exchanger Exchanger
	appID     string
	appSecret string
	logger    ectologger.Logger

	mu     sync.Mutex
	cached *models.SystemToken
}

// NewStoredTokenSource creates a token source over the token repository
func NewStoredTokenSource(repo repositories.TokenRepo, exchanger Exchanger, appID, appSecret string, logger ectologger.Logger) *StoredTokenSource {
	return &StoredTokenSource{
		repo:      repo,
		exchanger: exchanger,
		appID:     appID,
		appSecret: appSecret,
		logger:    logger,
	}
}

// Token returns a usable system token, refreshing through the Graph API
// when the stored one nears expiry. A failed refresh falls back to the
// stored token as long as it has not actually expired.
func (s *StoredTokenSource) Token(ctx context.Context) (string, error) {
	ctx, span := tracing.StartSpan(ctx, "StoredTokenSource.Token")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != nil && !s.cached.IsExpired(refreshMargin) {
		return s.cached.Token, nil
	}

	token, err := s.repo.GetLatest(ctx)
	if err != nil {
		return "", err
	}

	if !token.IsExpired(refreshMargin) {
		s.cached = token
		return token.Token, nil
	}

	refreshed, expiresAt, err := s.exchanger.ExchangeToken(ctx, s.appID, s.appSecret, token.Token)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("token refresh failed")
		if !token.IsExpired(0) {
			// Still valid for a while, keep using it
			s.cached = token
			return token.Token, nil
		}
		return "", err
	}

	token.Token = refreshed
	token.ExpiresAt = expiresAt
	if err := s.repo.Save(ctx, token); err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("failed to persist refreshed token")
	}

	s.cached = token
	s.logger.WithContext(ctx).WithFields(map[string]any{
		"expires_at": expiresAt,
	}).Info("Refreshed system token")
	return refreshed, nil
}
