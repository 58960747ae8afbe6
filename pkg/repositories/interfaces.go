package repositories

import (
	"context"
	"time"

	"github.com/adpulse/adsync/pkg/models"
)

// AccountRepo defines the interface for ad account repository operations
type AccountRepo interface {
	Upsert(ctx context.Context, account *models.AdAccount) error
	GetByID(ctx context.Context, accountID string) (*models.AdAccount, error)
	List(ctx context.Context) ([]models.AdAccount, error)
	ListActive(ctx context.Context) ([]models.AdAccount, error)
	Delete(ctx context.Context, accountID string) error
}

// CampaignRepo defines the interface for campaign repository operations
type CampaignRepo interface {
	Upsert(ctx context.Context, campaign *models.Campaign) error
	GetByID(ctx context.Context, campaignID string) (*models.Campaign, error)
	ListByAccount(ctx context.Context, accountID string) ([]models.Campaign, error)
	Delete(ctx context.Context, campaignID string) error
}

// AdSetRepo defines the interface for ad set repository operations
type AdSetRepo interface {
	Upsert(ctx context.Context, adset *models.AdSet) error
	GetByID(ctx context.Context, adsetID string) (*models.AdSet, error)
	ListByCampaign(ctx context.Context, campaignID string) ([]models.AdSet, error)
	ListByAccount(ctx context.Context, accountID string) ([]models.AdSet, error)
}

// AdRepo defines the interface for ad repository operations
type AdRepo interface {
	Upsert(ctx context.Context, ad *models.Ad) error
	GetByID(ctx context.Context, adID string) (*models.Ad, error)
	ListByAdSet(ctx context.Context, adsetID string) ([]models.Ad, error)
	ListByAccount(ctx context.Context, accountID string) ([]models.Ad, error)
}

// InsightRepo defines the interface for daily insight repository operations
type InsightRepo interface {
	Upsert(ctx context.Context, insight *models.DailyInsight) error
	List(ctx context.Context, filter models.InsightFilter) ([]models.DailyInsight, error)
	DeleteByAccount(ctx context.Context, accountID string) (int64, error)
}

// TokenRepo defines the interface for system token repository operations
type TokenRepo interface {
	Save(ctx context.Context, token *models.SystemToken) error
	GetLatest(ctx context.Context) (*models.SystemToken, error)
}

// APILogRepo defines the interface for API audit log repository operations
type APILogRepo interface {
	Insert(ctx context.Context, log *models.APILog) error
	ListRecent(ctx context.Context, eventType string, limit int) ([]models.APILog, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
