// Package syncer orchestrates the pull from the Graph API into the
// relational store. Each job runs as one pass: fetch, upsert row by row,
// invalidate caches, emit events. Row failures accumulate in the Result
// instead of aborting the pass.
package syncer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/pkg/errors"

	"github.com/adpulse/adsync/pkg/cache"
	"github.com/adpulse/adsync/pkg/events"
	"github.com/adpulse/adsync/pkg/metaapi"
	"github.com/adpulse/adsync/pkg/metrics"
	"github.com/adpulse/adsync/pkg/models"
	"github.com/adpulse/adsync/pkg/repositories"
	"github.com/adpulse/adsync/pkg/tracing"
)

// Job names as reported in results, metrics and events
const (
	JobAccounts     = "accounts"
	JobCampaigns    = "campaigns"
	JobInsights     = "insights"
	JobCacheCleanup = "cache_cleanup"
)

// ErrSyncInProgress means the job was skipped because its previous run has
// not finished
var ErrSyncInProgress = errors.New("sync already in progress")

// insightLevels are the granularities fetched per account, coarse to fine
var insightLevels = []string{models.EntityTypeCampaign, models.EntityTypeAdSet, models.EntityTypeAd}

// GraphAPI is the outbound surface the syncer needs
type GraphAPI interface {
	ListAdAccounts(ctx context.Context) ([]metaapi.AccountData, error)
	ListCampaigns(ctx context.Context, accountID string) ([]metaapi.CampaignData, error)
	ListAdSets(ctx context.Context, accountID string) ([]metaapi.AdSetData, error)
	ListAds(ctx context.Context, accountID string) ([]metaapi.AdData, error)
	ListInsights(ctx context.Context, accountID, level string, tr metaapi.TimeRange) ([]metaapi.InsightData, error)
}

// Config holds sync pass tuning
type Config struct {
	// InsightsWindowDays is how far back each insights pass re-fetches.
	// Overlapping windows are safe: rows upsert in place.
	InsightsWindowDays int

	// AccountDelay spaces out consecutive accounts within a pass to stay
	// under the app-level Graph API budget
	AccountDelay time.Duration

	// LogRetention bounds the api_logs table; zero disables pruning
	LogRetention time.Duration
}

// Service runs the sync jobs
type Service struct {
	api       GraphAPI
	accounts  repositories.AccountRepo
	campaigns repositories.CampaignRepo
	adsets    repositories.AdSetRepo
	ads       repositories.AdRepo
	insights  repositories.InsightRepo
	apiLogs   repositories.APILogRepo
	cache     *cache.Cache
	emitter   *events.Emitter
	logger    ectologger.Logger
	cfg       Config

	mu      sync.Mutex
	running map[string]bool
}

// NewService creates the sync orchestrator
func NewService(
	api GraphAPI,
	accounts repositories.AccountRepo,
	campaigns repositories.CampaignRepo,
	adsets repositories.AdSetRepo,
	ads repositories.AdRepo,
	insights repositories.InsightRepo,
	apiLogs repositories.APILogRepo,
	c *cache.Cache,
	emitter *events.Emitter,
	cfg Config,
	logger ectologger.Logger,
) *Service {
	if cfg.InsightsWindowDays <= 0 {
		cfg.InsightsWindowDays = 7
	}

	return &Service{
		api:       api,
		accounts:  accounts,
		campaigns: campaigns,
		adsets:    adsets,
		ads:       ads,
		insights:  insights,
		apiLogs:   apiLogs,
		cache:     c,
		emitter:   emitter,
		logger:    logger,
		cfg:       cfg,
		running:   make(map[string]bool),
	}
}

// tryStart claims the busy flag for a job. The caller must release it via
// finish when it returns true.
func (s *Service) tryStart(job string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running[job] {
		return false
	}
	s.running[job] = true
	return true
}

func (s *Service) finish(job string) {
	s.mu.Lock()
	delete(s.running, job)
	s.mu.Unlock()
}

// IsRunning reports whether a job is currently in progress
func (s *Service) IsRunning(job string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running[job]
}

// SyncAllAccounts pulls every visible ad account into the store
func (s *Service) SyncAllAccounts(ctx context.Context) (*Result, error) {
	ctx, span := tracing.StartSpan(ctx, "Syncer.SyncAllAccounts")
	defer span.End()

	if !s.tryStart(JobAccounts) {
		metrics.SyncSkippedRuns.WithLabelValues(JobAccounts).Inc()
		return nil, ErrSyncInProgress
	}
	defer s.finish(JobAccounts)

	result := newResult(JobAccounts)

	accounts, err := s.api.ListAdAccounts(ctx)
	if err != nil {
		metrics.SyncRunsTotal.WithLabelValues(JobAccounts, "failed").Inc()
		return nil, errors.Wrap(err, "failed to list ad accounts")
	}

	syncedAt := time.Now().UTC()
	for _, data := range accounts {
		account := toAccount(data, syncedAt)
		if err := s.accounts.Upsert(ctx, account); err != nil {
			result.recordError(fmt.Sprintf("account %s: %v", account.AccountID, err))
			continue
		}
		result.recordSuccess()
		s.cache.InvalidateAccount(ctx, account.AccountID)
	}

	s.completeRun(ctx, result)
	return result.finish(), nil
}

// SyncAllCampaigns refreshes the campaign, ad set and ad structure of every
// active account
func (s *Service) SyncAllCampaigns(ctx context.Context) (*Result, error) {
	ctx, span := tracing.StartSpan(ctx, "Syncer.SyncAllCampaigns")
	defer span.End()

	if !s.tryStart(JobCampaigns) {
		metrics.SyncSkippedRuns.WithLabelValues(JobCampaigns).Inc()
		return nil, ErrSyncInProgress
	}
	defer s.finish(JobCampaigns)

	result := newResult(JobCampaigns)

	accounts, err := s.accounts.ListActive(ctx)
	if err != nil {
		metrics.SyncRunsTotal.WithLabelValues(JobCampaigns, "failed").Inc()
		return nil, errors.Wrap(err, "failed to list active accounts")
	}

	for i, account := range accounts {
		if i > 0 && !s.pause(ctx) {
			break
		}

		sub := newResult(JobCampaigns)
		s.syncStructure(ctx, account.AccountID, sub)
		result.merge(sub)

		s.cache.InvalidateAccount(ctx, account.AccountID)
		s.emitter.EmitAccountSynced(ctx, account.AccountID, models.EntityTypeCampaign, sub.Processed, sub.Errors)
	}

	s.completeRun(ctx, result)
	return result.finish(), nil
}

// SyncInsights pulls daily metric rows for every active account across the
// configured window at campaign, ad set and ad level
func (s *Service) SyncInsights(ctx context.Context) (*Result, error) {
	ctx, span := tracing.StartSpan(ctx, "Syncer.SyncInsights")
	defer span.End()

	if !s.tryStart(JobInsights) {
		metrics.SyncSkippedRuns.WithLabelValues(JobInsights).Inc()
		return nil, ErrSyncInProgress
	}
	defer s.finish(JobInsights)

	result := newResult(JobInsights)

	accounts, err := s.accounts.ListActive(ctx)
	if err != nil {
		metrics.SyncRunsTotal.WithLabelValues(JobInsights, "failed").Inc()
		return nil, errors.Wrap(err, "failed to list active accounts")
	}

	window := s.insightsWindow()
	for i, account := range accounts {
		if i > 0 && !s.pause(ctx) {
			break
		}

		sub := newResult(JobInsights)
		s.syncAccountInsights(ctx, account.AccountID, window, sub)
		result.merge(sub)

		s.cache.InvalidateAccount(ctx, account.AccountID)
		s.emitter.EmitAccountSynced(ctx, account.AccountID, "insight", sub.Processed, sub.Errors)
	}

	s.completeRun(ctx, result)
	return result.finish(), nil
}

// SyncAccount runs a full structure and insights refresh for one account,
// regardless of its status. Used by the manual trigger endpoint.
func (s *Service) SyncAccount(ctx context.Context, accountID string) (*Result, error) {
	ctx, span := tracing.StartSpan(ctx, "Syncer.SyncAccount")
	defer span.End()

	job := "manual:" + accountID
	if !s.tryStart(job) {
		return nil, ErrSyncInProgress
	}
	defer s.finish(job)

	// Fail fast when the account was never synced in
	if _, err := s.accounts.GetByID(ctx, accountID); err != nil {
		return nil, err
	}

	result := newResult(job)
	s.syncStructure(ctx, accountID, result)
	s.syncAccountInsights(ctx, accountID, s.insightsWindow(), result)

	s.cache.InvalidateAccount(ctx, accountID)
	s.emitter.EmitAccountSynced(ctx, accountID, models.EntityTypeCampaign, result.Processed, result.Errors)

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"account_id": accountID,
		"processed":  result.Processed,
		"errors":     result.Errors,
	}).Info("Manual account sync finished")
	return result.finish(), nil
}

// CleanupCache sweeps expired cache entries and prunes old audit rows
func (s *Service) CleanupCache(ctx context.Context) (*Result, error) {
	ctx, span := tracing.StartSpan(ctx, "Syncer.CleanupCache")
	defer span.End()

	if !s.tryStart(JobCacheCleanup) {
		metrics.SyncSkippedRuns.WithLabelValues(JobCacheCleanup).Inc()
		return nil, ErrSyncInProgress
	}
	defer s.finish(JobCacheCleanup)

	result := newResult(JobCacheCleanup)
	result.Processed = s.cache.Cleanup(ctx)

	if s.cfg.LogRetention > 0 && s.apiLogs != nil {
		cutoff := time.Now().Add(-s.cfg.LogRetention).UTC()
		pruned, err := s.apiLogs.DeleteOlderThan(ctx, cutoff)
		if err != nil {
			result.recordError(fmt.Sprintf("api log prune: %v", err))
		} else {
			result.Processed += int(pruned)
		}
	}

	s.completeRun(ctx, result)
	return result.finish(), nil
}

// syncStructure refreshes campaigns, ad sets and ads for one account.
// Parents sync before children so FK targets exist.
func (s *Service) syncStructure(ctx context.Context, accountID string, result *Result) {
	ctx, span := tracing.StartSpan(ctx, "Syncer.syncStructure")
	defer span.End()

	syncedAt := time.Now().UTC()

	campaigns, err := s.api.ListCampaigns(ctx, accountID)
	if err != nil {
		result.recordError(fmt.Sprintf("account %s campaigns: %v", accountID, err))
		return
	}
	for _, data := range campaigns {
		if err := s.campaigns.Upsert(ctx, toCampaign(data, accountID, syncedAt)); err != nil {
			result.recordError(fmt.Sprintf("campaign %s: %v", data.ID, err))
			continue
		}
		result.recordSuccess()
	}

	adsets, err := s.api.ListAdSets(ctx, accountID)
	if err != nil {
		result.recordError(fmt.Sprintf("account %s adsets: %v", accountID, err))
		return
	}
	for _, data := range adsets {
		if err := s.adsets.Upsert(ctx, toAdSet(data, accountID, syncedAt)); err != nil {
			result.recordError(fmt.Sprintf("adset %s: %v", data.ID, err))
			continue
		}
		result.recordSuccess()
	}

	ads, err := s.api.ListAds(ctx, accountID)
	if err != nil {
		result.recordError(fmt.Sprintf("account %s ads: %v", accountID, err))
		return
	}
	for _, data := range ads {
		if err := s.ads.Upsert(ctx, toAd(data, accountID, syncedAt)); err != nil {
			result.recordError(fmt.Sprintf("ad %s: %v", data.ID, err))
			continue
		}
		result.recordSuccess()
	}
}

// syncAccountInsights pulls the metric window for one account at every level
func (s *Service) syncAccountInsights(ctx context.Context, accountID string, window metaapi.TimeRange, result *Result) {
	ctx, span := tracing.StartSpan(ctx, "Syncer.syncAccountInsights")
	defer span.End()

	for _, level := range insightLevels {
		rows, err := s.api.ListInsights(ctx, accountID, level, window)
		if err != nil {
			result.recordError(fmt.Sprintf("account %s %s insights: %v", accountID, level, err))
			continue
		}

		for _, data := range rows {
			insight := toInsight(data, accountID, level)
			if insight.EntityID == "" || insight.DateStart.IsZero() {
				result.recordError(fmt.Sprintf("account %s %s insight row missing identity", accountID, level))
				continue
			}
			if err := s.insights.Upsert(ctx, insight); err != nil {
				result.recordError(fmt.Sprintf("%s %s %s: %v", level, insight.EntityID, data.DateStart, err))
				continue
			}
			result.recordSuccess()
		}
	}
}

func (s *Service) insightsWindow() metaapi.TimeRange {
	now := time.Now().UTC()
	return metaapi.TimeRange{
		Since: now.AddDate(0, 0, -s.cfg.InsightsWindowDays).Format("2006-01-02"),
		Until: now.Format("2006-01-02"),
	}
}

// pause waits the inter-account delay, returning false when the context was
// cancelled meanwhile
func (s *Service) pause(ctx context.Context) bool {
	if s.cfg.AccountDelay <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(s.cfg.AccountDelay):
		return true
	}
}

// completeRun records the end-of-run bookkeeping shared by all jobs
func (s *Service) completeRun(ctx context.Context, result *Result) {
	duration := time.Since(result.StartedAt)

	status := "ok"
	if result.Errors > 0 {
		status = "partial"
	}
	metrics.SyncRunsTotal.WithLabelValues(result.Job, status).Inc()
	metrics.SyncRunDuration.WithLabelValues(result.Job).Observe(duration.Seconds())
	metrics.SyncRowsProcessed.WithLabelValues(result.Job).Add(float64(result.Processed))
	metrics.SyncRowErrors.WithLabelValues(result.Job).Add(float64(result.Errors))

	s.emitter.EmitSyncCompleted(ctx, result.Job, result.Processed, result.Errors, duration)

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"job":       result.Job,
		"processed": result.Processed,
		"errors":    result.Errors,
		"duration":  duration.String(),
	}).Info("Sync run finished")
}
