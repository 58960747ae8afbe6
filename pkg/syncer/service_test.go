package syncer_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/adpulse/adsync/pkg/cache"
	"github.com/adpulse/adsync/pkg/events"
	"github.com/adpulse/adsync/pkg/metaapi"
	"github.com/adpulse/adsync/pkg/models"
	"github.com/adpulse/adsync/pkg/repositories"
	"github.com/adpulse/adsync/pkg/syncer"
)

func getTestLogger() ectologger.Logger {
	zapLogger, _ := zap.NewDevelopment()
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

type fakeAPI struct {
	accounts  []metaapi.AccountData
	campaigns map[string][]metaapi.CampaignData
	adsets    map[string][]metaapi.AdSetData
	ads       map[string][]metaapi.AdData
	insights  map[string][]metaapi.InsightData
	block     chan struct{}
}

func (f *fakeAPI) ListAdAccounts(ctx context.Context) ([]metaapi.AccountData, error) {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.accounts, nil
}

func (f *fakeAPI) ListCampaigns(_ context.Context, accountID string) ([]metaapi.CampaignData, error) {
	return f.campaigns[accountID], nil
}

func (f *fakeAPI) ListAdSets(_ context.Context, accountID string) ([]metaapi.AdSetData, error) {
	return f.adsets[accountID], nil
}

func (f *fakeAPI) ListAds(_ context.Context, accountID string) ([]metaapi.AdData, error) {
	return f.ads[accountID], nil
}

func (f *fakeAPI) ListInsights(_ context.Context, accountID, level string, _ metaapi.TimeRange) ([]metaapi.InsightData, error) {
	var out []metaapi.InsightData
	for _, row := range f.insights[accountID] {
		if levelOf(row) == level {
			out = append(out, row)
		}
	}
	return out, nil
}

func levelOf(row metaapi.InsightData) string {
	switch {
	case row.AdID != "":
		return models.EntityTypeAd
	case row.AdSetID != "":
		return models.EntityTypeAdSet
	default:
		return models.EntityTypeCampaign
	}
}

type memRepos struct {
	mu        sync.Mutex
	accounts  map[string]*models.AdAccount
	campaigns map[string]*models.Campaign
	adsets    map[string]*models.AdSet
	ads       map[string]*models.Ad
	insights  map[string]*models.DailyInsight
	failIDs   map[string]bool
}

func newMemRepos() *memRepos {
	return &memRepos{
		accounts:  make(map[string]*models.AdAccount),
		campaigns: make(map[string]*models.Campaign),
		adsets:    make(map[string]*models.AdSet),
		ads:       make(map[string]*models.Ad),
		insights:  make(map[string]*models.DailyInsight),
		failIDs:   make(map[string]bool),
	}
}

func (m *memRepos) Upsert(ctx context.Context, account *models.AdAccount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failIDs[account.AccountID] {
		return fmt.Errorf("forced failure for %s", account.AccountID)
	}
	m.accounts[account.AccountID] = account
	return nil
}

func (m *memRepos) GetByID(_ context.Context, accountID string) (*models.AdAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accounts[accountID]
	if !ok {
		return nil, repositories.NotFound("account %s does not exist", accountID)
	}
	return account, nil
}

func (m *memRepos) List(_ context.Context) ([]models.AdAccount, error) {
	return m.listActive(false)
}

func (m *memRepos) ListActive(_ context.Context) ([]models.AdAccount, error) {
	return m.listActive(true)
}

func (m *memRepos) listActive(onlyActive bool) ([]models.AdAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.AdAccount
	for _, account := range m.accounts {
		if !onlyActive || account.IsActive() {
			out = append(out, *account)
		}
	}
	return out, nil
}

func (m *memRepos) Delete(_ context.Context, accountID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.accounts, accountID)
	return nil
}

type campaignRepo struct{ *memRepos }

func (r campaignRepo) Upsert(_ context.Context, campaign *models.Campaign) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failIDs[campaign.CampaignID] {
		return fmt.Errorf("forced failure for %s", campaign.CampaignID)
	}
	r.campaigns[campaign.CampaignID] = campaign
	return nil
}

func (r campaignRepo) GetByID(_ context.Context, id string) (*models.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	campaign, ok := r.campaigns[id]
	if !ok {
		return nil, repositories.NotFound("campaign %s does not exist", id)
	}
	return campaign, nil
}

func (r campaignRepo) ListByAccount(_ context.Context, accountID string) ([]models.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Campaign
	for _, campaign := range r.campaigns {
		if campaign.AccountID == accountID {
			out = append(out, *campaign)
		}
	}
	return out, nil
}

func (r campaignRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.campaigns, id)
	return nil
}

type adsetRepo struct{ *memRepos }

func (r adsetRepo) Upsert(_ context.Context, adset *models.AdSet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adsets[adset.AdSetID] = adset
	return nil
}

func (r adsetRepo) GetByID(_ context.Context, id string) (*models.AdSet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	adset, ok := r.adsets[id]
	if !ok {
		return nil, repositories.NotFound("ad set %s does not exist", id)
	}
	return adset, nil
}

func (r adsetRepo) ListByCampaign(_ context.Context, string2 string) ([]models.AdSet, error) {
	return nil, nil
}

func (r adsetRepo) ListByAccount(_ context.Context, string2 string) ([]models.AdSet, error) {
	return nil, nil
}

type adRepo struct{ *memRepos }

func (r adRepo) Upsert(_ context.Context, ad *models.Ad) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ads[ad.AdID] = ad
	return nil
}

func (r adRepo) GetByID(_ context.Context, id string) (*models.Ad, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ad, ok := r.ads[id]
	if !ok {
		return nil, repositories.NotFound("ad %s does not exist", id)
	}
	return ad, nil
}

func (r adRepo) ListByAdSet(_ context.Context, string2 string) ([]models.Ad, error)   { return nil, nil }
func (r adRepo) ListByAccount(_ context.Context, string2 string) ([]models.Ad, error) { return nil, nil }

type insightRepo struct{ *memRepos }

func (r insightRepo) Upsert(_ context.Context, insight *models.DailyInsight) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := insight.EntityType + ":" + insight.EntityID + ":" + insight.DateStart.Format("2006-01-02")
	r.insights[key] = insight
	return nil
}

func (r insightRepo) List(_ context.Context, _ models.InsightFilter) ([]models.DailyInsight, error) {
	return nil, nil
}

func (r insightRepo) DeleteByAccount(_ context.Context, string2 string) (int64, error) {
	return 0, nil
}

func newService(api *fakeAPI, repos *memRepos, cfg syncer.Config) *syncer.Service {
	logger := getTestLogger()
	return syncer.NewService(
		api,
		repos,
		campaignRepo{repos},
		adsetRepo{repos},
		adRepo{repos},
		insightRepo{repos},
		nil,
		cache.New(nil, logger),
		events.NewEmitter(nil, logger),
		cfg,
		logger,
	)
}

func TestSyncAllAccounts(t *testing.T) {
	api := &fakeAPI{
		accounts: []metaapi.AccountData{
			{ID: "act_1", AccountID: "1", Name: "One", AccountStatus: 1, AmountSpent: "150.25"},
			{ID: "act_2", AccountID: "2", Name: "Two", AccountStatus: 2},
		},
	}
	repos := newMemRepos()
	svc := newService(api, repos, syncer.Config{})

	result, err := svc.SyncAllAccounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 0, result.Errors)

	stored, err := repos.GetByID(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "One", stored.Name)
	assert.Equal(t, 150.25, stored.AmountSpent)
	require.NotNil(t, stored.LastSyncAt)
}

func TestSyncAllAccounts_AccumulatesRowErrors(t *testing.T) {
	api := &fakeAPI{}
	for i := 0; i < 10; i++ {
		api.accounts = append(api.accounts, metaapi.AccountData{
			AccountID: fmt.Sprintf("%d", i), Name: fmt.Sprintf("acct %d", i), AccountStatus: 1,
		})
	}
	repos := newMemRepos()
	repos.failIDs["3"] = true
	repos.failIDs["7"] = true
	svc := newService(api, repos, syncer.Config{})

	result, err := svc.SyncAllAccounts(context.Background())
	require.NoError(t, err, "row failures do not fail the run")
	assert.Equal(t, 8, result.Processed)
	assert.Equal(t, 2, result.Errors)
	assert.Len(t, result.ErrorDetails, 2)
	assert.Contains(t, result.ErrorDetails[0], "account 3")
}

func TestResult_WireShape(t *testing.T) {
	api := &fakeAPI{
		accounts: []metaapi.AccountData{
			{AccountID: "1", Name: "One", AccountStatus: 1},
		},
	}
	repos := newMemRepos()
	svc := newService(api, repos, syncer.Config{})

	result, err := svc.SyncAllAccounts(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Success)

	raw, err := json.Marshal(result)
	require.NoError(t, err)

	var wire map[string]any
	require.NoError(t, json.Unmarshal(raw, &wire))
	assert.Equal(t, true, wire["success"])
	assert.Contains(t, wire, "duration_ms")
	assert.NotContains(t, wire, "duration", "duration serializes as milliseconds only")

	ms, ok := wire["duration_ms"].(float64)
	require.True(t, ok)
	assert.Less(t, ms, float64(10_000), "milliseconds, not nanoseconds")
}

func TestResult_SuccessFalseOnRowErrors(t *testing.T) {
	api := &fakeAPI{
		accounts: []metaapi.AccountData{
			{AccountID: "1", Name: "One", AccountStatus: 1},
			{AccountID: "2", Name: "Two", AccountStatus: 1},
		},
	}
	repos := newMemRepos()
	repos.failIDs["2"] = true
	svc := newService(api, repos, syncer.Config{})

	result, err := svc.SyncAllAccounts(context.Background())
	require.NoError(t, err)
	assert.False(t, result.Success)
}

func TestSyncAllCampaigns_SyncsStructure(t *testing.T) {
	repos := newMemRepos()
	repos.accounts["1"] = &models.AdAccount{AccountID: "1", Status: models.AccountStatusActive}
	repos.accounts["9"] = &models.AdAccount{AccountID: "9", Status: models.AccountStatusDisabled}

	api := &fakeAPI{
		campaigns: map[string][]metaapi.CampaignData{
			"1": {{ID: "c1", Name: "First"}, {ID: "c2", Name: "Second"}},
			"9": {{ID: "c9", Name: "ShouldNotSync"}},
		},
		adsets: map[string][]metaapi.AdSetData{
			"1": {{ID: "as1", CampaignID: "c1"}},
		},
		ads: map[string][]metaapi.AdData{
			"1": {{ID: "a1", AdSetID: "as1", CampaignID: "c1"}},
		},
	}
	svc := newService(api, repos, syncer.Config{})

	result, err := svc.SyncAllCampaigns(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, result.Processed, "2 campaigns + 1 adset + 1 ad")

	_, err = campaignRepo{repos}.GetByID(context.Background(), "c9")
	assert.Error(t, err, "disabled accounts are skipped")

	stored, err := campaignRepo{repos}.GetByID(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "1", stored.AccountID)
}

func TestSyncInsights_MapsLevels(t *testing.T) {
	repos := newMemRepos()
	repos.accounts["1"] = &models.AdAccount{AccountID: "1", Status: models.AccountStatusActive}

	api := &fakeAPI{
		insights: map[string][]metaapi.InsightData{
			"1": {
				{DateStart: "2026-08-01", CampaignID: "c1", CampaignName: "camp", Spend: "10.5", Impressions: "100", Clicks: "7"},
				{DateStart: "2026-08-01", AdSetID: "as1", AdSetName: "set", Spend: "4.5"},
				{DateStart: "2026-08-01", AdID: "a1", AdName: "ad", Spend: "1.5"},
				{DateStart: "2026-08-01", Spend: "0"}, // no identity, must be counted as an error
			},
		},
	}
	svc := newService(api, repos, syncer.Config{InsightsWindowDays: 7})

	result, err := svc.SyncInsights(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, result.Processed)
	assert.Equal(t, 1, result.Errors)

	row := repos.insights["campaign:c1:2026-08-01"]
	require.NotNil(t, row)
	assert.Equal(t, 10.5, row.Spend)
	assert.Equal(t, int64(100), row.Impressions)
	assert.Equal(t, int64(7), row.Clicks)
	assert.Equal(t, "camp", row.EntityName)
	assert.Equal(t, "1", row.AccountID)
}

func TestSync_SkipsWhenAlreadyRunning(t *testing.T) {
	api := &fakeAPI{block: make(chan struct{})}
	svc := newService(api, newMemRepos(), syncer.Config{})

	started := make(chan struct{})
	done := make(chan struct{})
	go func() {
		close(started)
		_, _ = svc.SyncAllAccounts(context.Background())
		close(done)
	}()

	<-started
	// Give the goroutine a beat to claim the busy flag
	require.Eventually(t, func() bool {
		return svc.IsRunning(syncer.JobAccounts)
	}, time.Second, time.Millisecond)

	_, err := svc.SyncAllAccounts(context.Background())
	assert.ErrorIs(t, err, syncer.ErrSyncInProgress)

	close(api.block)
	<-done

	// The flag clears once the run finishes
	_, err = svc.SyncAllAccounts(context.Background())
	assert.NoError(t, err)
}

func TestSyncAccount_ManualUnknownAccount(t *testing.T) {
	svc := newService(&fakeAPI{}, newMemRepos(), syncer.Config{})

	_, err := svc.SyncAccount(context.Background(), "nope")
	assert.Error(t, err)
}

func TestSyncAccount_ManualRunsStructureAndInsights(t *testing.T) {
	repos := newMemRepos()
	repos.accounts["1"] = &models.AdAccount{AccountID: "1", Status: models.AccountStatusActive}

	api := &fakeAPI{
		campaigns: map[string][]metaapi.CampaignData{"1": {{ID: "c1"}}},
		insights: map[string][]metaapi.InsightData{
			"1": {{DateStart: "2026-08-02", CampaignID: "c1", Spend: "3"}},
		},
	}
	svc := newService(api, repos, syncer.Config{InsightsWindowDays: 7})

	result, err := svc.SyncAccount(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, 2, result.Processed)
	assert.NotNil(t, repos.insights["campaign:c1:2026-08-02"])
}

func TestCleanupCache(t *testing.T) {
	svc := newService(&fakeAPI{}, newMemRepos(), syncer.Config{})

	result, err := svc.CleanupCache(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Errors)
}
