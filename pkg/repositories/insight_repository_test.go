package repositories_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adpulse/adsync/pkg/models"
	"github.com/adpulse/adsync/pkg/repositories"
)

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestInsightRepository_UpsertOverwritesSameDay(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := getTestDB(t)
	repo := repositories.NewInsightRepository(db, getTestLogger())
	ctx := context.Background()

	accountID := testAccountID()
	entityID := uuid.NewString()
	t.Cleanup(func() { _, _ = repo.DeleteByAccount(context.Background(), accountID) })

	row := &models.DailyInsight{
		EntityType: models.EntityTypeCampaign,
		EntityID:   entityID,
		EntityName: "Summer Sale",
		AccountID:  accountID,
		DateStart:  day("2026-08-01"),
		Spend:      10.50,
		Clicks:     12,
	}
	require.NoError(t, repo.Upsert(ctx, row))

	// A later sync of the same day replaces the metrics instead of
	// inserting a second row
	row.Spend = 25.75
	row.Clicks = 30
	require.NoError(t, repo.Upsert(ctx, row))

	got, err := repo.List(ctx, models.InsightFilter{AccountID: accountID})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 25.75, got[0].Spend)
	assert.Equal(t, int64(30), got[0].Clicks)
}

func TestInsightRepository_ListOrdering(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := getTestDB(t)
	repo := repositories.NewInsightRepository(db, getTestLogger())
	ctx := context.Background()

	accountID := testAccountID()
	t.Cleanup(func() { _, _ = repo.DeleteByAccount(context.Background(), accountID) })

	rows := []models.DailyInsight{
		{EntityType: models.EntityTypeCampaign, EntityID: uuid.NewString(), AccountID: accountID, DateStart: day("2026-08-01"), Spend: 5},
		{EntityType: models.EntityTypeCampaign, EntityID: uuid.NewString(), AccountID: accountID, DateStart: day("2026-08-02"), Spend: 1},
		{EntityType: models.EntityTypeCampaign, EntityID: uuid.NewString(), AccountID: accountID, DateStart: day("2026-08-02"), Spend: 9},
	}
	for i := range rows {
		require.NoError(t, repo.Upsert(ctx, &rows[i]))
	}

	got, err := repo.List(ctx, models.InsightFilter{AccountID: accountID})
	require.NoError(t, err)
	require.Len(t, got, 3)

	// Newest day first, then highest spend within the day
	assert.Equal(t, day("2026-08-02"), got[0].DateStart.UTC().Truncate(24*time.Hour))
	assert.Equal(t, float64(9), got[0].Spend)
	assert.Equal(t, float64(1), got[1].Spend)
	assert.Equal(t, day("2026-08-01"), got[2].DateStart.UTC().Truncate(24*time.Hour))
}

func TestInsightRepository_ListFilters(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := getTestDB(t)
	repo := repositories.NewInsightRepository(db, getTestLogger())
	ctx := context.Background()

	accountID := testAccountID()
	campaignID := uuid.NewString()
	adID := uuid.NewString()
	t.Cleanup(func() { _, _ = repo.DeleteByAccount(context.Background(), accountID) })

	require.NoError(t, repo.Upsert(ctx, &models.DailyInsight{
		EntityType: models.EntityTypeCampaign, EntityID: campaignID, AccountID: accountID, DateStart: day("2026-08-01"), Spend: 2,
	}))
	require.NoError(t, repo.Upsert(ctx, &models.DailyInsight{
		EntityType: models.EntityTypeAd, EntityID: adID, AccountID: accountID, DateStart: day("2026-08-05"), Spend: 3,
	}))

	byType, err := repo.List(ctx, models.InsightFilter{AccountID: accountID, EntityType: models.EntityTypeAd})
	require.NoError(t, err)
	require.Len(t, byType, 1)
	assert.Equal(t, adID, byType[0].EntityID)

	since := day("2026-08-02")
	byDate, err := repo.List(ctx, models.InsightFilter{AccountID: accountID, Since: &since})
	require.NoError(t, err)
	require.Len(t, byDate, 1)
	assert.Equal(t, models.EntityTypeAd, byDate[0].EntityType)

	limited, err := repo.List(ctx, models.InsightFilter{AccountID: accountID, Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, campaignID, limited[0].EntityID)
}
