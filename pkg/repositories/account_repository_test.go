package repositories_test

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/adpulse/adsync/pkg/database"
	"github.com/adpulse/adsync/pkg/models"
	"github.com/adpulse/adsync/pkg/repositories"
)

func getTestLogger() ectologger.Logger {
	zapLogger, _ := zap.NewDevelopment()
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

func getTestDB(t *testing.T) database.DB {
	// Use environment variables or defaults for test DB
	dbHost := os.Getenv("DB_HOST")
	if dbHost == "" {
		dbHost = "localhost"
	}
	dbUser := os.Getenv("DB_USER_NAME")
	if dbUser == "" {
		dbUser = "user"
	}
	dbPass := os.Getenv("DB_PASSWORD")
	if dbPass == "" {
		dbPass = "password"
	}
	dbName := os.Getenv("DB_NAME")
	if dbName == "" {
		dbName = "adsync"
	}

	dsn := "host=" + dbHost + " user=" + dbUser + " password=" + dbPass + " dbname=" + dbName + " sslmode=disable"
	db, err := sqlx.Connect("postgres", dsn)
	require.NoError(t, err, "Failed to connect to test database")

	return database.NewDatabaseInstance(db, getTestLogger())
}

// assertNotFound asserts that err is an HTTP 404 error
func assertNotFound(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, httperror.IsHTTPError(err), "expected HTTP error, got: %v", err)
	assert.Equal(t, http.StatusNotFound, httperror.GetStatusCode(err), "expected 404, got: %d", httperror.GetStatusCode(err))
}

func strPtr(s string) *string { return &s }

func testAccountID() string {
	return "act_" + uuid.NewString()
}

func TestAccountRepository_UpsertIsIdempotent(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := getTestDB(t)
	logger := getTestLogger()
	repo := repositories.NewAccountRepository(db, logger)
	ctx := context.Background()

	accountID := testAccountID()
	t.Cleanup(func() { _ = repo.Delete(context.Background(), accountID) })

	account := &models.AdAccount{
		AccountID: accountID,
		Name:      "Acme Ads",
		Status:    models.AccountStatusActive,
		Currency:  "USD",
		Timezone:  "America/Los_Angeles",
	}
	require.NoError(t, repo.Upsert(ctx, account))

	// Replaying the same account with changed fields updates in place
	account.Name = "Acme Ads (renamed)"
	account.AmountSpent = 1234.56
	require.NoError(t, repo.Upsert(ctx, account))

	fetched, err := repo.GetByID(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, "Acme Ads (renamed)", fetched.Name)
	assert.Equal(t, 1234.56, fetched.AmountSpent)

	accounts, err := repo.List(ctx)
	require.NoError(t, err)
	seen := 0
	for _, a := range accounts {
		if a.AccountID == accountID {
			seen++
		}
	}
	assert.Equal(t, 1, seen, "replayed upsert must not duplicate the row")
}

func TestAccountRepository_ListActiveExcludesDisabled(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := getTestDB(t)
	repo := repositories.NewAccountRepository(db, getTestLogger())
	ctx := context.Background()

	activeID := testAccountID()
	disabledID := testAccountID()
	t.Cleanup(func() {
		_ = repo.Delete(context.Background(), activeID)
		_ = repo.Delete(context.Background(), disabledID)
	})

	require.NoError(t, repo.Upsert(ctx, &models.AdAccount{AccountID: activeID, Name: "active", Status: models.AccountStatusActive}))
	require.NoError(t, repo.Upsert(ctx, &models.AdAccount{AccountID: disabledID, Name: "disabled", Status: models.AccountStatusDisabled}))

	active, err := repo.ListActive(ctx)
	require.NoError(t, err)

	ids := make(map[string]bool, len(active))
	for _, a := range active {
		ids[a.AccountID] = true
	}
	assert.True(t, ids[activeID])
	assert.False(t, ids[disabledID])
}

func TestAccountRepository_DeleteCascades(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := getTestDB(t)
	logger := getTestLogger()
	accounts := repositories.NewAccountRepository(db, logger)
	campaigns := repositories.NewCampaignRepository(db, logger)
	adsets := repositories.NewAdSetRepository(db, logger)
	ads := repositories.NewAdRepository(db, logger)
	ctx := context.Background()

	accountID := testAccountID()
	campaignID := uuid.NewString()
	adsetID := uuid.NewString()
	adID := uuid.NewString()

	require.NoError(t, accounts.Upsert(ctx, &models.AdAccount{AccountID: accountID, Name: "cascade", Status: models.AccountStatusActive}))
	require.NoError(t, campaigns.Upsert(ctx, &models.Campaign{CampaignID: campaignID, AccountID: accountID, Name: "c1"}))
	require.NoError(t, adsets.Upsert(ctx, &models.AdSet{AdSetID: adsetID, CampaignID: campaignID, AccountID: accountID, Name: "as1"}))
	require.NoError(t, ads.Upsert(ctx, &models.Ad{AdID: adID, AdSetID: adsetID, CampaignID: campaignID, AccountID: accountID, Name: "a1"}))

	require.NoError(t, accounts.Delete(ctx, accountID))

	_, err := campaigns.GetByID(ctx, campaignID)
	assertNotFound(t, err)
	_, err = adsets.GetByID(ctx, adsetID)
	assertNotFound(t, err)
	_, err = ads.GetByID(ctx, adID)
	assertNotFound(t, err)
}

func TestAccountRepository_DeleteJoinsCallerTx(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := getTestDB(t)
	logger := getTestLogger()
	accounts := repositories.NewAccountRepository(db, logger)
	insights := repositories.NewInsightRepository(db, logger)
	ctx := context.Background()

	accountID := testAccountID()
	t.Cleanup(func() {
		_ = accounts.Delete(context.Background(), accountID)
		_, _ = insights.DeleteByAccount(context.Background(), accountID)
	})

	require.NoError(t, accounts.Upsert(ctx, &models.AdAccount{AccountID: accountID, Name: "tx", Status: models.AccountStatusActive}))
	require.NoError(t, insights.Upsert(ctx, &models.DailyInsight{
		EntityType: models.EntityTypeCampaign,
		EntityID:   uuid.NewString(),
		EntityName: "tx",
		AccountID:  accountID,
		DateStart:  day("2026-08-01"),
		Spend:      1,
	}))

	// Rolled back: neither delete sticks, so no orphaned insight rows
	txCtx, tx, err := db.GetTx(ctx, &sql.TxOptions{})
	require.NoError(t, err)
	require.NoError(t, accounts.Delete(txCtx, accountID))
	_, err = insights.DeleteByAccount(txCtx, accountID)
	require.NoError(t, err)
	require.NoError(t, tx.Rollback(ctx))

	_, err = accounts.GetByID(ctx, accountID)
	assert.NoError(t, err, "rollback must restore the account row")
	rows, err := insights.List(ctx, models.InsightFilter{AccountID: accountID})
	require.NoError(t, err)
	assert.Len(t, rows, 1, "rollback must restore the insight rows")

	// Committed: both deletes land together
	txCtx, tx, err = db.GetTx(ctx, &sql.TxOptions{})
	require.NoError(t, err)
	require.NoError(t, accounts.Delete(txCtx, accountID))
	_, err = insights.DeleteByAccount(txCtx, accountID)
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))

	_, err = accounts.GetByID(ctx, accountID)
	assertNotFound(t, err)
	rows, err = insights.List(ctx, models.InsightFilter{AccountID: accountID})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestAccountRepository_GetMissingReturnsNotFound(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := getTestDB(t)
	repo := repositories.NewAccountRepository(db, getTestLogger())

	_, err := repo.GetByID(context.Background(), "act_does_not_exist")
	assertNotFound(t, err)
}

func TestTokenRepository_SaveAndGetLatest(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := getTestDB(t)
	repo := repositories.NewTokenRepository(db, getTestLogger())
	ctx := context.Background()

	token := &models.SystemToken{
		Token:     "EAAB" + uuid.NewString(),
		ExpiresAt: time.Now().Add(24 * time.Hour).UTC(),
	}
	require.NoError(t, repo.Save(ctx, token))
	assert.NotEqual(t, uuid.Nil, token.ID)

	latest, err := repo.GetLatest(ctx)
	require.NoError(t, err)
	assert.Equal(t, token.Token, latest.Token)
	assert.False(t, latest.IsExpired(time.Minute))
}
