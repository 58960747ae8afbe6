package syncer

import (
	"strconv"
	"strings"
	"time"

	"github.com/adpulse/adsync/pkg/database"
	"github.com/adpulse/adsync/pkg/metaapi"
	"github.com/adpulse/adsync/pkg/models"
)

// The Graph API serializes numbers as strings and omits absent fields, so
// conversion is tolerant: bad or missing values become zero or nil rather
// than failing the row.

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

func parseInt(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}

// parseBudget converts a minor-unit budget string ("1500" cents) to a major
// unit float, nil when absent
func parseBudget(s string) *float64 {
	if s == "" {
		return nil
	}
	cents, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	v := cents / 100
	return &v
}

func parseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}

func parseDate(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func strOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func normalizeAccountID(id string) string {
	return strings.TrimPrefix(id, "act_")
}

func toAccount(data metaapi.AccountData, syncedAt time.Time) *models.AdAccount {
	accountID := data.AccountID
	if accountID == "" {
		accountID = normalizeAccountID(data.ID)
	}

	account := &models.AdAccount{
		AccountID:    accountID,
		Name:         data.Name,
		Status:       data.AccountStatus,
		Currency:     data.Currency,
		Timezone:     data.TimezoneName,
		AmountSpent:  parseFloat(data.AmountSpent),
		Balance:      parseFloat(data.Balance),
		SpendCap:     parseBudget(data.SpendCap),
		Capabilities: database.NewJSONB(data.Capabilities),
		LastSyncAt:   &syncedAt,
	}
	if data.Business != nil {
		account.BusinessID = strOrNil(data.Business.ID)
		account.BusinessName = strOrNil(data.Business.Name)
	}
	return account
}

func toCampaign(data metaapi.CampaignData, accountID string, syncedAt time.Time) *models.Campaign {
	return &models.Campaign{
		CampaignID:       data.ID,
		AccountID:        accountID,
		Name:             data.Name,
		Objective:        data.Objective,
		Status:           data.Status,
		ConfiguredStatus: data.ConfiguredStatus,
		EffectiveStatus:  data.EffectiveStatus,
		DailyBudget:      parseBudget(data.DailyBudget),
		LifetimeBudget:   parseBudget(data.LifetimeBudget),
		BudgetRemaining:  parseBudget(data.BudgetRemaining),
		BidStrategy:      strOrNil(data.BidStrategy),
		StartTime:        parseTime(data.StartTime),
		StopTime:         parseTime(data.StopTime),
		Issues:           database.NewJSONB(data.Issues),
		LastSyncAt:       &syncedAt,
	}
}

func toAdSet(data metaapi.AdSetData, accountID string, syncedAt time.Time) *models.AdSet {
	return &models.AdSet{
		AdSetID:          data.ID,
		CampaignID:       data.CampaignID,
		AccountID:        accountID,
		Name:             data.Name,
		Status:           data.Status,
		ConfiguredStatus: data.ConfiguredStatus,
		EffectiveStatus:  data.EffectiveStatus,
		DailyBudget:      parseBudget(data.DailyBudget),
		LifetimeBudget:   parseBudget(data.LifetimeBudget),
		BudgetRemaining:  parseBudget(data.BudgetRemaining),
		OptimizationGoal: strOrNil(data.OptimizationGoal),
		BillingEvent:     strOrNil(data.BillingEvent),
		Targeting:        database.NewJSONB(data.Targeting),
		StartTime:        parseTime(data.StartTime),
		EndTime:          parseTime(data.EndTime),
		LastSyncAt:       &syncedAt,
	}
}

func toAd(data metaapi.AdData, accountID string, syncedAt time.Time) *models.Ad {
	return &models.Ad{
		AdID:             data.ID,
		AdSetID:          data.AdSetID,
		CampaignID:       data.CampaignID,
		AccountID:        accountID,
		Name:             data.Name,
		Status:           data.Status,
		ConfiguredStatus: data.ConfiguredStatus,
		EffectiveStatus:  data.EffectiveStatus,
		Creative:         database.NewJSONB(data.Creative),
		PreviewURL:       strOrNil(data.PreviewShareableLink),
		LastSyncAt:       &syncedAt,
	}
}

// toInsight maps one daily metric row. The entity identity comes from the
// level the row was fetched at.
func toInsight(data metaapi.InsightData, accountID, level string) *models.DailyInsight {
	insight := &models.DailyInsight{
		AccountID:        accountID,
		DateStart:        parseDate(data.DateStart),
		Spend:            parseFloat(data.Spend),
		Impressions:      parseInt(data.Impressions),
		Clicks:           parseInt(data.Clicks),
		Reach:            parseInt(data.Reach),
		Frequency:        parseFloat(data.Frequency),
		CTR:              parseFloat(data.CTR),
		CPC:              parseFloat(data.CPC),
		CPM:              parseFloat(data.CPM),
		CPP:              parseFloat(data.CPP),
		Actions:          database.NewJSONB(data.Actions),
		ActionValues:     database.NewJSONB(data.ActionValues),
		Conversions:      database.NewJSONB(data.Conversions),
		ConversionValues: database.NewJSONB(data.ConversionValues),
		VideoMetrics:     database.NewJSONB(data.VideoPlayActions),
	}

	switch level {
	case models.EntityTypeCampaign:
		insight.EntityType = models.EntityTypeCampaign
		insight.EntityID = data.CampaignID
		insight.EntityName = data.CampaignName
	case models.EntityTypeAdSet:
		insight.EntityType = models.EntityTypeAdSet
		insight.EntityID = data.AdSetID
		insight.EntityName = data.AdSetName
	case models.EntityTypeAd:
		insight.EntityType = models.EntityTypeAd
		insight.EntityID = data.AdID
		insight.EntityName = data.AdName
	}

	return insight
}
