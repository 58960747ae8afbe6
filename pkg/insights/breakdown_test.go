package insights_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/adpulse/adsync/pkg/database"
	"github.com/adpulse/adsync/pkg/insights"
	"github.com/adpulse/adsync/pkg/models"
)

func TestActionValue(t *testing.T) {
	breakdown := []map[string]any{
		{"action_type": "purchase", "value": "12"},
		{"action_type": "link_click", "value": "340"},
	}

	purchases, ok := insights.ActionValue(breakdown, insights.ActionPurchase)
	assert.True(t, ok)
	assert.Equal(t, float64(12), purchases)

	clicks, ok := insights.ActionValue(breakdown, insights.ActionLinkClick)
	assert.True(t, ok)
	assert.Equal(t, float64(340), clicks)

	_, ok = insights.ActionValue(breakdown, insights.ActionLead)
	assert.False(t, ok, "absent action types report not found")

	_, ok = insights.ActionValue(nil, insights.ActionPurchase)
	assert.False(t, ok)
}

func TestActionValue_NonNumericValue(t *testing.T) {
	breakdown := []map[string]any{
		{"action_type": "purchase", "value": "not-a-number"},
	}

	_, ok := insights.ActionValue(breakdown, insights.ActionPurchase)
	assert.False(t, ok)
}

func TestSummarize(t *testing.T) {
	row := &models.DailyInsight{
		Spend: 50,
		Actions: database.NewJSONB([]map[string]any{
			{"action_type": "purchase", "value": "4"},
			{"action_type": "lead", "value": "7"},
		}),
		ActionValues: database.NewJSONB([]map[string]any{
			{"action_type": "purchase", "value": "200"},
		}),
	}

	summary := insights.Summarize(row)
	assert.Equal(t, float64(4), summary.Purchases)
	assert.Equal(t, float64(200), summary.PurchaseValue)
	assert.Equal(t, float64(7), summary.Leads)
	assert.Equal(t, float64(4), summary.ROAS)
}

func TestSummarize_ZeroSpendHasZeroROAS(t *testing.T) {
	summary := insights.Summarize(&models.DailyInsight{})
	assert.Equal(t, float64(0), summary.ROAS)
}
