// Package insights interprets the opaque action breakdown blobs stored on
// daily metric rows. The blobs keep the Graph API's shape verbatim; queries
// against them run here, at the read edge, via JMESPath.
package insights

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jmespath/go-jmespath"

	"github.com/adpulse/adsync/pkg/models"
)

// Well-known Graph API action types
const (
	ActionPurchase             = "purchase"
	ActionLead                 = "lead"
	ActionCompleteRegistration = "complete_registration"
	ActionAddToCart            = "add_to_cart"
	ActionLinkClick            = "link_click"
)

// ActionValue extracts the value recorded for an action type from a
// breakdown list. The second return is false when the action type is absent
// or its value does not parse.
func ActionValue(breakdown []map[string]any, actionType string) (float64, bool) {
	if len(breakdown) == 0 {
		return 0, false
	}

	expr := fmt.Sprintf("[?action_type=='%s'].value | [0]", escape(actionType))
	result, err := jmespath.Search(expr, toAnySlice(breakdown))
	if err != nil || result == nil {
		return 0, false
	}

	switch v := result.(type) {
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	case float64:
		return v, true
	default:
		return 0, false
	}
}

// ConversionSummary is the rolled-up conversion view of one metric row
type ConversionSummary struct {
	Purchases     float64 `json:"purchases"`
	PurchaseValue float64 `json:"purchase_value"`
	Leads         float64 `json:"leads"`
	Registrations float64 `json:"registrations"`
	AddsToCart    float64 `json:"adds_to_cart"`
	ROAS          float64 `json:"roas"`
}

// Summarize folds the breakdown blobs of a metric row into the conversion
// numbers the dashboard charts
func Summarize(insight *models.DailyInsight) ConversionSummary {
	actions := insight.Actions.GetValue()
	values := insight.ActionValues.GetValue()

	var summary ConversionSummary
	summary.Purchases, _ = ActionValue(actions, ActionPurchase)
	summary.PurchaseValue, _ = ActionValue(values, ActionPurchase)
	summary.Leads, _ = ActionValue(actions, ActionLead)
	summary.Registrations, _ = ActionValue(actions, ActionCompleteRegistration)
	summary.AddsToCart, _ = ActionValue(actions, ActionAddToCart)

	if insight.Spend > 0 {
		summary.ROAS = summary.PurchaseValue / insight.Spend
	}
	return summary
}

// escape keeps single quotes in an action type from breaking the JMESPath
// literal
func escape(s string) string {
	return strings.ReplaceAll(s, "'", "\\'")
}

func toAnySlice(breakdown []map[string]any) []any {
	out := make([]any, len(breakdown))
	for i, m := range breakdown {
		out[i] = map[string]any(m)
	}
	return out
}
