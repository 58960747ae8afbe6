package metaapi

import "encoding/json"

// Paging is the Graph API cursor envelope attached to every collection
type Paging struct {
	Cursors struct {
		Before string `json:"before"`
		After  string `json:"after"`
	} `json:"cursors"`
	Next     string `json:"next,omitempty"`
	Previous string `json:"previous,omitempty"`
}

// page is one response page of a collection endpoint
type page struct {
	Data   []json.RawMessage `json:"data"`
	Paging Paging            `json:"paging"`
}

// The Graph API serializes every monetary and metric value as a string, so
// the wire types below carry them as strings and the callers parse.

// AccountData is the wire shape of an ad account
type AccountData struct {
	ID            string   `json:"id"`
	AccountID     string   `json:"account_id"`
	Name          string   `json:"name"`
	AccountStatus int      `json:"account_status"`
	Currency      string   `json:"currency"`
	TimezoneName  string   `json:"timezone_name"`
	AmountSpent   string   `json:"amount_spent"`
	Balance       string   `json:"balance"`
	SpendCap      string   `json:"spend_cap,omitempty"`
	Capabilities  []string `json:"capabilities,omitempty"`
	Business      *struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"business,omitempty"`
}

// CampaignData is the wire shape of a campaign
type CampaignData struct {
	ID              string           `json:"id"`
	AccountID       string           `json:"account_id"`
	Name            string           `json:"name"`
	Objective       string           `json:"objective"`
	Status          string           `json:"status"`
	ConfiguredStatus string          `json:"configured_status"`
	EffectiveStatus string           `json:"effective_status"`
	DailyBudget     string           `json:"daily_budget,omitempty"`
	LifetimeBudget  string           `json:"lifetime_budget,omitempty"`
	BudgetRemaining string           `json:"budget_remaining,omitempty"`
	BidStrategy     string           `json:"bid_strategy,omitempty"`
	StartTime       string           `json:"start_time,omitempty"`
	StopTime        string           `json:"stop_time,omitempty"`
	Issues          []map[string]any `json:"issues_info,omitempty"`
}

// AdSetData is the wire shape of an ad set
type AdSetData struct {
	ID               string         `json:"id"`
	CampaignID       string         `json:"campaign_id"`
	AccountID        string         `json:"account_id"`
	Name             string         `json:"name"`
	Status           string         `json:"status"`
	ConfiguredStatus string         `json:"configured_status"`
	EffectiveStatus  string         `json:"effective_status"`
	DailyBudget      string         `json:"daily_budget,omitempty"`
	LifetimeBudget   string         `json:"lifetime_budget,omitempty"`
	BudgetRemaining  string         `json:"budget_remaining,omitempty"`
	OptimizationGoal string         `json:"optimization_goal,omitempty"`
	BillingEvent     string         `json:"billing_event,omitempty"`
	Targeting        map[string]any `json:"targeting,omitempty"`
	StartTime        string         `json:"start_time,omitempty"`
	EndTime          string         `json:"end_time,omitempty"`
}

// AdData is the wire shape of an ad
type AdData struct {
	ID               string         `json:"id"`
	AdSetID          string         `json:"adset_id"`
	CampaignID       string         `json:"campaign_id"`
	AccountID        string         `json:"account_id"`
	Name             string         `json:"name"`
	Status           string         `json:"status"`
	ConfiguredStatus string         `json:"configured_status"`
	EffectiveStatus  string         `json:"effective_status"`
	Creative         map[string]any `json:"creative,omitempty"`
	PreviewShareableLink string     `json:"preview_shareable_link,omitempty"`
}

// InsightData is one row of the insights edge at daily granularity
type InsightData struct {
	DateStart    string           `json:"date_start"`
	DateStop     string           `json:"date_stop"`
	AccountID    string           `json:"account_id"`
	CampaignID   string           `json:"campaign_id,omitempty"`
	CampaignName string           `json:"campaign_name,omitempty"`
	AdSetID      string           `json:"adset_id,omitempty"`
	AdSetName    string           `json:"adset_name,omitempty"`
	AdID         string           `json:"ad_id,omitempty"`
	AdName       string           `json:"ad_name,omitempty"`
	Spend        string           `json:"spend"`
	Impressions  string           `json:"impressions"`
	Clicks       string           `json:"clicks"`
	Reach        string           `json:"reach"`
	Frequency    string           `json:"frequency"`
	CTR          string           `json:"ctr"`
	CPC          string           `json:"cpc"`
	CPM          string           `json:"cpm"`
	CPP          string           `json:"cpp"`
	Actions      []map[string]any `json:"actions,omitempty"`
	ActionValues []map[string]any `json:"action_values,omitempty"`
	Conversions  []map[string]any `json:"conversions,omitempty"`
	ConversionValues []map[string]any `json:"conversion_values,omitempty"`
	VideoPlayActions []map[string]any `json:"video_play_actions,omitempty"`
}

// TimeRange is the since/until window passed to the insights edge
type TimeRange struct {
	Since string `json:"since"`
	Until string `json:"until"`
}
