package models

import (
	"time"

	"github.com/adpulse/adsync/pkg/database"
)

// AdAccount represents a synced advertising account
type AdAccount struct {
	AccountID    string                  `db:"account_id" json:"account_id"`
	Name         string                  `db:"name" json:"name"`
	Status       int                     `db:"status" json:"status"`
	Currency     string                  `db:"currency" json:"currency"`
	Timezone     string                  `db:"timezone" json:"timezone"`
	BusinessID   *string                 `db:"business_id" json:"business_id,omitempty"`
	BusinessName *string                 `db:"business_name" json:"business_name,omitempty"`
	AmountSpent  float64                 `db:"amount_spent" json:"amount_spent"`
	Balance      float64                 `db:"balance" json:"balance"`
	SpendCap     *float64                `db:"spend_cap" json:"spend_cap,omitempty"`
	Capabilities database.JSONB[[]string] `db:"capabilities" json:"capabilities,omitempty"`
	LastSyncAt   *time.Time              `db:"last_sync_at" json:"last_sync_at,omitempty"`
	CreatedAt    time.Time               `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time               `db:"updated_at" json:"updated_at"`
}

// IsActive reports whether the account should be included in sync passes
func (a *AdAccount) IsActive() bool {
	return a.Status == AccountStatusActive
}

// Account status codes as reported by the Graph API
const (
	AccountStatusActive    = 1
	AccountStatusDisabled  = 2
	AccountStatusUnsettled = 3
)

// TableName returns the database table name
func (AdAccount) TableName() string {
	return "ad_accounts"
}
