package models

import (
	"time"

	"github.com/adpulse/adsync/pkg/database"
)

// API log event types
const (
	APILogEventRequest  = "request"
	APILogEventSecurity = "security"
)

// Security event severities
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// APILog is an append-only audit row for inbound requests and security
// events. Rows are never updated.
type APILog struct {
	ID         int64                          `db:"id" json:"id"`
	RequestID  string                         `db:"request_id" json:"request_id"`
	EventType  string                         `db:"event_type" json:"event_type"`
	Method     string                         `db:"method" json:"method"`
	Path       string                         `db:"path" json:"path"`
	StatusCode int                            `db:"status_code" json:"status_code"`
	DurationMs int64                          `db:"duration_ms" json:"duration_ms"`
	CallerIP   string                         `db:"caller_ip" json:"caller_ip"`
	UserAgent  string                         `db:"user_agent" json:"user_agent"`
	Severity   *string                        `db:"severity" json:"severity,omitempty"`
	Detail     database.JSONB[map[string]any] `db:"detail" json:"detail,omitempty"`
	CreatedAt  time.Time                      `db:"created_at" json:"created_at"`
}

// TableName returns the database table name
func (APILog) TableName() string {
	return "api_logs"
}
