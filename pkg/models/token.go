package models

import (
	"time"

	"github.com/google/uuid"
)

// SystemToken is the persisted long-lived Graph API credential
type SystemToken struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Token     string    `db:"token" json:"-"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// IsExpired reports whether the token needs a refresh. A small margin keeps
// us from using a token that expires mid-request.
func (t *SystemToken) IsExpired(margin time.Duration) bool {
	return time.Now().Add(margin).After(t.ExpiresAt)
}

// TableName returns the database table name
func (SystemToken) TableName() string {
	return "system_tokens"
}
