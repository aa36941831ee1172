package models

import (
	"time"
)

// AccessToken is a short-lived opaque capability granting document reads to a
// verified recipient or process server. One active token per
// (wallet_address, alert_token_id) pair; re-verification overwrites the row.
type AccessToken struct {
	Token           string    `gorm:"primaryKey;column:token"`
	WalletAddress   string    `gorm:"uniqueIndex:idx_wallet_alert;not null;column:wallet_address"`
	AlertTokenID    string    `gorm:"uniqueIndex:idx_wallet_alert;not null;column:alert_token_id"`
	DocumentTokenID string    `gorm:"index;column:document_token_id"`
	ExpiresAt       time.Time `gorm:"not null"`
	Revoked         bool      `gorm:"not null;default:false"`
	UsageCount      int       `gorm:"not null;default:0"`
	LastUsedAt      time.Time
	CreatedAt       time.Time `gorm:"default:CURRENT_TIMESTAMP"`
}

func (AccessToken) TableName() string {
	return "access_tokens"
}

// Valid reports whether the token still grants access at the given instant.
func (t *AccessToken) Valid(now time.Time) bool {
	return !t.Revoked && now.Before(t.ExpiresAt)
}
