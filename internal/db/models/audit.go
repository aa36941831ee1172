package models

import (
	"time"
)

// AccessAttempt records one verification attempt against the access gate,
// granted or denied. Append-only; nothing in the service reads these back.
type AccessAttempt struct {
	ID            uint      `gorm:"primaryKey"`
	WalletAddress string    `gorm:"index;column:wallet_address"`
	AlertTokenID  string    `gorm:"index;column:alert_token_id"`
	Granted       bool      `gorm:"not null"`
	DenialReason  string    `gorm:"column:denial_reason"` // "not_recipient", "process_server_access" or ""
	AttemptedAt   time.Time `gorm:"default:CURRENT_TIMESTAMP"`
}

func (AccessAttempt) TableName() string {
	return "access_attempts"
}

// AccessLog records one document read. Append-only audit trail.
type AccessLog struct {
	ID            uint      `gorm:"primaryKey"`
	DocumentID    string    `gorm:"index;column:document_id"`
	WalletAddress string    `gorm:"index;column:wallet_address"`
	Action        string    `gorm:"not null"` // "retrieve", "token_fetch"
	AccessedAt    time.Time `gorm:"default:CURRENT_TIMESTAMP"`
}

func (AccessLog) TableName() string {
	return "access_logs"
}
