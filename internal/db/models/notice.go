package models

import (
	"time"
)

// Notice is one served legal notice. The alert token is the public-facing
// half of the pair, the document token gates the full content. Legacy rows
// carry an IPFS hash plus the CryptoJS passphrase used by the old browser
// encryptor; RecoveryStatus is the recovery pipeline's only write-back.
type Notice struct {
	ID               uint      `gorm:"primaryKey"`
	NoticeID         string    `gorm:"uniqueIndex;not null;column:notice_id"`
	AlertTokenID     string    `gorm:"uniqueIndex;not null;column:alert_token_id"`
	DocumentTokenID  string    `gorm:"index;column:document_token_id"`
	RecipientAddress string    `gorm:"index;not null;column:recipient_address"`
	ServerAddress    string    `gorm:"index;not null;column:server_address"`
	CaseNumber       string    `gorm:"column:case_number"`
	NoticeType       string    `gorm:"column:notice_type"`
	IssuingAgency    string    `gorm:"column:issuing_agency"`
	Status           string    `gorm:"column:status"`
	AlertThumbnail   string    `gorm:"column:alert_thumbnail"`
	IPFSHash         string    `gorm:"column:ipfs_hash"`
	EncryptionKey    string    `gorm:"column:encryption_key"`
	RecoveryStatus   string    `gorm:"column:recovery_status"`
	CreatedAt        time.Time `gorm:"default:CURRENT_TIMESTAMP"`
}

func (Notice) TableName() string {
	return "served_notices"
}
