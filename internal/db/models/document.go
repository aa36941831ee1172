package models

import (
	"time"
)

// EncryptedDocument is the metadata row for one encrypted blob on disk.
// Key material lives in plaintext next to the ciphertext metadata for
// compatibility with the legacy data set; see DESIGN.md before changing this.
type EncryptedDocument struct {
	DocumentID       string    `gorm:"primaryKey;column:document_id"`
	NoticeID         string    `gorm:"index;column:notice_id"`
	CaseNumber       string    `gorm:"index;column:case_number"`
	ServerAddress    string    `gorm:"index;column:server_address"`
	RecipientAddress string    `gorm:"index;column:recipient_address"`
	FilePath         string    `gorm:"not null;column:file_path"`
	FileSize         int64     `gorm:"column:file_size"`
	MimeType         string    `gorm:"column:mime_type"`
	OriginalName     string    `gorm:"column:original_name"`
	EncryptionKey    string    `gorm:"not null;column:encryption_key"`
	EncryptionIV     string    `gorm:"not null;column:encryption_iv"`
	AuthTag          string    `gorm:"not null;column:auth_tag"`
	CreatedAt        time.Time `gorm:"default:CURRENT_TIMESTAMP"`
	LastAccessed     time.Time
}

func (EncryptedDocument) TableName() string {
	return "encrypted_documents"
}
