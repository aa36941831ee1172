package models

import (
	"time"
)

// ProcessServer is an approved process server. Approved servers pass the
// admin check on document reads and may mint notices through the API using
// the bcrypt-hashed key issued at registration.
type ProcessServer struct {
	ID            uint      `gorm:"primaryKey"`
	WalletAddress string    `gorm:"uniqueIndex;not null;column:wallet_address"`
	AgencyName    string    `gorm:"column:agency_name"`
	ContactEmail  string    `gorm:"column:contact_email"`
	Approved      bool      `gorm:"not null;default:false"`
	APIKeyHash    string    `gorm:"column:api_key_hash"`
	CreatedAt     time.Time `gorm:"default:CURRENT_TIMESTAMP"`
}

func (ProcessServer) TableName() string {
	return "process_servers"
}
