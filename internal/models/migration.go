package models

import (
	"time"
)

// MigrationRecord is a ledger row: one per migration version that has been applied
type MigrationRecord struct {
	Version   int64     `gorm:"primaryKey;autoIncrement:false" json:"version"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	AppliedAt time.Time `gorm:"autoCreateTime;default:CURRENT_TIMESTAMP" json:"applied_at"`
}

// TableName ensures consistent table naming
func (MigrationRecord) TableName() string {
	return "migrations"
}
