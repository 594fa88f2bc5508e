package models

import (
	"time"
)

// User is the single entity exposed by the REST API.
// The table is owned by the SQL files under migrations/, not by AutoMigrate.
type User struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id" example:"3f2c1e0a-9b7d-4c55-8e21-0a4b6f1d2c33"`
	Username  string    `gorm:"size:255;not null" json:"username" example:"ada"`
	Email     string    `gorm:"size:255;not null;uniqueIndex" json:"email" example:"ada@example.com"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}
