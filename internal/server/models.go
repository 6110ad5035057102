// Package server provides the roomwatch API service: the HTTP ingestion
// gateway, the RabbitMQ tag-read consumer, and the PostgreSQL-backed
// event, token, and user stores.
package server

import (
	"time"
)

// TagEvent represents one RFID tag observation stored in the database.
// Events are append-only: no update or delete path exists.
type TagEvent struct {
	ObservedAt time.Time `gorm:"index:idx_observed_at,sort:desc;not null"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
	TagID      string    `gorm:"index;not null"`
	Status     string    `gorm:"not null"`
	ID         uint      `gorm:"primaryKey"`
}

// TableName specifies the table name for TagEvent model.
func (TagEvent) TableName() string {
	return "tag_events"
}

// PushToken represents a push-notification delivery token registered by a
// client device. The token value is unique; re-registration refreshes
// RegisteredAt instead of creating a duplicate row.
type PushToken struct {
	Value        string    `gorm:"uniqueIndex;not null"`
	RegisteredAt time.Time `gorm:"not null"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
	ID           uint      `gorm:"primaryKey"`
}

// TableName specifies the table name for PushToken model.
func (PushToken) TableName() string {
	return "push_tokens"
}

// User represents an account in the thin credential layer. Passwords are
// stored as bcrypt hashes, never in plaintext.
type User struct {
	Username     string    `gorm:"uniqueIndex;not null"`
	PasswordHash string    `gorm:"not null"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
	ID           uint      `gorm:"primaryKey"`
}

// TableName specifies the table name for User model.
func (User) TableName() string {
	return "users"
}
