// Package domain contains core types for the auth service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/orderdesk/internal/principal"
	"gorm.io/datatypes"
)

// User represents a system user account.
type User struct {
	ID           snowflake.ID      `gorm:"primaryKey" json:"id"`
	Username     string            `gorm:"size:30;not null;uniqueIndex" json:"username"`
	PasswordHash string            `gorm:"column:password_hash;type:text;not null" json:"-"`
	Role         principal.Role    `gorm:"size:16;not null;default:'user'" json:"role"`
	Metadata     datatypes.JSONMap `gorm:"column:metadata" json:"metadata,omitempty"`
	CreatedAt    time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time         `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }

// Principal returns the identity carried through request handling.
func (u User) Principal() principal.Principal {
	return principal.Principal{ID: u.ID, Role: u.Role, DisplayName: u.Username}
}

// Session represents a persisted login session.
type Session struct {
	ID               snowflake.ID `gorm:"primaryKey"`
	UserID           snowflake.ID `gorm:"column:user_id;not null;index"`
	SessionTokenHash string       `gorm:"column:session_token_hash;size:64;not null;uniqueIndex"`
	UserAgent        string       `gorm:"column:user_agent;type:text"`
	IPAddress        string       `gorm:"column:ip_address;size:64"`
	ExpiresAt        time.Time    `gorm:"column:expires_at;not null;index"`
	RevokedAt        *time.Time   `gorm:"column:revoked_at"`
	CreatedAt        time.Time    `gorm:"column:created_at;not null"`
	LastSeenAt       time.Time    `gorm:"column:last_seen_at;not null"`
}

// TableName sets the database table name.
func (Session) TableName() string { return "sessions" }
