package models

import "time"

// UserToken holds single-use password reset tokens. The raw token is mailed to
// the user; only its bcrypt hash is stored.
type UserToken struct {
	TokenID   int        `gorm:"primaryKey;column:token_id" json:"token_id"`
	UserID    int        `gorm:"column:user_id;index" json:"user_id"`
	TokenHash string     `gorm:"column:token_hash" json:"-"`
	TokenType string     `gorm:"column:token_type" json:"token_type"`
	IsRevoked bool       `gorm:"column:is_revoked" json:"is_revoked"`
	ExpiresAt time.Time  `gorm:"column:expires_at" json:"expires_at"`
	CreatedAt time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt *time.Time `gorm:"column:updated_at" json:"-"`
}

func (UserToken) TableName() string { return "user_tokens" }
