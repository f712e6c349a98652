package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Shopkeeper is the login identity that owns exactly one Shop.
type Shopkeeper struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	Email        string     `gorm:"column:email;not null;uniqueIndex"`
	PasswordHash string     `gorm:"column:password_hash;not null"`
	OwnerName    string     `gorm:"column:owner_name;not null"`
	PhoneNumber  string     `gorm:"column:phone_number;not null"`
	IsVerified   bool       `gorm:"column:is_verified;not null"`
	IsActive     bool       `gorm:"column:is_active;not null"`
	LastLoginAt  *time.Time `gorm:"column:last_login_at"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *Shopkeeper) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}
