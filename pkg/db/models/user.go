package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/aquaflow-backend/pkg/enums"
)

const DefaultPincode = "000000"

// User is a customer identified by phone number and logged in by OTP.
type User struct {
	ID                uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	PhoneNumber       string     `gorm:"column:phone_number;not null;uniqueIndex"`
	Name              *string    `gorm:"column:name"`
	Email             *string    `gorm:"column:email"`
	Pincode           string     `gorm:"column:pincode;not null"`
	IsActive          bool       `gorm:"column:is_active;not null"`
	LastLoginAt       *time.Time `gorm:"column:last_login_at"`
	OTPFailedAttempts int        `gorm:"column:otp_failed_attempts;not null"`
	OTPBlockedUntil   *time.Time `gorm:"column:otp_blocked_until"`
	CreatedAt         time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	ensureID(&u.ID)
	if u.Pincode == "" {
		u.Pincode = DefaultPincode
	}
	return nil
}

// BlockedAt reports whether OTP login is locked for the user at now.
func (u User) BlockedAt(now time.Time) bool {
	return u.OTPBlockedUntil != nil && u.OTPBlockedUntil.After(now)
}

// UserAddress is a saved delivery location.
type UserAddress struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	UserID    uuid.UUID         `gorm:"column:user_id;type:uuid;not null;index"`
	Type      enums.AddressType `gorm:"column:type;type:varchar(16);not null"`
	Address   string            `gorm:"column:address;not null"`
	Landmark  *string           `gorm:"column:landmark"`
	Latitude  *float64          `gorm:"column:latitude"`
	Longitude *float64          `gorm:"column:longitude"`
	IsDefault bool              `gorm:"column:is_default;not null"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (a *UserAddress) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	if a.Type == "" {
		a.Type = enums.AddressTypeHome
	}
	return nil
}
