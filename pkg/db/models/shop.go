package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Shop is a water-jar seller discovered by customers.
type Shop struct {
	ID               uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	ShopkeeperID     uuid.UUID       `gorm:"column:shopkeeper_id;type:uuid;not null;uniqueIndex"`
	Slug             string          `gorm:"column:slug;not null;uniqueIndex"`
	ShopName         string          `gorm:"column:shop_name;not null"`
	OwnerName        string          `gorm:"column:owner_name;not null"`
	PhoneNumber      string          `gorm:"column:phone_number;not null"`
	Email            *string         `gorm:"column:email"`
	Address          string          `gorm:"column:address;not null"`
	City             string          `gorm:"column:city;not null;index"`
	State            string          `gorm:"column:state;not null"`
	Pincode          string          `gorm:"column:pincode;not null;index"`
	Latitude         float64         `gorm:"column:latitude;not null"`
	Longitude        float64         `gorm:"column:longitude;not null"`
	GSTNumber        string          `gorm:"column:gst_number;not null"`
	PhotoURL         *string         `gorm:"column:photo_url"`
	PricePerJar      decimal.Decimal `gorm:"column:price_per_jar;type:numeric(12,2);not null"`
	Rating           decimal.Decimal `gorm:"column:rating;type:numeric(3,2);not null"`
	TotalReviews     int             `gorm:"column:total_reviews;not null"`
	IsActive         bool            `gorm:"column:is_active;not null"`
	IsVerified       bool            `gorm:"column:is_verified;not null"`
	OpensAt          string          `gorm:"column:opens_at;not null"`
	ClosesAt         string          `gorm:"column:closes_at;not null"`
	DeliveryRadiusKM float64         `gorm:"column:delivery_radius_km;not null"`
	TotalOrders      int             `gorm:"column:total_orders;not null"`
	MonthlyRevenue   decimal.Decimal `gorm:"column:monthly_revenue;type:numeric(12,2);not null"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *Shop) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	if s.OpensAt == "" {
		s.OpensAt = "06:00"
	}
	if s.ClosesAt == "" {
		s.ClosesAt = "22:00"
	}
	if s.DeliveryRadiusKM == 0 {
		s.DeliveryRadiusKM = 5
	}
	return nil
}

// Available reports whether the shop can take new orders and subscriptions.
func (s Shop) Available() bool {
	return s.IsActive && s.IsVerified
}

// OpenAt reports whether t, already in the shop's local zone, falls inside
// the HH:MM opening window. Both bounds are inclusive.
func (s Shop) OpenAt(t time.Time) bool {
	current := t.Format("15:04")
	return current >= s.OpensAt && current <= s.ClosesAt
}
