package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/aquaflow-backend/pkg/enums"
	"github.com/angelmondragon/aquaflow-backend/pkg/types"
)

// Subscription is a monthly jar allotment between a user and a shop.
//
// JarsOrderedThisMonth is capped on the consumer path and
// JarsDeliveredThisMonth on the shopkeeper path; both add to CurrentMonthBill.
// A monthly payment resets only JarsDeliveredThisMonth.
type Subscription struct {
	ID                     uuid.UUID                `gorm:"column:id;type:uuid;primaryKey"`
	UserID                 uuid.UUID                `gorm:"column:user_id;type:uuid;not null;index"`
	ShopID                 uuid.UUID                `gorm:"column:shop_id;type:uuid;not null;index"`
	Plan                   enums.SubscriptionPlan   `gorm:"column:plan;type:varchar(16);not null"`
	JarsPerMonth           int                      `gorm:"column:jars_per_month;not null"`
	PricePerJar            decimal.Decimal          `gorm:"column:price_per_jar;type:numeric(12,2);not null"`
	MonthlyAmount          decimal.Decimal          `gorm:"column:monthly_amount;type:numeric(12,2);not null"`
	JarsOrderedThisMonth   int                      `gorm:"column:jars_ordered_this_month;not null"`
	JarsDeliveredThisMonth int                      `gorm:"column:jars_delivered_this_month;not null"`
	CurrentMonthBill       decimal.Decimal          `gorm:"column:current_month_bill;type:numeric(12,2);not null"`
	StartDate              time.Time                `gorm:"column:start_date;not null"`
	NextDeliveryDate       time.Time                `gorm:"column:next_delivery_date;not null"`
	LastPaymentDate        *time.Time               `gorm:"column:last_payment_date"`
	NextPaymentDate        time.Time                `gorm:"column:next_payment_date;not null;index"`
	PaymentCycle           int                      `gorm:"column:payment_cycle;not null"`
	PaymentClaimedAt       *time.Time               `gorm:"column:payment_claimed_at"`
	DeliveryAddress        types.DeliveryAddress    `gorm:"column:delivery_address;type:jsonb;not null"`
	DeliveryFrequency      enums.DeliveryFrequency  `gorm:"column:delivery_frequency;type:varchar(16);not null"`
	PaymentMethod          enums.PaymentMethod      `gorm:"column:payment_method;type:varchar(16);not null"`
	AutoRenewal            bool                     `gorm:"column:auto_renewal;not null"`
	Status                 enums.SubscriptionStatus `gorm:"column:status;type:varchar(16);not null;index"`
	CreatedAt              time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt              time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *Subscription) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}

// RemainingToOrder is the consumer-side headroom for this month.
func (s Subscription) RemainingToOrder() int {
	if rem := s.JarsPerMonth - s.JarsOrderedThisMonth; rem > 0 {
		return rem
	}
	return 0
}

// RemainingToDeliver is the shopkeeper-side headroom for this month.
func (s Subscription) RemainingToDeliver() int {
	if rem := s.JarsPerMonth - s.JarsDeliveredThisMonth; rem > 0 {
		return rem
	}
	return 0
}

// PaymentDue reports whether the monthly charge may be taken at now.
func (s Subscription) PaymentDue(now time.Time) bool {
	return !s.NextPaymentDate.After(now)
}

// SubscriptionDelivery is one entry of a subscription's append-only delivery history.
type SubscriptionDelivery struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	SubscriptionID uuid.UUID       `gorm:"column:subscription_id;type:uuid;not null;index"`
	ShopID         uuid.UUID       `gorm:"column:shop_id;type:uuid;not null"`
	DeliveredAt    time.Time       `gorm:"column:delivered_at;not null"`
	Quantity       int             `gorm:"column:quantity;not null"`
	Amount         decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null"`
	Notes          *string         `gorm:"column:notes"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (d *SubscriptionDelivery) BeforeCreate(*gorm.DB) error {
	ensureID(&d.ID)
	return nil
}
