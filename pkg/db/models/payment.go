package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/aquaflow-backend/pkg/enums"
)

// Payment records one gateway charge attempt.
type Payment struct {
	ID             uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	PaymentRef     string               `gorm:"column:payment_ref;not null;uniqueIndex"`
	OrderID        *uuid.UUID           `gorm:"column:order_id;type:uuid;index"`
	SubscriptionID *uuid.UUID           `gorm:"column:subscription_id;type:uuid;index"`
	UserID         uuid.UUID            `gorm:"column:user_id;type:uuid;not null;index"`
	ShopID         uuid.UUID            `gorm:"column:shop_id;type:uuid;not null"`
	Amount         decimal.Decimal      `gorm:"column:amount;type:numeric(12,2);not null"`
	PaymentMethod  enums.PaymentMethod  `gorm:"column:payment_method;type:varchar(16);not null"`
	Purpose        enums.PaymentPurpose `gorm:"column:purpose;type:varchar(32);not null"`
	Status         enums.PaymentStatus  `gorm:"column:status;type:varchar(16);not null"`
	TransactionID  *string              `gorm:"column:transaction_id"`
	GatewayOrderID *string              `gorm:"column:gateway_order_id"`
	InvoiceNumber  *string              `gorm:"column:invoice_number"`
	InvoiceURL     *string              `gorm:"column:invoice_url"`
	FailureReason  *string              `gorm:"column:failure_reason"`
	CompletedAt    *time.Time           `gorm:"column:completed_at"`
	CreatedAt      time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Payment) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// Invoice is issued for every successful payment.
type Invoice struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	InvoiceNumber  string          `gorm:"column:invoice_number;not null;uniqueIndex"`
	PaymentID      uuid.UUID       `gorm:"column:payment_id;type:uuid;not null;index"`
	UserID         uuid.UUID       `gorm:"column:user_id;type:uuid;not null"`
	ShopID         uuid.UUID       `gorm:"column:shop_id;type:uuid;not null"`
	OrderID        *uuid.UUID      `gorm:"column:order_id;type:uuid"`
	SubscriptionID *uuid.UUID      `gorm:"column:subscription_id;type:uuid"`
	Amount         decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null"`
	PeriodFrom     *time.Time      `gorm:"column:period_from"`
	PeriodTo       *time.Time      `gorm:"column:period_to"`
	JarsDelivered  *int            `gorm:"column:jars_delivered"`
	InvoiceURL     string          `gorm:"column:invoice_url;not null"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (i *Invoice) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
