package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/aquaflow-backend/pkg/enums"
	"github.com/angelmondragon/aquaflow-backend/pkg/types"
)

// Order is a single jar delivery, either paid on its own or drawn from a subscription.
type Order struct {
	ID                    uuid.UUID                `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber           string                   `gorm:"column:order_number;not null;uniqueIndex"`
	UserID                uuid.UUID                `gorm:"column:user_id;type:uuid;not null;index"`
	ShopID                uuid.UUID                `gorm:"column:shop_id;type:uuid;not null;index"`
	OrderType             enums.OrderType          `gorm:"column:order_type;type:varchar(16);not null"`
	SubscriptionID        *uuid.UUID               `gorm:"column:subscription_id;type:uuid;index"`
	SubscriptionPlan      *enums.SubscriptionPlan  `gorm:"column:subscription_plan;type:varchar(16)"`
	Quantity              int                      `gorm:"column:quantity;not null"`
	PricePerJar           decimal.Decimal          `gorm:"column:price_per_jar;type:numeric(12,2);not null"`
	TotalAmount           decimal.Decimal          `gorm:"column:total_amount;type:numeric(12,2);not null"`
	DeliveryAddress       types.DeliveryAddress    `gorm:"column:delivery_address;type:jsonb;not null"`
	Status                enums.OrderStatus        `gorm:"column:status;type:varchar(32);not null;index"`
	PaymentStatus         enums.OrderPaymentStatus `gorm:"column:payment_status;type:varchar(16);not null"`
	PaymentMethod         enums.PaymentMethod      `gorm:"column:payment_method;type:varchar(16);not null"`
	PaymentRef            *string                  `gorm:"column:payment_ref"`
	DeliveryPerson        *types.DeliveryPerson    `gorm:"column:delivery_person;type:jsonb"`
	EstimatedDeliveryTime *time.Time               `gorm:"column:estimated_delivery_time"`
	ActualDeliveryTime    *time.Time               `gorm:"column:actual_delivery_time"`
	Notes                 *string                  `gorm:"column:notes"`
	Rating                *int                     `gorm:"column:rating"`
	Review                *string                  `gorm:"column:review"`
	CreatedAt             time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}
