package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/aquaflow-backend/pkg/enums"
)

type Complaint struct {
	ID          uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	UserID      uuid.UUID               `gorm:"column:user_id;type:uuid;not null;index"`
	OrderID     *uuid.UUID              `gorm:"column:order_id;type:uuid"`
	ShopID      uuid.UUID               `gorm:"column:shop_id;type:uuid;not null;index"`
	Subject     string                  `gorm:"column:subject;not null"`
	Description string                  `gorm:"column:description;not null"`
	Priority    enums.ComplaintPriority `gorm:"column:priority;type:varchar(16);not null"`
	Status      enums.ComplaintStatus   `gorm:"column:status;type:varchar(16);not null"`
	ResolvedAt  *time.Time              `gorm:"column:resolved_at"`
	CreatedAt   time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Complaint) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}
