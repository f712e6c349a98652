package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/aquaflow-backend/pkg/enums"
)

// Notification stores every outbound message attempt, one row per channel.
type Notification struct {
	ID            uuid.UUID                   `gorm:"column:id;type:uuid;primaryKey"`
	RecipientType enums.NotificationRecipient `gorm:"column:recipient_type;type:varchar(16);not null"`
	RecipientID   uuid.UUID                   `gorm:"column:recipient_id;type:uuid;not null;index"`
	Destination   string                      `gorm:"column:destination;not null"`
	Type          enums.NotificationType      `gorm:"column:type;type:varchar(32);not null"`
	Channel       enums.NotificationChannel   `gorm:"column:channel;type:varchar(16);not null"`
	Message       string                      `gorm:"column:message;type:text;not null"`
	Status        enums.NotificationStatus    `gorm:"column:status;type:varchar(16);not null"`
	ReadAt        *time.Time                  `gorm:"column:read_at"`
	CreatedAt     time.Time                   `gorm:"column:created_at;autoCreateTime"`
}

func (n *Notification) BeforeCreate(*gorm.DB) error {
	ensureID(&n.ID)
	return nil
}
