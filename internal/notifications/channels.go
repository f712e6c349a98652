package notifications

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/aquaflow-backend/pkg/enums"
	"github.com/angelmondragon/aquaflow-backend/pkg/logger"
)

// Channel delivers a rendered message to a phone number.
type Channel interface {
	Name() enums.NotificationChannel
	Send(ctx context.Context, phone, body string) error
}

// LogChannel stands in for an SMS or WhatsApp provider: it validates the
// destination and writes the message to the structured log.
type LogChannel struct {
	name enums.NotificationChannel
	logg *logger.Logger
}

func NewSMSChannel(logg *logger.Logger) *LogChannel {
	return &LogChannel{name: enums.NotificationChannelSMS, logg: logg}
}

func NewWhatsAppChannel(logg *logger.Logger) *LogChannel {
	return &LogChannel{name: enums.NotificationChannelWhatsApp, logg: logg}
}

func (c *LogChannel) Name() enums.NotificationChannel {
	return c.name
}

func (c *LogChannel) Send(ctx context.Context, phone, body string) error {
	if strings.TrimSpace(phone) == "" {
		return fmt.Errorf("%s: destination phone required", c.name)
	}
	if c.logg != nil {
		ctx = c.logg.WithFields(ctx, map[string]any{
			"channel":     string(c.name),
			"destination": maskPhone(phone),
			"chars":       len(body),
		})
		c.logg.Info(ctx, "notification sent")
	}
	return nil
}

func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return phone
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}
