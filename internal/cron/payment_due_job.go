package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/aquaflow-backend/internal/notifications"
	"github.com/angelmondragon/aquaflow-backend/pkg/db/models"
	"github.com/angelmondragon/aquaflow-backend/pkg/enums"
	"github.com/angelmondragon/aquaflow-backend/pkg/logger"
)

const (
	paymentDueBatchSize = 100
	reminderMarkerTTL   = 48 * time.Hour
)

type dueSubscriptions interface {
	DueForPayment(ctx context.Context, limit int) ([]models.Subscription, error)
}

type reminderMarker interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	ReminderKey(kind, subject string) string
}

type PaymentDueJobParams struct {
	Logger        *logger.Logger
	Subscriptions dueSubscriptions
	Notifier      notifications.Notifier
	Marker        reminderMarker
	BatchSize     int
}

// NewPaymentDueJob reminds subscribers whose monthly charge is due. It never
// charges or touches subscription state; each subscription is reminded at
// most once per billing cycle per day.
func NewPaymentDueJob(params PaymentDueJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Subscriptions == nil {
		return nil, fmt.Errorf("subscriptions service required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if params.Marker == nil {
		return nil, fmt.Errorf("reminder marker required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = paymentDueBatchSize
	}
	return &paymentDueJob{
		logg:     params.Logger,
		subs:     params.Subscriptions,
		notifier: params.Notifier,
		marker:   params.Marker,
		batch:    batch,
		now:      time.Now,
	}, nil
}

type paymentDueJob struct {
	logg     *logger.Logger
	subs     dueSubscriptions
	notifier notifications.Notifier
	marker   reminderMarker
	batch    int
	now      func() time.Time
}

func (j *paymentDueJob) Name() string { return "payment-due-reminder" }

func (j *paymentDueJob) Run(ctx context.Context) error {
	due, err := j.subs.DueForPayment(ctx, j.batch)
	if err != nil {
		return fmt.Errorf("list due subscriptions: %w", err)
	}

	day := j.now().UTC().Format("2006-01-02")
	var sent, skipped int
	for _, sub := range due {
		key := j.marker.ReminderKey("payment-due", fmt.Sprintf("%s:%d:%s", sub.ID, sub.PaymentCycle, day))
		fresh, err := j.marker.SetNX(ctx, key, sub.NextPaymentDate.UTC().Format(time.RFC3339), reminderMarkerTTL)
		if err != nil {
			return fmt.Errorf("mark reminder: %w", err)
		}
		if !fresh {
			skipped++
			continue
		}
		j.notifier.Notify(j.logg.WithSubscriptionID(ctx, sub.ID.String()), notifications.Message{
			Type:      enums.NotificationTypePaymentDue,
			UserID:    sub.UserID,
			ShopID:    sub.ShopID,
			Amount:    sub.MonthlyAmount,
			Reference: sub.ID.String(),
		})
		sent++
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"due":     len(due),
		"sent":    sent,
		"skipped": skipped,
	}), "payment due reminders processed")
	return nil
}
