package notifications

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/aquaflow-backend/pkg/db/models"
	"github.com/angelmondragon/aquaflow-backend/pkg/enums"
	"github.com/angelmondragon/aquaflow-backend/pkg/logger"
)

// Message describes one event. UserID and ShopID select the audiences; either
// may be uuid.Nil.
type Message struct {
	Type      enums.NotificationType
	UserID    uuid.UUID
	ShopID    uuid.UUID
	Amount    decimal.Decimal
	Reference string
	Text      string
}

// Notifier is fire-and-forget: delivery failures are logged, never returned.
type Notifier interface {
	Notify(ctx context.Context, msg Message)
}

// Dispatcher fans a message out to the user over WhatsApp and SMS and, for
// order and payment events, to the shop over WhatsApp. Every attempt is stored.
type Dispatcher struct {
	repo     Repository
	whatsapp Channel
	sms      Channel
	logg     *logger.Logger
}

func NewDispatcher(repo Repository, whatsapp, sms Channel, logg *logger.Logger) (*Dispatcher, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if whatsapp == nil || sms == nil {
		return nil, fmt.Errorf("notification channels required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Dispatcher{repo: repo, whatsapp: whatsapp, sms: sms, logg: logg}, nil
}

func (d *Dispatcher) Notify(ctx context.Context, msg Message) {
	ctx = d.logg.WithField(ctx, "notification_type", msg.Type.String())

	var errs error
	var user, shop *Contact
	if msg.UserID != uuid.Nil {
		contact, err := d.repo.UserContact(ctx, msg.UserID)
		if err != nil {
			errs = multierr.Append(errs, lookupErr("user", err))
		}
		user = contact
	}
	if msg.ShopID != uuid.Nil {
		contact, err := d.repo.ShopContact(ctx, msg.ShopID)
		if err != nil {
			errs = multierr.Append(errs, lookupErr("shop", err))
		}
		shop = contact
	}

	data := templateData{
		amount:    msg.Amount.StringFixed(2),
		reference: msg.Reference,
		text:      msg.Text,
	}
	if user != nil {
		data.customer = user.Name
		data.customerPhone = user.Phone
	}
	if shop != nil {
		data.shop = shop.Name
	}
	body := render(msg.Type, data)

	if user != nil {
		errs = multierr.Append(errs, d.deliver(ctx, d.whatsapp, msg, enums.NotificationRecipientUser, msg.UserID, user.Phone, body.whatsapp))
		errs = multierr.Append(errs, d.deliver(ctx, d.sms, msg, enums.NotificationRecipientUser, msg.UserID, user.Phone, body.sms))
	}
	if shop != nil && notifiesShop(msg.Type) && body.shop != "" {
		errs = multierr.Append(errs, d.deliver(ctx, d.whatsapp, msg, enums.NotificationRecipientShop, msg.ShopID, shop.Phone, body.shop))
	}

	if errs != nil {
		d.logg.Error(ctx, "notification delivery incomplete", errs)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, channel Channel, msg Message, recipientType enums.NotificationRecipient, recipientID uuid.UUID, phone, body string) error {
	if body == "" {
		return nil
	}
	sendErr := channel.Send(ctx, phone, body)

	status := enums.NotificationStatusSent
	if sendErr != nil {
		status = enums.NotificationStatusFailed
		sendErr = fmt.Errorf("%s to %s: %w", channel.Name(), recipientType, sendErr)
	}
	record := &models.Notification{
		RecipientType: recipientType,
		RecipientID:   recipientID,
		Destination:   phone,
		Type:          msg.Type,
		Channel:       channel.Name(),
		Message:       body,
		Status:        status,
	}
	if err := d.repo.Create(ctx, record); err != nil {
		return multierr.Append(sendErr, fmt.Errorf("persist %s notification: %w", channel.Name(), err))
	}
	return sendErr
}

func lookupErr(kind string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s contact not found", kind)
	}
	return fmt.Errorf("load %s contact: %w", kind, err)
}

// Noop discards every message.
type Noop struct{}

func (Noop) Notify(context.Context, Message) {}
