package notifications

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/aquaflow-backend/internal/testutil"
	"github.com/angelmondragon/aquaflow-backend/pkg/enums"
)

type recordingChannel struct {
	name enums.NotificationChannel
	err  error
	sent []string
}

func (c *recordingChannel) Name() enums.NotificationChannel { return c.name }

func (c *recordingChannel) Send(ctx context.Context, phone, body string) error {
	c.sent = append(c.sent, phone)
	return c.err
}

func newTestDispatcher(t *testing.T, repo Repository, whatsappErr error) (*Dispatcher, *recordingChannel, *recordingChannel) {
	t.Helper()
	whatsapp := &recordingChannel{name: enums.NotificationChannelWhatsApp, err: whatsappErr}
	sms := &recordingChannel{name: enums.NotificationChannelSMS}
	dispatcher, err := NewDispatcher(repo, whatsapp, sms, testutil.Logger())
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}
	return dispatcher, whatsapp, sms
}

func TestDispatcherFansOutOrderPlaced(t *testing.T) {
	userID, shopID := uuid.New(), uuid.New()
	repo := &fakeRepository{
		users: map[uuid.UUID]*Contact{userID: {Name: "Asha", Phone: "+919811111111"}},
		shops: map[uuid.UUID]*Contact{shopID: {Name: "Aqua Pure", Phone: "+919822222222"}},
	}
	dispatcher, whatsapp, sms := newTestDispatcher(t, repo, nil)

	dispatcher.Notify(context.Background(), Message{
		Type:      enums.NotificationTypeOrderPlaced,
		UserID:    userID,
		ShopID:    shopID,
		Amount:    decimal.NewFromInt(90),
		Reference: "WJ17000000000001234",
	})

	if len(whatsapp.sent) != 2 {
		t.Fatalf("expected whatsapp to user and shop, got %v", whatsapp.sent)
	}
	if len(sms.sent) != 1 || sms.sent[0] != "+919811111111" {
		t.Fatalf("expected one sms to the user, got %v", sms.sent)
	}
	if len(repo.created) != 3 {
		t.Fatalf("expected 3 stored notifications, got %d", len(repo.created))
	}
	shopRows := 0
	for _, row := range repo.created {
		if row.Status != enums.NotificationStatusSent {
			t.Fatalf("expected sent status, got %s", row.Status)
		}
		if row.RecipientType == enums.NotificationRecipientShop {
			shopRows++
			if !strings.Contains(row.Message, "+919811111111") {
				t.Fatalf("expected shop message to carry the customer phone: %q", row.Message)
			}
		}
	}
	if shopRows != 1 {
		t.Fatalf("expected one shop notification, got %d", shopRows)
	}
}

func TestDispatcherSkipsShopForDeliveryEvents(t *testing.T) {
	userID, shopID := uuid.New(), uuid.New()
	repo := &fakeRepository{
		users: map[uuid.UUID]*Contact{userID: {Phone: "+919811111111"}},
		shops: map[uuid.UUID]*Contact{shopID: {Name: "Aqua Pure", Phone: "+919822222222"}},
	}
	dispatcher, whatsapp, _ := newTestDispatcher(t, repo, nil)

	dispatcher.Notify(context.Background(), Message{Type: enums.NotificationTypeDelivered, UserID: userID, ShopID: shopID})

	if len(whatsapp.sent) != 1 || whatsapp.sent[0] != "+919811111111" {
		t.Fatalf("expected only the user to be messaged, got %v", whatsapp.sent)
	}
	if !strings.Contains(repo.created[0].Message, "Hi Customer") {
		t.Fatalf("expected fallback greeting, got %q", repo.created[0].Message)
	}
}

func TestDispatcherRecordsChannelFailureAndContinues(t *testing.T) {
	userID := uuid.New()
	repo := &fakeRepository{
		users: map[uuid.UUID]*Contact{userID: {Phone: "+919811111111"}},
	}
	dispatcher, _, sms := newTestDispatcher(t, repo, errors.New("provider down"))

	dispatcher.Notify(context.Background(), Message{
		Type:   enums.NotificationTypeMonthlyPaymentFailed,
		UserID: userID,
		Amount: decimal.NewFromInt(1350),
	})

	if len(sms.sent) != 1 {
		t.Fatalf("expected sms to be attempted after whatsapp failure")
	}
	if len(repo.created) != 2 {
		t.Fatalf("expected both attempts stored, got %d", len(repo.created))
	}
	if repo.created[0].Status != enums.NotificationStatusFailed {
		t.Fatalf("expected failed whatsapp row, got %s", repo.created[0].Status)
	}
	if repo.created[1].Status != enums.NotificationStatusSent {
		t.Fatalf("expected sent sms row, got %s", repo.created[1].Status)
	}
}

func TestDispatcherToleratesUnknownRecipients(t *testing.T) {
	repo := &fakeRepository{}
	dispatcher, whatsapp, sms := newTestDispatcher(t, repo, nil)

	dispatcher.Notify(context.Background(), Message{Type: enums.NotificationTypeNewOrder, UserID: uuid.New(), ShopID: uuid.New()})

	if len(whatsapp.sent)+len(sms.sent) != 0 {
		t.Fatal("expected nothing to be sent")
	}
}

func TestLogChannelRequiresPhone(t *testing.T) {
	channel := NewSMSChannel(testutil.Logger())
	if err := channel.Send(context.Background(), " ", "hello"); err == nil {
		t.Fatal("expected error for empty destination")
	}
	if err := channel.Send(context.Background(), "+919811111111", "hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := maskPhone("+919811111111"); got != "*********1111" {
		t.Fatalf("unexpected mask %q", got)
	}
}
