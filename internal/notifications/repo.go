package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/aquaflow-backend/pkg/db/models"
	"github.com/angelmondragon/aquaflow-backend/pkg/enums"
	"github.com/angelmondragon/aquaflow-backend/pkg/pagination"
)

// Repository exposes persistence helpers for notifications.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, notification *models.Notification) error
	List(ctx context.Context, params inboxPage) ([]models.Notification, *pagination.Cursor, error)
	MarkRead(ctx context.Context, recipient Recipient, notificationID uuid.UUID, now time.Time) (markOutcome, error)
	MarkAllRead(ctx context.Context, recipient Recipient, now time.Time) (int64, error)
	CountUnread(ctx context.Context, recipient Recipient) (int64, error)
	UserContact(ctx context.Context, userID uuid.UUID) (*Contact, error)
	ShopContact(ctx context.Context, shopID uuid.UUID) (*Contact, error)
	DeleteReadBefore(ctx context.Context, cutoff time.Time, limit int) (int64, error)
}

// Recipient identifies the owner of a notification inbox.
type Recipient struct {
	Type enums.NotificationRecipient
	ID   uuid.UUID
}

// Contact is the display name and phone number a message is addressed to.
type Contact struct {
	Name  string
	Phone string
}

type inboxStore struct {
	db *gorm.DB
}

// NewRepository returns a notifications repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &inboxStore{db: db}
}

type inboxPage struct {
	Recipient  Recipient
	Limit      int
	Cursor     *pagination.Cursor
	UnreadOnly bool
}

type markOutcome struct {
	Updated bool
	Found   bool
}

func (r *inboxStore) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &inboxStore{db: tx}
}

func (r *inboxStore) Create(ctx context.Context, notification *models.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

func (r *inboxStore) inbox(ctx context.Context, recipient Recipient) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("recipient_type = ? AND recipient_id = ?", recipient.Type, recipient.ID)
}

func (r *inboxStore) List(ctx context.Context, params inboxPage) ([]models.Notification, *pagination.Cursor, error) {
	query := r.inbox(ctx, params.Recipient)
	if params.UnreadOnly {
		query = query.Where("read_at IS NULL")
	}

	var notifications []models.Notification
	err := pagination.Apply(query, params.Cursor).
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&notifications).Error
	if err != nil {
		return nil, nil, err
	}

	rows, next := pagination.Trim(notifications, params.Limit, func(n models.Notification) pagination.Cursor {
		return pagination.Cursor{CreatedAt: n.CreatedAt, ID: n.ID}
	})
	return rows, next, nil
}

func (r *inboxStore) MarkRead(ctx context.Context, recipient Recipient, notificationID uuid.UUID, now time.Time) (markOutcome, error) {
	result := r.inbox(ctx, recipient).
		Where("id = ? AND read_at IS NULL", notificationID).
		UpdateColumn("read_at", now)
	if result.Error != nil {
		return markOutcome{}, result.Error
	}

	mark := markOutcome{Updated: result.RowsAffected > 0}
	if result.RowsAffected > 0 {
		mark.Found = true
		return mark, nil
	}

	var count int64
	if err := r.inbox(ctx, recipient).Where("id = ?", notificationID).Count(&count).Error; err != nil {
		return markOutcome{}, err
	}
	mark.Found = count > 0
	return mark, nil
}

func (r *inboxStore) MarkAllRead(ctx context.Context, recipient Recipient, now time.Time) (int64, error) {
	result := r.inbox(ctx, recipient).
		Where("read_at IS NULL").
		UpdateColumn("read_at", now)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *inboxStore) CountUnread(ctx context.Context, recipient Recipient) (int64, error) {
	var n int64
	err := r.inbox(ctx, recipient).Where("read_at IS NULL").Count(&n).Error
	return n, err
}

func (r *inboxStore) UserContact(ctx context.Context, userID uuid.UUID) (*Contact, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Select("id", "name", "phone_number").Where("id = ?", userID).First(&user).Error; err != nil {
		return nil, err
	}
	contact := &Contact{Phone: user.PhoneNumber}
	if user.Name != nil {
		contact.Name = *user.Name
	}
	return contact, nil
}

func (r *inboxStore) ShopContact(ctx context.Context, shopID uuid.UUID) (*Contact, error) {
	var shop models.Shop
	if err := r.db.WithContext(ctx).Select("id", "shop_name", "phone_number").Where("id = ?", shopID).First(&shop).Error; err != nil {
		return nil, err
	}
	return &Contact{Name: shop.ShopName, Phone: shop.PhoneNumber}, nil
}

// DeleteReadBefore removes up to limit read notifications created before
// cutoff, oldest first. Unread rows are never touched.
func (r *inboxStore) DeleteReadBefore(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	batch := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Select("id").
		Where("read_at IS NOT NULL AND created_at < ?", cutoff).
		Order("created_at").
		Limit(limit)
	result := r.db.WithContext(ctx).
		Where("id IN (?)", batch).
		Delete(&models.Notification{})
	return result.RowsAffected, result.Error
}
