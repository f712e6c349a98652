package subscriptions

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/aquaflow-backend/pkg/db/models"
	"github.com/angelmondragon/aquaflow-backend/pkg/enums"
	"github.com/angelmondragon/aquaflow-backend/pkg/pagination"
)

// Repository persists subscriptions. Every counter change is a single
// conditional UPDATE whose WHERE clause carries the cap, so callers learn
// about a lost race from the affected row count instead of a prior read.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, sub *models.Subscription) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Subscription, error)
	FindForUser(ctx context.Context, id, userID uuid.UUID) (*models.Subscription, error)
	HasActive(ctx context.Context, userID, shopID uuid.UUID) (bool, error)
	AccrueOrder(ctx context.Context, id, userID uuid.UUID, quantity int) (bool, error)
	AccrueDelivery(ctx context.Context, id, shopID uuid.UUID, quantity int) (bool, error)
	CreateDelivery(ctx context.Context, delivery *models.SubscriptionDelivery) error
	ClaimPaymentCycle(ctx context.Context, id uuid.UUID, cycle int, now, staleBefore time.Time) (bool, error)
	ReleasePaymentClaim(ctx context.Context, id uuid.UUID, cycle int) error
	AdvancePaymentCycle(ctx context.Context, id uuid.UUID, cycle int, paidAt, nextDue time.Time) (bool, error)
	MarkPaid(ctx context.Context, id uuid.UUID, paidAt time.Time) error
	TransitionStatus(ctx context.Context, id, userID uuid.UUID, from, to enums.SubscriptionStatus) (bool, error)
	ListByUser(ctx context.Context, userID uuid.UUID, status *enums.SubscriptionStatus, cursor *pagination.Cursor, limit int) ([]models.Subscription, *pagination.Cursor, error)
	ListByShop(ctx context.Context, shopID uuid.UUID, status *enums.SubscriptionStatus, cursor *pagination.Cursor, limit int) ([]ShopSubscriptionRow, *pagination.Cursor, error)
	ListDeliveries(ctx context.Context, subscriptionID uuid.UUID, limit int) ([]models.SubscriptionDelivery, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]models.Subscription, error)
}

// ShopSubscriptionRow joins a subscription with the customer who holds it.
type ShopSubscriptionRow struct {
	models.Subscription `gorm:"embedded"`
	CustomerName        *string `gorm:"column:customer_name"`
	CustomerPhone       string  `gorm:"column:customer_phone"`
	CustomerEmail       *string `gorm:"column:customer_email"`
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a subscriptions repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, sub *models.Subscription) error {
	return r.db.WithContext(ctx).Create(sub).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *repository) FindForUser(ctx context.Context, id, userID uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	if err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *repository) HasActive(ctx context.Context, userID, shopID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("user_id = ? AND shop_id = ? AND status = ?", userID, shopID, enums.SubscriptionStatusActive).
		Count(&count).Error
	return count > 0, err
}

// AccrueOrder adds quantity to the consumer-side counter and the bill, only
// while the subscription is active, owned by userID and under its cap.
func (r *repository) AccrueOrder(ctx context.Context, id, userID uuid.UUID, quantity int) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("id = ? AND user_id = ? AND status = ?", id, userID, enums.SubscriptionStatusActive).
		Where("jars_ordered_this_month + ? <= jars_per_month", quantity).
		Updates(map[string]any{
			"jars_ordered_this_month": gorm.Expr("jars_ordered_this_month + ?", quantity),
			"current_month_bill":      gorm.Expr("current_month_bill + price_per_jar * ?", quantity),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// AccrueDelivery is AccrueOrder for the shopkeeper-side counter.
func (r *repository) AccrueDelivery(ctx context.Context, id, shopID uuid.UUID, quantity int) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("id = ? AND shop_id = ? AND status = ?", id, shopID, enums.SubscriptionStatusActive).
		Where("jars_delivered_this_month + ? <= jars_per_month", quantity).
		Updates(map[string]any{
			"jars_delivered_this_month": gorm.Expr("jars_delivered_this_month + ?", quantity),
			"current_month_bill":        gorm.Expr("current_month_bill + price_per_jar * ?", quantity),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) CreateDelivery(ctx context.Context, delivery *models.SubscriptionDelivery) error {
	return r.db.WithContext(ctx).Create(delivery).Error
}

// ClaimPaymentCycle marks cycle `cycle` as being charged. It fails when the
// cycle is not due, already closed, or claimed by another caller less than
// staleBefore ago. Only the claim holder may call the gateway.
func (r *repository) ClaimPaymentCycle(ctx context.Context, id uuid.UUID, cycle int, now, staleBefore time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("id = ? AND payment_cycle = ? AND status = ? AND next_payment_date <= ?", id, cycle, enums.SubscriptionStatusActive, now).
		Where("payment_claimed_at IS NULL OR payment_claimed_at < ?", staleBefore).
		Update("payment_claimed_at", now)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ReleasePaymentClaim reopens cycle `cycle` after a charge that did not go through.
func (r *repository) ReleasePaymentClaim(ctx context.Context, id uuid.UUID, cycle int) error {
	return r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("id = ? AND payment_cycle = ?", id, cycle).
		Update("payment_claimed_at", nil).Error
}

// AdvancePaymentCycle closes billing cycle `cycle`. Only jars_delivered_this_month
// is reset; the ordered counter and the bill carry over.
func (r *repository) AdvancePaymentCycle(ctx context.Context, id uuid.UUID, cycle int, paidAt, nextDue time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("id = ? AND payment_cycle = ? AND status = ?", id, cycle, enums.SubscriptionStatusActive).
		Updates(map[string]any{
			"last_payment_date":         paidAt,
			"next_payment_date":         nextDue,
			"payment_claimed_at":        nil,
			"jars_delivered_this_month": 0,
			"payment_cycle":             gorm.Expr("payment_cycle + 1"),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) MarkPaid(ctx context.Context, id uuid.UUID, paidAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("id = ?", id).
		Update("last_payment_date", paidAt).Error
}

func (r *repository) TransitionStatus(ctx context.Context, id, userID uuid.UUID, from, to enums.SubscriptionStatus) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("id = ? AND user_id = ? AND status = ?", id, userID, from).
		Update("status", to)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, status *enums.SubscriptionStatus, cursor *pagination.Cursor, limit int) ([]models.Subscription, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).Model(&models.Subscription{}).Where("user_id = ?", userID)
	if status != nil {
		query = query.Where("status = ?", *status)
	}

	var subs []models.Subscription
	if err := pagination.Apply(query, cursor).Limit(pagination.LimitWithBuffer(limit)).Find(&subs).Error; err != nil {
		return nil, nil, err
	}
	rows, next := pagination.Trim(subs, limit, func(s models.Subscription) pagination.Cursor {
		return pagination.Cursor{CreatedAt: s.CreatedAt, ID: s.ID}
	})
	return rows, next, nil
}

func (r *repository) ListByShop(ctx context.Context, shopID uuid.UUID, status *enums.SubscriptionStatus, cursor *pagination.Cursor, limit int) ([]ShopSubscriptionRow, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).
		Table("subscriptions AS s").
		Select("s.*, u.name AS customer_name, u.phone_number AS customer_phone, u.email AS customer_email").
		Joins("JOIN users u ON u.id = s.user_id").
		Where("s.shop_id = ?", shopID)
	if status != nil {
		query = query.Where("s.status = ?", *status)
	}

	var joined []ShopSubscriptionRow
	if err := pagination.ApplyOn(query, "s", cursor).Limit(pagination.LimitWithBuffer(limit)).Scan(&joined).Error; err != nil {
		return nil, nil, err
	}
	rows, next := pagination.Trim(joined, limit, func(row ShopSubscriptionRow) pagination.Cursor {
		return pagination.Cursor{CreatedAt: row.CreatedAt, ID: row.ID}
	})
	return rows, next, nil
}

func (r *repository) ListDeliveries(ctx context.Context, subscriptionID uuid.UUID, limit int) ([]models.SubscriptionDelivery, error) {
	var deliveries []models.SubscriptionDelivery
	err := r.db.WithContext(ctx).
		Where("subscription_id = ?", subscriptionID).
		Order("delivered_at DESC").
		Order("id DESC").
		Limit(pagination.NormalizeLimit(limit)).
		Find(&deliveries).Error
	return deliveries, err
}

// ListDue returns active subscriptions whose monthly charge is due at now,
// oldest due date first.
func (r *repository) ListDue(ctx context.Context, now time.Time, limit int) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := r.db.WithContext(ctx).
		Where("status = ? AND next_payment_date <= ?", enums.SubscriptionStatusActive, now).
		Order("next_payment_date ASC").
		Limit(limit).
		Find(&subs).Error
	return subs, err
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// lineAmount prices quantity jars at the subscription's frozen rate.
func lineAmount(sub *models.Subscription, quantity int) decimal.Decimal {
	return sub.PricePerJar.Mul(decimal.NewFromInt(int64(quantity)))
}
