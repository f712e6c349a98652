package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/aquaflow-backend/pkg/db/models"
	"github.com/angelmondragon/aquaflow-backend/pkg/enums"
	"github.com/angelmondragon/aquaflow-backend/pkg/pagination"
	"github.com/angelmondragon/aquaflow-backend/pkg/types"
)

const defaultAddressQuery = `(SELECT ua.address FROM user_addresses ua WHERE ua.user_id = o.user_id ORDER BY ua.is_default DESC, ua.created_at ASC LIMIT 1)`

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindForUser(ctx context.Context, id, userID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindForShop(ctx context.Context, id, shopID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Where("id = ? AND shop_id = ?", id, shopID).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// LatestShopForUser returns the shop of the user's most recent order.
func (r *repository) LatestShopForUser(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Select("shop_id").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		First(&order).Error
	if err != nil {
		return uuid.Nil, err
	}
	return order.ShopID, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, orderType *enums.OrderType, cursor *pagination.Cursor, limit int) ([]models.Order, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{}).Where("user_id = ?", userID)
	if orderType != nil {
		query = query.Where("order_type = ?", *orderType)
	}

	var orders []models.Order
	if err := pagination.Apply(query, cursor).Limit(pagination.LimitWithBuffer(limit)).Find(&orders).Error; err != nil {
		return nil, nil, err
	}
	rows, next := pagination.Trim(orders, limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	return rows, next, nil
}

func (r *repository) ListByShop(ctx context.Context, shopID uuid.UUID, status *enums.OrderStatus, cursor *pagination.Cursor, limit int) ([]ShopOrderRow, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).
		Table("orders AS o").
		Select("o.*, u.name AS customer_name, u.phone_number AS customer_phone, u.email AS customer_email, "+defaultAddressQuery+" AS default_address").
		Joins("JOIN users u ON u.id = o.user_id").
		Where("o.shop_id = ?", shopID)
	if status != nil {
		query = query.Where("o.status = ?", *status)
	}

	var joined []ShopOrderRow
	if err := pagination.ApplyOn(query, "o", cursor).Limit(pagination.LimitWithBuffer(limit)).Scan(&joined).Error; err != nil {
		return nil, nil, err
	}
	rows, next := pagination.Trim(joined, limit, func(row ShopOrderRow) pagination.Cursor {
		return pagination.Cursor{CreatedAt: row.CreatedAt, ID: row.ID}
	})
	return rows, next, nil
}

// RecordPayment stores the outcome of a charge. A paid pending order is
// confirmed in the same statement.
func (r *repository) RecordPayment(ctx context.Context, id uuid.UUID, paymentRef string, paid bool) error {
	fields := map[string]any{
		"payment_ref":    paymentRef,
		"payment_status": enums.OrderPaymentStatusFailed,
	}
	if paid {
		fields["payment_status"] = enums.OrderPaymentStatusPaid
		fields["status"] = gorm.Expr("CASE WHEN status = ? THEN ? ELSE status END", enums.OrderStatusPending, enums.OrderStatusConfirmed)
	}
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND payment_status <> ?", id, enums.OrderPaymentStatusPaid).
		Updates(fields).Error
}

// UpdateStatus applies fields when the order belongs to shopID and its current
// status is one of from.
func (r *repository) UpdateStatus(ctx context.Context, id, shopID uuid.UUID, from []enums.OrderStatus, fields map[string]any) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND shop_id = ?", id, shopID).
		Where("status IN ?", from).
		Updates(fields)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// MarkDelivered moves an undelivered order to delivered exactly once.
func (r *repository) MarkDelivered(ctx context.Context, id, shopID uuid.UUID, at time.Time, notes *string) (bool, error) {
	fields := map[string]any{
		"status":               enums.OrderStatusDelivered,
		"actual_delivery_time": at,
	}
	if notes != nil {
		fields["notes"] = *notes
	}
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND shop_id = ? AND status NOT IN ?", id, shopID, []enums.OrderStatus{enums.OrderStatusDelivered, enums.OrderStatusCancelled}).
		Updates(fields)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// AssignDelivery attaches a courier and moves the order to preparing.
func (r *repository) AssignDelivery(ctx context.Context, id, shopID uuid.UUID, person types.DeliveryPerson) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND shop_id = ? AND status IN ?", id, shopID, []enums.OrderStatus{enums.OrderStatusConfirmed, enums.OrderStatusPreparing}).
		Updates(map[string]any{
			"delivery_person": person,
			"status":          enums.OrderStatusPreparing,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// SetRating stores the customer's rating once, on a delivered order.
func (r *repository) SetRating(ctx context.Context, id, userID uuid.UUID, rating int, review *string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND user_id = ? AND status = ? AND rating IS NULL", id, userID, enums.OrderStatusDelivered).
		Updates(map[string]any{
			"rating": rating,
			"review": review,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) Stats(ctx context.Context, shopID uuid.UUID, since time.Time) (*StatsRow, error) {
	var row StatsRow
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select(`COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS pending,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS confirmed,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS delivered,
			COALESCE(SUM(CASE WHEN created_at >= ? THEN 1 ELSE 0 END), 0) AS today,
			COALESCE(SUM(CASE WHEN status = ? THEN total_amount ELSE 0 END), 0) AS revenue`,
			enums.OrderStatusPending,
			enums.OrderStatusConfirmed,
			enums.OrderStatusDelivered,
			since,
			enums.OrderStatusDelivered,
		).
		Where("shop_id = ?", shopID).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}
