package complaints

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/aquaflow-backend/pkg/db/models"
	"github.com/angelmondragon/aquaflow-backend/pkg/enums"
	"github.com/angelmondragon/aquaflow-backend/pkg/pagination"
)

// Repository persists complaints.
type Repository struct {
	db *gorm.DB
}

// ShopComplaintRow joins a complaint with the customer who raised it.
type ShopComplaintRow struct {
	models.Complaint `gorm:"embedded"`
	CustomerName     *string `gorm:"column:customer_name"`
	CustomerPhone    string  `gorm:"column:customer_phone"`
	OrderNumber      *string `gorm:"column:order_number"`
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, complaint *models.Complaint) error {
	return r.db.WithContext(ctx).Create(complaint).Error
}

func (r *Repository) FindForShop(ctx context.Context, id, shopID uuid.UUID) (*models.Complaint, error) {
	var complaint models.Complaint
	if err := r.db.WithContext(ctx).Where("id = ? AND shop_id = ?", id, shopID).First(&complaint).Error; err != nil {
		return nil, err
	}
	return &complaint, nil
}

func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Complaint, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).Model(&models.Complaint{}).Where("user_id = ?", userID)

	var complaints []models.Complaint
	if err := pagination.Apply(query, cursor).Limit(pagination.LimitWithBuffer(limit)).Find(&complaints).Error; err != nil {
		return nil, nil, err
	}
	rows, next := pagination.Trim(complaints, limit, func(c models.Complaint) pagination.Cursor {
		return pagination.Cursor{CreatedAt: c.CreatedAt, ID: c.ID}
	})
	return rows, next, nil
}

func (r *Repository) ListByShop(ctx context.Context, shopID uuid.UUID, status *enums.ComplaintStatus, cursor *pagination.Cursor, limit int) ([]ShopComplaintRow, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).
		Table("complaints AS c").
		Select("c.*, u.name AS customer_name, u.phone_number AS customer_phone, o.order_number AS order_number").
		Joins("JOIN users u ON u.id = c.user_id").
		Joins("LEFT JOIN orders o ON o.id = c.order_id").
		Where("c.shop_id = ?", shopID)
	if status != nil {
		query = query.Where("c.status = ?", *status)
	}

	var joined []ShopComplaintRow
	if err := pagination.ApplyOn(query, "c", cursor).Limit(pagination.LimitWithBuffer(limit)).Scan(&joined).Error; err != nil {
		return nil, nil, err
	}
	rows, next := pagination.Trim(joined, limit, func(row ShopComplaintRow) pagination.Cursor {
		return pagination.Cursor{CreatedAt: row.CreatedAt, ID: row.ID}
	})
	return rows, next, nil
}

// UpdateStatus sets the status of a complaint owned by shopID. resolvedAt is
// stored as given, so callers pass nil to reopen.
func (r *Repository) UpdateStatus(ctx context.Context, id, shopID uuid.UUID, status enums.ComplaintStatus, resolvedAt *time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Complaint{}).
		Where("id = ? AND shop_id = ?", id, shopID).
		Updates(map[string]any{
			"status":      status,
			"resolved_at": resolvedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
