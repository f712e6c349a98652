package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/aquaflow-backend/pkg/db/models"
	"github.com/angelmondragon/aquaflow-backend/pkg/enums"
	"github.com/angelmondragon/aquaflow-backend/pkg/pagination"
	"github.com/angelmondragon/aquaflow-backend/pkg/types"
)

// Repository defines persistence operations for the orders table.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindForUser(ctx context.Context, id, userID uuid.UUID) (*models.Order, error)
	FindForShop(ctx context.Context, id, shopID uuid.UUID) (*models.Order, error)
	LatestShopForUser(ctx context.Context, userID uuid.UUID) (uuid.UUID, error)
	ListByUser(ctx context.Context, userID uuid.UUID, orderType *enums.OrderType, cursor *pagination.Cursor, limit int) ([]models.Order, *pagination.Cursor, error)
	ListByShop(ctx context.Context, shopID uuid.UUID, status *enums.OrderStatus, cursor *pagination.Cursor, limit int) ([]ShopOrderRow, *pagination.Cursor, error)
	RecordPayment(ctx context.Context, id uuid.UUID, paymentRef string, paid bool) error
	UpdateStatus(ctx context.Context, id, shopID uuid.UUID, from []enums.OrderStatus, fields map[string]any) (bool, error)
	MarkDelivered(ctx context.Context, id, shopID uuid.UUID, at time.Time, notes *string) (bool, error)
	AssignDelivery(ctx context.Context, id, shopID uuid.UUID, person types.DeliveryPerson) (bool, error)
	SetRating(ctx context.Context, id, userID uuid.UUID, rating int, review *string) (bool, error)
	Stats(ctx context.Context, shopID uuid.UUID, since time.Time) (*StatsRow, error)
}

// ShopOrderRow joins an order with the customer who placed it. DefaultAddress
// is the customer's default saved address, used when the order carries none.
type ShopOrderRow struct {
	models.Order   `gorm:"embedded"`
	CustomerName   *string `gorm:"column:customer_name"`
	CustomerPhone  string  `gorm:"column:customer_phone"`
	CustomerEmail  *string `gorm:"column:customer_email"`
	DefaultAddress *string `gorm:"column:default_address"`
}

// StatsRow is the single-row aggregate behind the shop dashboard.
type StatsRow struct {
	Total     int64           `gorm:"column:total"`
	Pending   int64           `gorm:"column:pending"`
	Confirmed int64           `gorm:"column:confirmed"`
	Delivered int64           `gorm:"column:delivered"`
	Today     int64           `gorm:"column:today"`
	Revenue   decimal.Decimal `gorm:"column:revenue"`
}
