// Package testutil holds database fixtures shared by package tests.
package testutil

import (
	"io"
	"log"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/aquaflow-backend/pkg/db"
	"github.com/angelmondragon/aquaflow-backend/pkg/db/models"
	"github.com/angelmondragon/aquaflow-backend/pkg/enums"
	"github.com/angelmondragon/aquaflow-backend/pkg/logger"
	"github.com/angelmondragon/aquaflow-backend/pkg/types"
)

func silentConfig() *gorm.Config {
	return &gorm.Config{
		Logger:                 gormlogger.New(log.New(io.Discard, "", log.LstdFlags), gormlogger.Config{LogLevel: gormlogger.Silent}),
		SkipDefaultTransaction: true,
	}
}

// NewDB opens a private in-memory SQLite database with every model migrated.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	return open(t, "file:aq_"+uuid.NewString()+"?mode=memory&cache=shared&_busy_timeout=5000")
}

// NewFileDB opens an on-disk SQLite database. Concurrency tests use it with
// immediate transactions so competing writers serialize on the write lock.
func NewFileDB(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "aquaflow.db")
	return open(t, "file:"+path+"?_busy_timeout=10000&_txlock=immediate&_journal_mode=WAL")
}

func open(t *testing.T, dsn string) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(dsn), silentConfig())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return conn
}

// NewMockDB wires gorm's Postgres dialector to go-sqlmock so tests can pin
// the exact statements a repository issues.
func NewMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	conn, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB, DriverName: "postgres"}), silentConfig())
	if err != nil {
		t.Fatalf("open gorm on sqlmock: %v", err)
	}
	return conn, mock
}

// TxRunner adapts a test connection to the services' transaction runner.
func TxRunner(conn *gorm.DB) *db.Client {
	return db.NewFromConn(conn)
}

// Logger discards output.
func Logger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

// SeedShop inserts an active, verified shop priced at pricePerJar.
func SeedShop(t *testing.T, conn *gorm.DB, pricePerJar int64) *models.Shop {
	t.Helper()
	shopkeeper := &models.Shopkeeper{
		Email:        uuid.NewString() + "@shops.test",
		PasswordHash: "hash",
		OwnerName:    "Ravi Kumar",
		PhoneNumber:  "+919800000001",
		IsVerified:   true,
		IsActive:     true,
	}
	if err := conn.Create(shopkeeper).Error; err != nil {
		t.Fatalf("seed shopkeeper: %v", err)
	}
	shop := &models.Shop{
		ShopkeeperID:   shopkeeper.ID,
		Slug:           "aqua-" + uuid.NewString()[:8],
		ShopName:       "Aqua Pure",
		OwnerName:      shopkeeper.OwnerName,
		PhoneNumber:    shopkeeper.PhoneNumber,
		Address:        "5 Lake Road",
		City:           "Pune",
		State:          "Maharashtra",
		Pincode:        "411001",
		Latitude:       18.52,
		Longitude:      73.85,
		GSTNumber:      "27ABCDE1234F1Z5",
		PricePerJar:    decimal.NewFromInt(pricePerJar),
		Rating:         decimal.Zero,
		IsActive:       true,
		IsVerified:     true,
		MonthlyRevenue: decimal.Zero,
	}
	if err := conn.Create(shop).Error; err != nil {
		t.Fatalf("seed shop: %v", err)
	}
	return shop
}

// SeedUser inserts an active customer.
func SeedUser(t *testing.T, conn *gorm.DB) *models.User {
	t.Helper()
	name := "Asha"
	user := &models.User{
		PhoneNumber: "+9199" + uuid.NewString()[:8],
		Name:        &name,
		Pincode:     "411001",
		IsActive:    true,
	}
	if err := conn.Create(user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

// SeedSubscription inserts an active subscription for plan at the shop's price.
func SeedSubscription(t *testing.T, conn *gorm.DB, user *models.User, shop *models.Shop, plan enums.SubscriptionPlan, now time.Time) *models.Subscription {
	t.Helper()
	jars, err := plan.JarsPerMonth()
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	sub := &models.Subscription{
		UserID:            user.ID,
		ShopID:            shop.ID,
		Plan:              plan,
		JarsPerMonth:      jars,
		PricePerJar:       shop.PricePerJar,
		MonthlyAmount:     shop.PricePerJar.Mul(decimal.NewFromInt(int64(jars))),
		CurrentMonthBill:  decimal.Zero,
		StartDate:         now,
		NextDeliveryDate:  now.AddDate(0, 0, 7),
		NextPaymentDate:   now.AddDate(0, 0, 30),
		DeliveryAddress:   types.DeliveryAddress{Address: "12 MG Road"},
		DeliveryFrequency: enums.DeliveryFrequencyWeekly,
		PaymentMethod:     enums.PaymentMethodUPI,
		AutoRenewal:       true,
		Status:            enums.SubscriptionStatusActive,
	}
	if err := conn.Create(sub).Error; err != nil {
		t.Fatalf("seed subscription: %v", err)
	}
	return sub
}
