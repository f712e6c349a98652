package shops

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/aquaflow-backend/pkg/db/models"
	"github.com/angelmondragon/aquaflow-backend/pkg/maps"
)

const slugAttempts = 5

// Repository handles shop persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to shop operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Create persists a new shop row.
func (r *Repository) Create(ctx context.Context, shop *models.Shop) error {
	if shop == nil {
		return fmt.Errorf("shop is required")
	}
	return r.db.WithContext(ctx).Create(shop).Error
}

// FindByID loads a shop by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Shop, error) {
	var shop models.Shop
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&shop).Error; err != nil {
		return nil, err
	}
	return &shop, nil
}

func (r *Repository) FindBySlug(ctx context.Context, value string) (*models.Shop, error) {
	var shop models.Shop
	if err := r.db.WithContext(ctx).Where("slug = ?", value).First(&shop).Error; err != nil {
		return nil, err
	}
	return &shop, nil
}

func (r *Repository) FindByShopkeeperID(ctx context.Context, shopkeeperID uuid.UUID) (*models.Shop, error) {
	var shop models.Shop
	if err := r.db.WithContext(ctx).Where("shopkeeper_id = ?", shopkeeperID).First(&shop).Error; err != nil {
		return nil, err
	}
	return &shop, nil
}

func (r *Repository) FindShopkeeper(ctx context.Context, id uuid.UUID) (*models.Shopkeeper, error) {
	var keeper models.Shopkeeper
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&keeper).Error; err != nil {
		return nil, err
	}
	return &keeper, nil
}

// CreateShopkeeper persists the login identity that will own a shop.
func (r *Repository) CreateShopkeeper(ctx context.Context, keeper *models.Shopkeeper) error {
	if keeper == nil {
		return fmt.Errorf("shopkeeper is required")
	}
	return r.db.WithContext(ctx).Create(keeper).Error
}

func (r *Repository) FindShopkeeperByEmail(ctx context.Context, email string) (*models.Shopkeeper, error) {
	var keeper models.Shopkeeper
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&keeper).Error; err != nil {
		return nil, err
	}
	return &keeper, nil
}

// ShopkeeperTaken reports whether email or phone already belongs to a shopkeeper.
func (r *Repository) ShopkeeperTaken(ctx context.Context, email, phone string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Shopkeeper{}).
		Where("email = ? OR phone_number = ?", email, phone).
		Count(&count).Error
	return count > 0, err
}

// ShopTaken reports whether a shop already uses the GST number or phone.
func (r *Repository) ShopTaken(ctx context.Context, gstNumber, phone string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Shop{}).
		Where("gst_number = ? OR phone_number = ?", gstNumber, phone).
		Count(&count).Error
	return count > 0, err
}

// RecordShopkeeperLogin stamps last_login_at and verifies legacy accounts.
func (r *Repository) RecordShopkeeperLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Shopkeeper{}).
		Where("id = ?", id).
		Updates(map[string]any{"last_login_at": at, "is_verified": true}).Error
}

// UpdateShopkeeperPassword replaces the stored password hash.
func (r *Repository) UpdateShopkeeperPassword(ctx context.Context, id uuid.UUID, hash string) error {
	return r.db.WithContext(ctx).
		Model(&models.Shopkeeper{}).
		Where("id = ?", id).
		Update("password_hash", hash).Error
}

// UniqueSlug derives a URL slug from name and appends a short random suffix
// until it does not collide with an existing shop.
func (r *Repository) UniqueSlug(ctx context.Context, name string) (string, error) {
	base := slug.Make(name)
	if base == "" {
		base = "shop"
	}
	candidate := base
	for i := 0; i < slugAttempts; i++ {
		var count int64
		if err := r.db.WithContext(ctx).Model(&models.Shop{}).Where("slug = ?", candidate).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return candidate, nil
		}
		suffix, err := randomSuffix()
		if err != nil {
			return "", err
		}
		candidate = base + "-" + suffix
	}
	return "", fmt.Errorf("could not find a free slug for %q", name)
}

func randomSuffix() (string, error) {
	buf := make([]byte, 3)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// SearchFilter narrows discovery queries. Only available shops are returned.
type SearchFilter struct {
	Pincode string
	City    string
	// Within prefilters by a lat/lng box; callers refine by real distance.
	Within *[2]maps.Point
	Limit  int
}

func (r *Repository) Search(ctx context.Context, filter SearchFilter) ([]models.Shop, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Shop{}).
		Where("is_active = ? AND is_verified = ?", true, true)

	switch {
	case filter.Pincode != "":
		query = query.Where("pincode = ?", filter.Pincode)
	case filter.City != "":
		query = query.Where("LOWER(city) = ?", strings.ToLower(filter.City))
	case filter.Within != nil:
		lo, hi := filter.Within[0], filter.Within[1]
		query = query.Where("latitude BETWEEN ? AND ? AND longitude BETWEEN ? AND ?", lo.Lat, hi.Lat, lo.Lng, hi.Lng)
	}

	var shops []models.Shop
	err := query.Order("rating DESC").Order("shop_name ASC").Limit(filter.Limit).Find(&shops).Error
	return shops, err
}

// UpdateFields applies a partial update. Counters are never part of it.
func (r *Repository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&models.Shop{}).Where("id = ?", id).Updates(fields).Error
}

// RecordDelivered bumps the shop's lifetime order count and revenue.
func (r *Repository) RecordDelivered(ctx context.Context, shopID uuid.UUID, amount decimal.Decimal) error {
	return r.RecordDeliveredWithTx(ctx, r.db, shopID, amount)
}

// RecordDeliveredWithTx is RecordDelivered inside the caller's transaction.
func (r *Repository) RecordDeliveredWithTx(ctx context.Context, tx *gorm.DB, shopID uuid.UUID, amount decimal.Decimal) error {
	return tx.WithContext(ctx).
		Model(&models.Shop{}).
		Where("id = ?", shopID).
		Updates(map[string]any{
			"total_orders":    gorm.Expr("total_orders + 1"),
			"monthly_revenue": gorm.Expr("monthly_revenue + ?", amount),
		}).Error
}

// ApplyRating folds a 1-5 rating into the running average.
func (r *Repository) ApplyRating(ctx context.Context, shopID uuid.UUID, rating int) error {
	return r.ApplyRatingWithTx(ctx, r.db, shopID, rating)
}

func (r *Repository) ApplyRatingWithTx(ctx context.Context, tx *gorm.DB, shopID uuid.UUID, rating int) error {
	return tx.WithContext(ctx).
		Model(&models.Shop{}).
		Where("id = ?", shopID).
		Updates(map[string]any{
			"rating":        gorm.Expr("ROUND((rating * total_reviews + ?) * 1.0 / (total_reviews + 1), 2)", rating),
			"total_reviews": gorm.Expr("total_reviews + 1"),
		}).Error
}
