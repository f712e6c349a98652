package users

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/aquaflow-backend/pkg/db"
	"github.com/angelmondragon/aquaflow-backend/pkg/db/models"
)

// Repository exposes customer persistence, including the saved address book.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a users repo bound to the provided GORM DB.
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

// Create inserts a new customer and returns the persisted model.
func (r *Repository) Create(ctx context.Context, dto CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// FindByPhone retrieves the customer registered under phone.
func (r *Repository) FindByPhone(ctx context.Context, phone string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("phone_number = ?", phone).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID loads a customer by UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindOrCreateByPhone returns the customer for phone, creating one with
// pincode when none exists. created reports whether a row was inserted.
func (r *Repository) FindOrCreateByPhone(ctx context.Context, phone, pincode string) (user *models.User, created bool, err error) {
	user, err = r.FindByPhone(ctx, phone)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}
	user, err = r.Create(ctx, CreateUserDTO{PhoneNumber: phone, Pincode: pincode})
	if db.IsUniqueViolation(err, "") {
		// A concurrent first login inserted the row.
		user, err = r.FindByPhone(ctx, phone)
		return user, false, err
	}
	if err != nil {
		return nil, false, err
	}
	return user, true, nil
}

// RecordLogin stamps last_login_at and clears the OTP failure counters.
func (r *Repository) RecordLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"last_login_at":       at,
			"otp_failed_attempts": 0,
			"otp_blocked_until":   nil,
		}).Error
}

// RecordOTPFailure increments the failure counter and, once it reaches
// threshold, blocks OTP login until blockUntil. It returns the new count.
func (r *Repository) RecordOTPFailure(ctx context.Context, id uuid.UUID, threshold int, blockUntil time.Time) (int, error) {
	var attempts int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.User{}).
			Where("id = ?", id).
			UpdateColumn("otp_failed_attempts", gorm.Expr("otp_failed_attempts + 1")).Error; err != nil {
			return err
		}
		var user models.User
		if err := tx.Select("otp_failed_attempts").First(&user, "id = ?", id).Error; err != nil {
			return err
		}
		attempts = user.OTPFailedAttempts
		if threshold > 0 && attempts >= threshold {
			return tx.Model(&models.User{}).
				Where("id = ?", id).
				UpdateColumn("otp_blocked_until", blockUntil).Error
		}
		return nil
	})
	return attempts, err
}

// UpdateProfile applies the non-empty fields of dto.
func (r *Repository) UpdateProfile(ctx context.Context, id uuid.UUID, dto UpdateProfileDTO) error {
	fields := dto.fields()
	if len(fields) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Updates(fields).Error
}

// ListAddresses returns the saved addresses, default first then oldest first.
func (r *Repository) ListAddresses(ctx context.Context, userID uuid.UUID) ([]models.UserAddress, error) {
	var addresses []models.UserAddress
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("is_default DESC").
		Order("created_at ASC").
		Find(&addresses).Error
	return addresses, err
}

// DefaultAddress returns the default address, or the oldest one when none is
// flagged. It returns gorm.ErrRecordNotFound for an empty address book.
func (r *Repository) DefaultAddress(ctx context.Context, userID uuid.UUID) (*models.UserAddress, error) {
	var address models.UserAddress
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("is_default DESC").
		Order("created_at ASC").
		First(&address).Error
	if err != nil {
		return nil, err
	}
	return &address, nil
}

// HasAddress reports whether the exact address text is already saved.
func (r *Repository) HasAddress(ctx context.Context, userID uuid.UUID, address string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.UserAddress{}).
		Where("user_id = ? AND address = ?", userID, address).
		Count(&count).Error
	return count > 0, err
}

// AddAddress inserts address. A default address clears the flag on every
// other address of the user first.
func (r *Repository) AddAddress(ctx context.Context, address *models.UserAddress) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if address.IsDefault {
			if err := clearDefault(tx, address.UserID); err != nil {
				return err
			}
		}
		return tx.Create(address).Error
	})
}

// SetDefaultAddress flags addressID as the user's only default. It returns
// gorm.ErrRecordNotFound when the address does not belong to the user.
func (r *Repository) SetDefaultAddress(ctx context.Context, userID, addressID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := clearDefault(tx, userID); err != nil {
			return err
		}
		result := tx.Model(&models.UserAddress{}).
			Where("id = ? AND user_id = ?", addressID, userID).
			Update("is_default", true)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// DeleteAddress removes a saved address owned by userID.
func (r *Repository) DeleteAddress(ctx context.Context, userID, addressID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", addressID, userID).
		Delete(&models.UserAddress{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func clearDefault(tx *gorm.DB, userID uuid.UUID) error {
	return tx.Model(&models.UserAddress{}).
		Where("user_id = ? AND is_default = ?", userID, true).
		Update("is_default", false).Error
}
