package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/aquaflow-backend/internal/users"
	"github.com/angelmondragon/aquaflow-backend/pkg/db/models"
)

// SendOTPRequest asks for a login code. Pincode is optional and updates the
// stored one when it differs.
type SendOTPRequest struct {
	PhoneNumber string `json:"phone_number" validate:"required,phone"`
	Pincode     string `json:"pincode,omitempty" validate:"omitempty,pincode"`
}

type SendOTPResponse struct {
	UserID      uuid.UUID `json:"user_id"`
	PhoneNumber string    `json:"phone_number"`
	Pincode     string    `json:"pincode"`
	ExpiresIn   int       `json:"expires_in_seconds"`
}

type VerifyOTPRequest struct {
	PhoneNumber string `json:"phone_number" validate:"required,phone"`
	OTP         string `json:"otp" validate:"required,len=6,numeric"`
}

// LoginResponse is returned to a user after a successful OTP check.
type LoginResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	User         *users.UserDTO `json:"user"`
}

// ShopkeeperLoginRequest captures the credentials sent to the shopkeeper login endpoint.
type ShopkeeperLoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterShopkeeperRequest onboards a shopkeeper together with their shop.
type RegisterShopkeeperRequest struct {
	OwnerName   string          `json:"owner_name" validate:"required,max=100"`
	Email       string          `json:"email" validate:"required,email"`
	Password    string          `json:"password" validate:"required,min=6"`
	PhoneNumber string          `json:"phone_number" validate:"required,phone"`
	ShopName    string          `json:"shop_name" validate:"required,max=100"`
	Address     string          `json:"address" validate:"required"`
	City        string          `json:"city" validate:"required"`
	State       string          `json:"state" validate:"required"`
	Pincode     string          `json:"pincode" validate:"required,pincode"`
	GSTNumber   string          `json:"gst_number" validate:"required,gstin"`
	PricePerJar decimal.Decimal `json:"price_per_jar"`
	Latitude    *float64        `json:"latitude" validate:"required,min=-90,max=90"`
	Longitude   *float64        `json:"longitude" validate:"required,min=-180,max=180"`
}

type ShopkeeperDTO struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	OwnerName   string     `json:"owner_name"`
	PhoneNumber string     `json:"phone_number"`
	IsVerified  bool       `json:"is_verified"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

type ShopSummary struct {
	ID          uuid.UUID       `json:"id"`
	Slug        string          `json:"slug"`
	ShopName    string          `json:"shop_name"`
	Address     string          `json:"address"`
	City        string          `json:"city"`
	State       string          `json:"state"`
	Pincode     string          `json:"pincode"`
	GSTNumber   string          `json:"gst_number"`
	PricePerJar decimal.Decimal `json:"price_per_jar"`
	IsActive    bool            `json:"is_active"`
	IsVerified  bool            `json:"is_verified"`
}

// ShopkeeperAuthResponse is returned by shopkeeper register and login.
type ShopkeeperAuthResponse struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	Shopkeeper   ShopkeeperDTO `json:"shopkeeper"`
	Shop         ShopSummary   `json:"shop"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// TokenPair is a rotated access and refresh token.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func shopkeeperDTO(k *models.Shopkeeper) ShopkeeperDTO {
	return ShopkeeperDTO{
		ID:          k.ID,
		Email:       k.Email,
		OwnerName:   k.OwnerName,
		PhoneNumber: k.PhoneNumber,
		IsVerified:  k.IsVerified,
		LastLoginAt: k.LastLoginAt,
	}
}

func shopSummary(s *models.Shop) ShopSummary {
	return ShopSummary{
		ID:          s.ID,
		Slug:        s.Slug,
		ShopName:    s.ShopName,
		Address:     s.Address,
		City:        s.City,
		State:       s.State,
		Pincode:     s.Pincode,
		GSTNumber:   s.GSTNumber,
		PricePerJar: s.PricePerJar,
		IsActive:    s.IsActive,
		IsVerified:  s.IsVerified,
	}
}
