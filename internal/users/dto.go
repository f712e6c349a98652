package users

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/aquaflow-backend/pkg/db/models"
	"github.com/angelmondragon/aquaflow-backend/pkg/enums"
)

// UserDTO is the transport shape of a customer.
type UserDTO struct {
	ID          uuid.UUID  `json:"id"`
	PhoneNumber string     `json:"phone_number"`
	Name        *string    `json:"name,omitempty"`
	Email       *string    `json:"email,omitempty"`
	Pincode     string     `json:"pincode"`
	IsActive    bool       `json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	PhoneNumber string
	Pincode     string
	Name        *string
	Email       *string
}

// UpdateProfileDTO carries optional profile edits.
type UpdateProfileDTO struct {
	Name    *string
	Email   *string
	Pincode *string
}

// AddressDTO is a saved delivery address.
type AddressDTO struct {
	ID        uuid.UUID         `json:"id"`
	Type      enums.AddressType `json:"type"`
	Address   string            `json:"address"`
	Landmark  *string           `json:"landmark,omitempty"`
	Latitude  *float64          `json:"latitude,omitempty"`
	Longitude *float64          `json:"longitude,omitempty"`
	IsDefault bool              `json:"is_default"`
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	return &UserDTO{
		ID:          u.ID,
		PhoneNumber: u.PhoneNumber,
		Name:        u.Name,
		Email:       u.Email,
		Pincode:     u.Pincode,
		IsActive:    u.IsActive,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
}

func AddressFromModel(a models.UserAddress) AddressDTO {
	return AddressDTO{
		ID:        a.ID,
		Type:      a.Type,
		Address:   a.Address,
		Landmark:  a.Landmark,
		Latitude:  a.Latitude,
		Longitude: a.Longitude,
		IsDefault: a.IsDefault,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	pincode := strings.TrimSpace(c.Pincode)
	if pincode == "" {
		pincode = models.DefaultPincode
	}
	return &models.User{
		PhoneNumber: strings.TrimSpace(c.PhoneNumber),
		Pincode:     pincode,
		Name:        c.Name,
		Email:       c.Email,
		IsActive:    true,
	}
}

func (u UpdateProfileDTO) fields() map[string]any {
	fields := map[string]any{}
	if u.Name != nil && strings.TrimSpace(*u.Name) != "" {
		fields["name"] = strings.TrimSpace(*u.Name)
	}
	if u.Email != nil && strings.TrimSpace(*u.Email) != "" {
		fields["email"] = strings.ToLower(strings.TrimSpace(*u.Email))
	}
	if u.Pincode != nil && strings.TrimSpace(*u.Pincode) != "" {
		fields["pincode"] = strings.TrimSpace(*u.Pincode)
	}
	return fields
}
