package shops

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/aquaflow-backend/pkg/db/models"
)

// ShopDTO is the public view of a shop used by discovery and shop pages.
type ShopDTO struct {
	ID               uuid.UUID       `json:"id"`
	Slug             string          `json:"slug"`
	ShopName         string          `json:"shop_name"`
	OwnerName        string          `json:"owner_name"`
	PhoneNumber      string          `json:"phone_number"`
	Email            *string         `json:"email,omitempty"`
	Address          string          `json:"address"`
	City             string          `json:"city"`
	State            string          `json:"state"`
	Pincode          string          `json:"pincode"`
	Latitude         float64         `json:"latitude"`
	Longitude        float64         `json:"longitude"`
	PhotoURL         *string         `json:"photo_url,omitempty"`
	PricePerJar      decimal.Decimal `json:"price_per_jar"`
	Rating           decimal.Decimal `json:"rating"`
	TotalReviews     int             `json:"total_reviews"`
	OpensAt          string          `json:"opens_at"`
	ClosesAt         string          `json:"closes_at"`
	DeliveryRadiusKM float64         `json:"delivery_radius_km"`
	IsVerified       bool            `json:"is_verified"`
	IsOpen           bool            `json:"is_open"`
	DistanceKM       *float64        `json:"distance_km,omitempty"`
}

// FromModel maps the persisted shop into its public DTO.
func FromModel(m *models.Shop, open bool) *ShopDTO {
	if m == nil {
		return nil
	}
	return &ShopDTO{
		ID:               m.ID,
		Slug:             m.Slug,
		ShopName:         m.ShopName,
		OwnerName:        m.OwnerName,
		PhoneNumber:      m.PhoneNumber,
		Email:            m.Email,
		Address:          m.Address,
		City:             m.City,
		State:            m.State,
		Pincode:          m.Pincode,
		Latitude:         m.Latitude,
		Longitude:        m.Longitude,
		PhotoURL:         m.PhotoURL,
		PricePerJar:      m.PricePerJar,
		Rating:           m.Rating,
		TotalReviews:     m.TotalReviews,
		OpensAt:          m.OpensAt,
		ClosesAt:         m.ClosesAt,
		DeliveryRadiusKM: m.DeliveryRadiusKM,
		IsVerified:       m.IsVerified,
		IsOpen:           open,
	}
}

// SearchType names which filter a discovery query was answered with.
type SearchType string

const (
	SearchByPincode     SearchType = "pincode"
	SearchByCity        SearchType = "city"
	SearchByCoordinates SearchType = "coordinates"
	SearchAll           SearchType = "all"
)

type SearchResult struct {
	Shops      []ShopDTO  `json:"shops"`
	Total      int        `json:"total"`
	SearchType SearchType `json:"search_type"`
}

// ShopkeeperDTO is the account behind a shop.
type ShopkeeperDTO struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	OwnerName   string     `json:"owner_name"`
	PhoneNumber string     `json:"phone_number"`
	IsVerified  bool       `json:"is_verified"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// ProfileDTO is what a shopkeeper sees about their own shop.
type ProfileDTO struct {
	Shop           ShopDTO         `json:"shop"`
	GSTNumber      string          `json:"gst_number"`
	IsActive       bool            `json:"is_active"`
	TotalOrders    int             `json:"total_orders"`
	MonthlyRevenue decimal.Decimal `json:"monthly_revenue"`
	Shopkeeper     ShopkeeperDTO   `json:"shopkeeper"`
	CreatedAt      time.Time       `json:"created_at"`
}

// UpdateInput captures the shop fields a shopkeeper may change. Nil fields
// are left untouched.
type UpdateInput struct {
	ShopName         *string
	PhoneNumber      *string
	Email            *string
	PhotoURL         *string
	Address          *string
	City             *string
	State            *string
	Pincode          *string
	Latitude         *float64
	Longitude        *float64
	PricePerJar      *decimal.Decimal
	OpensAt          *string
	ClosesAt         *string
	DeliveryRadiusKM *float64
}

type SearchParams struct {
	Pincode   string
	City      string
	Latitude  *float64
	Longitude *float64
	RadiusKM  float64
}
