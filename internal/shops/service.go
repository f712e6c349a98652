package shops

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/aquaflow-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/aquaflow-backend/pkg/errors"
	"github.com/angelmondragon/aquaflow-backend/pkg/formats"
	"github.com/angelmondragon/aquaflow-backend/pkg/logger"
	"github.com/angelmondragon/aquaflow-backend/pkg/maps"
)

const (
	defaultRadiusKM = 10
	defaultLimit    = 50
)

var (
	minPrice = decimal.NewFromInt(1)
	maxPrice = decimal.NewFromInt(200)
)

type shopRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Shop, error)
	FindBySlug(ctx context.Context, value string) (*models.Shop, error)
	FindShopkeeper(ctx context.Context, id uuid.UUID) (*models.Shopkeeper, error)
	Search(ctx context.Context, filter SearchFilter) ([]models.Shop, error)
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error
}

// Service exposes shop discovery and shopkeeper shop management.
type Service interface {
	Search(ctx context.Context, params SearchParams) (*SearchResult, error)
	ByPincode(ctx context.Context, pincode string) (*SearchResult, error)
	GetBySlug(ctx context.Context, slug string) (*ShopDTO, error)
	Profile(ctx context.Context, shopID uuid.UUID) (*ProfileDTO, error)
	Update(ctx context.Context, shopID uuid.UUID, input UpdateInput) (*ProfileDTO, error)
}

// ServiceParams groups dependencies for the shop service.
type ServiceParams struct {
	Repository shopRepository
	Logger     *logger.Logger
	// Location is the zone opening hours are written in.
	Location       *time.Location
	SearchRadiusKM float64
	SearchLimit    int
	Clock          func() time.Time
}

type service struct {
	repo     shopRepository
	logg     *logger.Logger
	loc      *time.Location
	radiusKM float64
	limit    int
	now      func() time.Time
}

// NewService builds a shop service with the provided repository.
func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("shop repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	svc := &service{
		repo:     params.Repository,
		logg:     params.Logger,
		loc:      params.Location,
		radiusKM: params.SearchRadiusKM,
		limit:    params.SearchLimit,
		now:      params.Clock,
	}
	if svc.loc == nil {
		svc.loc = time.UTC
	}
	if svc.radiusKM <= 0 {
		svc.radiusKM = defaultRadiusKM
	}
	if svc.limit <= 0 {
		svc.limit = defaultLimit
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc, nil
}

func (s *service) dto(shop *models.Shop) *ShopDTO {
	return FromModel(shop, shop.OpenAt(s.now().In(s.loc)))
}

// Search answers discovery queries. A pincode wins over a city, and a city
// wins over coordinates; distances are only reported for coordinate searches.
func (s *service) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	pincode := strings.TrimSpace(params.Pincode)
	city := strings.TrimSpace(params.City)
	if pincode != "" && !formats.Pincode(pincode) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pincode must be 6 digits")
	}
	if (params.Latitude == nil) != (params.Longitude == nil) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "latitude and longitude must be provided together")
	}

	filter := SearchFilter{Pincode: pincode, City: city, Limit: s.limit}
	searchType := SearchAll
	var origin *maps.Point
	radius := s.radiusKM
	if params.RadiusKM > 0 {
		radius = params.RadiusKM
	}

	switch {
	case pincode != "":
		searchType = SearchByPincode
	case city != "":
		searchType = SearchByCity
	case params.Latitude != nil:
		point := maps.Point{Lat: *params.Latitude, Lng: *params.Longitude}
		if !point.Valid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid coordinates")
		}
		origin = &point
		lo, hi := maps.BoundingBox(point, radius)
		filter.Within = &[2]maps.Point{lo, hi}
		searchType = SearchByCoordinates
	}

	found, err := s.repo.Search(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "search shops")
	}

	out := make([]ShopDTO, 0, len(found))
	if origin == nil {
		for i := range found {
			out = append(out, *s.dto(&found[i]))
		}
	} else {
		points := make([]maps.Point, len(found))
		for i, shop := range found {
			points[i] = maps.Point{Lat: shop.Latitude, Lng: shop.Longitude}
		}
		for _, ranked := range maps.WithinRadius(*origin, points, radius) {
			dto := s.dto(&found[ranked.Index])
			km := maps.RoundKM(ranked.DistanceKM)
			dto.DistanceKM = &km
			out = append(out, *dto)
		}
	}
	return &SearchResult{Shops: out, Total: len(out), SearchType: searchType}, nil
}

func (s *service) ByPincode(ctx context.Context, pincode string) (*SearchResult, error) {
	if strings.TrimSpace(pincode) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pincode is required")
	}
	return s.Search(ctx, SearchParams{Pincode: pincode})
}

func (s *service) GetBySlug(ctx context.Context, value string) (*ShopDTO, error) {
	shop, err := s.repo.FindBySlug(ctx, strings.ToLower(strings.TrimSpace(value)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "shop not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shop")
	}
	if !shop.Available() {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "shop not found")
	}
	return s.dto(shop), nil
}

func (s *service) load(ctx context.Context, shopID uuid.UUID) (*models.Shop, error) {
	shop, err := s.repo.FindByID(ctx, shopID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "shop not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shop")
	}
	return shop, nil
}

func (s *service) Profile(ctx context.Context, shopID uuid.UUID) (*ProfileDTO, error) {
	shop, err := s.load(ctx, shopID)
	if err != nil {
		return nil, err
	}
	keeper, err := s.repo.FindShopkeeper(ctx, shop.ShopkeeperID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shopkeeper")
	}
	return &ProfileDTO{
		Shop:           *s.dto(shop),
		GSTNumber:      shop.GSTNumber,
		IsActive:       shop.IsActive,
		TotalOrders:    shop.TotalOrders,
		MonthlyRevenue: shop.MonthlyRevenue,
		CreatedAt:      shop.CreatedAt,
		Shopkeeper: ShopkeeperDTO{
			ID:          keeper.ID,
			Email:       keeper.Email,
			OwnerName:   keeper.OwnerName,
			PhoneNumber: keeper.PhoneNumber,
			IsVerified:  keeper.IsVerified,
			LastLoginAt: keeper.LastLoginAt,
		},
	}, nil
}

// Update applies a partial shop update. A price change only affects future
// subscriptions and orders; existing subscriptions keep their frozen price.
func (s *service) Update(ctx context.Context, shopID uuid.UUID, input UpdateInput) (*ProfileDTO, error) {
	shop, err := s.load(ctx, shopID)
	if err != nil {
		return nil, err
	}
	fields, err := updateFields(input)
	if err != nil {
		return nil, err
	}
	opens, closes := shop.OpensAt, shop.ClosesAt
	if v, ok := fields["opens_at"].(string); ok {
		opens = v
	}
	if v, ok := fields["closes_at"].(string); ok {
		closes = v
	}
	if opens >= closes {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "opens_at must be before closes_at")
	}

	if err := s.repo.UpdateFields(ctx, shop.ID, fields); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update shop")
	}
	s.logg.Info(s.logg.WithField(ctx, "shop_id", shop.ID.String()), "shop updated")
	return s.Profile(ctx, shop.ID)
}

func updateFields(input UpdateInput) (map[string]any, error) {
	fields := map[string]any{}
	invalid := func(msg string) error { return pkgerrors.New(pkgerrors.CodeValidation, msg) }

	text := func(column string, value *string, required bool) error {
		if value == nil {
			return nil
		}
		trimmed := strings.TrimSpace(*value)
		if required && trimmed == "" {
			return invalid(column + " cannot be empty")
		}
		fields[column] = trimmed
		return nil
	}
	for column, value := range map[string]*string{
		"shop_name": input.ShopName,
		"address":   input.Address,
		"city":      input.City,
		"state":     input.State,
	} {
		if err := text(column, value, true); err != nil {
			return nil, err
		}
	}
	if err := text("photo_url", input.PhotoURL, false); err != nil {
		return nil, err
	}
	if err := text("email", input.Email, false); err != nil {
		return nil, err
	}

	if input.PhoneNumber != nil {
		if !formats.Phone(*input.PhoneNumber) {
			return nil, invalid("invalid phone number")
		}
		fields["phone_number"] = *input.PhoneNumber
	}
	if input.Pincode != nil {
		if !formats.Pincode(*input.Pincode) {
			return nil, invalid("pincode must be 6 digits")
		}
		fields["pincode"] = *input.Pincode
	}
	if input.PricePerJar != nil {
		if input.PricePerJar.LessThan(minPrice) || input.PricePerJar.GreaterThan(maxPrice) {
			return nil, invalid("price_per_jar must be between 1 and 200")
		}
		fields["price_per_jar"] = input.PricePerJar.Round(2)
	}
	for column, value := range map[string]*string{"opens_at": input.OpensAt, "closes_at": input.ClosesAt} {
		if value == nil {
			continue
		}
		if !formats.Clock(*value) {
			return nil, invalid(column + " must be HH:MM")
		}
		fields[column] = *value
	}
	if input.DeliveryRadiusKM != nil {
		if *input.DeliveryRadiusKM <= 0 || *input.DeliveryRadiusKM > 50 {
			return nil, invalid("delivery_radius_km must be between 0 and 50")
		}
		fields["delivery_radius_km"] = *input.DeliveryRadiusKM
	}
	if (input.Latitude == nil) != (input.Longitude == nil) {
		return nil, invalid("latitude and longitude must be provided together")
	}
	if input.Latitude != nil {
		if !(maps.Point{Lat: *input.Latitude, Lng: *input.Longitude}).Valid() {
			return nil, invalid("invalid coordinates")
		}
		fields["latitude"] = *input.Latitude
		fields["longitude"] = *input.Longitude
	}
	return fields, nil
}
