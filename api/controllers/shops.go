package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/aquaflow-backend/api/validators"
	"github.com/angelmondragon/aquaflow-backend/internal/shops"
	pkgerrors "github.com/angelmondragon/aquaflow-backend/pkg/errors"
	"github.com/angelmondragon/aquaflow-backend/pkg/logger"
)

type updateShopRequest struct {
	ShopName         *string          `json:"shop_name" validate:"omitempty,max=100"`
	PhoneNumber      *string          `json:"phone_number" validate:"omitempty,phone"`
	Email            *string          `json:"email" validate:"omitempty,email"`
	PhotoURL         *string          `json:"photo_url" validate:"omitempty,url"`
	Address          *string          `json:"address" validate:"omitempty,max=500"`
	City             *string          `json:"city" validate:"omitempty,max=100"`
	State            *string          `json:"state" validate:"omitempty,max=100"`
	Pincode          *string          `json:"pincode" validate:"omitempty,pincode"`
	Latitude         *float64         `json:"latitude" validate:"omitempty,min=-90,max=90"`
	Longitude        *float64         `json:"longitude" validate:"omitempty,min=-180,max=180"`
	PricePerJar      *decimal.Decimal `json:"price_per_jar"`
	OpensAt          *string          `json:"opens_at" validate:"omitempty,clock"`
	ClosesAt         *string          `json:"closes_at" validate:"omitempty,clock"`
	DeliveryRadiusKM *float64         `json:"delivery_radius_km" validate:"omitempty,gt=0,max=100"`
}

// ShopSearch lists shops near the consumer, by pincode, city or coordinates.
func ShopSearch(svc shops.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg, "shop")
	}
	return serve(logg, http.StatusOK, func(r *http.Request) (any, error) {
		query := r.URL.Query()
		params := shops.SearchParams{
			Pincode: strings.TrimSpace(query.Get("pincode")),
			City:    strings.TrimSpace(query.Get("city")),
		}
		var err error
		if params.Latitude, err = validators.ParseQueryFloat(r, "latitude"); err != nil {
			return nil, err
		}
		if params.Longitude, err = validators.ParseQueryFloat(r, "longitude"); err != nil {
			return nil, err
		}
		radius, err := validators.ParseQueryFloat(r, "radius")
		if err != nil {
			return nil, err
		}
		if radius != nil {
			params.RadiusKM = *radius
		}
		return svc.Search(r.Context(), params)
	})
}

// ShopsByPincode is the public pincode lookup.
func ShopsByPincode(svc shops.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg, "shop")
	}
	return serve(logg, http.StatusOK, func(r *http.Request) (any, error) {
		pincode := strings.TrimSpace(r.URL.Query().Get("pincode"))
		if pincode == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "pincode is required")
		}
		return svc.ByPincode(r.Context(), pincode)
	})
}

func ShopBySlug(svc shops.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg, "shop")
	}
	return serve(logg, http.StatusOK, func(r *http.Request) (any, error) {
		slug := strings.TrimSpace(chi.URLParam(r, "slug"))
		if slug == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "slug is required")
		}
		return svc.GetBySlug(r.Context(), slug)
	})
}

// ShopkeeperProfile returns the signed-in shopkeeper's shop and account.
func ShopkeeperProfile(svc shops.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg, "shop")
	}
	return serveShop(logg, http.StatusOK, func(r *http.Request, shopID uuid.UUID) (any, error) {
		return svc.Profile(r.Context(), shopID)
	})
}

// ShopkeeperUpdateShop applies partial edits. Price changes only affect new
// orders and subscriptions.
func ShopkeeperUpdateShop(svc shops.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg, "shop")
	}
	return serveShop(logg, http.StatusOK, func(r *http.Request, shopID uuid.UUID) (any, error) {
		var body updateShopRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		return svc.Update(r.Context(), shopID, shops.UpdateInput{
			ShopName:         body.ShopName,
			PhoneNumber:      body.PhoneNumber,
			Email:            body.Email,
			PhotoURL:         body.PhotoURL,
			Address:          body.Address,
			City:             body.City,
			State:            body.State,
			Pincode:          body.Pincode,
			Latitude:         body.Latitude,
			Longitude:        body.Longitude,
			PricePerJar:      body.PricePerJar,
			OpensAt:          body.OpensAt,
			ClosesAt:         body.ClosesAt,
			DeliveryRadiusKM: body.DeliveryRadiusKM,
		})
	})
}
