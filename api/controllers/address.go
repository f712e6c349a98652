package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/aquaflow-backend/api/validators"
	"github.com/angelmondragon/aquaflow-backend/internal/address"
	"github.com/angelmondragon/aquaflow-backend/pkg/enums"
	"github.com/angelmondragon/aquaflow-backend/pkg/logger"
)

type addAddressRequest struct {
	Type      enums.AddressType `json:"type" validate:"omitempty,oneof=home office other"`
	Address   string            `json:"address" validate:"required,max=500"`
	Landmark  *string           `json:"landmark"`
	Latitude  *float64          `json:"latitude" validate:"omitempty,min=-90,max=90"`
	Longitude *float64          `json:"longitude" validate:"omitempty,min=-180,max=180"`
	IsDefault bool              `json:"is_default"`
}

// AddressList returns the consumer's saved delivery addresses.
func AddressList(svc address.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg, "address")
	}
	return serveUser(logg, http.StatusOK, func(r *http.Request, userID uuid.UUID) (any, error) {
		list, err := svc.List(r.Context(), userID)
		if err != nil {
			return nil, err
		}
		return map[string]any{"addresses": list}, nil
	})
}

func AddressAdd(svc address.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg, "address")
	}
	return serveUser(logg, http.StatusCreated, func(r *http.Request, userID uuid.UUID) (any, error) {
		var body addAddressRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		return svc.Add(r.Context(), userID, address.AddInput{
			Type:      body.Type,
			Address:   body.Address,
			Landmark:  body.Landmark,
			Latitude:  body.Latitude,
			Longitude: body.Longitude,
			IsDefault: body.IsDefault,
		})
	})
}

// AddressSetDefault makes one saved address the default; the previous
// default is cleared.
func AddressSetDefault(svc address.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg, "address")
	}
	return serveUser(logg, http.StatusOK, func(r *http.Request, userID uuid.UUID) (any, error) {
		id, err := validators.ParseUUIDParam(r, "addressId")
		if err != nil {
			return nil, err
		}
		if err := svc.SetDefault(r.Context(), userID, id); err != nil {
			return nil, err
		}
		return map[string]string{"status": "default_updated"}, nil
	})
}

func AddressDelete(svc address.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg, "address")
	}
	return serveUser(logg, http.StatusOK, func(r *http.Request, userID uuid.UUID) (any, error) {
		id, err := validators.ParseUUIDParam(r, "addressId")
		if err != nil {
			return nil, err
		}
		if err := svc.Delete(r.Context(), userID, id); err != nil {
			return nil, err
		}
		return map[string]string{"status": "deleted"}, nil
	})
}
