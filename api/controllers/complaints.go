package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/aquaflow-backend/api/validators"
	"github.com/angelmondragon/aquaflow-backend/internal/complaints"
	"github.com/angelmondragon/aquaflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/aquaflow-backend/pkg/errors"
	"github.com/angelmondragon/aquaflow-backend/pkg/logger"
)

type submitComplaintRequest struct {
	Subject     string `json:"subject" validate:"required,max=200"`
	Description string `json:"description" validate:"required,max=2000"`
	Priority    string `json:"priority" validate:"omitempty,oneof=low medium high"`
	OrderID     string `json:"order_id"`
	ShopID      string `json:"shop_id"`
}

type complaintStatusRequest struct {
	Status enums.ComplaintStatus `json:"status" validate:"required"`
}

// ComplaintSubmit files a complaint against a shop. The shop comes from
// shop_id, then order_id, then the consumer's most recent order.
func ComplaintSubmit(svc complaints.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg, "complaints")
	}
	return serveUser(logg, http.StatusCreated, func(r *http.Request, userID uuid.UUID) (any, error) {
		var body submitComplaintRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		orderID, err := validators.ParseOptionalUUID(body.OrderID, "order_id")
		if err != nil {
			return nil, err
		}
		shopID, err := validators.ParseOptionalUUID(body.ShopID, "shop_id")
		if err != nil {
			return nil, err
		}
		return svc.Submit(r.Context(), userID, complaints.SubmitInput{
			Subject:     body.Subject,
			Description: body.Description,
			Priority:    body.Priority,
			OrderID:     orderID,
			ShopID:      shopID,
		})
	})
}

func ComplaintListMine(svc complaints.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg, "complaints")
	}
	return serveUser(logg, http.StatusOK, func(r *http.Request, userID uuid.UUID) (any, error) {
		page, err := validators.ParsePageParams(r)
		if err != nil {
			return nil, err
		}
		return svc.ListMine(r.Context(), userID, page)
	})
}

// ShopComplaintList lists complaints raised against the caller's shop,
// optionally filtered by ?status=.
func ShopComplaintList(svc complaints.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg, "complaints")
	}
	return serveShop(logg, http.StatusOK, func(r *http.Request, shopID uuid.UUID) (any, error) {
		page, err := validators.ParsePageParams(r)
		if err != nil {
			return nil, err
		}
		params := complaints.ShopListParams{Limit: page.Limit, Cursor: page.Cursor}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseComplaintStatus(raw)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
			}
			params.Status = &status
		}
		return svc.ListForShop(r.Context(), shopID, params)
	})
}

func ShopComplaintUpdateStatus(svc complaints.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg, "complaints")
	}
	return serveShop(logg, http.StatusOK, func(r *http.Request, shopID uuid.UUID) (any, error) {
		complaintID, err := validators.ParseUUIDParam(r, "complaintId")
		if err != nil {
			return nil, err
		}
		var body complaintStatusRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		if !body.Status.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status")
		}
		return svc.UpdateStatus(r.Context(), shopID, complaintID, body.Status)
	})
}
