package orders

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/aquaflow-backend/api/middleware"
	"github.com/angelmondragon/aquaflow-backend/api/responses"
	"github.com/angelmondragon/aquaflow-backend/api/validators"
	internalorders "github.com/angelmondragon/aquaflow-backend/internal/orders"
	internalsubscriptions "github.com/angelmondragon/aquaflow-backend/internal/subscriptions"
	"github.com/angelmondragon/aquaflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/aquaflow-backend/pkg/errors"
	"github.com/angelmondragon/aquaflow-backend/pkg/logger"
	"github.com/angelmondragon/aquaflow-backend/pkg/pagination"
	"github.com/angelmondragon/aquaflow-backend/pkg/types"
)

// shopSubscriptions lists the subscriptions held with a shop.
type shopSubscriptions interface {
	ListForShop(ctx context.Context, shopID uuid.UUID, params internalsubscriptions.ListParams) (*internalsubscriptions.ShopListResult, error)
}

// shopOrdersResponse carries a page of the shop's orders together with the
// subscriptions it serves.
type shopOrdersResponse struct {
	Orders        []internalorders.ShopOrderView               `json:"orders"`
	NextCursor    string                                       `json:"next_cursor,omitempty"`
	Subscriptions []internalsubscriptions.ShopSubscriptionView `json:"subscriptions"`
}

type coordinatesPayload struct {
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
}

type deliveryAddressPayload struct {
	Address     string              `json:"address" validate:"required,max=500"`
	Landmark    string              `json:"landmark" validate:"omitempty,max=200"`
	Coordinates *coordinatesPayload `json:"coordinates"`
}

func (p deliveryAddressPayload) toDomain() types.DeliveryAddress {
	address := types.DeliveryAddress{Address: strings.TrimSpace(p.Address)}
	if landmark := strings.TrimSpace(p.Landmark); landmark != "" {
		address.Landmark = &landmark
	}
	if p.Coordinates != nil {
		address.Coordinates = &types.Coordinates{Latitude: p.Coordinates.Latitude, Longitude: p.Coordinates.Longitude}
	}
	return address
}

type placeOrderRequest struct {
	ShopID          string                 `json:"shop_id" validate:"required,uuid"`
	Quantity        int                    `json:"quantity" validate:"required"`
	DeliveryAddress deliveryAddressPayload `json:"delivery_address"`
	PaymentMethod   string                 `json:"payment_method" validate:"required,oneof=upi card wallet cash"`
	Notes           string                 `json:"notes" validate:"omitempty,max=500"`
	CustomerName    string                 `json:"customer_name" validate:"omitempty,max=120"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
	Notes  string `json:"notes" validate:"omitempty,max=500"`
}

type assignRequest struct {
	Name  string `json:"name" validate:"required,max=120"`
	Phone string `json:"phone" validate:"required,phone"`
}

type rateRequest struct {
	Rating int    `json:"rating" validate:"required,gte=1,lte=5"`
	Review string `json:"review" validate:"omitempty,max=1000"`
}

// route resolves the caller through principal before handing the request to
// fn; whatever fn returns is written as the 200 data payload.
func route(
	svc internalorders.Service,
	logg *logger.Logger,
	principal func(context.Context) (uuid.UUID, error),
	fn func(r *http.Request, id uuid.UUID) (any, error),
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		id, err := principal(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		out, err := fn(r, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, out)
	}
}

func forConsumer(svc internalorders.Service, logg *logger.Logger, fn func(r *http.Request, userID uuid.UUID) (any, error)) http.HandlerFunc {
	return route(svc, logg, middleware.CurrentUserID, fn)
}

func forShop(svc internalorders.Service, logg *logger.Logger, fn func(r *http.Request, shopID uuid.UUID) (any, error)) http.HandlerFunc {
	return route(svc, logg, middleware.CurrentShopID, fn)
}

func orderID(r *http.Request) (uuid.UUID, error) {
	return validators.ParseUUIDParam(r, "orderId")
}

// optionalQuery parses ?name with parse when present; an absent or blank
// value yields nil.
func optionalQuery[T any](r *http.Request, name string, parse func(string) (T, error)) (*T, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	v, err := parse(raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+name)
	}
	return &v, nil
}

// PlaceOneTime creates a standalone order and charges it unless paid in cash.
// A failed online charge still returns 201 with the order and a warning.
func PlaceOneTime(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		result, err := placeOneTime(r, svc)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessWithWarnings(w, http.StatusCreated, result, result.Warnings)
	}
}

func placeOneTime(r *http.Request, svc internalorders.Service) (*internalorders.PlaceResult, error) {
	userID, err := middleware.CurrentUserID(r.Context())
	if err != nil {
		return nil, err
	}
	var body placeOrderRequest
	if err := validators.DecodeJSONBody(r, &body); err != nil {
		return nil, err
	}
	shopID, err := uuid.Parse(body.ShopID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid shop_id")
	}
	method, err := enums.ParsePaymentMethod(body.PaymentMethod)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment_method")
	}
	return svc.PlaceOneTime(r.Context(), userID, internalorders.PlaceInput{
		ShopID:          shopID,
		Quantity:        body.Quantity,
		DeliveryAddress: body.DeliveryAddress.toDomain(),
		PaymentMethod:   method,
		Notes:           validators.SanitizeString(body.Notes, 500),
		CustomerName:    strings.TrimSpace(body.CustomerName),
	})
}

// History pages the consumer's orders, newest first. ?type narrows to
// one-time or subscription orders.
func History(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return forConsumer(svc, logg, func(r *http.Request, userID uuid.UUID) (any, error) {
		page, err := validators.ParsePageParams(r)
		if err != nil {
			return nil, err
		}
		orderType, err := optionalQuery(r, "type", enums.ParseOrderType)
		if err != nil {
			return nil, err
		}
		return svc.History(r.Context(), userID, internalorders.HistoryParams{Limit: page.Limit, Cursor: page.Cursor, Type: orderType})
	})
}

func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return forConsumer(svc, logg, func(r *http.Request, userID uuid.UUID) (any, error) {
		id, err := orderID(r)
		if err != nil {
			return nil, err
		}
		return svc.Get(r.Context(), userID, id)
	})
}

// Track returns the live delivery view of one of the consumer's orders.
func Track(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return forConsumer(svc, logg, func(r *http.Request, userID uuid.UUID) (any, error) {
		id, err := orderID(r)
		if err != nil {
			return nil, err
		}
		return svc.Track(r.Context(), userID, id)
	})
}

// Rate records the consumer's rating for a delivered order.
func Rate(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return forConsumer(svc, logg, func(r *http.Request, userID uuid.UUID) (any, error) {
		id, err := orderID(r)
		if err != nil {
			return nil, err
		}
		var body rateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		return svc.Rate(r.Context(), userID, id, internalorders.RateInput{
			Rating: body.Rating,
			Review: validators.SanitizeString(body.Review, 1000),
		})
	})
}

// ShopList pages orders placed with the shopkeeper's shop, optionally by
// status, alongside the shop's subscriptions. The cursor and status filter
// apply to orders only.
func ShopList(svc internalorders.Service, subs shopSubscriptions, logg *logger.Logger) http.HandlerFunc {
	return forShop(svc, logg, func(r *http.Request, shopID uuid.UUID) (any, error) {
		if subs == nil {
			return nil, pkgerrors.New(pkgerrors.CodeInternal, "subscriptions service unavailable")
		}
		page, err := validators.ParsePageParams(r)
		if err != nil {
			return nil, err
		}
		status, err := optionalQuery(r, "status", enums.ParseOrderStatus)
		if err != nil {
			return nil, err
		}
		orders, err := svc.ListForShop(r.Context(), shopID, internalorders.ShopListParams{Limit: page.Limit, Cursor: page.Cursor, Status: status})
		if err != nil {
			return nil, err
		}
		held, err := subs.ListForShop(r.Context(), shopID, internalsubscriptions.ListParams{Limit: pagination.MaxLimit})
		if err != nil {
			return nil, err
		}
		return shopOrdersResponse{
			Orders:        orders.Orders,
			NextCursor:    orders.NextCursor,
			Subscriptions: held.Subscriptions,
		}, nil
	})
}

func ShopStats(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return forShop(svc, logg, func(r *http.Request, shopID uuid.UUID) (any, error) {
		return svc.Stats(r.Context(), shopID)
	})
}

// UpdateStatus overwrites an order's fulfillment status.
func UpdateStatus(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return forShop(svc, logg, func(r *http.Request, shopID uuid.UUID) (any, error) {
		id, err := orderID(r)
		if err != nil {
			return nil, err
		}
		var body statusRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		status, err := enums.ParseOrderStatus(strings.TrimSpace(body.Status))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
		}
		return svc.UpdateStatus(r.Context(), shopID, id, internalorders.StatusInput{
			Status: status,
			Notes:  validators.SanitizeString(body.Notes, 500),
		})
	})
}

// AssignDelivery attaches a delivery person to an order.
func AssignDelivery(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return forShop(svc, logg, func(r *http.Request, shopID uuid.UUID) (any, error) {
		id, err := orderID(r)
		if err != nil {
			return nil, err
		}
		var body assignRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		return svc.AssignDelivery(r.Context(), shopID, id, internalorders.AssignInput{
			Name:  strings.TrimSpace(body.Name),
			Phone: strings.TrimSpace(body.Phone),
		})
	})
}

// UpdateLocation stores the delivery person's latest coordinates.
func UpdateLocation(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return forShop(svc, logg, func(r *http.Request, shopID uuid.UUID) (any, error) {
		id, err := orderID(r)
		if err != nil {
			return nil, err
		}
		var body coordinatesPayload
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		return svc.UpdateLocation(r.Context(), shopID, id, types.Coordinates(body))
	})
}
