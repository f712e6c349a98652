package subscriptions

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/aquaflow-backend/api/middleware"
	"github.com/angelmondragon/aquaflow-backend/api/responses"
	"github.com/angelmondragon/aquaflow-backend/api/validators"
	subsvc "github.com/angelmondragon/aquaflow-backend/internal/subscriptions"
	"github.com/angelmondragon/aquaflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/aquaflow-backend/pkg/errors"
	"github.com/angelmondragon/aquaflow-backend/pkg/logger"
	"github.com/angelmondragon/aquaflow-backend/pkg/types"
)

type addressPayload struct {
	Address     string `json:"address" validate:"required,max=500"`
	Landmark    string `json:"landmark" validate:"omitempty,max=200"`
	Coordinates *struct {
		Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
		Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
	} `json:"coordinates"`
}

func (p addressPayload) toDomain() types.DeliveryAddress {
	address := types.DeliveryAddress{Address: strings.TrimSpace(p.Address)}
	if landmark := strings.TrimSpace(p.Landmark); landmark != "" {
		address.Landmark = &landmark
	}
	if p.Coordinates != nil {
		address.Coordinates = &types.Coordinates{Latitude: p.Coordinates.Latitude, Longitude: p.Coordinates.Longitude}
	}
	return address
}

type createRequest struct {
	ShopID            string         `json:"shop_id" validate:"required,uuid"`
	Plan              string         `json:"plan" validate:"required"`
	DeliveryAddress   addressPayload `json:"delivery_address"`
	DeliveryFrequency string         `json:"delivery_frequency"`
	PaymentMethod     string         `json:"payment_method" validate:"required"`
}

type orderJarsRequest struct {
	SubscriptionID string `json:"subscription_id" validate:"required,uuid"`
	Quantity       int    `json:"quantity"`
}

type deliverRequest struct {
	Quantity int    `json:"quantity"`
	Notes    string `json:"notes" validate:"omitempty,max=500"`
}

// handle runs the shared preamble: service present, caller resolved by
// principal. fn's result is written with status.
func handle(
	svc subsvc.Service,
	logg *logger.Logger,
	status int,
	principal func(context.Context) (uuid.UUID, error),
	fn func(r *http.Request, callerID uuid.UUID) (any, error),
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscription service unavailable"))
			return
		}
		callerID, err := principal(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		data, err := fn(r, callerID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if withWarnings, ok := data.(*subsvc.CreateResult); ok {
			responses.WriteSuccessWithWarnings(w, status, withWarnings, withWarnings.Warnings)
			return
		}
		responses.WriteSuccessStatus(w, status, data)
	}
}

func subscriptionParam(r *http.Request) (uuid.UUID, error) {
	return validators.ParseUUIDParam(r, "subscriptionId")
}

// Create starts a monthly plan with a shop and takes the first payment.
// A declined first charge still creates the plan and is reported as a warning.
func Create(svc subsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return handle(svc, logg, http.StatusCreated, middleware.CurrentUserID, func(r *http.Request, userID uuid.UUID) (any, error) {
		var payload createRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return nil, err
		}
		input, err := payload.toInput()
		if err != nil {
			return nil, err
		}
		return svc.Create(r.Context(), userID, input)
	})
}

func (p createRequest) toInput() (subsvc.CreateInput, error) {
	shopID, err := uuid.Parse(p.ShopID)
	if err != nil {
		return subsvc.CreateInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid shop_id")
	}
	plan, err := enums.ParseSubscriptionPlan(strings.TrimSpace(p.Plan))
	if err != nil {
		return subsvc.CreateInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid plan")
	}
	frequency, err := enums.ParseDeliveryFrequency(strings.TrimSpace(p.DeliveryFrequency))
	if err != nil {
		return subsvc.CreateInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid delivery_frequency")
	}
	method, err := enums.ParsePaymentMethod(strings.TrimSpace(p.PaymentMethod))
	if err != nil || !method.AllowedForSubscription() {
		return subsvc.CreateInput{}, pkgerrors.New(pkgerrors.CodeValidation, "payment_method must be upi, card or wallet")
	}
	return subsvc.CreateInput{
		ShopID:            shopID,
		Plan:              plan,
		DeliveryAddress:   p.DeliveryAddress.toDomain(),
		DeliveryFrequency: frequency,
		PaymentMethod:     method,
	}, nil
}

// OrderJars draws jars from an active subscription.
func OrderJars(svc subsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return handle(svc, logg, http.StatusCreated, middleware.CurrentUserID, func(r *http.Request, userID uuid.UUID) (any, error) {
		var payload orderJarsRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return nil, err
		}
		subscriptionID, err := uuid.Parse(payload.SubscriptionID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid subscription_id")
		}
		return svc.OrderJars(r.Context(), userID, subsvc.OrderJarsInput{
			SubscriptionID: subscriptionID,
			Quantity:       payload.Quantity,
		})
	})
}

func List(svc subsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return handle(svc, logg, http.StatusOK, middleware.CurrentUserID, func(r *http.Request, userID uuid.UUID) (any, error) {
		params, err := parseListParams(r)
		if err != nil {
			return nil, err
		}
		return svc.List(r.Context(), userID, params)
	})
}

// Detail returns one subscription with its recent deliveries.
func Detail(svc subsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return lifecycle(svc, logg, func(ctx context.Context, userID, subscriptionID uuid.UUID) (any, error) {
		return svc.Get(ctx, userID, subscriptionID)
	})
}

func Pause(svc subsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return lifecycle(svc, logg, func(ctx context.Context, userID, subscriptionID uuid.UUID) (any, error) {
		return svc.Pause(ctx, userID, subscriptionID)
	})
}

func Resume(svc subsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return lifecycle(svc, logg, func(ctx context.Context, userID, subscriptionID uuid.UUID) (any, error) {
		return svc.Resume(ctx, userID, subscriptionID)
	})
}

func Cancel(svc subsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return lifecycle(svc, logg, func(ctx context.Context, userID, subscriptionID uuid.UUID) (any, error) {
		return svc.Cancel(ctx, userID, subscriptionID)
	})
}

// lifecycle serves consumer routes addressed by {subscriptionId}.
func lifecycle(svc subsvc.Service, logg *logger.Logger, apply func(ctx context.Context, userID, subscriptionID uuid.UUID) (any, error)) http.HandlerFunc {
	return handle(svc, logg, http.StatusOK, middleware.CurrentUserID, func(r *http.Request, userID uuid.UUID) (any, error) {
		subscriptionID, err := subscriptionParam(r)
		if err != nil {
			return nil, err
		}
		return apply(r.Context(), userID, subscriptionID)
	})
}

// ShopList pages the subscriptions held with the shopkeeper's shop.
func ShopList(svc subsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return handle(svc, logg, http.StatusOK, middleware.CurrentShopID, func(r *http.Request, shopID uuid.UUID) (any, error) {
		params, err := parseListParams(r)
		if err != nil {
			return nil, err
		}
		return svc.ListForShop(r.Context(), shopID, params)
	})
}

// RecordDelivery books jars physically handed over against the subscription.
func RecordDelivery(svc subsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return handle(svc, logg, http.StatusOK, middleware.CurrentShopID, func(r *http.Request, shopID uuid.UUID) (any, error) {
		subscriptionID, err := subscriptionParam(r)
		if err != nil {
			return nil, err
		}
		var payload deliverRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return nil, err
		}
		return svc.RecordDelivery(r.Context(), shopID, subscriptionID, subsvc.DeliveryInput{
			Quantity: payload.Quantity,
			Notes:    validators.SanitizeString(payload.Notes, 500),
		})
	})
}

func parseListParams(r *http.Request) (subsvc.ListParams, error) {
	page, err := validators.ParsePageParams(r)
	if err != nil {
		return subsvc.ListParams{}, err
	}
	params := subsvc.ListParams{Limit: page.Limit, Cursor: page.Cursor}
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status, err := enums.ParseSubscriptionStatus(raw)
		if err != nil {
			return subsvc.ListParams{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
		}
		params.Status = &status
	}
	return params, nil
}
