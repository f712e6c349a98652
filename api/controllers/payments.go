package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/aquaflow-backend/api/middleware"
	"github.com/angelmondragon/aquaflow-backend/api/responses"
	"github.com/angelmondragon/aquaflow-backend/api/validators"
	"github.com/angelmondragon/aquaflow-backend/internal/orders"
	"github.com/angelmondragon/aquaflow-backend/internal/payments"
	"github.com/angelmondragon/aquaflow-backend/internal/subscriptions"
	"github.com/angelmondragon/aquaflow-backend/pkg/db/models"
	"github.com/angelmondragon/aquaflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/aquaflow-backend/pkg/errors"
	"github.com/angelmondragon/aquaflow-backend/pkg/logger"
)

type monthlyPaymentRequest struct {
	SubscriptionID string `json:"subscription_id" validate:"required,uuid"`
}

type initiatePaymentRequest struct {
	OrderID        string `json:"order_id" validate:"omitempty,uuid"`
	SubscriptionID string `json:"subscription_id" validate:"omitempty,uuid"`
	PaymentMethod  string `json:"payment_method" validate:"omitempty,oneof=upi card wallet cash"`
}

type paymentView struct {
	PaymentRef     string               `json:"payment_ref"`
	OrderID        *uuid.UUID           `json:"order_id,omitempty"`
	SubscriptionID *uuid.UUID           `json:"subscription_id,omitempty"`
	ShopID         uuid.UUID            `json:"shop_id"`
	Amount         decimal.Decimal      `json:"amount"`
	PaymentMethod  enums.PaymentMethod  `json:"payment_method"`
	Purpose        enums.PaymentPurpose `json:"purpose"`
	Status         enums.PaymentStatus  `json:"status"`
	TransactionID  *string              `json:"transaction_id,omitempty"`
	InvoiceNumber  *string              `json:"invoice_number,omitempty"`
	InvoiceURL     *string              `json:"invoice_url,omitempty"`
	FailureReason  *string              `json:"failure_reason,omitempty"`
	CompletedAt    *time.Time           `json:"completed_at,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
}

type invoiceView struct {
	InvoiceNumber string          `json:"invoice_number"`
	Amount        decimal.Decimal `json:"amount"`
	PeriodFrom    *time.Time      `json:"period_from,omitempty"`
	PeriodTo      *time.Time      `json:"period_to,omitempty"`
	JarsDelivered *int            `json:"jars_delivered,omitempty"`
	InvoiceURL    string          `json:"invoice_url"`
	CreatedAt     time.Time       `json:"created_at"`
}

type paymentDetailResponse struct {
	Payment paymentView  `json:"payment"`
	Invoice *invoiceView `json:"invoice,omitempty"`
}

type paymentHistoryResponse struct {
	Payments   []paymentView `json:"payments"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

func newPaymentView(p models.Payment) paymentView {
	return paymentView{
		PaymentRef:     p.PaymentRef,
		OrderID:        p.OrderID,
		SubscriptionID: p.SubscriptionID,
		ShopID:         p.ShopID,
		Amount:         p.Amount,
		PaymentMethod:  p.PaymentMethod,
		Purpose:        p.Purpose,
		Status:         p.Status,
		TransactionID:  p.TransactionID,
		InvoiceNumber:  p.InvoiceNumber,
		InvoiceURL:     p.InvoiceURL,
		FailureReason:  p.FailureReason,
		CompletedAt:    p.CompletedAt,
		CreatedAt:      p.CreatedAt,
	}
}

func newInvoiceView(inv *models.Invoice) *invoiceView {
	if inv == nil {
		return nil
	}
	return &invoiceView{
		InvoiceNumber: inv.InvoiceNumber,
		Amount:        inv.Amount,
		PeriodFrom:    inv.PeriodFrom,
		PeriodTo:      inv.PeriodTo,
		JarsDelivered: inv.JarsDelivered,
		InvoiceURL:    inv.InvoiceURL,
		CreatedAt:     inv.CreatedAt,
	}
}

// PaymentMonthly settles the current billing cycle of a subscription.
func PaymentMonthly(subs subscriptions.Service, logg *logger.Logger) http.HandlerFunc {
	if subs == nil {
		return unavailable(logg, "subscriptions")
	}
	return serveUser(logg, http.StatusOK, func(r *http.Request, userID uuid.UUID) (any, error) {
		var body monthlyPaymentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		subscriptionID, err := uuid.Parse(body.SubscriptionID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid subscription_id")
		}
		return subs.PayMonthly(r.Context(), userID, subscriptionID)
	})
}

// PaymentInitiate retries the charge for an unpaid order or for the first
// payment of a subscription. Exactly one target must be named.
func PaymentInitiate(ordersSvc orders.Service, subs subscriptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := middleware.CurrentUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body initiatePaymentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseOptionalUUID(body.OrderID, "order_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		subscriptionID, err := validators.ParseOptionalUUID(body.SubscriptionID, "subscription_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if (orderID == nil) == (subscriptionID == nil) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "exactly one of order_id or subscription_id is required"))
			return
		}

		if orderID != nil {
			if ordersSvc == nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
				return
			}
			var method *enums.PaymentMethod
			if body.PaymentMethod != "" {
				parsed, err := enums.ParsePaymentMethod(body.PaymentMethod)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment_method"))
					return
				}
				method = &parsed
			}
			result, err := ordersSvc.RetryPayment(r.Context(), userID, *orderID, method)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccessWithWarnings(w, http.StatusOK, result, result.Warnings)
			return
		}

		if subs == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscriptions service unavailable"))
			return
		}
		summary, err := subs.RetryInitialPayment(r.Context(), userID, *subscriptionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"payment": summary})
	}
}

func PaymentHistory(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg, "payments")
	}
	return serveUser(logg, http.StatusOK, func(r *http.Request, userID uuid.UUID) (any, error) {
		page, err := validators.ParsePageParams(r)
		if err != nil {
			return nil, err
		}
		history, err := svc.History(r.Context(), userID, page)
		if err != nil {
			return nil, err
		}
		out := paymentHistoryResponse{
			Payments:   make([]paymentView, 0, len(history.Payments)),
			NextCursor: history.NextCursor,
		}
		for _, p := range history.Payments {
			out.Payments = append(out.Payments, newPaymentView(p))
		}
		return out, nil
	})
}

// PaymentDetail returns one of the caller's payments with its invoice.
func PaymentDetail(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg, "payments")
	}
	return serveUser(logg, http.StatusOK, func(r *http.Request, userID uuid.UUID) (any, error) {
		ref := strings.TrimSpace(chi.URLParam(r, "paymentRef"))
		if ref == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment reference is required")
		}
		detail, err := svc.Get(r.Context(), userID, ref)
		if err != nil {
			return nil, err
		}
		return paymentDetailResponse{
			Payment: newPaymentView(detail.Payment),
			Invoice: newInvoiceView(detail.Invoice),
		}, nil
	})
}
