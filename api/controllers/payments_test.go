package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/aquaflow-backend/internal/orders"
	"github.com/angelmondragon/aquaflow-backend/internal/payments"
	"github.com/angelmondragon/aquaflow-backend/internal/subscriptions"
	"github.com/angelmondragon/aquaflow-backend/pkg/db/models"
	"github.com/angelmondragon/aquaflow-backend/pkg/enums"
	"github.com/angelmondragon/aquaflow-backend/pkg/pagination"
)

type stubOrdersService struct {
	orders.Service
	retry func(ctx context.Context, userID, orderID uuid.UUID, method *enums.PaymentMethod) (*orders.PlaceResult, error)
}

func (s *stubOrdersService) RetryPayment(ctx context.Context, userID, orderID uuid.UUID, method *enums.PaymentMethod) (*orders.PlaceResult, error) {
	return s.retry(ctx, userID, orderID, method)
}

type stubSubscriptionsService struct {
	subscriptions.Service
	payMonthly func(ctx context.Context, userID, subscriptionID uuid.UUID) (*subscriptions.MonthlyPaymentResult, error)
	retry      func(ctx context.Context, userID, subscriptionID uuid.UUID) (*subscriptions.PaymentSummary, error)
}

func (s *stubSubscriptionsService) PayMonthly(ctx context.Context, userID, subscriptionID uuid.UUID) (*subscriptions.MonthlyPaymentResult, error) {
	return s.payMonthly(ctx, userID, subscriptionID)
}

func (s *stubSubscriptionsService) RetryInitialPayment(ctx context.Context, userID, subscriptionID uuid.UUID) (*subscriptions.PaymentSummary, error) {
	return s.retry(ctx, userID, subscriptionID)
}

type stubPaymentsService struct {
	payments.Service
	get     func(ctx context.Context, userID uuid.UUID, ref string) (*payments.PaymentDetail, error)
	history func(ctx context.Context, userID uuid.UUID, params pagination.Params) (*payments.HistoryPage, error)
}

func (s *stubPaymentsService) Get(ctx context.Context, userID uuid.UUID, ref string) (*payments.PaymentDetail, error) {
	return s.get(ctx, userID, ref)
}

func (s *stubPaymentsService) History(ctx context.Context, userID uuid.UUID, params pagination.Params) (*payments.HistoryPage, error) {
	return s.history(ctx, userID, params)
}

func TestPaymentInitiateRequiresExactlyOneTarget(t *testing.T) {
	cases := map[string]map[string]string{
		"neither": {},
		"both":    {"order_id": uuid.NewString(), "subscription_id": uuid.NewString()},
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			req := asUser(postJSON(t, "/api/v1/payment/initiate", body), uuid.New())
			resp := httptest.NewRecorder()
			PaymentInitiate(&stubOrdersService{}, &stubSubscriptionsService{}, quietLogger())(resp, req)

			if resp.Code != http.StatusBadRequest {
				t.Fatalf("expected 400 got %d", resp.Code)
			}
			if code := errorCode(t, resp); code != "VALIDATION_ERROR" {
				t.Fatalf("unexpected code %s", code)
			}
		})
	}
}

func TestPaymentInitiateRetriesOrderWithWarnings(t *testing.T) {
	userID, orderID := uuid.New(), uuid.New()
	svc := &stubOrdersService{
		retry: func(_ context.Context, uid, oid uuid.UUID, method *enums.PaymentMethod) (*orders.PlaceResult, error) {
			if uid != userID || oid != orderID {
				t.Fatalf("unexpected ids %s %s", uid, oid)
			}
			if method == nil || *method != enums.PaymentMethodCard {
				t.Fatalf("expected card method, got %v", method)
			}
			return &orders.PlaceResult{
				Order:    orders.OrderView{ID: orderID, OrderNumber: "AQ-1"},
				Payment:  &orders.PaymentSummary{PaymentRef: "PAY-1", Status: enums.PaymentStatusFailed},
				Warnings: []string{"payment failed; order kept unpaid"},
			}, nil
		},
	}

	req := asUser(postJSON(t, "/api/v1/payment/initiate", map[string]string{
		"order_id":       orderID.String(),
		"payment_method": "card",
	}), userID)
	resp := httptest.NewRecorder()
	PaymentInitiate(svc, nil, quietLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	var envelope struct {
		Data struct {
			Payment struct {
				PaymentRef string `json:"payment_ref"`
			} `json:"payment"`
		} `json:"data"`
		Warnings []string `json:"warnings"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data.Payment.PaymentRef != "PAY-1" {
		t.Fatalf("unexpected payment ref %q", envelope.Data.Payment.PaymentRef)
	}
	if len(envelope.Warnings) != 1 {
		t.Fatalf("expected one warning, got %v", envelope.Warnings)
	}
}

func TestPaymentInitiateRetriesSubscription(t *testing.T) {
	subscriptionID := uuid.New()
	svc := &stubSubscriptionsService{
		retry: func(_ context.Context, _ uuid.UUID, sid uuid.UUID) (*subscriptions.PaymentSummary, error) {
			if sid != subscriptionID {
				t.Fatalf("unexpected subscription %s", sid)
			}
			return &subscriptions.PaymentSummary{PaymentRef: "PAY-2", Status: enums.PaymentStatusSuccess}, nil
		},
	}

	req := asUser(postJSON(t, "/api/v1/payment/initiate", map[string]string{"subscription_id": subscriptionID.String()}), uuid.New())
	resp := httptest.NewRecorder()
	PaymentInitiate(nil, svc, quietLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestPaymentMonthlyRejectsMalformedSubscription(t *testing.T) {
	svc := &stubSubscriptionsService{}
	req := asUser(postJSON(t, "/api/v1/payment/monthly", map[string]string{"subscription_id": "nope"}), uuid.New())
	resp := httptest.NewRecorder()
	PaymentMonthly(svc, quietLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestPaymentMonthlyRequiresUser(t *testing.T) {
	req := asShop(postJSON(t, "/api/v1/payment/monthly", map[string]string{"subscription_id": uuid.NewString()}), uuid.New())
	resp := httptest.NewRecorder()
	PaymentMonthly(&stubSubscriptionsService{}, quietLogger())(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestPaymentDetailIncludesInvoice(t *testing.T) {
	userID := uuid.New()
	number := "INV-2026-0001"
	svc := &stubPaymentsService{
		get: func(_ context.Context, uid uuid.UUID, ref string) (*payments.PaymentDetail, error) {
			if uid != userID || ref != "PAY-9" {
				t.Fatalf("unexpected lookup %s %s", uid, ref)
			}
			return &payments.PaymentDetail{
				Payment: models.Payment{
					PaymentRef:    "PAY-9",
					Amount:        decimal.NewFromInt(400),
					Status:        enums.PaymentStatusSuccess,
					InvoiceNumber: &number,
				},
				Invoice: &models.Invoice{InvoiceNumber: number, Amount: decimal.NewFromInt(400), InvoiceURL: "https://invoices.test/INV-2026-0001"},
			}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/payment/PAY-9", nil)
	req = addRouteParam(asUser(req, userID), "paymentRef", "PAY-9")
	resp := httptest.NewRecorder()
	PaymentDetail(svc, quietLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data struct {
			Payment struct {
				Amount string `json:"amount"`
			} `json:"payment"`
			Invoice *struct {
				InvoiceNumber string `json:"invoice_number"`
			} `json:"invoice"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data.Payment.Amount != "400" {
		t.Fatalf("unexpected amount %q", envelope.Data.Payment.Amount)
	}
	if envelope.Data.Invoice == nil || envelope.Data.Invoice.InvoiceNumber != number {
		t.Fatalf("unexpected invoice %+v", envelope.Data.Invoice)
	}
}

func TestPaymentHistoryPassesPaging(t *testing.T) {
	svc := &stubPaymentsService{
		history: func(_ context.Context, _ uuid.UUID, params pagination.Params) (*payments.HistoryPage, error) {
			if params.Limit != 5 || params.Cursor != "abc" {
				t.Fatalf("unexpected params %+v", params)
			}
			return &payments.HistoryPage{
				Payments:   []models.Payment{{PaymentRef: "PAY-1"}, {PaymentRef: "PAY-2"}},
				NextCursor: "next",
			}, nil
		},
	}

	req := asUser(httptest.NewRequest(http.MethodGet, "/api/v1/payment/history?limit=5&cursor=abc", nil), uuid.New())
	resp := httptest.NewRecorder()
	PaymentHistory(svc, quietLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data paymentHistoryResponse `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(envelope.Data.Payments) != 2 || envelope.Data.NextCursor != "next" {
		t.Fatalf("unexpected page %+v", envelope.Data)
	}
}
