package payments

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
	"github.com/angelmondragon/aquaflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/aquaflow-backend/pkg/errors"
	"github.com/angelmondragon/aquaflow-backend/pkg/logger"
	"github.com/angelmondragon/aquaflow-backend/pkg/metrics"
	"github.com/angelmondragon/aquaflow-backend/pkg/pagination"
	"github.com/angelmondragon/aquaflow-backend/pkg/refs"
)

type repository interface {
	Create(ctx context.Context, payment *models.Payment) error
	Complete(ctx context.Context, id uuid.UUID, updates map[string]any) error
	CreateInvoice(ctx context.Context, invoice *models.Invoice) error
	FindByRef(ctx context.Context, ref string) (*models.Payment, error)
	FindInvoiceByPayment(ctx context.Context, paymentID uuid.UUID) (*models.Invoice, error)
	ListByUser(ctx context.Context, userID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Payment, *pagination.Cursor, error)
}

// Service charges customers through the gateway and keeps the payment ledger.
type Service interface {
	Charge(ctx context.Context, input ChargeInput) (*ChargeResult, error)
	Get(ctx context.Context, userID uuid.UUID, paymentRef string) (*PaymentDetail, error)
	History(ctx context.Context, userID uuid.UUID, params pagination.Params) (*HistoryPage, error)
}

type ServiceParams struct {
	Repository     repository
	Gateway        Gateway
	Refs           *refs.Generator
	Metrics        *metrics.AccrualMetrics
	Logger         *logger.Logger
	InvoiceBaseURL string
	Clock          func() time.Time
}

// ChargeInput targets exactly one of OrderID or SubscriptionID.
type ChargeInput struct {
	UserID         uuid.UUID
	ShopID         uuid.UUID
	OrderID        *uuid.UUID
	SubscriptionID *uuid.UUID
	Amount         decimal.Decimal
	Method         enums.PaymentMethod
	Purpose        enums.PaymentPurpose
	Period         *InvoicePeriod
}

// InvoicePeriod is printed on monthly subscription invoices.
type InvoicePeriod struct {
	From          time.Time
	To            time.Time
	JarsDelivered int
}

type ChargeResult struct {
	Payment *models.Payment
	Invoice *models.Invoice
}

// Succeeded reports whether the gateway approved the charge.
func (r *ChargeResult) Succeeded() bool {
	return r != nil && r.Payment != nil && r.Payment.Status == enums.PaymentStatusSuccess
}

type service struct {
	repo           repository
	gateway        Gateway
	refs           *refs.Generator
	metrics        *metrics.AccrualMetrics
	logg           *logger.Logger
	invoiceBaseURL string
	now            func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	generator := params.Refs
	if generator == nil {
		generator = refs.New()
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &service{
		repo:           params.Repository,
		gateway:        params.Gateway,
		refs:           generator,
		metrics:        params.Metrics,
		logg:           params.Logger,
		invoiceBaseURL: strings.TrimRight(params.InvoiceBaseURL, "/"),
		now:            clock,
	}, nil
}

// Charge records a pending payment, calls the gateway and settles the record.
// A declined charge is returned as a result with status failed; only ledger
// persistence problems surface as errors.
func (s *service) Charge(ctx context.Context, input ChargeInput) (*ChargeResult, error) {
	if err := validateChargeInput(input); err != nil {
		return nil, err
	}

	payment := &models.Payment{
		PaymentRef:     s.refs.PaymentRef(),
		OrderID:        input.OrderID,
		SubscriptionID: input.SubscriptionID,
		UserID:         input.UserID,
		ShopID:         input.ShopID,
		Amount:         input.Amount,
		PaymentMethod:  input.Method,
		Purpose:        input.Purpose,
		Status:         enums.PaymentStatusPending,
	}
	if err := s.repo.Create(ctx, payment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment record")
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"payment_ref": payment.PaymentRef,
		"purpose":     input.Purpose.String(),
	})

	resp, gatewayErr := s.gateway.Initiate(ctx, GatewayRequest{
		PaymentRef: payment.PaymentRef,
		Amount:     input.Amount,
		Method:     input.Method,
		Purpose:    input.Purpose,
	})
	if gatewayErr != nil {
		s.logg.Warn(ctx, "payment gateway unavailable")
		resp = &GatewayResponse{Success: false, FailureReason: "payment gateway unavailable"}
	}

	now := s.now()
	result := &ChargeResult{Payment: payment}
	if !resp.Success {
		reason := resp.FailureReason
		updates := map[string]any{
			"status":           enums.PaymentStatusFailed,
			"failure_reason":   reason,
			"gateway_order_id": nullable(resp.GatewayOrderID),
			"completed_at":     now,
		}
		if err := s.repo.Complete(ctx, payment.ID, updates); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark payment failed")
		}
		payment.Status = enums.PaymentStatusFailed
		payment.FailureReason = &reason
		payment.GatewayOrderID = nullable(resp.GatewayOrderID)
		payment.CompletedAt = &now
		s.metrics.IncPayment(input.Purpose.String(), enums.PaymentStatusFailed.String())
		s.logg.Info(ctx, "payment declined")
		return result, nil
	}

	invoice := s.buildInvoice(payment, input)
	if err := s.repo.CreateInvoice(ctx, invoice); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create invoice")
	}

	updates := map[string]any{
		"status":           enums.PaymentStatusSuccess,
		"transaction_id":   resp.TransactionID,
		"gateway_order_id": resp.GatewayOrderID,
		"invoice_number":   invoice.InvoiceNumber,
		"invoice_url":      invoice.InvoiceURL,
		"completed_at":     now,
	}
	if err := s.repo.Complete(ctx, payment.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark payment succeeded")
	}
	payment.Status = enums.PaymentStatusSuccess
	payment.TransactionID = &resp.TransactionID
	payment.GatewayOrderID = &resp.GatewayOrderID
	payment.InvoiceNumber = &invoice.InvoiceNumber
	payment.InvoiceURL = &invoice.InvoiceURL
	payment.CompletedAt = &now
	result.Invoice = invoice

	s.metrics.IncPayment(input.Purpose.String(), enums.PaymentStatusSuccess.String())
	s.logg.Info(ctx, "payment captured")
	return result, nil
}

func (s *service) buildInvoice(payment *models.Payment, input ChargeInput) *models.Invoice {
	number := s.refs.InvoiceNumber()
	if input.Purpose == enums.PaymentPurposeSubscriptionMonthly {
		number = s.refs.MonthlyInvoiceNumber()
	}
	invoice := &models.Invoice{
		InvoiceNumber:  number,
		PaymentID:      payment.ID,
		UserID:         input.UserID,
		ShopID:         input.ShopID,
		OrderID:        input.OrderID,
		SubscriptionID: input.SubscriptionID,
		Amount:         input.Amount,
		InvoiceURL:     fmt.Sprintf("%s/invoices/%s.pdf", s.invoiceBaseURL, number),
	}
	if input.Period != nil {
		from, to, jars := input.Period.From, input.Period.To, input.Period.JarsDelivered
		invoice.PeriodFrom = &from
		invoice.PeriodTo = &to
		invoice.JarsDelivered = &jars
	}
	return invoice
}

func validateChargeInput(input ChargeInput) error {
	if input.UserID == uuid.Nil || input.ShopID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user and shop are required")
	}
	if (input.OrderID == nil) == (input.SubscriptionID == nil) {
		return pkgerrors.New(pkgerrors.CodeValidation, "exactly one of order or subscription is required")
	}
	if !input.Amount.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if !input.Method.RequiresGateway() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("payment method %q cannot be charged online", input.Method))
	}
	if !input.Purpose.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid payment purpose")
	}
	return nil
}

// PaymentDetail is a payment with its invoice, if one was issued.
type PaymentDetail struct {
	Payment models.Payment
	Invoice *models.Invoice
}

func (s *service) Get(ctx context.Context, userID uuid.UUID, paymentRef string) (*PaymentDetail, error) {
	payment, err := s.repo.FindByRef(ctx, strings.TrimSpace(paymentRef))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	if payment.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
	}

	detail := &PaymentDetail{Payment: *payment}
	if payment.Status == enums.PaymentStatusSuccess {
		invoice, err := s.repo.FindInvoiceByPayment(ctx, payment.ID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load invoice")
		}
		detail.Invoice = invoice
	}
	return detail, nil
}

type HistoryPage struct {
	Payments   []models.Payment
	NextCursor string
}

func (s *service) History(ctx context.Context, userID uuid.UUID, params pagination.Params) (*HistoryPage, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, next, err := s.repo.ListByUser(ctx, userID, cursor, params.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payments")
	}
	return &HistoryPage{Payments: rows, NextCursor: pagination.EncodeNext(next)}, nil
}

func nullable(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
