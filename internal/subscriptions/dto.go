package subscriptions

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/aquaflow-backend/pkg/db/models"
	"github.com/angelmondragon/aquaflow-backend/pkg/enums"
	"github.com/angelmondragon/aquaflow-backend/pkg/types"
)

// CreateInput captures a new subscription request.
type CreateInput struct {
	ShopID            uuid.UUID
	Plan              enums.SubscriptionPlan
	DeliveryAddress   types.DeliveryAddress
	DeliveryFrequency enums.DeliveryFrequency
	PaymentMethod     enums.PaymentMethod
}

// OrderJarsInput draws jars from an active subscription.
type OrderJarsInput struct {
	SubscriptionID uuid.UUID
	Quantity       int
}

// DeliveryInput records jars handed over by the shop.
type DeliveryInput struct {
	Quantity int
	Notes    string
}

// ListParams filters and pages subscription lists.
type ListParams struct {
	Status *enums.SubscriptionStatus
	Limit  int
	Cursor string
}

// SubscriptionView is the client representation of a subscription.
type SubscriptionView struct {
	ID                     uuid.UUID                `json:"id"`
	UserID                 uuid.UUID                `json:"user_id"`
	ShopID                 uuid.UUID                `json:"shop_id"`
	Plan                   enums.SubscriptionPlan   `json:"plan"`
	JarsPerMonth           int                      `json:"jars_per_month"`
	PricePerJar            decimal.Decimal          `json:"price_per_jar"`
	MonthlyAmount          decimal.Decimal          `json:"monthly_amount"`
	JarsOrderedThisMonth   int                      `json:"jars_ordered_this_month"`
	JarsDeliveredThisMonth int                      `json:"jars_delivered_this_month"`
	RemainingToOrder       int                      `json:"remaining_to_order"`
	RemainingToDeliver     int                      `json:"remaining_to_deliver"`
	CurrentMonthBill       decimal.Decimal          `json:"current_month_bill"`
	StartDate              time.Time                `json:"start_date"`
	NextDeliveryDate       time.Time                `json:"next_delivery_date"`
	LastPaymentDate        *time.Time               `json:"last_payment_date,omitempty"`
	NextPaymentDate        time.Time                `json:"next_payment_date"`
	DeliveryAddress        types.DeliveryAddress    `json:"delivery_address"`
	DeliveryFrequency      enums.DeliveryFrequency  `json:"delivery_frequency"`
	PaymentMethod          enums.PaymentMethod      `json:"payment_method"`
	AutoRenewal            bool                     `json:"auto_renewal"`
	Status                 enums.SubscriptionStatus `json:"status"`
	CreatedAt              time.Time                `json:"created_at"`
}

func NewSubscriptionView(sub models.Subscription) SubscriptionView {
	return SubscriptionView{
		ID:                     sub.ID,
		UserID:                 sub.UserID,
		ShopID:                 sub.ShopID,
		Plan:                   sub.Plan,
		JarsPerMonth:           sub.JarsPerMonth,
		PricePerJar:            sub.PricePerJar,
		MonthlyAmount:          sub.MonthlyAmount,
		JarsOrderedThisMonth:   sub.JarsOrderedThisMonth,
		JarsDeliveredThisMonth: sub.JarsDeliveredThisMonth,
		RemainingToOrder:       sub.RemainingToOrder(),
		RemainingToDeliver:     sub.RemainingToDeliver(),
		CurrentMonthBill:       sub.CurrentMonthBill,
		StartDate:              sub.StartDate,
		NextDeliveryDate:       sub.NextDeliveryDate,
		LastPaymentDate:        sub.LastPaymentDate,
		NextPaymentDate:        sub.NextPaymentDate,
		DeliveryAddress:        sub.DeliveryAddress,
		DeliveryFrequency:      sub.DeliveryFrequency,
		PaymentMethod:          sub.PaymentMethod,
		AutoRenewal:            sub.AutoRenewal,
		Status:                 sub.Status,
		CreatedAt:              sub.CreatedAt,
	}
}

// DeliveryView is one delivery history entry.
type DeliveryView struct {
	ID          uuid.UUID       `json:"id"`
	DeliveredAt time.Time       `json:"date"`
	Quantity    int             `json:"quantity"`
	Amount      decimal.Decimal `json:"amount"`
	Notes       *string         `json:"notes,omitempty"`
}

func NewDeliveryView(d models.SubscriptionDelivery) DeliveryView {
	return DeliveryView{
		ID:          d.ID,
		DeliveredAt: d.DeliveredAt,
		Quantity:    d.Quantity,
		Amount:      d.Amount,
		Notes:       d.Notes,
	}
}

// PaymentSummary reports the outcome of a charge attempt.
type PaymentSummary struct {
	PaymentRef    string              `json:"payment_ref"`
	Status        enums.PaymentStatus `json:"status"`
	Amount        decimal.Decimal     `json:"amount"`
	InvoiceNumber *string             `json:"invoice_number,omitempty"`
	InvoiceURL    *string             `json:"invoice_url,omitempty"`
	FailureReason *string             `json:"failure_reason,omitempty"`
}

func newPaymentSummary(payment *models.Payment) *PaymentSummary {
	if payment == nil {
		return nil
	}
	return &PaymentSummary{
		PaymentRef:    payment.PaymentRef,
		Status:        payment.Status,
		Amount:        payment.Amount,
		InvoiceNumber: payment.InvoiceNumber,
		InvoiceURL:    payment.InvoiceURL,
		FailureReason: payment.FailureReason,
	}
}

// CreateResult is a persisted subscription plus its first charge. Warnings
// are set when the subscription was kept despite a failed payment.
type CreateResult struct {
	Subscription SubscriptionView `json:"subscription"`
	Payment      *PaymentSummary  `json:"payment,omitempty"`
	Warnings     []string         `json:"-"`
}

// OrderSummary is the order created when jars are drawn from a subscription.
type OrderSummary struct {
	ID                    uuid.UUID       `json:"id"`
	OrderNumber           string          `json:"order_number"`
	Quantity              int             `json:"quantity"`
	TotalAmount           decimal.Decimal `json:"total_amount"`
	EstimatedDeliveryTime *time.Time      `json:"estimated_delivery_time,omitempty"`
}

// CounterSummary is the accrual state after an order or delivery.
type CounterSummary struct {
	ID                     uuid.UUID              `json:"id"`
	Plan                   enums.SubscriptionPlan `json:"plan"`
	JarsPerMonth           int                    `json:"jars_per_month"`
	JarsOrderedThisMonth   int                    `json:"jars_ordered_this_month"`
	JarsDeliveredThisMonth int                    `json:"jars_delivered_this_month"`
	CurrentMonthBill       decimal.Decimal        `json:"current_month_bill"`
	RemainingJars          int                    `json:"remaining_jars"`
	LastDelivery           *DeliveryView          `json:"last_delivery,omitempty"`
}

func counters(sub *models.Subscription, remaining int) CounterSummary {
	return CounterSummary{
		ID:                     sub.ID,
		Plan:                   sub.Plan,
		JarsPerMonth:           sub.JarsPerMonth,
		JarsOrderedThisMonth:   sub.JarsOrderedThisMonth,
		JarsDeliveredThisMonth: sub.JarsDeliveredThisMonth,
		CurrentMonthBill:       sub.CurrentMonthBill,
		RemainingJars:          remaining,
	}
}

type OrderJarsResult struct {
	Order        OrderSummary   `json:"order"`
	Subscription CounterSummary `json:"subscription"`
}

type DeliveryResult struct {
	Subscription CounterSummary `json:"subscription"`
}

// MonthlyPaymentResult is returned after a successful billing cycle.
type MonthlyPaymentResult struct {
	Payment         PaymentSummary   `json:"payment"`
	NextPaymentDate time.Time        `json:"next_payment_date"`
	Subscription    SubscriptionView `json:"subscription"`
}

// Detail is a subscription with its most recent deliveries.
type Detail struct {
	Subscription    SubscriptionView `json:"subscription"`
	DeliveryHistory []DeliveryView   `json:"delivery_history"`
}

type ListResult struct {
	Subscriptions []SubscriptionView `json:"subscriptions"`
	NextCursor    string             `json:"next_cursor,omitempty"`
}

// CustomerView is how a shop sees the customer behind a subscription or order.
type CustomerView struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email,omitempty"`
	ContactNumber string    `json:"contact_number"`
}

type ShopSubscriptionView struct {
	SubscriptionView
	Customer CustomerView `json:"customer"`
}

type ShopListResult struct {
	Subscriptions []ShopSubscriptionView `json:"subscriptions"`
	NextCursor    string                 `json:"next_cursor,omitempty"`
}

func newShopSubscriptionView(row ShopSubscriptionRow) ShopSubscriptionView {
	customer := CustomerView{ID: row.UserID, ContactNumber: row.CustomerPhone}
	if row.CustomerName != nil {
		customer.Name = *row.CustomerName
	}
	if row.CustomerEmail != nil {
		customer.Email = *row.CustomerEmail
	}
	return ShopSubscriptionView{
		SubscriptionView: NewSubscriptionView(row.Subscription),
		Customer:         customer,
	}
}
