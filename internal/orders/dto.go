package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/aquaflow-backend/pkg/db/models"
	"github.com/angelmondragon/aquaflow-backend/pkg/enums"
	"github.com/angelmondragon/aquaflow-backend/pkg/types"
)

// PlaceInput is a one-time jar order.
type PlaceInput struct {
	ShopID          uuid.UUID
	Quantity        int
	DeliveryAddress types.DeliveryAddress
	PaymentMethod   enums.PaymentMethod
	Notes           string
	CustomerName    string
}

type HistoryParams struct {
	Type   *enums.OrderType
	Limit  int
	Cursor string
}

type ShopListParams struct {
	Status *enums.OrderStatus
	Limit  int
	Cursor string
}

type StatusInput struct {
	Status enums.OrderStatus
	Notes  string
}

type AssignInput struct {
	Name  string
	Phone string
}

type RateInput struct {
	Rating int
	Review string
}

// OrderView is the client representation of an order.
type OrderView struct {
	ID                    uuid.UUID                `json:"id"`
	OrderNumber           string                   `json:"order_number"`
	ShopID                uuid.UUID                `json:"shop_id"`
	OrderType             enums.OrderType          `json:"order_type"`
	SubscriptionID        *uuid.UUID               `json:"subscription_id,omitempty"`
	SubscriptionPlan      *enums.SubscriptionPlan  `json:"subscription_plan,omitempty"`
	Quantity              int                      `json:"quantity"`
	PricePerJar           decimal.Decimal          `json:"price_per_jar"`
	TotalAmount           decimal.Decimal          `json:"total_amount"`
	DeliveryAddress       types.DeliveryAddress    `json:"delivery_address"`
	Status                enums.OrderStatus        `json:"status"`
	PaymentStatus         enums.OrderPaymentStatus `json:"payment_status"`
	PaymentMethod         enums.PaymentMethod      `json:"payment_method"`
	PaymentRef            *string                  `json:"payment_ref,omitempty"`
	DeliveryPerson        *types.DeliveryPerson    `json:"delivery_person,omitempty"`
	EstimatedDeliveryTime *time.Time               `json:"estimated_delivery_time,omitempty"`
	ActualDeliveryTime    *time.Time               `json:"actual_delivery_time,omitempty"`
	Notes                 *string                  `json:"notes,omitempty"`
	Rating                *int                     `json:"rating,omitempty"`
	Review                *string                  `json:"review,omitempty"`
	CreatedAt             time.Time                `json:"created_at"`
}

func NewOrderView(o models.Order) OrderView {
	return OrderView{
		ID:                    o.ID,
		OrderNumber:           o.OrderNumber,
		ShopID:                o.ShopID,
		OrderType:             o.OrderType,
		SubscriptionID:        o.SubscriptionID,
		SubscriptionPlan:      o.SubscriptionPlan,
		Quantity:              o.Quantity,
		PricePerJar:           o.PricePerJar,
		TotalAmount:           o.TotalAmount,
		DeliveryAddress:       o.DeliveryAddress,
		Status:                o.Status,
		PaymentStatus:         o.PaymentStatus,
		PaymentMethod:         o.PaymentMethod,
		PaymentRef:            o.PaymentRef,
		DeliveryPerson:        o.DeliveryPerson,
		EstimatedDeliveryTime: o.EstimatedDeliveryTime,
		ActualDeliveryTime:    o.ActualDeliveryTime,
		Notes:                 o.Notes,
		Rating:                o.Rating,
		Review:                o.Review,
		CreatedAt:             o.CreatedAt,
	}
}

// PaymentSummary reports the charge attempted for an order.
type PaymentSummary struct {
	PaymentRef    string              `json:"payment_ref"`
	Status        enums.PaymentStatus `json:"status"`
	Amount        decimal.Decimal     `json:"amount"`
	TransactionID *string             `json:"transaction_id,omitempty"`
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
		TransactionID: payment.TransactionID,
		InvoiceNumber: payment.InvoiceNumber,
		InvoiceURL:    payment.InvoiceURL,
		FailureReason: payment.FailureReason,
	}
}

// PlaceResult is the persisted order plus the charge taken for it. Warnings
// are set when the order was kept despite a failed payment.
type PlaceResult struct {
	Order    OrderView       `json:"order"`
	Payment  *PaymentSummary `json:"payment,omitempty"`
	Warnings []string        `json:"-"`
}

type HistoryResult struct {
	Orders     []OrderView `json:"orders"`
	NextCursor string      `json:"next_cursor,omitempty"`
}

// CustomerView is how a shop sees the customer behind an order.
type CustomerView struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	ContactNumber string    `json:"contact_number"`
	Address       string    `json:"address"`
}

type ShopOrderView struct {
	ID            uuid.UUID                `json:"id"`
	OrderNumber   string                   `json:"order_number"`
	Customer      CustomerView             `json:"customer"`
	OrderType     enums.OrderType          `json:"order_type"`
	Quantity      int                      `json:"quantity"`
	TotalAmount   decimal.Decimal          `json:"total_amount"`
	Status        enums.OrderStatus        `json:"status"`
	PaymentStatus enums.OrderPaymentStatus `json:"payment_status"`
	PaymentMethod enums.PaymentMethod      `json:"payment_method"`
	Notes         *string                  `json:"notes,omitempty"`
	CreatedAt     time.Time                `json:"created_at"`
}

func newShopOrderView(row ShopOrderRow) ShopOrderView {
	customer := CustomerView{
		ID:            row.UserID,
		ContactNumber: row.CustomerPhone,
		Address:       row.DeliveryAddress.Address,
	}
	if row.CustomerName != nil {
		customer.Name = *row.CustomerName
	}
	if row.CustomerEmail != nil {
		customer.Email = *row.CustomerEmail
	}
	if customer.Address == "" && row.DefaultAddress != nil {
		customer.Address = *row.DefaultAddress
	}
	return ShopOrderView{
		ID:            row.ID,
		OrderNumber:   row.OrderNumber,
		Customer:      customer,
		OrderType:     row.OrderType,
		Quantity:      row.Quantity,
		TotalAmount:   row.TotalAmount,
		Status:        row.Status,
		PaymentStatus: row.PaymentStatus,
		PaymentMethod: row.PaymentMethod,
		Notes:         row.Notes,
		CreatedAt:     row.CreatedAt,
	}
}

type ShopOrderList struct {
	Orders     []ShopOrderView `json:"orders"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

type Stats struct {
	TotalOrders     int64           `json:"total_orders"`
	PendingOrders   int64           `json:"pending_orders"`
	ConfirmedOrders int64           `json:"confirmed_orders"`
	DeliveredOrders int64           `json:"delivered_orders"`
	TodayOrders     int64           `json:"today_orders"`
	TotalRevenue    decimal.Decimal `json:"total_revenue"`
}

// ShopContact is the shop block on a tracking page.
type ShopContact struct {
	ShopName    string `json:"shop_name"`
	Address     string `json:"address"`
	PhoneNumber string `json:"phone_number"`
}

// Tracking is the customer's live view of a delivery. TimeRemaining is in
// whole minutes and omitted once delivered.
type Tracking struct {
	OrderNumber           string                `json:"order_number"`
	Status                enums.OrderStatus     `json:"status"`
	Shop                  *ShopContact          `json:"shop,omitempty"`
	DeliveryPerson        *types.DeliveryPerson `json:"delivery_person,omitempty"`
	DeliveryLocation      *types.Coordinates    `json:"delivery_location,omitempty"`
	EstimatedDeliveryTime *time.Time            `json:"estimated_delivery_time,omitempty"`
	ActualDeliveryTime    *time.Time            `json:"actual_delivery_time,omitempty"`
	TimeRemaining         *int                  `json:"time_remaining,omitempty"`
	OrderPlacedAt         time.Time             `json:"order_placed_at"`
}
