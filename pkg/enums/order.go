package enums

import "slices"

// OrderType distinguishes one-off purchases from jars drawn against a subscription.
type OrderType string

const (
	OrderTypeOneTime      OrderType = "one-time"
	OrderTypeSubscription OrderType = "subscription"
)

var validOrderTypes = []OrderType{OrderTypeOneTime, OrderTypeSubscription}

func (t OrderType) String() string {
	return string(t)
}

func (t OrderType) IsValid() bool {
	return slices.Contains(validOrderTypes, t)
}

func ParseOrderType(value string) (OrderType, error) {
	return parse(validOrderTypes, value, "order type")
}

// OrderStatus tracks fulfilment. Shopkeepers may overwrite it freely.
type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "pending"
	OrderStatusConfirmed      OrderStatus = "confirmed"
	OrderStatusPreparing      OrderStatus = "preparing"
	OrderStatusOutForDelivery OrderStatus = "out-for-delivery"
	OrderStatusDelivered      OrderStatus = "delivered"
	OrderStatusCancelled      OrderStatus = "cancelled"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusPreparing,
	OrderStatusOutForDelivery,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

func (s OrderStatus) String() string {
	return string(s)
}

func (s OrderStatus) IsValid() bool {
	return slices.Contains(validOrderStatuses, s)
}

// CanAssignDelivery reports whether a delivery person may be attached.
func (s OrderStatus) CanAssignDelivery() bool {
	return s == OrderStatusConfirmed || s == OrderStatusPreparing
}

// CanTrackLocation reports whether live location updates are accepted.
func (s OrderStatus) CanTrackLocation() bool {
	return s == OrderStatusConfirmed || s == OrderStatusPreparing || s == OrderStatusOutForDelivery
}

func ParseOrderStatus(value string) (OrderStatus, error) {
	return parse(validOrderStatuses, value, "order status")
}

// OrderPaymentStatus is the settlement state shown on an order.
type OrderPaymentStatus string

const (
	OrderPaymentStatusPending  OrderPaymentStatus = "pending"
	OrderPaymentStatusPaid     OrderPaymentStatus = "paid"
	OrderPaymentStatusFailed   OrderPaymentStatus = "failed"
	OrderPaymentStatusRefunded OrderPaymentStatus = "refunded"
)

var validOrderPaymentStatuses = []OrderPaymentStatus{
	OrderPaymentStatusPending,
	OrderPaymentStatusPaid,
	OrderPaymentStatusFailed,
	OrderPaymentStatusRefunded,
}

func (s OrderPaymentStatus) String() string {
	return string(s)
}

func (s OrderPaymentStatus) IsValid() bool {
	return slices.Contains(validOrderPaymentStatuses, s)
}
