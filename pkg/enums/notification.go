package enums

import "slices"

// NotificationType names the event a customer or shop is told about.
type NotificationType string

const (
	NotificationTypeOrderPlaced           NotificationType = "order_placed"
	NotificationTypeNewOrder              NotificationType = "new_order"
	NotificationTypePaymentSuccess        NotificationType = "payment_success"
	NotificationTypeOutForDelivery        NotificationType = "out_for_delivery"
	NotificationTypeDelivered             NotificationType = "delivered"
	NotificationTypeDeliveryAssigned      NotificationType = "delivery_assigned"
	NotificationTypeSubscriptionCreated   NotificationType = "subscription_created"
	NotificationTypeMonthlyPaymentSuccess NotificationType = "monthly_payment_success"
	NotificationTypeMonthlyPaymentFailed  NotificationType = "monthly_payment_failed"
	NotificationTypePaymentDue            NotificationType = "payment_due"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeOrderPlaced,
	NotificationTypeNewOrder,
	NotificationTypePaymentSuccess,
	NotificationTypeOutForDelivery,
	NotificationTypeDelivered,
	NotificationTypeDeliveryAssigned,
	NotificationTypeSubscriptionCreated,
	NotificationTypeMonthlyPaymentSuccess,
	NotificationTypeMonthlyPaymentFailed,
	NotificationTypePaymentDue,
}

func (n NotificationType) String() string {
	return string(n)
}

// IsValid checks whether the given type matches the canonical enum.
func (n NotificationType) IsValid() bool {
	return slices.Contains(validNotificationTypes, n)
}

// ParseNotificationType converts raw strings into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	return parse(validNotificationTypes, value, "notification type")
}

type NotificationChannel string

const (
	NotificationChannelSMS      NotificationChannel = "sms"
	NotificationChannelWhatsApp NotificationChannel = "whatsapp"
)

type NotificationRecipient string

const (
	NotificationRecipientUser NotificationRecipient = "user"
	NotificationRecipientShop NotificationRecipient = "shop"
)

func (r NotificationRecipient) IsValid() bool {
	return r == NotificationRecipientUser || r == NotificationRecipientShop
}

type NotificationStatus string

const (
	NotificationStatusSent   NotificationStatus = "sent"
	NotificationStatusFailed NotificationStatus = "failed"
)
