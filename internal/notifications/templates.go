package notifications

import (
	"fmt"

	"github.com/angelmondragon/aquaflow-backend/pkg/enums"
)

type rendered struct {
	whatsapp string
	sms      string
	shop     string
}

type templateData struct {
	customer      string
	customerPhone string
	shop          string
	amount        string
	reference     string
	text          string
}

func render(kind enums.NotificationType, data templateData) rendered {
	name := data.customer
	if name == "" {
		name = "Customer"
	}

	switch kind {
	case enums.NotificationTypeOrderPlaced:
		return rendered{
			whatsapp: fmt.Sprintf("*Order Confirmed!*\n\nHi %s,\n\nYour water jar order %s has been placed.\nShop: %s\nAmount: Rs.%s\n\nWe'll notify you once it is out for delivery.", name, data.reference, data.shop, data.amount),
			sms:      fmt.Sprintf("AquaFlow: Your order of Rs.%s from %s has been confirmed. Track your order in the app.", data.amount, data.shop),
			shop:     fmt.Sprintf("*New Order Alert!*\n\nOrder %s\nAmount: Rs.%s\nCustomer: %s\n\nPlease prepare the order and update its status.", data.reference, data.amount, data.customerPhone),
		}
	case enums.NotificationTypeNewOrder:
		return rendered{
			shop: fmt.Sprintf("*New Subscription Order*\n\nOrder %s\nAmount: Rs.%s\nCustomer: %s\n\nPlease schedule the delivery.", data.reference, data.amount, data.customerPhone),
		}
	case enums.NotificationTypePaymentSuccess:
		return rendered{
			whatsapp: fmt.Sprintf("*Payment Successful!*\n\nHi %s,\n\nYour payment of Rs.%s has been processed. Your order will be prepared soon.", name, data.amount),
			sms:      fmt.Sprintf("AquaFlow: Payment of Rs.%s successful. Your order is being prepared.", data.amount),
			shop:     fmt.Sprintf("Payment of Rs.%s received for order %s.", data.amount, data.reference),
		}
	case enums.NotificationTypeDeliveryAssigned:
		return rendered{
			whatsapp: fmt.Sprintf("Hi %s, %s will deliver your order %s.", name, data.text, data.reference),
			sms:      fmt.Sprintf("AquaFlow: Delivery assigned for order %s.", data.reference),
		}
	case enums.NotificationTypeOutForDelivery:
		return rendered{
			whatsapp: fmt.Sprintf("*Out for Delivery!*\n\nHi %s,\n\nYour water jars are on the way. Track the delivery live in the app.", name),
			sms:      "AquaFlow: Your order is out for delivery. Track live location in the app.",
		}
	case enums.NotificationTypeDelivered:
		return rendered{
			whatsapp: fmt.Sprintf("*Order Delivered!*\n\nHi %s,\n\nYour water jars have been delivered. Please rate your experience in the app.", name),
			sms:      "AquaFlow: Your order has been delivered. Please rate your experience in the app.",
		}
	case enums.NotificationTypeSubscriptionCreated:
		return rendered{
			whatsapp: fmt.Sprintf("*Subscription Activated!*\n\nHi %s,\n\nYour subscription with %s is active.\nMonthly amount: Rs.%s", name, data.shop, data.amount),
			sms:      fmt.Sprintf("AquaFlow: Your subscription is active. Monthly amount: Rs.%s. Next delivery as scheduled.", data.amount),
		}
	case enums.NotificationTypeMonthlyPaymentSuccess:
		return rendered{
			whatsapp: fmt.Sprintf("*Monthly Payment Processed*\n\nHi %s,\n\nYour monthly subscription payment of Rs.%s was successful.", name, data.amount),
			sms:      fmt.Sprintf("AquaFlow: Monthly payment of Rs.%s processed successfully. Invoice sent to email.", data.amount),
		}
	case enums.NotificationTypeMonthlyPaymentFailed:
		return rendered{
			whatsapp: fmt.Sprintf("*Payment Failed*\n\nHi %s,\n\nYour monthly subscription payment of Rs.%s could not be processed. Please retry from the app.", name, data.amount),
			sms:      fmt.Sprintf("AquaFlow: Monthly payment of Rs.%s failed. Please update payment method in app.", data.amount),
		}
	case enums.NotificationTypePaymentDue:
		return rendered{
			whatsapp: fmt.Sprintf("Hi %s, your monthly payment of Rs.%s for %s is due. Pay from the app to keep deliveries running.", name, data.amount, data.shop),
			sms:      fmt.Sprintf("AquaFlow: Monthly payment of Rs.%s is due.", data.amount),
		}
	}

	text := data.text
	if text == "" {
		text = "You have a new notification from AquaFlow"
	}
	return rendered{whatsapp: text, sms: text}
}

// notifiesShop lists the types that also reach the shop's WhatsApp number.
func notifiesShop(kind enums.NotificationType) bool {
	switch kind {
	case enums.NotificationTypeOrderPlaced, enums.NotificationTypePaymentSuccess, enums.NotificationTypeNewOrder:
		return true
	}
	return false
}
