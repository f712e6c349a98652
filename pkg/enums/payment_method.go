package enums

import "slices"

// PaymentMethod describes how a customer settles an order or subscription.
type PaymentMethod string

const (
	PaymentMethodUPI          PaymentMethod = "upi"
	PaymentMethodCard         PaymentMethod = "card"
	PaymentMethodWallet       PaymentMethod = "wallet"
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodSubscription PaymentMethod = "subscription"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodUPI,
	PaymentMethodCard,
	PaymentMethodWallet,
	PaymentMethodCash,
	PaymentMethodSubscription,
}

// String implements fmt.Stringer.
func (p PaymentMethod) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentMethod.
func (p PaymentMethod) IsValid() bool {
	return slices.Contains(validPaymentMethods, p)
}

// AllowedForOneTime excludes the internal subscription method.
func (p PaymentMethod) AllowedForOneTime() bool {
	return p.IsValid() && p != PaymentMethodSubscription
}

// AllowedForSubscription excludes cash; subscriptions are charged online.
func (p PaymentMethod) AllowedForSubscription() bool {
	return p == PaymentMethodUPI || p == PaymentMethodCard || p == PaymentMethodWallet
}

// RequiresGateway reports whether placing an order with this method charges online.
func (p PaymentMethod) RequiresGateway() bool {
	return p == PaymentMethodUPI || p == PaymentMethodCard || p == PaymentMethodWallet
}

// ParsePaymentMethod converts raw input into a PaymentMethod.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	return parse(validPaymentMethods, value, "payment method")
}
