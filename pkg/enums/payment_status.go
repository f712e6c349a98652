package enums

import "slices"

// PaymentStatus is the lifecycle of a payment record.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusSuccess  PaymentStatus = "success"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

var validPaymentStatuses = []PaymentStatus{
	PaymentStatusPending,
	PaymentStatusSuccess,
	PaymentStatusFailed,
	PaymentStatusRefunded,
}

func (s PaymentStatus) String() string {
	return string(s)
}

func (s PaymentStatus) IsValid() bool {
	return slices.Contains(validPaymentStatuses, s)
}

func ParsePaymentStatus(value string) (PaymentStatus, error) {
	return parse(validPaymentStatuses, value, "payment status")
}

// PaymentPurpose records what a payment settled.
type PaymentPurpose string

const (
	PaymentPurposeOrder               PaymentPurpose = "order"
	PaymentPurposeSubscriptionInitial PaymentPurpose = "subscription_initial"
	PaymentPurposeSubscriptionMonthly PaymentPurpose = "subscription_monthly"
)

func (p PaymentPurpose) String() string {
	return string(p)
}

func (p PaymentPurpose) IsValid() bool {
	switch p {
	case PaymentPurposeOrder, PaymentPurposeSubscriptionInitial, PaymentPurposeSubscriptionMonthly:
		return true
	}
	return false
}
