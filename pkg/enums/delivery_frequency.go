package enums

import (
	"slices"
	"time"
)

type DeliveryFrequency string

const (
	DeliveryFrequencyWeekly   DeliveryFrequency = "weekly"
	DeliveryFrequencyBiWeekly DeliveryFrequency = "bi-weekly"
	DeliveryFrequencyMonthly  DeliveryFrequency = "monthly"
)

var validDeliveryFrequencies = []DeliveryFrequency{
	DeliveryFrequencyWeekly,
	DeliveryFrequencyBiWeekly,
	DeliveryFrequencyMonthly,
}

func (f DeliveryFrequency) String() string {
	return string(f)
}

func (f DeliveryFrequency) IsValid() bool {
	return slices.Contains(validDeliveryFrequencies, f)
}

// Advance returns the next delivery date after from. Monthly uses calendar
// months, so Jan 31 normalizes the way time.AddDate does.
func (f DeliveryFrequency) Advance(from time.Time) time.Time {
	switch f {
	case DeliveryFrequencyBiWeekly:
		return from.AddDate(0, 0, 14)
	case DeliveryFrequencyMonthly:
		return from.AddDate(0, 1, 0)
	default:
		return from.AddDate(0, 0, 7)
	}
}

// ParseDeliveryFrequency defaults empty input to weekly.
func ParseDeliveryFrequency(value string) (DeliveryFrequency, error) {
	if value == "" {
		return DeliveryFrequencyWeekly, nil
	}
	return parse(validDeliveryFrequencies, value, "delivery frequency")
}
