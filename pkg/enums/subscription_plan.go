package enums

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// SubscriptionPlan is the monthly jar allotment a customer subscribes to.
type SubscriptionPlan string

const (
	SubscriptionPlan5Jars  SubscriptionPlan = "5-jars"
	SubscriptionPlan8Jars  SubscriptionPlan = "8-jars"
	SubscriptionPlan10Jars SubscriptionPlan = "10-jars"
	SubscriptionPlan15Jars SubscriptionPlan = "15-jars"
	SubscriptionPlan30Jars SubscriptionPlan = "30-jars"
	SubscriptionPlan45Jars SubscriptionPlan = "45-jars"
)

var validSubscriptionPlans = []SubscriptionPlan{
	SubscriptionPlan5Jars,
	SubscriptionPlan8Jars,
	SubscriptionPlan10Jars,
	SubscriptionPlan15Jars,
	SubscriptionPlan30Jars,
	SubscriptionPlan45Jars,
}

// String implements fmt.Stringer.
func (p SubscriptionPlan) String() string {
	return string(p)
}

// IsValid reports whether the value is a known plan.
func (p SubscriptionPlan) IsValid() bool {
	return slices.Contains(validSubscriptionPlans, p)
}

// JarsPerMonth returns the leading integer of the plan identifier.
func (p SubscriptionPlan) JarsPerMonth() (int, error) {
	head, _, ok := strings.Cut(string(p), "-")
	if !ok {
		return 0, fmt.Errorf("invalid subscription plan %q", p)
	}
	n, err := strconv.Atoi(head)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid subscription plan %q", p)
	}
	return n, nil
}

// ParseSubscriptionPlan converts raw input into a SubscriptionPlan.
func ParseSubscriptionPlan(value string) (SubscriptionPlan, error) {
	return parse(validSubscriptionPlans, value, "subscription plan")
}
