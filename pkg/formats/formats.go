// Package formats holds the field formats shared by request validation and
// service-level checks.
package formats

import "regexp"

var (
	phonePattern   = regexp.MustCompile(`^[+]?[1-9]\d{1,14}$`)
	pincodePattern = regexp.MustCompile(`^\d{6}$`)
	gstinPattern   = regexp.MustCompile(`^[0-9]{2}[A-Z]{5}[0-9]{4}[A-Z]{1}[1-9A-Z]{1}Z[0-9A-Z]{1}$`)
	clockPattern   = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)
)

// Phone accepts E.164-like numbers with an optional leading plus.
func Phone(v string) bool { return phonePattern.MatchString(v) }

// Pincode accepts six digit Indian postal codes.
func Pincode(v string) bool { return pincodePattern.MatchString(v) }

// GSTIN accepts Indian GST identification numbers.
func GSTIN(v string) bool { return gstinPattern.MatchString(v) }

// Clock accepts 24h HH:MM times.
func Clock(v string) bool { return clockPattern.MatchString(v) }
