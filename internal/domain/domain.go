package domain

import (
	"regexp"
	"time"
)

// ServiceStatus is the lifecycle state of a purchased or trial service.
type ServiceStatus string

const (
	ServiceActive  ServiceStatus = "active"
	ServiceExpired ServiceStatus = "expired"
)

func (s ServiceStatus) String() string {
	return string(s)
}

// PaymentStatus is the moderation state of a pending payment.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentApproved PaymentStatus = "approved"
	PaymentRejected PaymentStatus = "rejected"
)

func (s PaymentStatus) String() string {
	return string(s)
}

const (
	TestDuration   = 24 * time.Hour
	TestDays       = 1
	PurgeRetention = 7 * 24 * time.Hour

	DefaultCaption = "no caption"
)

// Prices in the smallest currency unit, keyed by duration in days.
var prices = map[int]int{
	30: 75000,
	60: 139000,
	90: 195000,
}

// Durations lists the purchasable durations in display order.
var Durations = []int{30, 60, 90}

// Price returns the fixed price for a duration.
func Price(days int) (int, error) {
	p, ok := prices[days]
	if !ok {
		return 0, ErrBadPlan
	}
	return p, nil
}

var nameRe = regexp.MustCompile(`^[A-Za-z0-9]+$`)

// ValidName reports whether name is non-empty ASCII alphanumerics.
func ValidName(name string) bool {
	return nameRe.MatchString(name)
}

// ExpiryFor returns the end of a paid window starting at from.
func ExpiryFor(from time.Time, days int) time.Time {
	return from.AddDate(0, 0, days)
}
