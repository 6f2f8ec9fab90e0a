package valueobjects

import "strings"

// SubscriptionStatus is the cached projection of the billing provider's
// subscription state. It uses Stripe's vocabulary plus the local sentinel
// "inactive" for users with no live subscription.
type SubscriptionStatus string

const (
	SubscriptionInactive          SubscriptionStatus = "inactive"
	SubscriptionActive            SubscriptionStatus = "active"
	SubscriptionTrialing          SubscriptionStatus = "trialing"
	SubscriptionPastDue           SubscriptionStatus = "past_due"
	SubscriptionCanceled          SubscriptionStatus = "canceled"
	SubscriptionIncomplete        SubscriptionStatus = "incomplete"
	SubscriptionIncompleteExpired SubscriptionStatus = "incomplete_expired"
	SubscriptionUnpaid            SubscriptionStatus = "unpaid"
	SubscriptionPaused            SubscriptionStatus = "paused"
)

// legacySpellings covers values written by older code paths.
var legacySpellings = map[string]SubscriptionStatus{
	"inactial": SubscriptionInactive,
	"":         SubscriptionInactive,
}

var knownStatuses = map[SubscriptionStatus]struct{}{
	SubscriptionInactive:          {},
	SubscriptionActive:            {},
	SubscriptionTrialing:          {},
	SubscriptionPastDue:           {},
	SubscriptionCanceled:          {},
	SubscriptionIncomplete:        {},
	SubscriptionIncompleteExpired: {},
	SubscriptionUnpaid:            {},
	SubscriptionPaused:            {},
}

// ParseSubscriptionStatus never fails: unknown values collapse to inactive so
// a corrupt record reads as "not entitled".
func ParseSubscriptionStatus(raw string) SubscriptionStatus {
	s := strings.ToLower(strings.TrimSpace(raw))
	if legacy, ok := legacySpellings[s]; ok {
		return legacy
	}
	if _, ok := knownStatuses[SubscriptionStatus(s)]; ok {
		return SubscriptionStatus(s)
	}
	return SubscriptionInactive
}

func (s SubscriptionStatus) String() string {
	return string(s)
}

// IsValid reports whether s is one of the recognised values.
func (s SubscriptionStatus) IsValid() bool {
	_, ok := knownStatuses[s]
	return ok
}
