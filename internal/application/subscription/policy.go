package subscription

import (
	"github.com/kursio/kursio/internal/domain/billing"
	vo "github.com/kursio/kursio/internal/domain/user/valueobjects"
)

// StatusPolicy decides which billing-side statuses grant access. One policy
// is shared by every call site.
type StatusPolicy struct {
	live map[vo.SubscriptionStatus]struct{}
}

// DefaultStatusPolicy treats paying and trialing subscriptions as live.
func DefaultStatusPolicy() StatusPolicy {
	return NewStatusPolicy(vo.SubscriptionActive, vo.SubscriptionTrialing)
}

func NewStatusPolicy(live ...vo.SubscriptionStatus) StatusPolicy {
	set := make(map[vo.SubscriptionStatus]struct{}, len(live))
	for _, s := range live {
		set[s] = struct{}{}
	}
	return StatusPolicy{live: set}
}

func (p StatusPolicy) IsLive(status string) bool {
	_, ok := p.live[vo.ParseSubscriptionStatus(status)]
	return ok
}

// FirstLive returns the first live subscription in provider order.
func (p StatusPolicy) FirstLive(subs []billing.Subscription) (billing.Subscription, bool) {
	for _, s := range subs {
		if p.IsLive(s.Status) {
			return s, true
		}
	}
	return billing.Subscription{}, false
}
