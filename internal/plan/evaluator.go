// AngelaMos | 2026
// evaluator.go

package plan

import (
	"time"
)

// Subscription is the entitlement state stored on a user row.
type Subscription struct {
	Tier      Tier
	ExpiresAt *time.Time
}

// EffectiveTier is the tier honored at now. A PRO row without an expiration
// is a half-written upgrade and counts as FREE, as does an expired one.
func (s Subscription) EffectiveTier(now time.Time) Tier {
	if s.Tier != TierPro {
		return TierFree
	}
	if s.ExpiresAt == nil {
		return TierFree
	}
	if s.ExpiresAt.After(now) {
		return TierPro
	}
	return TierFree
}

type Clock func() time.Time

// Evaluator resolves effective tiers against a clock. It keeps no state
// between calls; every check reads the clock again.
type Evaluator struct {
	now Clock
}

func NewEvaluator(now Clock) *Evaluator {
	if now == nil {
		now = time.Now
	}
	return &Evaluator{now: now}
}

func (e *Evaluator) Now() time.Time {
	return e.now()
}

func (e *Evaluator) EffectiveTier(s Subscription) Tier {
	return s.EffectiveTier(e.now())
}
