// AngelaMos | 2026
// guard.go

// Package quota decides whether a user may create more resources under the
// plan they are effectively on right now.
package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/gifty-app/gifty-api/internal/plan"
)

type WheelCounter interface {
	CountByOwner(ctx context.Context, ownerID string) (int, error)
}

// Entitlement is the plan a user is served under at a point in time.
type Entitlement struct {
	StoredTier    plan.Tier   `json:"stored_plan"`
	EffectiveTier plan.Tier   `json:"plan"`
	ExpiresAt     *time.Time  `json:"plan_expires_at,omitempty"`
	Active        bool        `json:"active"`
	Limits        plan.Limits `json:"limits"`
}

// Guard checks are read-then-decide. Concurrent creations for one user may
// overshoot a limit by the number of racing requests minus one unless the
// caller serializes them (see wheel.Service strict mode).
type Guard struct {
	catalog   *plan.Catalog
	evaluator *plan.Evaluator
	wheels    WheelCounter
}

func NewGuard(
	catalog *plan.Catalog,
	evaluator *plan.Evaluator,
	wheels WheelCounter,
) *Guard {
	return &Guard{
		catalog:   catalog,
		evaluator: evaluator,
		wheels:    wheels,
	}
}

// WithCounter returns a guard that counts through c, typically a repository
// bound to an open transaction.
func (g *Guard) WithCounter(c WheelCounter) *Guard {
	return &Guard{
		catalog:   g.catalog,
		evaluator: g.evaluator,
		wheels:    c,
	}
}

func (g *Guard) EffectivePlan(sub plan.Subscription) Entitlement {
	effective := g.evaluator.EffectiveTier(sub)

	return Entitlement{
		StoredTier:    sub.Tier,
		EffectiveTier: effective,
		ExpiresAt:     sub.ExpiresAt,
		Active:        effective.IsPaid(),
		Limits:        g.catalog.LimitsFor(effective),
	}
}

func (g *Guard) LimitsFor(sub plan.Subscription) plan.Limits {
	return g.catalog.LimitsFor(g.evaluator.EffectiveTier(sub))
}

func (g *Guard) CanCreateWheel(
	ctx context.Context,
	userID string,
	sub plan.Subscription,
) (bool, error) {
	limits := g.LimitsFor(sub)
	if limits.MaxWheels == plan.Unlimited {
		return true, nil
	}

	count, err := g.wheels.CountByOwner(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("count wheels: %w", err)
	}

	return limits.AllowsAnotherWheel(count), nil
}

// CheckSegmentLimits compares a candidate segment count with the ceiling of
// tier. Callers pass the effective tier, never the stored one.
func (g *Guard) CheckSegmentLimits(segments int, tier plan.Tier) bool {
	return g.catalog.LimitsFor(tier).AllowsSegments(segments)
}
