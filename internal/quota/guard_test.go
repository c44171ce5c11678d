// AngelaMos | 2026
// guard_test.go

package quota

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gifty-app/gifty-api/internal/plan"
)

type countFunc func(ctx context.Context, ownerID string) (int, error)

func (f countFunc) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	return f(ctx, ownerID)
}

func fixedCount(n int) countFunc {
	return func(context.Context, string) (int, error) { return n, nil }
}

var testNow = time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)

func newTestGuard(counter WheelCounter) *Guard {
	return NewGuard(
		plan.NewCatalog("RUB"),
		plan.NewEvaluator(func() time.Time { return testNow }),
		counter,
	)
}

func activePro() plan.Subscription {
	expires := testNow.AddDate(0, 1, 0)
	return plan.Subscription{Tier: plan.TierPro, ExpiresAt: &expires}
}

func TestCanCreateWheelFree(t *testing.T) {
	ctx := context.Background()
	free := plan.Subscription{Tier: plan.TierFree}

	ok, err := newTestGuard(fixedCount(2)).CanCreateWheel(ctx, "u1", free)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = newTestGuard(fixedCount(3)).CanCreateWheel(ctx, "u1", free)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCanCreateWheelProSkipsCount(t *testing.T) {
	called := false
	g := newTestGuard(countFunc(func(context.Context, string) (int, error) {
		called = true
		return 1_000_000, nil
	}))

	ok, err := g.CanCreateWheel(context.Background(), "u1", activePro())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, called)
}

func TestCanCreateWheelUsesEffectiveTier(t *testing.T) {
	expired := testNow.Add(-time.Minute)
	lapsed := plan.Subscription{Tier: plan.TierPro, ExpiresAt: &expired}
	halfWritten := plan.Subscription{Tier: plan.TierPro}

	for name, sub := range map[string]plan.Subscription{
		"lapsed":       lapsed,
		"half written": halfWritten,
	} {
		t.Run(name, func(t *testing.T) {
			ok, err := newTestGuard(fixedCount(3)).
				CanCreateWheel(context.Background(), "u1", sub)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestCanCreateWheelCountsOwner(t *testing.T) {
	var seen string
	g := newTestGuard(countFunc(func(_ context.Context, ownerID string) (int, error) {
		seen = ownerID
		return 0, nil
	}))

	_, err := g.CanCreateWheel(context.Background(), "owner-42", plan.Subscription{})
	require.NoError(t, err)
	assert.Equal(t, "owner-42", seen)
}

func TestCanCreateWheelPropagatesCountError(t *testing.T) {
	boom := errors.New("db down")
	g := newTestGuard(countFunc(func(context.Context, string) (int, error) {
		return 0, boom
	}))

	ok, err := g.CanCreateWheel(context.Background(), "u1", plan.Subscription{})
	assert.False(t, ok)
	assert.ErrorIs(t, err, boom)
}

func TestCheckSegmentLimits(t *testing.T) {
	g := newTestGuard(fixedCount(0))

	assert.True(t, g.CheckSegmentLimits(6, plan.TierFree))
	assert.False(t, g.CheckSegmentLimits(7, plan.TierFree))
	assert.True(t, g.CheckSegmentLimits(20, plan.TierPro))
	assert.False(t, g.CheckSegmentLimits(21, plan.TierPro))
	assert.False(t, g.CheckSegmentLimits(7, plan.Tier("VIP")))
}

func TestEffectivePlan(t *testing.T) {
	g := newTestGuard(fixedCount(0))

	pro := g.EffectivePlan(activePro())
	assert.Equal(t, plan.TierPro, pro.EffectiveTier)
	assert.True(t, pro.Active)
	assert.Equal(t, plan.Unlimited, pro.Limits.MaxWheels)

	stale := g.EffectivePlan(plan.Subscription{Tier: plan.TierPro})
	assert.Equal(t, plan.TierPro, stale.StoredTier)
	assert.Equal(t, plan.TierFree, stale.EffectiveTier)
	assert.False(t, stale.Active)
	assert.Equal(t, 3, stale.Limits.MaxWheels)
}

func TestWithCounterKeepsPolicy(t *testing.T) {
	g := newTestGuard(fixedCount(0)).WithCounter(fixedCount(3))

	ok, err := g.CanCreateWheel(context.Background(), "u1", plan.Subscription{})
	require.NoError(t, err)
	assert.False(t, ok)
}
