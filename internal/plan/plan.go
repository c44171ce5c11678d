// AngelaMos | 2026
// plan.go

// Package plan holds the static plan catalog (limits and prices) and the
// evaluation of a stored subscription into the tier honored right now.
package plan

import (
	"fmt"
	"time"

	"github.com/gifty-app/gifty-api/internal/core"
)

type Tier string

const (
	TierFree Tier = "FREE"
	TierPro  Tier = "PRO"
)

func (t Tier) String() string {
	return string(t)
}

// IsPaid reports whether the tier is sold through checkout.
func (t Tier) IsPaid() bool {
	return t == TierPro
}

type Period string

const (
	PeriodMonthly Period = "MONTHLY"
	PeriodYearly  Period = "YEARLY"
)

// ParsePeriod accepts exactly MONTHLY or YEARLY.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(s); p {
	case PeriodMonthly, PeriodYearly:
		return p, nil
	default:
		return "", fmt.Errorf("period %q: %w", s, core.ErrInvalidInput)
	}
}

// Extend returns the end of a period starting at from: one calendar month
// or one calendar year. Day overflow normalizes the way time.AddDate does
// (Jan 31 + 1 month = Mar 3 or Mar 2).
func (p Period) Extend(from time.Time) time.Time {
	switch p {
	case PeriodYearly:
		return from.AddDate(1, 0, 0)
	default:
		return from.AddDate(0, 1, 0)
	}
}

// Adjective is the human form used in payment descriptions.
func (p Period) Adjective() string {
	if p == PeriodYearly {
		return "yearly"
	}
	return "monthly"
}
