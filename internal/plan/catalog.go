// AngelaMos | 2026
// catalog.go

package plan

import (
	"fmt"

	"github.com/gifty-app/gifty-api/internal/core"
)

// Unlimited marks a numeric limit with no ceiling.
const Unlimited = -1

type Limits struct {
	MaxWheels    int  `json:"max_wheels"`
	MaxSegments  int  `json:"max_segments"`
	Images       bool `json:"images"`
	Weights      bool `json:"weights"`
	CustomDesign bool `json:"custom_design"`
	Statistics   bool `json:"statistics"`
}

// AllowsAnotherWheel reports whether an owner of existing wheels may add one.
func (l Limits) AllowsAnotherWheel(existing int) bool {
	if l.MaxWheels == Unlimited {
		return true
	}
	return existing < l.MaxWheels
}

func (l Limits) AllowsSegments(count int) bool {
	if l.MaxSegments == Unlimited {
		return true
	}
	return count <= l.MaxSegments
}

// Catalog is the immutable limits and price table. It is built once at
// startup and shared read-only between handlers.
type Catalog struct {
	currency string
	limits   map[Tier]Limits
	prices   map[Tier]map[Period]int64
}

// NewCatalog builds the GIFTY catalog. Prices are in minor currency units.
func NewCatalog(currency string) *Catalog {
	return &Catalog{
		currency: currency,
		limits: map[Tier]Limits{
			TierFree: {
				MaxWheels:   3,
				MaxSegments: 6,
			},
			TierPro: {
				MaxWheels:    Unlimited,
				MaxSegments:  20,
				Images:       true,
				Weights:      true,
				CustomDesign: true,
				Statistics:   true,
			},
		},
		prices: map[Tier]map[Period]int64{
			TierPro: {
				PeriodMonthly: 40000,
				PeriodYearly:  400000,
			},
		},
	}
}

func (c *Catalog) Currency() string {
	return c.currency
}

// LimitsFor never fails: a tier missing from the table gets FREE limits.
func (c *Catalog) LimitsFor(tier Tier) Limits {
	if l, ok := c.limits[tier]; ok {
		return l
	}
	return c.limits[TierFree]
}

// Price returns the amount in minor units charged for tier over period.
func (c *Catalog) Price(tier Tier, period Period) (int64, error) {
	byPeriod, ok := c.prices[tier]
	if !ok {
		return 0, fmt.Errorf("tier %s is not for sale: %w", tier, core.ErrInvalidInput)
	}

	amount, ok := byPeriod[period]
	if !ok {
		return 0, fmt.Errorf("period %q: %w", period, core.ErrInvalidInput)
	}

	return amount, nil
}
