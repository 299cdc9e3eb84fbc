// Package subscription defines the paid tiers, what each one unlocks, and
// Stripe checkout for upgrading.
package subscription

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type Tier string

const (
	TierFree     Tier = "free"
	TierStandard Tier = "standard"
	TierUltimate Tier = "ultimate"
)

// ParseTier maps a claim or request value to a Tier. Empty means free.
func ParseTier(s string) (Tier, error) {
	switch Tier(strings.ToLower(strings.TrimSpace(s))) {
	case "", TierFree:
		return TierFree, nil
	case TierStandard:
		return TierStandard, nil
	case TierUltimate:
		return TierUltimate, nil
	}
	return "", fmt.Errorf("unknown tier %q", s)
}

// Entitlements lists what a tier unlocks.
type Entitlements struct {
	ForecastHours int  `json:"forecastHours"`
	AirQuality    bool `json:"airQuality"`
	UVIndex       bool `json:"uvIndex"`
	CommunityMap  bool `json:"communityMap"`
}

var entitlements = map[Tier]Entitlements{
	TierFree:     {ForecastHours: 24, CommunityMap: true},
	TierStandard: {ForecastHours: 72, AirQuality: true, UVIndex: true, CommunityMap: true},
	TierUltimate: {ForecastHours: 168, AirQuality: true, UVIndex: true, CommunityMap: true},
}

// EntitlementsFor returns the entitlements of t; unknown tiers get free.
func EntitlementsFor(t Tier) Entitlements {
	if e, ok := entitlements[t]; ok {
		return e
	}
	return entitlements[TierFree]
}

// ClampHours limits a requested forecast horizon to what t allows.
// Non-positive requests get the full horizon.
func ClampHours(t Tier, requested int) int {
	max := EntitlementsFor(t).ForecastHours
	if requested <= 0 || requested > max {
		return max
	}
	return requested
}

// Plan is a purchasable tier as shown to clients.
type Plan struct {
	Tier         Tier            `json:"tier"`
	MonthlyPrice decimal.Decimal `json:"monthlyPrice"`
	Currency     string          `json:"currency"`
	Entitlements Entitlements    `json:"entitlements"`
}

var monthlyPrices = map[Tier]decimal.Decimal{
	TierFree:     decimal.Zero,
	TierStandard: decimal.RequireFromString("2.99"),
	TierUltimate: decimal.RequireFromString("5.99"),
}

// Plans returns every tier in ascending price order.
func Plans() []Plan {
	tiers := []Tier{TierFree, TierStandard, TierUltimate}
	plans := make([]Plan, 0, len(tiers))
	for _, t := range tiers {
		plans = append(plans, Plan{
			Tier:         t,
			MonthlyPrice: monthlyPrices[t],
			Currency:     "CHF",
			Entitlements: EntitlementsFor(t),
		})
	}
	return plans
}

// AnnualPrice is twelve months at the monthly price, rounded to cents.
func (p Plan) AnnualPrice() decimal.Decimal {
	return p.MonthlyPrice.Mul(decimal.NewFromInt(12)).Round(2)
}
