package credit

import "github.com/shopspring/decimal"

var maxIncomeShare = decimal.RequireFromString("0.5")

// rateTier applies to scores strictly above minScore. A requested rate at or
// below floor is raised to corrected; a zero floor keeps any rate.
type rateTier struct {
	minScore  int
	floor     decimal.Decimal
	corrected decimal.Decimal
}

// rateTiers is ordered from the highest score band down. Scores that match
// no tier are rejected.
var rateTiers = []rateTier{
	{minScore: 50},
	{minScore: 30, floor: decimal.NewFromInt(12), corrected: decimal.RequireFromString("12.01")},
	{minScore: 10, floor: decimal.NewFromInt(16), corrected: decimal.RequireFromString("16.01")},
}

// TierRate returns the rate a request is approved at for the given score,
// and false when the score is too low for any tier.
func TierRate(score int, requested decimal.Decimal) (decimal.Decimal, bool) {
	for _, t := range rateTiers {
		if score <= t.minScore {
			continue
		}
		if !t.floor.IsZero() && requested.LessThanOrEqual(t.floor) {
			return t.corrected, true
		}
		return requested, true
	}
	return decimal.Zero, false
}

var (
	limitIncomeMonths = decimal.NewFromInt(36)
	limitStep         = decimal.NewFromInt(100000)
)

// ApprovedLimit is 36 months of income rounded half-to-even to the nearest
// 100000.
func ApprovedLimit(monthlyIncome decimal.Decimal) decimal.Decimal {
	return monthlyIncome.Mul(limitIncomeMonths).Div(limitStep).RoundBank(0).Mul(limitStep)
}
