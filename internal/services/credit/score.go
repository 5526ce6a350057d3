package credit

import (
	"time"

	"creditdesk/internal/models"

	"github.com/shopspring/decimal"
)

const (
	MinScore         = 0
	MaxScore         = 100
	NewCustomerScore = 50

	onTimeWeight = 40
)

// countBand awards points when a count is at most upTo. Bands are checked in
// order; the last band has no upper bound.
type countBand struct {
	upTo   int
	points int
}

// ratioBand awards points when a ratio is at most upTo.
type ratioBand struct {
	upTo   decimal.Decimal
	points int
}

var (
	loanCountBands = []countBand{
		{upTo: 2, points: 20},
		{upTo: 5, points: 15},
		{upTo: -1, points: 10},
	}

	currentYearBands = []countBand{
		{upTo: 0, points: 20},
		{upTo: 2, points: 15},
		{upTo: -1, points: 5},
	}

	utilizationBands = []ratioBand{
		{upTo: decimal.RequireFromString("0.5"), points: 20},
		{upTo: decimal.RequireFromString("0.8"), points: 15},
		{upTo: decimal.Decimal{}, points: 5},
	}
)

func countPoints(bands []countBand, n int) int {
	for i, b := range bands {
		if i == len(bands)-1 || n <= b.upTo {
			return b.points
		}
	}
	return 0
}

func ratioPoints(bands []ratioBand, ratio decimal.Decimal) int {
	for i, b := range bands {
		if i == len(bands)-1 || ratio.LessThanOrEqual(b.upTo) {
			return b.points
		}
	}
	return 0
}

// Breakdown holds the individual score components.
type Breakdown struct {
	OnTime      int
	LoanCount   int
	CurrentYear int
	Utilization int
}

func (b Breakdown) Total() int {
	return clamp(b.OnTime + b.LoanCount + b.CurrentYear + b.Utilization)
}

// Score rates a customer's credit history on a 0..100 scale as of today.
// Current exposure above the approved limit scores zero; a customer without
// any loans gets NewCustomerScore.
func Score(customer models.Customer, loans []models.Loan, today time.Time) int {
	if Overexposed(customer, loans, today) {
		return MinScore
	}
	if len(loans) == 0 {
		return NewCustomerScore
	}
	return Components(customer, loans, today).Total()
}

// Overexposed reports whether the principal of the customer's current loans
// exceeds the approved limit.
func Overexposed(customer models.Customer, loans []models.Loan, today time.Time) bool {
	active := decimal.Zero
	for _, l := range loans {
		if l.IsCurrent(today) {
			active = active.Add(l.Amount)
		}
	}
	return active.GreaterThan(customer.ApprovedLimit)
}

func Components(customer models.Customer, loans []models.Loan, today time.Time) Breakdown {
	var paid, due, thisYear int
	principal := decimal.Zero
	for _, l := range loans {
		paid += l.EMIsPaidOnTime
		due += l.Tenure
		principal = principal.Add(l.Amount)
		if l.StartDate.Year() == today.Year() {
			thisYear++
		}
	}

	return Breakdown{
		OnTime:      onTimePoints(paid, due),
		LoanCount:   countPoints(loanCountBands, len(loans)),
		CurrentYear: countPoints(currentYearBands, thisYear),
		Utilization: ratioPoints(utilizationBands, utilization(principal, customer.ApprovedLimit)),
	}
}

// onTimePoints scales the on-time ratio to onTimeWeight, rounding halves up.
func onTimePoints(paid, due int) int {
	if due <= 0 {
		return 0
	}
	pts := decimal.NewFromInt(int64(paid)).
		Mul(decimal.NewFromInt(onTimeWeight)).
		Div(decimal.NewFromInt(int64(due))).
		Round(0)
	return int(pts.IntPart())
}

func utilization(principal, limit decimal.Decimal) decimal.Decimal {
	if !limit.IsPositive() {
		return one
	}
	return principal.Div(limit)
}

func clamp(score int) int {
	return max(MinScore, min(MaxScore, score))
}
