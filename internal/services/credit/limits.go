package credit

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Bounds of the stored loan columns. Requests and imported rows outside them
// are rejected before any arithmetic runs.
const MaxTenure = 600

var (
	MaxInterestRate = decimal.RequireFromString("9999.99")
	MaxAmount       = decimal.RequireFromString("999999999999.99")
)

// CheckTerms reports every loan term outside the accepted range.
func CheckTerms(amount, rate decimal.Decimal, tenure int) error {
	var errs []error
	if !amount.IsPositive() {
		errs = append(errs, errors.New("loan_amount must be > 0"))
	} else if amount.GreaterThan(MaxAmount) {
		errs = append(errs, fmt.Errorf("loan_amount must be <= %s", MaxAmount))
	}
	if rate.IsNegative() {
		errs = append(errs, errors.New("interest_rate must be >= 0"))
	} else if rate.GreaterThan(MaxInterestRate) {
		errs = append(errs, fmt.Errorf("interest_rate must be <= %s", MaxInterestRate))
	}
	if tenure < 1 || tenure > MaxTenure {
		errs = append(errs, fmt.Errorf("tenure must be between 1 and %d", MaxTenure))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidArgument, errors.Join(errs...))
}

// FitsMoney reports whether v fits a stored money column.
func FitsMoney(v decimal.Decimal) bool {
	return v.Abs().LessThanOrEqual(MaxAmount)
}
