package credit

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var ErrInvalidArgument = errors.New("invalid argument")

// growthPrecision bounds the digits kept while compounding (1+r)^n.
const growthPrecision = 24

var (
	one          = decimal.NewFromInt(1)
	monthsAndPct = decimal.NewFromInt(1200)
)

// Installment returns the fixed monthly payment that amortizes principal over
// termMonths at annualRate percent. The result is rounded to cents with
// banker's rounding (half to even).
func Installment(principal, annualRate decimal.Decimal, termMonths int) (decimal.Decimal, error) {
	exact, err := installmentExact(principal, annualRate, termMonths)
	if err != nil {
		return decimal.Zero, err
	}
	return exact.RoundBank(2), nil
}

func installmentExact(principal, annualRate decimal.Decimal, termMonths int) (decimal.Decimal, error) {
	if !principal.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: principal must be positive, got %s", ErrInvalidArgument, principal)
	}
	if annualRate.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: interest rate must not be negative, got %s", ErrInvalidArgument, annualRate)
	}
	if termMonths < 1 {
		return decimal.Zero, fmt.Errorf("%w: term must be at least one month, got %d", ErrInvalidArgument, termMonths)
	}
	if termMonths > MaxTenure {
		return decimal.Zero, fmt.Errorf("%w: term must be at most %d months, got %d", ErrInvalidArgument, MaxTenure, termMonths)
	}

	n := decimal.NewFromInt(int64(termMonths))
	r := monthlyRate(annualRate)
	if r.IsZero() {
		return principal.Div(n), nil
	}

	growth := compound(r, termMonths)
	return principal.Mul(r).Mul(growth).Div(growth.Sub(one)), nil
}

func monthlyRate(annualRate decimal.Decimal) decimal.Decimal {
	return annualRate.Div(monthsAndPct)
}

// compound returns (1+r)^n by repeated squaring.
func compound(r decimal.Decimal, n int) decimal.Decimal {
	base := one.Add(r)
	growth := one
	for ; n > 0; n >>= 1 {
		if n&1 == 1 {
			growth = growth.Mul(base).Round(growthPrecision)
		}
		base = base.Mul(base).Round(growthPrecision)
	}
	return growth
}
