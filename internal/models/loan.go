package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Loan struct {
	ID                 int64
	CustomerID         int64
	Amount             decimal.Decimal
	Tenure             int
	InterestRate       decimal.Decimal
	MonthlyInstallment decimal.Decimal
	EMIsPaidOnTime     int
	StartDate          time.Time
	EndDate            time.Time
}

// IsCurrent reports whether the loan is still running on the given day.
// A loan ending today is current.
func (l Loan) IsCurrent(today time.Time) bool {
	return !DateOf(l.EndDate).Before(DateOf(today))
}

// RepaymentsLeft counts the installments still due as of today.
func (l Loan) RepaymentsLeft(today time.Time) int {
	today = DateOf(today)
	if !today.Before(DateOf(l.EndDate)) {
		return 0
	}
	passed := (today.Year()-l.StartDate.Year())*12 + int(today.Month()) - int(l.StartDate.Month())
	return max(0, l.Tenure-passed)
}
