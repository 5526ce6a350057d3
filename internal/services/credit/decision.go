package credit

import (
	"time"

	"creditdesk/internal/models"

	"github.com/shopspring/decimal"
)

type RejectReason string

const (
	ReasonCustomerNotFound RejectReason = "customer_not_found"
	ReasonAffordability    RejectReason = "emi_exceeds_income_share"
	ReasonLowCreditScore   RejectReason = "low_credit_score"
)

// Outcome is either Approved or Rejected.
type Outcome interface {
	outcome()
}

type Approved struct {
	Rate        decimal.Decimal
	Installment decimal.Decimal
}

// Rejected carries the installment that was evaluated, or zero when none was
// computed.
type Rejected struct {
	Reason      RejectReason
	Installment decimal.Decimal
}

func (Approved) outcome() {}
func (Rejected) outcome() {}

type Request struct {
	CustomerID   int64
	Amount       decimal.Decimal
	InterestRate decimal.Decimal
	Tenure       int
}

type Decision struct {
	CustomerID    int64
	RequestedRate decimal.Decimal
	Tenure        int
	Score         int
	Outcome       Outcome
}

func (d Decision) Approved() bool {
	_, ok := d.Outcome.(Approved)
	return ok
}

// CorrectedRate is the rate a loan would be booked at. It equals the
// requested rate unless the decision raised it.
func (d Decision) CorrectedRate() decimal.Decimal {
	if a, ok := d.Outcome.(Approved); ok {
		return a.Rate
	}
	return d.RequestedRate
}

func (d Decision) MonthlyInstallment() decimal.Decimal {
	switch o := d.Outcome.(type) {
	case Approved:
		return o.Installment
	case Rejected:
		return o.Installment
	}
	return decimal.Zero
}

func (d Decision) RejectReason() (RejectReason, bool) {
	r, ok := d.Outcome.(Rejected)
	return r.Reason, ok
}

// Decide applies the affordability gate and the score tiers to a request.
// A nil customer yields a customer-not-found rejection. Only invalid request
// numbers produce an error.
func Decide(req Request, customer *models.Customer, loans []models.Loan, score int, today time.Time) (Decision, error) {
	dec := Decision{
		CustomerID:    req.CustomerID,
		RequestedRate: req.InterestRate,
		Tenure:        req.Tenure,
		Score:         score,
	}

	if customer == nil {
		dec.Outcome = Rejected{Reason: ReasonCustomerNotFound, Installment: decimal.Zero}
		return dec, nil
	}

	candidate, err := Installment(req.Amount, req.InterestRate, req.Tenure)
	if err != nil {
		return Decision{}, err
	}

	if !Affordable(*customer, loans, candidate, today) {
		dec.Outcome = Rejected{Reason: ReasonAffordability, Installment: candidate}
		return dec, nil
	}

	rate, ok := TierRate(score, req.InterestRate)
	if !ok {
		dec.Outcome = Rejected{Reason: ReasonLowCreditScore, Installment: candidate}
		return dec, nil
	}

	installment := candidate
	if !rate.Equal(req.InterestRate) {
		installment, err = Installment(req.Amount, rate, req.Tenure)
		if err != nil {
			return Decision{}, err
		}
	}

	dec.Outcome = Approved{Rate: rate, Installment: installment}
	return dec, nil
}

// Affordable reports whether the installments of the current loans plus the
// candidate stay within half of the monthly salary.
func Affordable(customer models.Customer, loans []models.Loan, candidate decimal.Decimal, today time.Time) bool {
	return CurrentEMI(loans, today).Add(candidate).LessThanOrEqual(customer.MonthlySalary.Mul(maxIncomeShare))
}

func CurrentEMI(loans []models.Loan, today time.Time) decimal.Decimal {
	total := decimal.Zero
	for _, l := range loans {
		if l.IsCurrent(today) {
			total = total.Add(l.MonthlyInstallment)
		}
	}
	return total
}
