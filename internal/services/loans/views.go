package loans

import (
	"context"
	"fmt"

	"creditdesk/internal/models"
)

type LoanDetails struct {
	Loan     models.Loan
	Customer models.Customer
}

type LoanSummary struct {
	Loan           models.Loan
	RepaymentsLeft int
}

func (s *Service) ViewLoan(ctx context.Context, loanID int64) (LoanDetails, error) {
	l, err := s.store.GetLoan(ctx, loanID)
	if err != nil {
		return LoanDetails{}, fmt.Errorf("fetch loan: %w", err)
	}
	if l == nil {
		return LoanDetails{}, ErrLoanNotFound
	}

	c, err := s.store.GetCustomer(ctx, l.CustomerID)
	if err != nil {
		return LoanDetails{}, fmt.Errorf("fetch customer: %w", err)
	}
	if c == nil {
		return LoanDetails{}, fmt.Errorf("loan %d: %w", loanID, ErrCustomerNotFound)
	}
	return LoanDetails{Loan: *l, Customer: *c}, nil
}

// CustomerLoans lists every loan of the customer with the installments still
// due as of the evaluation date.
func (s *Service) CustomerLoans(ctx context.Context, customerID int64) ([]LoanSummary, error) {
	c, err := s.store.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("fetch customer: %w", err)
	}
	if c == nil {
		return nil, ErrCustomerNotFound
	}

	loans, err := s.store.ListLoans(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("fetch loans: %w", err)
	}

	today := s.today()
	out := make([]LoanSummary, 0, len(loans))
	for _, l := range loans {
		out = append(out, LoanSummary{Loan: l, RepaymentsLeft: l.RepaymentsLeft(today)})
	}
	return out, nil
}
