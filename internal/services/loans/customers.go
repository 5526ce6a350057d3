package loans

import (
	"context"
	"fmt"
	"log"
	"strings"

	"creditdesk/internal/models"
	"creditdesk/internal/services/credit"

	"github.com/shopspring/decimal"
)

type RegisterInput struct {
	FirstName     string
	LastName      string
	Age           *int
	MonthlyIncome decimal.Decimal
	PhoneNumber   string
}

func (in RegisterInput) validate() error {
	if strings.TrimSpace(in.FirstName) == "" {
		return fmt.Errorf("%w: first_name is required", ErrInvalidInput)
	}
	if !in.MonthlyIncome.IsPositive() {
		return fmt.Errorf("%w: monthly_income must be positive", ErrInvalidInput)
	}
	if !credit.FitsMoney(credit.ApprovedLimit(in.MonthlyIncome)) {
		return fmt.Errorf("%w: monthly_income is too large", ErrInvalidInput)
	}
	if in.Age != nil && *in.Age < 0 {
		return fmt.Errorf("%w: age must not be negative", ErrInvalidInput)
	}
	return nil
}

func (s *Service) RegisterCustomer(ctx context.Context, in RegisterInput) (models.Customer, error) {
	if err := in.validate(); err != nil {
		return models.Customer{}, err
	}

	c := models.Customer{
		FirstName:     strings.TrimSpace(in.FirstName),
		LastName:      strings.TrimSpace(in.LastName),
		Age:           in.Age,
		PhoneNumber:   strings.TrimSpace(in.PhoneNumber),
		MonthlySalary: in.MonthlyIncome.Round(2),
		ApprovedLimit: credit.ApprovedLimit(in.MonthlyIncome),
		CurrentDebt:   decimal.Zero,
	}

	id, err := s.store.CreateCustomer(ctx, c)
	if err != nil {
		log.Printf("[LOANS][REGISTER][ERR] %v", err)
		return models.Customer{}, err
	}
	c.ID = id

	log.Printf("[LOANS][REGISTER] customer_id=%d approved_limit=%s", c.ID, c.ApprovedLimit)
	return c, nil
}
