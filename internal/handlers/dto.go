package handlers

import (
	"encoding/json"
	"errors"
	"strings"

	"creditdesk/internal/models"
	"creditdesk/internal/services/credit"

	"github.com/shopspring/decimal"
)

// money renders an amount as a JSON number with two decimals.
func money(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(2))
}

type registerRequest struct {
	FirstName     string          `json:"first_name"`
	LastName      string          `json:"last_name"`
	Age           *int            `json:"age"`
	MonthlyIncome decimal.Decimal `json:"monthly_income"`
	PhoneNumber   phoneNumber     `json:"phone_number"`
}

type customerResponse struct {
	CustomerID    int64       `json:"customer_id"`
	Name          string      `json:"name"`
	Age           *int        `json:"age"`
	MonthlyIncome json.Number `json:"monthly_income"`
	ApprovedLimit json.Number `json:"approved_limit"`
	PhoneNumber   string      `json:"phone_number"`
}

func toCustomerResponse(c models.Customer) customerResponse {
	return customerResponse{
		CustomerID:    c.ID,
		Name:          c.Name(),
		Age:           c.Age,
		MonthlyIncome: money(c.MonthlySalary),
		ApprovedLimit: money(c.ApprovedLimit),
		PhoneNumber:   c.PhoneNumber,
	}
}

type loanRequest struct {
	CustomerID   int64           `json:"customer_id"`
	LoanAmount   decimal.Decimal `json:"loan_amount"`
	InterestRate decimal.Decimal `json:"interest_rate"`
	Tenure       int             `json:"tenure"`
}

func (r loanRequest) validate() error {
	var errs []error
	if r.CustomerID < 1 {
		errs = append(errs, errors.New("customer_id must be >= 1"))
	}
	if err := credit.CheckTerms(r.LoanAmount, r.InterestRate, r.Tenure); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (r loanRequest) toCredit() credit.Request {
	return credit.Request{
		CustomerID:   r.CustomerID,
		Amount:       r.LoanAmount,
		InterestRate: r.InterestRate,
		Tenure:       r.Tenure,
	}
}

type eligibilityResponse struct {
	CustomerID            int64       `json:"customer_id"`
	Approval              bool        `json:"approval"`
	InterestRate          json.Number `json:"interest_rate"`
	CorrectedInterestRate json.Number `json:"corrected_interest_rate"`
	Tenure                int         `json:"tenure"`
	MonthlyInstallment    json.Number `json:"monthly_installment"`
}

type createLoanResponse struct {
	LoanID             *int64      `json:"loan_id"`
	CustomerID         int64       `json:"customer_id"`
	LoanApproved       bool        `json:"loan_approved"`
	Message            string      `json:"message"`
	MonthlyInstallment json.Number `json:"monthly_installment"`
}

type loanCustomer struct {
	ID          int64  `json:"id"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	PhoneNumber string `json:"phone_number"`
	Age         *int   `json:"age"`
}

type loanDetailResponse struct {
	LoanID             int64        `json:"loan_id"`
	Customer           loanCustomer `json:"customer"`
	LoanAmount         json.Number  `json:"loan_amount"`
	InterestRate       json.Number  `json:"interest_rate"`
	MonthlyInstallment json.Number  `json:"monthly_installment"`
	Tenure             int          `json:"tenure"`
}

type customerLoanResponse struct {
	LoanID             int64       `json:"loan_id"`
	LoanAmount         json.Number `json:"loan_amount"`
	InterestRate       json.Number `json:"interest_rate"`
	MonthlyInstallment json.Number `json:"monthly_installment"`
	RepaymentsLeft     int         `json:"repayments_left"`
}

// phoneNumber accepts the number either as a JSON number or a string.
type phoneNumber string

func (p *phoneNumber) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*p = phoneNumber(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return errors.New("phone_number must be a string or a number")
	}
	*p = phoneNumber(n.String())
	return nil
}
