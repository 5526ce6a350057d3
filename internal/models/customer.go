package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

type Customer struct {
	ID            int64
	FirstName     string
	LastName      string
	Age           *int
	PhoneNumber   string
	MonthlySalary decimal.Decimal
	ApprovedLimit decimal.Decimal
	CurrentDebt   decimal.Decimal
}

func (c Customer) Name() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}
