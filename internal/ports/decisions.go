package ports

import (
	"context"
	"time"
)

// DecisionEntry is the audit record of one eligibility check or creation
// attempt. Money fields are decimal strings.
type DecisionEntry struct {
	ID                 string
	Operation          string
	CustomerID         int64
	LoanAmount         string
	RequestedRate      string
	CorrectedRate      string
	Tenure             int
	Score              int
	Approved           bool
	Reason             string
	MonthlyInstallment string
	LoanID             *int64
	DecidedAt          time.Time
}

type DecisionLog interface {
	RecordDecision(ctx context.Context, e DecisionEntry) error
}
