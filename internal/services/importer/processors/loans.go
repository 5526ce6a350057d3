package processors

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	"creditdesk/internal/models"
	"creditdesk/internal/ports"
	importitems "creditdesk/internal/repository/imports"
	"creditdesk/internal/services/credit"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// installmentTolerance is how far a sheet's monthly payment may drift from
// the computed installment before the row is flagged.
var installmentTolerance = decimal.NewFromInt(1)

type LoansProcessor struct {
	*BaseProcessor
}

func (p LoansProcessor) Type() string { return importitems.ModelTypeLoans.String() }

type loanRow struct {
	loan     models.Loan
	payload  map[string]string
	warnings []string
}

func (p LoansProcessor) ProcessBatch(ctx context.Context, batch []map[string]string) error {
	if err := p.checkDeps(); err != nil {
		return err
	}

	importRecordID := ports.ImportRecordID(ctx)
	modelType := p.Type()
	log.Printf("[PROC][loans][START] rows=%d import_record_id=%s", len(batch), importRecordID)

	var tally batchTally
	parsed := make([]loanRow, 0, len(batch))
	customerIDs := make([]int64, 0, len(batch))

	for _, raw := range batch {
		r, err := parseLoan(normalizeRow(raw))
		if err != nil {
			modelID := uuid.NewString()
			if r.loan.ID > 0 {
				modelID = strconv.FormatInt(r.loan.ID, 10)
			}
			p.fail(ctx, &tally, importRecordID, modelType, modelID, raw, err.Error())
			continue
		}
		r.payload = raw
		parsed = append(parsed, r)
		customerIDs = append(customerIDs, r.loan.CustomerID)
	}

	existing, err := p.Store.ExistingCustomers(ctx, customerIDs)
	if err != nil {
		return fmt.Errorf("lookup customers: %w", err)
	}

	rows := make([]loanRow, 0, len(parsed))
	for _, r := range parsed {
		if !existing[r.loan.CustomerID] {
			p.fail(ctx, &tally, importRecordID, modelType, strconv.FormatInt(r.loan.ID, 10), r.payload,
				fmt.Sprintf("customer %d not found", r.loan.CustomerID))
			continue
		}
		rows = append(rows, r)
	}

	if len(rows) == 0 {
		log.Printf("[PROC][loans][DONE] no valid rows")
		p.finish(ctx, tally, importRecordID, modelType, nil)
		return nil
	}

	loans := make([]models.Loan, len(rows))
	for i, r := range rows {
		loans[i] = r.loan
	}

	errs := p.Store.UpsertLoans(ctx, loans)
	touched := make([]int64, 0, len(rows))
	for i, r := range rows {
		modelID := strconv.FormatInt(r.loan.ID, 10)
		if errs[i] != nil {
			log.Printf("[PROC][loans][WARN] loan_id=%d upsert failed: %v", r.loan.ID, errs[i])
			p.fail(ctx, &tally, importRecordID, modelType, modelID, r.payload, errs[i].Error())
			continue
		}
		touched = append(touched, r.loan.CustomerID)
		p.done(ctx, &tally, importRecordID, modelType, modelID, r.payload, strings.Join(r.warnings, "; "))
	}

	log.Printf("[PROC][loans][DONE] total=%d upserted=%d failed=%d", len(batch), tally.done, tally.failed)
	p.finish(ctx, tally, importRecordID, modelType, touched)
	return nil
}

// parseLoan validates a row and recomputes its installment. The sheet's own
// monthly payment only produces a warning when it disagrees.
func parseLoan(m map[string]string) (loanRow, error) {
	var r loanRow
	l := &r.loan

	id, err := parseInt(m["loan_id"])
	if err != nil || id < 1 {
		return r, fmt.Errorf("invalid loan_id %q", m["loan_id"])
	}
	l.ID = id

	cid, err := parseInt(m["customer_id"])
	if err != nil || cid < 1 {
		return r, fmt.Errorf("invalid customer_id %q", m["customer_id"])
	}
	l.CustomerID = cid

	if l.Amount, err = parseDecimal(m["loan_amount"]); err != nil || !l.Amount.IsPositive() {
		return r, fmt.Errorf("invalid loan_amount %q", m["loan_amount"])
	}

	tenure, err := parseInt(m["tenure"])
	if err != nil || tenure < 1 {
		return r, fmt.Errorf("invalid tenure %q", m["tenure"])
	}
	l.Tenure = int(tenure)

	if l.InterestRate, err = parseDecimal(m["interest_rate"]); err != nil || l.InterestRate.IsNegative() {
		return r, fmt.Errorf("invalid interest_rate %q", m["interest_rate"])
	}
	if err := credit.CheckTerms(l.Amount, l.InterestRate, l.Tenure); err != nil {
		return r, err
	}

	paid, err := parseInt(firstNonEmpty(m["emis_paid_on_time"], "0"))
	if err != nil || paid < 0 || paid > tenure {
		return r, fmt.Errorf("invalid emis_paid_on_time %q", m["emis_paid_on_time"])
	}
	l.EMIsPaidOnTime = int(paid)

	if l.StartDate, err = parseDate(m["start_date"]); err != nil {
		return r, fmt.Errorf("invalid start_date: %w", err)
	}
	l.EndDate = models.AddMonths(l.StartDate, l.Tenure)
	if v := m["end_date"]; v != "" {
		if l.EndDate, err = parseDate(v); err != nil {
			return r, fmt.Errorf("invalid end_date: %w", err)
		}
		if l.EndDate.Before(l.StartDate) {
			return r, fmt.Errorf("end_date %s before start_date %s", l.EndDate.Format("2006-01-02"), l.StartDate.Format("2006-01-02"))
		}
	}

	if l.MonthlyInstallment, err = credit.Installment(l.Amount, l.InterestRate, l.Tenure); err != nil {
		return r, err
	}
	if !credit.FitsMoney(l.MonthlyInstallment) {
		return r, fmt.Errorf("monthly installment %s out of range", l.MonthlyInstallment.StringFixed(2))
	}
	if v := m["monthly_repayment"]; v != "" {
		sheet, err := parseDecimal(v)
		if err != nil {
			r.warnings = append(r.warnings, fmt.Sprintf("unreadable monthly_repayment %q", v))
		} else if sheet.Sub(l.MonthlyInstallment).Abs().GreaterThan(installmentTolerance) {
			r.warnings = append(r.warnings, fmt.Sprintf("monthly_repayment %s differs from computed %s",
				sheet.StringFixed(2), l.MonthlyInstallment.StringFixed(2)))
		}
	}
	return r, nil
}
