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
	"creditdesk/internal/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CustomersProcessor struct {
	*BaseProcessor
}

func (p CustomersProcessor) Type() string { return importitems.ModelTypeCustomers.String() }

func (p CustomersProcessor) ProcessBatch(ctx context.Context, batch []map[string]string) error {
	if err := p.checkDeps(); err != nil {
		return err
	}

	importRecordID := ports.ImportRecordID(ctx)
	modelType := p.Type()
	log.Printf("[PROC][customers][START] rows=%d import_record_id=%s", len(batch), importRecordID)

	var tally batchTally
	rows := make([]models.Customer, 0, len(batch))
	payloads := make([]map[string]string, 0, len(batch))

	for _, raw := range batch {
		c, err := parseCustomer(normalizeRow(raw))
		if err != nil {
			modelID := uuid.NewString()
			if c.ID > 0 {
				modelID = strconv.FormatInt(c.ID, 10)
			}
			p.fail(ctx, &tally, importRecordID, modelType, modelID, raw, err.Error())
			continue
		}
		rows = append(rows, c)
		payloads = append(payloads, raw)
	}

	if len(rows) == 0 {
		log.Printf("[PROC][customers][DONE] no valid rows")
		p.finish(ctx, tally, importRecordID, modelType, nil)
		return nil
	}

	errs := p.Store.UpsertCustomers(ctx, rows)
	touched := make([]int64, 0, len(rows))
	for i, c := range rows {
		modelID := strconv.FormatInt(c.ID, 10)
		if errs[i] != nil {
			log.Printf("[PROC][customers][WARN] customer_id=%d upsert failed: %v", c.ID, errs[i])
			p.fail(ctx, &tally, importRecordID, modelType, modelID, payloads[i], errs[i].Error())
			continue
		}
		touched = append(touched, c.ID)
		p.done(ctx, &tally, importRecordID, modelType, modelID, payloads[i], "")
	}

	log.Printf("[PROC][customers][DONE] total=%d upserted=%d failed=%d", len(batch), tally.done, tally.failed)
	p.finish(ctx, tally, importRecordID, modelType, touched)
	return nil
}

// parseCustomer returns the id it managed to read even when the row is
// rejected, so the failure can be logged against it.
func parseCustomer(m map[string]string) (models.Customer, error) {
	var c models.Customer

	id, err := parseInt(m["customer_id"])
	if err != nil || id < 1 {
		return c, fmt.Errorf("invalid customer_id %q", m["customer_id"])
	}
	c.ID = id

	c.FirstName, c.LastName = m["first_name"], m["last_name"]
	if c.FirstName == "" {
		c.FirstName, c.LastName = utils.SplitFullName(m["full_name"])
	}
	if c.FirstName == "" {
		return c, fmt.Errorf("missing first_name")
	}

	if c.Age, err = optionalInt(m["age"]); err != nil {
		return c, fmt.Errorf("invalid age %q", m["age"])
	}

	// numeric cells may come back as "9629317944.0"
	c.PhoneNumber = m["phone_number"]
	if strings.Contains(c.PhoneNumber, ".") {
		if n, err := parseInt(c.PhoneNumber); err == nil {
			c.PhoneNumber = strconv.FormatInt(n, 10)
		}
	}

	if c.MonthlySalary, err = parseDecimal(m["monthly_salary"]); err != nil || !c.MonthlySalary.IsPositive() || !credit.FitsMoney(c.MonthlySalary) {
		return c, fmt.Errorf("invalid monthly_salary %q", m["monthly_salary"])
	}
	c.MonthlySalary = c.MonthlySalary.Round(2)

	c.ApprovedLimit = credit.ApprovedLimit(c.MonthlySalary)
	if v := m["approved_limit"]; v == "" && !credit.FitsMoney(c.ApprovedLimit) {
		return c, fmt.Errorf("approved_limit derived from monthly_salary %s is too large", c.MonthlySalary)
	}
	if v := m["approved_limit"]; v != "" {
		if c.ApprovedLimit, err = parseDecimal(v); err != nil || c.ApprovedLimit.IsNegative() || !credit.FitsMoney(c.ApprovedLimit) {
			return c, fmt.Errorf("invalid approved_limit %q", v)
		}
	}

	c.CurrentDebt = decimal.Zero
	if v := m["current_debt"]; v != "" {
		if c.CurrentDebt, err = parseDecimal(v); err != nil || !credit.FitsMoney(c.CurrentDebt) {
			return c, fmt.Errorf("invalid current_debt %q", v)
		}
	}
	return c, nil
}
