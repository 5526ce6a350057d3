package credit

import (
	"fmt"
	"strconv"
	"time"

	"creditdesk/internal/models"

	"github.com/cespare/xxhash/v2"
)

// HistoryVersion fingerprints every input Score reads. A cached score is
// only valid for the version it was computed from.
func HistoryVersion(customer models.Customer, loans []models.Loan) string {
	h := xxhash.New()
	fmt.Fprintf(h, "c|%d|%s|%s|%s\n", customer.ID,
		customer.MonthlySalary.String(), customer.ApprovedLimit.String(), customer.CurrentDebt.String())
	for _, l := range loans {
		fmt.Fprintf(h, "l|%d|%s|%d|%s|%s|%d|%s|%s\n", l.ID,
			l.Amount.String(), l.Tenure, l.InterestRate.String(), l.MonthlyInstallment.String(),
			l.EMIsPaidOnTime, l.StartDate.Format(time.DateOnly), l.EndDate.Format(time.DateOnly))
	}
	return strconv.FormatUint(h.Sum64(), 16)
}
