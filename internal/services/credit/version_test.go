package credit

import (
	"testing"

	"creditdesk/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestHistoryVersion(t *testing.T) {
	c := customer("50000", "1800000")
	loans := []models.Loan{pastLoan("100000", 12, 12, 2023)}

	base := HistoryVersion(c, loans)
	assert.Equal(t, base, HistoryVersion(c, loans))
	assert.NotEqual(t, base, HistoryVersion(c, nil))

	more := loans[0]
	more.EMIsPaidOnTime = 11
	assert.NotEqual(t, base, HistoryVersion(c, []models.Loan{more}), "on-time count is part of the history")

	raised := c
	raised.ApprovedLimit = d("2000000")
	assert.NotEqual(t, base, HistoryVersion(raised, loans))
}
