package processors

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// headerAliases maps normalized spreadsheet headers onto canonical column
// names. Both the "Title Case" sheets and the snake_case sheets land on the
// same keys.
var headerAliases = map[string]string{
	"date_of_approval": "start_date",
	"approval_date":    "start_date",
	"monthly_payment":  "monthly_repayment",
	"monthly_income":   "monthly_salary",
	"salary":           "monthly_salary",
	"phone":            "phone_number",
	"name":             "full_name",
}

// normalizeHeader lowercases a header and joins its words with underscores:
// "EMIs paid on Time" becomes "emis_paid_on_time".
func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.NewReplacer("-", " ", "_", " ", ".", " ").Replace(h)
	key := strings.Join(strings.Fields(h), "_")
	if alias, ok := headerAliases[key]; ok {
		return alias
	}
	return key
}

// normalizeRow re-keys a row by canonical column name. The first non-empty
// value wins when two headers collapse onto one key.
func normalizeRow(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		key := normalizeHeader(k)
		if cur, ok := out[key]; ok && cur != "" {
			continue
		}
		out[key] = strings.TrimSpace(v)
	}
	return out
}

func normalizeAmount(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, ",", "")
	return s
}

var errEmpty = errors.New("empty value")

func parseDecimal(s string) (decimal.Decimal, error) {
	s = normalizeAmount(s)
	if s == "" {
		return decimal.Zero, errEmpty
	}
	return decimal.NewFromString(s)
}

// parseInt accepts integral decimals such as "12.0" that spreadsheets emit
// for numeric cells.
func parseInt(s string) (int64, error) {
	s = normalizeAmount(s)
	if s == "" {
		return 0, errEmpty
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	if !d.IsInteger() {
		return 0, fmt.Errorf("%q is not a whole number", s)
	}
	return d.IntPart(), nil
}

func optionalInt(s string) (*int, error) {
	n, err := parseInt(s)
	if errors.Is(err, errEmpty) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	v := int(n)
	return &v, nil
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"01-02-06",
	"1/2/06",
	"1/2/2006",
	"02.01.2006",
	"2006/01/02",
}

// parseDate reads a calendar date from text or from an Excel serial day
// number.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errEmpty
	}
	for _, l := range dateLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 0 {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
