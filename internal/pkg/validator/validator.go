package validator

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ValidationError struct {
	Field   string
	Message string
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	var msgs []string
	for _, err := range v {
		msgs = append(msgs, err.Field+": "+err.Message)
	}
	return strings.Join(msgs, "; ")
}

func (v ValidationErrors) ToMap() map[string]string {
	result := make(map[string]string)
	for _, err := range v {
		result[err.Field] = err.Message
	}
	return result
}

// IsEmpty checks if a string is empty after trimming whitespace.
func IsEmpty(s string) bool {
	return strings.TrimSpace(s) == ""
}

// IsValidUUID accepts any RFC 4122 UUID in canonical form.
func IsValidUUID(id string) bool {
	if len(id) != 36 {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}

// Date validation
func IsValidDate(dateStr string) (time.Time, bool) {
	date, err := time.Parse(DateLayout, dateStr)
	return date, err == nil
}

const DateLayout = "2006-01-02"

// Slice contains check
func IsInSlice(value string, slice []string) bool {
	return slices.Contains(slice, value)
}

func IsValidMonth(month int) bool {
	return month >= 1 && month <= 12
}

// PercentageTolerance is the accepted drift when a percentage split must total 100.
var PercentageTolerance = decimal.RequireFromString("0.01")

var hundred = decimal.NewFromInt(100)

// SumsToHundred reports whether the percentages total 100 within PercentageTolerance.
func SumsToHundred(percentages []decimal.Decimal) (decimal.Decimal, bool) {
	total := decimal.Zero
	for _, p := range percentages {
		total = total.Add(p)
	}
	return total, total.Sub(hundred).Abs().LessThanOrEqual(PercentageTolerance)
}

// IsPercentage reports whether p lies in (0, 100].
func IsPercentage(p decimal.Decimal) bool {
	return p.IsPositive() && p.LessThanOrEqual(hundred)
}
