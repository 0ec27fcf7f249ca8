package loan

import (
	"time"

	"github.com/cmlabs-hris/erp-backend-go/internal/pkg/money"
	"github.com/shopspring/decimal"
)

// LoanAdvance is a salary advance repaid through payroll installments.
type LoanAdvance struct {
	ID           string
	CompanyID    string
	EmployeeID   string
	Amount       decimal.Decimal
	Installments int
	StartDate    time.Time
	IsApproved   bool
	IsFullyPaid  bool
	CreatedAt    time.Time
}

// IsDue reports whether the loan may contribute an installment to a period ending at periodEnd.
func (l LoanAdvance) IsDue(periodEnd time.Time) bool {
	return l.IsApproved && !l.IsFullyPaid && !l.StartDate.After(periodEnd)
}

// HasInstallment reports whether installment n is part of the schedule.
func (l LoanAdvance) HasInstallment(n int) bool {
	return n >= 1 && n <= l.Installments
}

// InstallmentAmount returns installment n in minor units. With absorbRemainder
// the last installment also carries amount mod installments, so the schedule
// sums to the loan amount.
func (l LoanAdvance) InstallmentAmount(n int, absorbRemainder bool) int64 {
	if l.Installments <= 0 {
		return 0
	}
	total := money.ToMinorUnits(l.Amount)
	count := int64(l.Installments)
	base := total / count
	if absorbRemainder && n == l.Installments {
		return base + total%count
	}
	return base
}
