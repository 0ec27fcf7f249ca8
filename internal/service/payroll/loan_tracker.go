package payroll

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/cmlabs-hris/erp-backend-go/internal/domain/loan"
	"github.com/cmlabs-hris/erp-backend-go/internal/domain/payroll"
)

// DueInstallment is the installment of a loan charged in the current run.
type DueInstallment struct {
	Loan   loan.LoanAdvance
	Number int
	Amount int64
}

// LoanTracker decides which loan installments are due for an employee.
type LoanTracker struct {
	loanRepo        loan.LoanRepository
	itemRepo        payroll.PayrollItemRepository
	absorbRemainder bool
}

func NewLoanTracker(loanRepo loan.LoanRepository, itemRepo payroll.PayrollItemRepository, absorbRemainder bool) *LoanTracker {
	return &LoanTracker{
		loanRepo:        loanRepo,
		itemRepo:        itemRepo,
		absorbRemainder: absorbRemainder,
	}
}

// PendingLoans returns the due loans of the employee, oldest start date first.
func (t *LoanTracker) PendingLoans(ctx context.Context, employeeID string, periodEnd time.Time) ([]loan.LoanAdvance, error) {
	loans, err := t.loanRepo.PendingLoans(ctx, employeeID, periodEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending loans: %w", err)
	}

	pending := make([]loan.LoanAdvance, 0, len(loans))
	for _, l := range loans {
		if l.IsDue(periodEnd) {
			pending = append(pending, l)
		}
	}

	sort.SliceStable(pending, func(i, j int) bool {
		if !pending[i].StartDate.Equal(pending[j].StartDate) {
			return pending[i].StartDate.Before(pending[j].StartDate)
		}
		return pending[i].ID < pending[j].ID
	})
	return pending, nil
}

// NextInstallmentNumber counts only active loan items, so items replaced by a
// recalculation do not advance the schedule.
func (t *LoanTracker) NextInstallmentNumber(ctx context.Context, loanID string) (int, error) {
	n, err := t.itemRepo.NextInstallmentNumber(ctx, loanID)
	if err != nil {
		return 0, fmt.Errorf("failed to get next installment number: %w", err)
	}
	return n, nil
}

// DueInstallments returns one installment per pending loan whose schedule is
// not exhausted. Loans in skip are already charged elsewhere in the run.
// charged maps loan id to the installment number the slice carried before it
// was regenerated; those numbers are kept so that rebuilding an older run
// neither skips nor repeats an installment.
func (t *LoanTracker) DueInstallments(ctx context.Context, employeeID string, periodEnd time.Time, skip map[string]bool, charged map[string]int) ([]DueInstallment, error) {
	loans, err := t.PendingLoans(ctx, employeeID, periodEnd)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(loans))
	var due []DueInstallment
	for _, l := range loans {
		seen[l.ID] = true
		if skip[l.ID] {
			continue
		}
		next, ok := charged[l.ID]
		if !ok {
			next, err = t.NextInstallmentNumber(ctx, l.ID)
			if err != nil {
				return nil, err
			}
		}
		if !l.HasInstallment(next) {
			continue
		}
		due = append(due, DueInstallment{
			Loan:   l,
			Number: next,
			Amount: l.InstallmentAmount(next, t.absorbRemainder),
		})
	}

	// A loan settled after its last installment is no longer pending, but the
	// slice that charged it still owes that installment.
	for loanID, n := range charged {
		if seen[loanID] || skip[loanID] {
			continue
		}
		l, err := t.loanRepo.GetByID(ctx, loanID)
		if err != nil {
			if errors.Is(err, loan.ErrLoanNotFound) {
				continue
			}
			return nil, fmt.Errorf("failed to get loan: %w", err)
		}
		if l.EmployeeID != employeeID || !l.IsApproved || !l.HasInstallment(n) {
			continue
		}
		due = append(due, DueInstallment{
			Loan:   l,
			Number: n,
			Amount: l.InstallmentAmount(n, t.absorbRemainder),
		})
	}

	sort.SliceStable(due, func(i, j int) bool {
		if !due[i].Loan.StartDate.Equal(due[j].Loan.StartDate) {
			return due[i].Loan.StartDate.Before(due[j].Loan.StartDate)
		}
		return due[i].Loan.ID < due[j].Loan.ID
	})
	return due, nil
}
