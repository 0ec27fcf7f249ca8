package payroll

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/erp-backend-go/internal/domain/contract"
	"github.com/cmlabs-hris/erp-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/erp-backend-go/internal/pkg/money"
	"github.com/shopspring/decimal"
)

// VacationPay is the vacation metadata stored on a payroll employee.
type VacationPay struct {
	Start  time.Time
	End    time.Time
	Amount int64
}

// ThirteenthSalary is the run-level thirteenth salary setting.
type ThirteenthSalary struct {
	Percentage decimal.Decimal
	TaxOption  payroll.ThirteenthTaxOption
}

// GenerationInput is everything needed to build the items of one contract.
type GenerationInput struct {
	Contract     contract.Contract
	PeriodEnd    time.Time
	Installments []DueInstallment
	Vacation     *VacationPay
	Thirteenth   *ThirteenthSalary
}

// ItemGenerator builds payroll items. It has no dependencies and no side effects.
type ItemGenerator struct{}

// Generate emits, in order: salary, contract credits, contract debits, loan
// installments, vacation pay, thirteenth salary. Returned items are not yet
// bound to a payroll employee.
func (ItemGenerator) Generate(in GenerationInput) ([]payroll.PayrollItem, error) {
	c := in.Contract
	if err := c.Validate(); err != nil {
		return nil, err
	}

	salary := money.ToMinorUnits(c.Value)
	items := make([]payroll.PayrollItem, 0, len(c.Items)+len(in.Installments)+3)
	add := func(item payroll.PayrollItem) {
		item.IsActive = true
		item.Position = len(items) + 1
		items = append(items, item)
	}

	add(payroll.PayrollItem{
		Description: "Salary",
		Type:        payroll.ItemCredit,
		Category:    payroll.CategorySalary,
		Amount:      salary,
		SourceType:  payroll.SourceContractBenefit,
		ReferenceID: ptr(c.ID),
		IsTaxable:   true,
	})

	for _, entry := range c.Items {
		if entry.Type != contract.EntryCredit || !entry.AppliesTo(in.PeriodEnd) {
			continue
		}
		add(payroll.PayrollItem{
			Description:    entry.Description,
			Type:           payroll.ItemCredit,
			Category:       payroll.CategoryBenefit,
			Amount:         money.ToMinorUnits(entry.Amount),
			SourceType:     payroll.SourceContractBenefit,
			ReferenceID:    ptr(entry.ID),
			IsProportional: entry.IsProportional,
			IsTaxable:      entry.IsTaxable,
		})
	}

	for _, entry := range c.Items {
		if entry.Type != contract.EntryDebit || !entry.AppliesTo(in.PeriodEnd) {
			continue
		}
		add(payroll.PayrollItem{
			Description:    entry.Description,
			Type:           payroll.ItemDebit,
			Category:       payroll.CategoryDiscount,
			Amount:         money.ToMinorUnits(entry.Amount),
			SourceType:     payroll.SourceContractDiscount,
			ReferenceID:    ptr(entry.ID),
			IsProportional: entry.IsProportional,
			IsTaxable:      entry.IsTaxable,
		})
	}

	for _, inst := range in.Installments {
		add(payroll.PayrollItem{
			Description:       LoanInstallmentDescription(inst.Loan.ID, inst.Number, inst.Loan.Installments),
			Type:              payroll.ItemDebit,
			Category:          payroll.CategoryLoan,
			Amount:            inst.Amount,
			SourceType:        payroll.SourceLoan,
			ReferenceID:       ptr(inst.Loan.ID),
			InstallmentNumber: ptr(inst.Number),
			InstallmentTotal:  ptr(inst.Loan.Installments),
		})
	}

	if in.Vacation != nil {
		add(payroll.PayrollItem{
			Description: fmt.Sprintf("Vacation pay %s to %s", in.Vacation.Start.Format("2006-01-02"), in.Vacation.End.Format("2006-01-02")),
			Type:        payroll.ItemCredit,
			Category:    payroll.CategoryBenefit,
			Amount:      in.Vacation.Amount,
			SourceType:  payroll.SourceVacation,
			ReferenceID: ptr(c.ID),
			IsTaxable:   true,
		})
	}

	if in.Thirteenth != nil {
		add(payroll.PayrollItem{
			Description: fmt.Sprintf("Thirteenth salary (%s%%)", in.Thirteenth.Percentage.String()),
			Type:        payroll.ItemCredit,
			Category:    payroll.CategoryBenefit,
			Amount:      money.Percent(salary, in.Thirteenth.Percentage),
			SourceType:  payroll.SourceThirteenthSalary,
			ReferenceID: ptr(c.ID),
			IsTaxable:   true,
		})
	}

	return items, nil
}

func LoanInstallmentDescription(loanID string, n, total int) string {
	return fmt.Sprintf("Loan #%s — Installment %d/%d", loanID, n, total)
}

func ptr[T any](v T) *T {
	return &v
}
