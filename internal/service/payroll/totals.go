package payroll

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/erp-backend-go/internal/domain/payroll"
)

// SumItems folds active items into totals: credits into gross pay, debits into deductions.
func SumItems(items []payroll.PayrollItem) payroll.Totals {
	var t payroll.Totals
	for _, item := range items {
		if !item.IsActive {
			continue
		}
		switch item.Type {
		case payroll.ItemCredit:
			t.GrossPay += item.Amount
		case payroll.ItemDebit:
			t.Deductions += item.Amount
		}
	}
	t.NetPay = t.GrossPay - t.Deductions
	return t
}

// SumEmployees folds employee totals into run totals.
func SumEmployees(employees []payroll.PayrollEmployee) payroll.Totals {
	var t payroll.Totals
	for _, e := range employees {
		t = t.Add(e.Totals)
	}
	return t
}

// TotalsAggregator keeps employee and run totals in line with the stored items.
// Employee totals must be refreshed before run totals.
type TotalsAggregator struct {
	runRepo      payroll.PayrollRunRepository
	employeeRepo payroll.PayrollEmployeeRepository
	itemRepo     payroll.PayrollItemRepository
}

func NewTotalsAggregator(runRepo payroll.PayrollRunRepository, employeeRepo payroll.PayrollEmployeeRepository, itemRepo payroll.PayrollItemRepository) *TotalsAggregator {
	return &TotalsAggregator{
		runRepo:      runRepo,
		employeeRepo: employeeRepo,
		itemRepo:     itemRepo,
	}
}

func (a *TotalsAggregator) RecalculateEmployeeTotals(ctx context.Context, payrollEmployeeID string) (payroll.PayrollEmployee, error) {
	employee, err := a.employeeRepo.GetByID(ctx, payrollEmployeeID)
	if err != nil {
		return payroll.PayrollEmployee{}, err
	}

	items, err := a.itemRepo.ListActiveByEmployee(ctx, payrollEmployeeID)
	if err != nil {
		return payroll.PayrollEmployee{}, fmt.Errorf("failed to list payroll items: %w", err)
	}

	employee.Totals = SumItems(items)
	if err := a.employeeRepo.Update(ctx, employee); err != nil {
		return payroll.PayrollEmployee{}, fmt.Errorf("failed to update payroll employee totals: %w", err)
	}
	return employee, nil
}

func (a *TotalsAggregator) RecalculatePayrollTotals(ctx context.Context, run payroll.PayrollRun) (payroll.PayrollRun, error) {
	employees, err := a.employeeRepo.ListByRun(ctx, run.ID)
	if err != nil {
		return payroll.PayrollRun{}, fmt.Errorf("failed to list payroll employees: %w", err)
	}

	run.Totals = SumEmployees(employees)
	if err := a.runRepo.Update(ctx, run); err != nil {
		return payroll.PayrollRun{}, fmt.Errorf("failed to update payroll totals: %w", err)
	}
	return run, nil
}
