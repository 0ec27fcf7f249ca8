package payroll

import "context"

type PayrollService interface {
	// Runs
	CreatePayroll(ctx context.Context, req CreatePayrollRequest) (PayrollResponse, error)
	GetPayroll(ctx context.Context, id string) (PayrollResponse, error)
	ListPayrolls(ctx context.Context, filter PayrollFilter) (ListPayrollResponse, error)
	UpdatePayroll(ctx context.Context, req UpdatePayrollRequest) (PayrollResponse, error)
	DeletePayroll(ctx context.Context, id string) error

	// Lifecycle
	RecalculatePayroll(ctx context.Context, id string) (PayrollResponse, error)
	ClosePayroll(ctx context.Context, id string) (PayrollResponse, error)
	ReopenPayroll(ctx context.Context, id string) (PayrollResponse, error)

	// Thirteenth salary
	ApplyThirteenthSalary(ctx context.Context, req ThirteenthSalaryRequest) (PayrollResponse, error)
	ClearThirteenthSalary(ctx context.Context, payrollID string) (PayrollResponse, error)

	// Employees
	RecalculateEmployee(ctx context.Context, payrollEmployeeID string) (PayrollEmployeeResponse, error)
	SetVacation(ctx context.Context, req VacationRequest) (PayrollEmployeeResponse, error)
	ClearVacation(ctx context.Context, payrollEmployeeID string) (PayrollEmployeeResponse, error)
	Payslip(ctx context.Context, payrollEmployeeID string) ([]byte, error)

	// Manual items
	AddItem(ctx context.Context, req CreateItemRequest) (PayrollItemResponse, error)
	UpdateItem(ctx context.Context, req UpdateItemRequest) (PayrollItemResponse, error)
	RemoveItem(ctx context.Context, id string) error
}
