package payroll

import (
	"context"
	"time"
)

type PayrollRunRepository interface {
	// LockCompany serializes run creation for the company until the surrounding transaction ends.
	LockCompany(ctx context.Context, companyID string) error
	Create(ctx context.Context, run PayrollRun) (PayrollRun, error)
	GetByID(ctx context.Context, companyID, id string) (PayrollRun, error)
	// GetForUpdate loads the run and holds a row lock until the transaction ends.
	GetForUpdate(ctx context.Context, companyID, id string) (PayrollRun, error)
	FindByPeriod(ctx context.Context, companyID string, periodStart, periodEnd time.Time) (*PayrollRun, error)
	FindOpen(ctx context.Context, companyID string) (*PayrollRun, error)
	GetLatest(ctx context.Context, companyID string) (PayrollRun, error)
	List(ctx context.Context, filter PayrollFilter) ([]PayrollRun, int64, error)
	Update(ctx context.Context, run PayrollRun) error
	Delete(ctx context.Context, id string) error
}

type PayrollEmployeeRepository interface {
	Create(ctx context.Context, employee PayrollEmployee) (PayrollEmployee, error)
	GetByID(ctx context.Context, id string) (PayrollEmployee, error)
	ListByRun(ctx context.Context, payrollID string) ([]PayrollEmployee, error)
	Update(ctx context.Context, employee PayrollEmployee) error
	Delete(ctx context.Context, id string) error
}

type PayrollItemRepository interface {
	// CreateItems inserts the items in order and returns them with their generated ids.
	CreateItems(ctx context.Context, items []PayrollItem) ([]PayrollItem, error)
	GetByID(ctx context.Context, id string) (PayrollItem, error)
	Update(ctx context.Context, item PayrollItem) error
	ListActiveByEmployee(ctx context.Context, payrollEmployeeID string) ([]PayrollItem, error)
	// DeactivateByEmployee soft-deletes the active items of the slice; manual items only when includeManual.
	DeactivateByEmployee(ctx context.Context, payrollEmployeeID string, includeManual bool) error
	// NextInstallmentNumber is the highest installment number among active loan items of the loan, plus one.
	NextInstallmentNumber(ctx context.Context, loanID string) (int, error)
}
