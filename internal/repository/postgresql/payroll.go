package postgresql

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/erp-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/erp-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/erp-backend-go/internal/pkg/money"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// ========== RUNS ==========

type payrollRunRepository struct {
	db *database.DB
}

func NewPayrollRunRepository(db *database.DB) payroll.PayrollRunRepository {
	return &payrollRunRepository{db: db}
}

const payrollRunColumns = `
	id, company_id, period_start, period_end, is_closed, closed_at,
	gross_pay, deductions, net_pay, inss_amount, fgts_amount,
	thirteenth_percentage, thirteenth_tax_option, notes, created_at, updated_at
`

func scanPayrollRun(row pgx.Row) (payroll.PayrollRun, error) {
	var (
		run                                payroll.PayrollRun
		gross, deductions, net, inss, fgts decimal.Decimal
		thirteenthPct                      decimal.NullDecimal
		thirteenthOption                   *string
	)
	err := row.Scan(
		&run.ID, &run.CompanyID, &run.PeriodStart, &run.PeriodEnd, &run.IsClosed, &run.ClosedAt,
		&gross, &deductions, &net, &inss, &fgts,
		&thirteenthPct, &thirteenthOption, &run.Notes, &run.CreatedAt, &run.UpdatedAt,
	)
	if err != nil {
		return payroll.PayrollRun{}, err
	}

	run.Totals = payroll.Totals{
		GrossPay:   money.ToMinorUnits(gross),
		Deductions: money.ToMinorUnits(deductions),
		NetPay:     money.ToMinorUnits(net),
	}
	run.InssAmount = money.ToMinorUnits(inss)
	run.FgtsAmount = money.ToMinorUnits(fgts)
	if thirteenthPct.Valid {
		pct := thirteenthPct.Decimal
		run.ThirteenthPercentage = &pct
	}
	if thirteenthOption != nil {
		option := payroll.ThirteenthTaxOption(*thirteenthOption)
		run.ThirteenthTaxOption = &option
	}
	return run, nil
}

// LockCompany takes a transaction-scoped advisory lock keyed by the company.
func (r *payrollRunRepository) LockCompany(ctx context.Context, companyID string) error {
	q := GetQuerier(ctx, r.db)

	if _, err := q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, "payroll:"+companyID); err != nil {
		return fmt.Errorf("failed to lock company payrolls: %w", err)
	}
	return nil
}

func (r *payrollRunRepository) Create(ctx context.Context, run payroll.PayrollRun) (payroll.PayrollRun, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO payroll_runs (company_id, period_start, period_end, notes)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + payrollRunColumns

	created, err := scanPayrollRun(q.QueryRow(ctx, query, run.CompanyID, run.PeriodStart, run.PeriodEnd, run.Notes))
	if err != nil {
		if strings.Contains(err.Error(), "uk_payroll_runs_period") {
			return payroll.PayrollRun{}, payroll.ErrPayrollPeriodExists
		}
		if strings.Contains(err.Error(), "uk_payroll_runs_open") {
			return payroll.PayrollRun{}, payroll.ErrOpenPayrollExists
		}
		return payroll.PayrollRun{}, fmt.Errorf("failed to create payroll run: %w", err)
	}
	return created, nil
}

func (r *payrollRunRepository) getOne(ctx context.Context, query string, args ...interface{}) (payroll.PayrollRun, error) {
	q := GetQuerier(ctx, r.db)

	run, err := scanPayrollRun(q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.PayrollRun{}, payroll.ErrPayrollNotFound
		}
		return payroll.PayrollRun{}, fmt.Errorf("failed to get payroll run: %w", err)
	}
	return run, nil
}

func (r *payrollRunRepository) GetByID(ctx context.Context, companyID, id string) (payroll.PayrollRun, error) {
	query := `SELECT ` + payrollRunColumns + ` FROM payroll_runs WHERE id = $1 AND company_id = $2`
	return r.getOne(ctx, query, id, companyID)
}

func (r *payrollRunRepository) GetForUpdate(ctx context.Context, companyID, id string) (payroll.PayrollRun, error) {
	query := `SELECT ` + payrollRunColumns + ` FROM payroll_runs WHERE id = $1 AND company_id = $2 FOR UPDATE`
	return r.getOne(ctx, query, id, companyID)
}

func (r *payrollRunRepository) GetLatest(ctx context.Context, companyID string) (payroll.PayrollRun, error) {
	query := `SELECT ` + payrollRunColumns + ` FROM payroll_runs WHERE company_id = $1 ORDER BY created_at DESC LIMIT 1`
	return r.getOne(ctx, query, companyID)
}

func (r *payrollRunRepository) findOne(ctx context.Context, query string, args ...interface{}) (*payroll.PayrollRun, error) {
	run, err := r.getOne(ctx, query, args...)
	if err != nil {
		if errors.Is(err, payroll.ErrPayrollNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &run, nil
}

func (r *payrollRunRepository) FindByPeriod(ctx context.Context, companyID string, periodStart, periodEnd time.Time) (*payroll.PayrollRun, error) {
	query := `
		SELECT ` + payrollRunColumns + `
		FROM payroll_runs
		WHERE company_id = $1 AND period_start = $2 AND period_end = $3
	`
	return r.findOne(ctx, query, companyID, periodStart, periodEnd)
}

func (r *payrollRunRepository) FindOpen(ctx context.Context, companyID string) (*payroll.PayrollRun, error) {
	query := `SELECT ` + payrollRunColumns + ` FROM payroll_runs WHERE company_id = $1 AND is_closed = false LIMIT 1`
	return r.findOne(ctx, query, companyID)
}

func (r *payrollRunRepository) List(ctx context.Context, filter payroll.PayrollFilter) ([]payroll.PayrollRun, int64, error) {
	q := GetQuerier(ctx, r.db)

	baseWhere := "company_id = $1"
	args := []interface{}{filter.CompanyID}
	argIdx := 2

	if filter.IsClosed != nil {
		baseWhere += fmt.Sprintf(" AND is_closed = $%d", argIdx)
		args = append(args, *filter.IsClosed)
		argIdx++
	}
	if filter.Year != nil {
		baseWhere += fmt.Sprintf(" AND EXTRACT(YEAR FROM period_start) = $%d", argIdx)
		args = append(args, *filter.Year)
		argIdx++
	}

	var total int64
	if err := q.QueryRow(ctx, "SELECT COUNT(*) FROM payroll_runs WHERE "+baseWhere, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count payroll runs: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM payroll_runs
		WHERE %s
		ORDER BY period_start DESC, created_at DESC
		LIMIT $%d OFFSET $%d
	`, payrollRunColumns, baseWhere, argIdx, argIdx+1)
	args = append(args, filter.Limit, (filter.Page-1)*filter.Limit)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list payroll runs: %w", err)
	}
	defer rows.Close()

	var runs []payroll.PayrollRun
	for rows.Next() {
		run, err := scanPayrollRun(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan payroll run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate payroll runs: %w", err)
	}

	return runs, total, nil
}

func (r *payrollRunRepository) Update(ctx context.Context, run payroll.PayrollRun) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE payroll_runs SET
			is_closed = $2, closed_at = $3,
			gross_pay = $4, deductions = $5, net_pay = $6,
			inss_amount = $7, fgts_amount = $8,
			thirteenth_percentage = $9, thirteenth_tax_option = $10,
			notes = $11, updated_at = NOW()
		WHERE id = $1
	`

	var option *string
	if run.ThirteenthTaxOption != nil {
		s := string(*run.ThirteenthTaxOption)
		option = &s
	}
	var pct decimal.NullDecimal
	if run.ThirteenthPercentage != nil {
		pct = decimal.NewNullDecimal(*run.ThirteenthPercentage)
	}

	tag, err := q.Exec(ctx, query,
		run.ID, run.IsClosed, run.ClosedAt,
		money.FromMinorUnits(run.Totals.GrossPay), money.FromMinorUnits(run.Totals.Deductions), money.FromMinorUnits(run.Totals.NetPay),
		money.FromMinorUnits(run.InssAmount), money.FromMinorUnits(run.FgtsAmount),
		pct, option, run.Notes,
	)
	if err != nil {
		if strings.Contains(err.Error(), "uk_payroll_runs_open") {
			return payroll.ErrOpenPayrollExists
		}
		return fmt.Errorf("failed to update payroll run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return payroll.ErrPayrollNotFound
	}
	return nil
}

// Delete removes the run; employees and items follow through ON DELETE CASCADE.
func (r *payrollRunRepository) Delete(ctx context.Context, id string) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `DELETE FROM payroll_runs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete payroll run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return payroll.ErrPayrollNotFound
	}
	return nil
}

// ========== EMPLOYEES ==========

type payrollEmployeeRepository struct {
	db *database.DB
}

func NewPayrollEmployeeRepository(db *database.DB) payroll.PayrollEmployeeRepository {
	return &payrollEmployeeRepository{db: db}
}

const payrollEmployeeColumns = `
	id, payroll_id, employee_id, contract_id, employee_name, base_salary,
	on_vacation, vacation_start, vacation_end, vacation_amount,
	gross_pay, deductions, net_pay, created_at, updated_at
`

func scanPayrollEmployee(row pgx.Row) (payroll.PayrollEmployee, error) {
	var (
		e                      payroll.PayrollEmployee
		salary, vacation       decimal.Decimal
		gross, deductions, net decimal.Decimal
	)
	err := row.Scan(
		&e.ID, &e.PayrollID, &e.EmployeeID, &e.ContractID, &e.EmployeeName, &salary,
		&e.OnVacation, &e.VacationStart, &e.VacationEnd, &vacation,
		&gross, &deductions, &net, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return payroll.PayrollEmployee{}, err
	}

	e.BaseSalary = money.ToMinorUnits(salary)
	e.VacationAmount = money.ToMinorUnits(vacation)
	e.Totals = payroll.Totals{
		GrossPay:   money.ToMinorUnits(gross),
		Deductions: money.ToMinorUnits(deductions),
		NetPay:     money.ToMinorUnits(net),
	}
	return e, nil
}

func (r *payrollEmployeeRepository) Create(ctx context.Context, e payroll.PayrollEmployee) (payroll.PayrollEmployee, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO payroll_employees (
			payroll_id, employee_id, contract_id, employee_name, base_salary,
			on_vacation, vacation_start, vacation_end, vacation_amount
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + payrollEmployeeColumns

	created, err := scanPayrollEmployee(q.QueryRow(ctx, query,
		e.PayrollID, e.EmployeeID, e.ContractID, e.EmployeeName, money.FromMinorUnits(e.BaseSalary),
		e.OnVacation, e.VacationStart, e.VacationEnd, money.FromMinorUnits(e.VacationAmount),
	))
	if err != nil {
		return payroll.PayrollEmployee{}, fmt.Errorf("failed to create payroll employee: %w", err)
	}
	return created, nil
}

func (r *payrollEmployeeRepository) GetByID(ctx context.Context, id string) (payroll.PayrollEmployee, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + payrollEmployeeColumns + ` FROM payroll_employees WHERE id = $1`

	e, err := scanPayrollEmployee(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.PayrollEmployee{}, payroll.ErrPayrollEmployeeNotFound
		}
		return payroll.PayrollEmployee{}, fmt.Errorf("failed to get payroll employee: %w", err)
	}
	return e, nil
}

func (r *payrollEmployeeRepository) ListByRun(ctx context.Context, payrollID string) ([]payroll.PayrollEmployee, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + payrollEmployeeColumns + `
		FROM payroll_employees
		WHERE payroll_id = $1
		ORDER BY employee_name, id
	`

	rows, err := q.Query(ctx, query, payrollID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payroll employees: %w", err)
	}
	defer rows.Close()

	var employees []payroll.PayrollEmployee
	for rows.Next() {
		e, err := scanPayrollEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payroll employee: %w", err)
		}
		employees = append(employees, e)
	}
	return employees, rows.Err()
}

func (r *payrollEmployeeRepository) Update(ctx context.Context, e payroll.PayrollEmployee) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE payroll_employees SET
			employee_name = $2, base_salary = $3,
			on_vacation = $4, vacation_start = $5, vacation_end = $6, vacation_amount = $7,
			gross_pay = $8, deductions = $9, net_pay = $10,
			updated_at = NOW()
		WHERE id = $1
	`

	tag, err := q.Exec(ctx, query,
		e.ID, e.EmployeeName, money.FromMinorUnits(e.BaseSalary),
		e.OnVacation, e.VacationStart, e.VacationEnd, money.FromMinorUnits(e.VacationAmount),
		money.FromMinorUnits(e.Totals.GrossPay), money.FromMinorUnits(e.Totals.Deductions), money.FromMinorUnits(e.Totals.NetPay),
	)
	if err != nil {
		return fmt.Errorf("failed to update payroll employee: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return payroll.ErrPayrollEmployeeNotFound
	}
	return nil
}

func (r *payrollEmployeeRepository) Delete(ctx context.Context, id string) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `DELETE FROM payroll_employees WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete payroll employee: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return payroll.ErrPayrollEmployeeNotFound
	}
	return nil
}

// ========== ITEMS ==========

type payrollItemRepository struct {
	db *database.DB
}

func NewPayrollItemRepository(db *database.DB) payroll.PayrollItemRepository {
	return &payrollItemRepository{db: db}
}

const payrollItemColumns = `
	id, payroll_employee_id, description, type, category, amount, source_type,
	reference_id, installment_number, installment_total,
	is_manual, is_active, is_proportional, is_taxable, position, created_at, updated_at
`

func scanPayrollItem(row pgx.Row) (payroll.PayrollItem, error) {
	var (
		item                       payroll.PayrollItem
		itemType, category, source string
		amount                     decimal.Decimal
	)
	err := row.Scan(
		&item.ID, &item.PayrollEmployeeID, &item.Description, &itemType, &category, &amount, &source,
		&item.ReferenceID, &item.InstallmentNumber, &item.InstallmentTotal,
		&item.IsManual, &item.IsActive, &item.IsProportional, &item.IsTaxable, &item.Position, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return payroll.PayrollItem{}, err
	}

	item.Type = payroll.ItemType(itemType)
	item.Category = payroll.ItemCategory(category)
	item.SourceType = payroll.SourceType(source)
	item.Amount = money.ToMinorUnits(amount)
	return item, nil
}

// CreateItems queues one INSERT per item in a single batch round trip.
func (r *payrollItemRepository) CreateItems(ctx context.Context, items []payroll.PayrollItem) ([]payroll.PayrollItem, error) {
	if len(items) == 0 {
		return nil, nil
	}
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO payroll_items (
			payroll_employee_id, description, type, category, amount, source_type,
			reference_id, installment_number, installment_total,
			is_manual, is_active, is_proportional, is_taxable, position
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING ` + payrollItemColumns

	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(query,
			item.PayrollEmployeeID, item.Description, string(item.Type), string(item.Category),
			money.FromMinorUnits(item.Amount), string(item.SourceType),
			item.ReferenceID, item.InstallmentNumber, item.InstallmentTotal,
			item.IsManual, item.IsActive, item.IsProportional, item.IsTaxable, item.Position,
		)
	}

	results := q.SendBatch(ctx, batch)
	defer results.Close()

	created := make([]payroll.PayrollItem, 0, len(items))
	for range items {
		item, err := scanPayrollItem(results.QueryRow())
		if err != nil {
			return nil, fmt.Errorf("failed to insert payroll item: %w", err)
		}
		created = append(created, item)
	}
	return created, nil
}

func (r *payrollItemRepository) GetByID(ctx context.Context, id string) (payroll.PayrollItem, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + payrollItemColumns + ` FROM payroll_items WHERE id = $1`

	item, err := scanPayrollItem(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.PayrollItem{}, payroll.ErrPayrollItemNotFound
		}
		return payroll.PayrollItem{}, fmt.Errorf("failed to get payroll item: %w", err)
	}
	return item, nil
}

func (r *payrollItemRepository) Update(ctx context.Context, item payroll.PayrollItem) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE payroll_items SET
			description = $2, type = $3, amount = $4,
			is_active = $5, is_taxable = $6, position = $7,
			updated_at = NOW()
		WHERE id = $1
	`

	tag, err := q.Exec(ctx, query,
		item.ID, item.Description, string(item.Type), money.FromMinorUnits(item.Amount),
		item.IsActive, item.IsTaxable, item.Position,
	)
	if err != nil {
		return fmt.Errorf("failed to update payroll item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return payroll.ErrPayrollItemNotFound
	}
	return nil
}

func (r *payrollItemRepository) ListActiveByEmployee(ctx context.Context, payrollEmployeeID string) ([]payroll.PayrollItem, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + payrollItemColumns + `
		FROM payroll_items
		WHERE payroll_employee_id = $1 AND is_active = true
		ORDER BY position, id
	`

	rows, err := q.Query(ctx, query, payrollEmployeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payroll items: %w", err)
	}
	defer rows.Close()

	var items []payroll.PayrollItem
	for rows.Next() {
		item, err := scanPayrollItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payroll item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *payrollItemRepository) DeactivateByEmployee(ctx context.Context, payrollEmployeeID string, includeManual bool) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE payroll_items SET is_active = false, updated_at = NOW()
		WHERE payroll_employee_id = $1 AND is_active = true
	`
	if !includeManual {
		query += " AND is_manual = false"
	}

	if _, err := q.Exec(ctx, query, payrollEmployeeID); err != nil {
		return fmt.Errorf("failed to deactivate payroll items: %w", err)
	}
	return nil
}

func (r *payrollItemRepository) NextInstallmentNumber(ctx context.Context, loanID string) (int, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT COALESCE(MAX(installment_number), 0) + 1
		FROM payroll_items
		WHERE source_type = $1 AND reference_id = $2 AND is_active = true
	`

	var next int
	if err := q.QueryRow(ctx, query, string(payroll.SourceLoan), loanID).Scan(&next); err != nil {
		return 0, fmt.Errorf("failed to get next installment number: %w", err)
	}
	return next, nil
}
