package payroll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/erp-backend-go/internal/config"
	"github.com/cmlabs-hris/erp-backend-go/internal/domain/contract"
	"github.com/cmlabs-hris/erp-backend-go/internal/domain/finance"
	"github.com/cmlabs-hris/erp-backend-go/internal/domain/loan"
	"github.com/cmlabs-hris/erp-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/erp-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/erp-backend-go/internal/pkg/money"
	"github.com/cmlabs-hris/erp-backend-go/internal/pkg/payslip"
	"github.com/go-chi/jwtauth/v5"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
)

type PayrollServiceImpl struct {
	db           database.Transactor
	runRepo      payroll.PayrollRunRepository
	employeeRepo payroll.PayrollEmployeeRepository
	itemRepo     payroll.PayrollItemRepository
	contractRepo contract.ContractRepository
	financeSvc   finance.TransactionService
	eligibility  *EligibilityFilter
	loans        *LoanTracker
	generator    ItemGenerator
	totals       *TotalsAggregator
	cfg          config.PayrollConfig
	clock        clockwork.Clock
	logger       *slog.Logger
}

func NewPayrollService(
	db database.Transactor,
	runRepo payroll.PayrollRunRepository,
	employeeRepo payroll.PayrollEmployeeRepository,
	itemRepo payroll.PayrollItemRepository,
	contractRepo contract.ContractRepository,
	loanRepo loan.LoanRepository,
	financeSvc finance.TransactionService,
	cfg config.PayrollConfig,
	clock clockwork.Clock,
	logger *slog.Logger,
) payroll.PayrollService {
	return &PayrollServiceImpl{
		db:           db,
		runRepo:      runRepo,
		employeeRepo: employeeRepo,
		itemRepo:     itemRepo,
		contractRepo: contractRepo,
		financeSvc:   financeSvc,
		eligibility:  NewEligibilityFilter(contractRepo),
		loans:        NewLoanTracker(loanRepo, itemRepo, cfg.LoanRemainderPolicy == config.LoanRemainderLastInstallment),
		totals:       NewTotalsAggregator(runRepo, employeeRepo, itemRepo),
		cfg:          cfg,
		clock:        clock,
		logger:       logger,
	}
}

func getClaimsFromContext(ctx context.Context) (companyID, userID string, err error) {
	_, claims, err := jwtauth.FromContext(ctx)
	if err != nil {
		return "", "", fmt.Errorf("failed to extract claims from context: %w", err)
	}

	companyID, ok := claims["company_id"].(string)
	if !ok || companyID == "" {
		return "", "", fmt.Errorf("company_id claim is missing or invalid")
	}

	userID, _ = claims["user_id"].(string)

	return companyID, userID, nil
}

// ========== RUNS ==========

func (s *PayrollServiceImpl) CreatePayroll(ctx context.Context, req payroll.CreatePayrollRequest) (payroll.PayrollResponse, error) {
	companyID, userID, err := getClaimsFromContext(ctx)
	if err != nil {
		return payroll.PayrollResponse{}, err
	}
	if err := req.Validate(); err != nil {
		return payroll.PayrollResponse{}, err
	}
	periodStart, periodEnd := req.Period()

	var run payroll.PayrollRun
	var employeeCount int
	err = s.db.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.runRepo.LockCompany(ctx, companyID); err != nil {
			return err
		}

		existing, err := s.runRepo.FindByPeriod(ctx, companyID, periodStart, periodEnd)
		if err != nil {
			return err
		}
		if existing != nil {
			return payroll.ErrPayrollPeriodExists
		}

		open, err := s.runRepo.FindOpen(ctx, companyID)
		if err != nil {
			return err
		}
		if open != nil {
			return payroll.ErrOpenPayrollExists
		}

		run, err = s.runRepo.Create(ctx, payroll.PayrollRun{
			CompanyID:   companyID,
			PeriodStart: periodStart,
			PeriodEnd:   periodEnd,
			Notes:       req.Notes,
		})
		if err != nil {
			return fmt.Errorf("failed to create payroll: %w", err)
		}

		contracts, err := s.eligibility.EligibleContracts(ctx, companyID)
		if err != nil {
			return err
		}
		if len(contracts) == 0 {
			return payroll.ErrNoEligibleContracts
		}
		employeeCount = len(contracts)

		if err := s.generateSlices(ctx, run, contracts, nil); err != nil {
			return err
		}

		run, err = s.totals.RecalculatePayrollTotals(ctx, run)
		return err
	})
	if err != nil {
		return payroll.PayrollResponse{}, err
	}

	s.logger.InfoContext(ctx, "payroll created",
		slog.String("payroll_id", run.ID),
		slog.String("company_id", companyID),
		slog.String("user_id", userID),
		slog.Int("employees", employeeCount),
		slog.Int64("net_pay", run.Totals.NetPay),
	)
	return s.GetPayroll(ctx, run.ID)
}

func (s *PayrollServiceImpl) GetPayroll(ctx context.Context, id string) (payroll.PayrollResponse, error) {
	companyID, _, err := getClaimsFromContext(ctx)
	if err != nil {
		return payroll.PayrollResponse{}, err
	}

	run, err := s.runRepo.GetByID(ctx, companyID, id)
	if err != nil {
		return payroll.PayrollResponse{}, err
	}

	employees, err := s.employeeRepo.ListByRun(ctx, run.ID)
	if err != nil {
		return payroll.PayrollResponse{}, fmt.Errorf("failed to list payroll employees: %w", err)
	}

	resp := mapToPayrollResponse(run)
	resp.Employees = make([]payroll.PayrollEmployeeResponse, 0, len(employees))
	for _, e := range employees {
		items, err := s.itemRepo.ListActiveByEmployee(ctx, e.ID)
		if err != nil {
			return payroll.PayrollResponse{}, fmt.Errorf("failed to list payroll items: %w", err)
		}
		resp.Employees = append(resp.Employees, mapToEmployeeResponse(e, items))
	}
	return resp, nil
}

func (s *PayrollServiceImpl) ListPayrolls(ctx context.Context, filter payroll.PayrollFilter) (payroll.ListPayrollResponse, error) {
	companyID, _, err := getClaimsFromContext(ctx)
	if err != nil {
		return payroll.ListPayrollResponse{}, err
	}
	filter.CompanyID = companyID
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 100 {
		filter.Limit = 20
	}

	runs, total, err := s.runRepo.List(ctx, filter)
	if err != nil {
		return payroll.ListPayrollResponse{}, fmt.Errorf("failed to list payrolls: %w", err)
	}

	data := make([]payroll.PayrollResponse, 0, len(runs))
	for _, run := range runs {
		data = append(data, mapToPayrollResponse(run))
	}
	return payroll.ListPayrollResponse{
		Data:       data,
		TotalCount: total,
		Page:       filter.Page,
		Limit:      filter.Limit,
	}, nil
}

func (s *PayrollServiceImpl) UpdatePayroll(ctx context.Context, req payroll.UpdatePayrollRequest) (payroll.PayrollResponse, error) {
	companyID, _, err := getClaimsFromContext(ctx)
	if err != nil {
		return payroll.PayrollResponse{}, err
	}
	if err := req.Validate(); err != nil {
		return payroll.PayrollResponse{}, err
	}

	var run payroll.PayrollRun
	err = s.db.WithinTx(ctx, func(ctx context.Context) error {
		run, err = s.openRunForUpdate(ctx, companyID, req.ID)
		if err != nil {
			return err
		}

		if req.Notes != nil {
			run.Notes = req.Notes
		}
		if req.InssAmount != nil {
			run.InssAmount = money.ToMinorUnits(*req.InssAmount)
		}
		if req.FgtsAmount != nil {
			run.FgtsAmount = money.ToMinorUnits(*req.FgtsAmount)
		}

		if err := s.runRepo.Update(ctx, run); err != nil {
			return fmt.Errorf("failed to update payroll: %w", err)
		}
		return nil
	})
	if err != nil {
		return payroll.PayrollResponse{}, err
	}
	return mapToPayrollResponse(run), nil
}

// DeletePayroll removes the most recent run of the company while it is open.
func (s *PayrollServiceImpl) DeletePayroll(ctx context.Context, id string) error {
	companyID, _, err := getClaimsFromContext(ctx)
	if err != nil {
		return err
	}

	err = s.db.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.runRepo.LockCompany(ctx, companyID); err != nil {
			return err
		}

		run, err := s.openRunForUpdate(ctx, companyID, id)
		if err != nil {
			return err
		}

		latest, err := s.runRepo.GetLatest(ctx, companyID)
		if err != nil {
			return err
		}
		if latest.ID != run.ID {
			return payroll.ErrPayrollNotLatest
		}

		return s.runRepo.Delete(ctx, run.ID)
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "payroll deleted", slog.String("payroll_id", id), slog.String("company_id", companyID))
	return nil
}

// ========== LIFECYCLE ==========

// RecalculatePayroll regenerates every slice of the run against the current
// eligible contracts. Slices whose contract left the eligible set are removed.
func (s *PayrollServiceImpl) RecalculatePayroll(ctx context.Context, id string) (payroll.PayrollResponse, error) {
	companyID, _, err := getClaimsFromContext(ctx)
	if err != nil {
		return payroll.PayrollResponse{}, err
	}

	var run payroll.PayrollRun
	err = s.db.WithinTx(ctx, func(ctx context.Context) error {
		run, err = s.openRunForUpdate(ctx, companyID, id)
		if err != nil {
			return err
		}

		contracts, err := s.eligibility.EligibleContracts(ctx, companyID)
		if err != nil {
			return err
		}
		if len(contracts) == 0 {
			return payroll.ErrNoEligibleContracts
		}

		employees, err := s.employeeRepo.ListByRun(ctx, run.ID)
		if err != nil {
			return fmt.Errorf("failed to list payroll employees: %w", err)
		}

		eligible := make(map[string]bool, len(contracts))
		for _, c := range contracts {
			eligible[c.ID] = true
		}
		existing := make(map[string]payroll.PayrollEmployee, len(employees))
		for _, e := range employees {
			if !eligible[e.ContractID] {
				if err := s.employeeRepo.Delete(ctx, e.ID); err != nil {
					return fmt.Errorf("failed to remove payroll employee: %w", err)
				}
				continue
			}
			existing[e.ContractID] = e
		}

		if err := s.generateSlices(ctx, run, contracts, existing); err != nil {
			return err
		}

		run, err = s.totals.RecalculatePayrollTotals(ctx, run)
		return err
	})
	if err != nil {
		return payroll.PayrollResponse{}, err
	}

	s.logger.InfoContext(ctx, "payroll recalculated",
		slog.String("payroll_id", run.ID),
		slog.Int64("gross_pay", run.Totals.GrossPay),
		slog.Int64("net_pay", run.Totals.NetPay),
	)
	return s.GetPayroll(ctx, run.ID)
}

// ClosePayroll freezes the run and books its net pay and tax transactions.
func (s *PayrollServiceImpl) ClosePayroll(ctx context.Context, id string) (payroll.PayrollResponse, error) {
	companyID, _, err := getClaimsFromContext(ctx)
	if err != nil {
		return payroll.PayrollResponse{}, err
	}

	var run payroll.PayrollRun
	err = s.db.WithinTx(ctx, func(ctx context.Context) error {
		run, err = s.openRunForUpdate(ctx, companyID, id)
		if err != nil {
			return err
		}

		if _, err := s.financeSvc.PostNetPayAndTaxTransactions(ctx, finance.PayrollPosting{
			PayrollID:   run.ID,
			CompanyID:   run.CompanyID,
			PeriodStart: run.PeriodStart,
			PeriodEnd:   run.PeriodEnd,
			NetPay:      run.Totals.NetPay,
			InssAmount:  run.InssAmount,
			FgtsAmount:  run.FgtsAmount,
		}); err != nil {
			return err
		}

		closedAt := s.clock.Now()
		run.IsClosed = true
		run.ClosedAt = &closedAt
		if err := s.runRepo.Update(ctx, run); err != nil {
			return fmt.Errorf("failed to close payroll: %w", err)
		}
		return nil
	})
	if err != nil {
		return payroll.PayrollResponse{}, err
	}

	s.logger.InfoContext(ctx, "payroll closed", slog.String("payroll_id", run.ID), slog.Int64("net_pay", run.Totals.NetPay))
	return mapToPayrollResponse(run), nil
}

// ReopenPayroll reverses the closing transactions and makes the run editable again.
func (s *PayrollServiceImpl) ReopenPayroll(ctx context.Context, id string) (payroll.PayrollResponse, error) {
	companyID, _, err := getClaimsFromContext(ctx)
	if err != nil {
		return payroll.PayrollResponse{}, err
	}

	var run payroll.PayrollRun
	err = s.db.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.runRepo.LockCompany(ctx, companyID); err != nil {
			return err
		}

		run, err = s.runRepo.GetForUpdate(ctx, companyID, id)
		if err != nil {
			return err
		}
		if !run.IsClosed {
			return payroll.ErrPayrollNotClosed
		}

		open, err := s.runRepo.FindOpen(ctx, companyID)
		if err != nil {
			return err
		}
		if open != nil {
			return payroll.ErrOpenPayrollExists
		}

		if err := s.financeSvc.ReverseTransactions(ctx, run.ID); err != nil {
			return err
		}

		run.IsClosed = false
		run.ClosedAt = nil
		if err := s.runRepo.Update(ctx, run); err != nil {
			return fmt.Errorf("failed to reopen payroll: %w", err)
		}
		return nil
	})
	if err != nil {
		return payroll.PayrollResponse{}, err
	}

	s.logger.InfoContext(ctx, "payroll reopened", slog.String("payroll_id", run.ID))
	return mapToPayrollResponse(run), nil
}

// ========== THIRTEENTH SALARY ==========

func (s *PayrollServiceImpl) ApplyThirteenthSalary(ctx context.Context, req payroll.ThirteenthSalaryRequest) (payroll.PayrollResponse, error) {
	companyID, _, err := getClaimsFromContext(ctx)
	if err != nil {
		return payroll.PayrollResponse{}, err
	}
	if err := req.Validate(); err != nil {
		return payroll.PayrollResponse{}, err
	}

	err = s.db.WithinTx(ctx, func(ctx context.Context) error {
		run, err := s.openRunForUpdate(ctx, companyID, req.PayrollID)
		if err != nil {
			return err
		}

		pct := req.Percentage
		option := payroll.ThirteenthTaxOption(req.TaxOption)
		run.ThirteenthPercentage = &pct
		run.ThirteenthTaxOption = &option
		if err := s.runRepo.Update(ctx, run); err != nil {
			return fmt.Errorf("failed to update payroll: %w", err)
		}

		return s.regenerateRun(ctx, run)
	})
	if err != nil {
		return payroll.PayrollResponse{}, err
	}
	return s.GetPayroll(ctx, req.PayrollID)
}

func (s *PayrollServiceImpl) ClearThirteenthSalary(ctx context.Context, payrollID string) (payroll.PayrollResponse, error) {
	companyID, _, err := getClaimsFromContext(ctx)
	if err != nil {
		return payroll.PayrollResponse{}, err
	}

	err = s.db.WithinTx(ctx, func(ctx context.Context) error {
		run, err := s.openRunForUpdate(ctx, companyID, payrollID)
		if err != nil {
			return err
		}
		if run.ThirteenthPercentage == nil {
			return payroll.ErrThirteenthSalaryNotSet
		}

		run.ThirteenthPercentage = nil
		run.ThirteenthTaxOption = nil
		if err := s.runRepo.Update(ctx, run); err != nil {
			return fmt.Errorf("failed to update payroll: %w", err)
		}

		return s.regenerateRun(ctx, run)
	})
	if err != nil {
		return payroll.PayrollResponse{}, err
	}
	return s.GetPayroll(ctx, payrollID)
}

// ========== EMPLOYEES ==========

func (s *PayrollServiceImpl) RecalculateEmployee(ctx context.Context, payrollEmployeeID string) (payroll.PayrollEmployeeResponse, error) {
	companyID, _, err := getClaimsFromContext(ctx)
	if err != nil {
		return payroll.PayrollEmployeeResponse{}, err
	}

	err = s.db.WithinTx(ctx, func(ctx context.Context) error {
		employee, run, err := s.employeeForUpdate(ctx, companyID, payrollEmployeeID)
		if err != nil {
			return err
		}

		c, err := s.contractRepo.GetByID(ctx, companyID, employee.ContractID)
		if err != nil {
			return err
		}
		if !c.IsEligible() {
			return payroll.ErrContractNotEligible
		}

		if err := s.regenerateEmployee(ctx, run, c, employee); err != nil {
			return err
		}

		_, err = s.totals.RecalculatePayrollTotals(ctx, run)
		return err
	})
	if err != nil {
		return payroll.PayrollEmployeeResponse{}, err
	}
	return s.employeeResponse(ctx, payrollEmployeeID)
}

func (s *PayrollServiceImpl) SetVacation(ctx context.Context, req payroll.VacationRequest) (payroll.PayrollEmployeeResponse, error) {
	companyID, _, err := getClaimsFromContext(ctx)
	if err != nil {
		return payroll.PayrollEmployeeResponse{}, err
	}
	if err := req.Validate(); err != nil {
		return payroll.PayrollEmployeeResponse{}, err
	}
	start, _ := time.Parse("2006-01-02", req.StartDate)
	end, _ := time.Parse("2006-01-02", req.EndDate)

	err = s.db.WithinTx(ctx, func(ctx context.Context) error {
		employee, run, err := s.employeeForUpdate(ctx, companyID, req.PayrollEmployeeID)
		if err != nil {
			return err
		}

		employee.OnVacation = true
		employee.VacationStart = &start
		employee.VacationEnd = &end
		employee.VacationAmount = money.ToMinorUnits(req.Amount)
		if err := s.employeeRepo.Update(ctx, employee); err != nil {
			return fmt.Errorf("failed to update payroll employee: %w", err)
		}

		return s.regenerateStoredEmployee(ctx, run, employee)
	})
	if err != nil {
		return payroll.PayrollEmployeeResponse{}, err
	}
	return s.employeeResponse(ctx, req.PayrollEmployeeID)
}

func (s *PayrollServiceImpl) ClearVacation(ctx context.Context, payrollEmployeeID string) (payroll.PayrollEmployeeResponse, error) {
	companyID, _, err := getClaimsFromContext(ctx)
	if err != nil {
		return payroll.PayrollEmployeeResponse{}, err
	}

	err = s.db.WithinTx(ctx, func(ctx context.Context) error {
		employee, run, err := s.employeeForUpdate(ctx, companyID, payrollEmployeeID)
		if err != nil {
			return err
		}
		if !employee.OnVacation {
			return payroll.ErrVacationNotSet
		}

		employee.OnVacation = false
		employee.VacationStart = nil
		employee.VacationEnd = nil
		employee.VacationAmount = 0
		if err := s.employeeRepo.Update(ctx, employee); err != nil {
			return fmt.Errorf("failed to update payroll employee: %w", err)
		}

		return s.regenerateStoredEmployee(ctx, run, employee)
	})
	if err != nil {
		return payroll.PayrollEmployeeResponse{}, err
	}
	return s.employeeResponse(ctx, payrollEmployeeID)
}

func (s *PayrollServiceImpl) Payslip(ctx context.Context, payrollEmployeeID string) ([]byte, error) {
	companyID, _, err := getClaimsFromContext(ctx)
	if err != nil {
		return nil, err
	}

	employee, err := s.employeeRepo.GetByID(ctx, payrollEmployeeID)
	if err != nil {
		return nil, err
	}
	run, err := s.runRepo.GetByID(ctx, companyID, employee.PayrollID)
	if err != nil {
		if errors.Is(err, payroll.ErrPayrollNotFound) {
			return nil, payroll.ErrPayrollEmployeeNotFound
		}
		return nil, err
	}
	items, err := s.itemRepo.ListActiveByEmployee(ctx, employee.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payroll items: %w", err)
	}

	slip := payslip.Payslip{
		CompanyID:    run.CompanyID,
		EmployeeName: employee.EmployeeName,
		EmployeeID:   employee.EmployeeID,
		PeriodStart:  run.PeriodStart,
		PeriodEnd:    run.PeriodEnd,
		Currency:     s.cfg.Currency,
		GrossPay:     employee.Totals.GrossPay,
		Deductions:   employee.Totals.Deductions,
		NetPay:       employee.Totals.NetPay,
	}
	for _, item := range items {
		slip.Lines = append(slip.Lines, payslip.Line{
			Description: item.Description,
			Credit:      item.Type == payroll.ItemCredit,
			Amount:      item.Amount,
		})
	}
	return payslip.Render(slip)
}

// ========== MANUAL ITEMS ==========

func (s *PayrollServiceImpl) AddItem(ctx context.Context, req payroll.CreateItemRequest) (payroll.PayrollItemResponse, error) {
	companyID, _, err := getClaimsFromContext(ctx)
	if err != nil {
		return payroll.PayrollItemResponse{}, err
	}
	if err := req.Validate(); err != nil {
		return payroll.PayrollItemResponse{}, err
	}

	var created payroll.PayrollItem
	err = s.db.WithinTx(ctx, func(ctx context.Context) error {
		employee, run, err := s.employeeForUpdate(ctx, companyID, req.PayrollEmployeeID)
		if err != nil {
			return err
		}

		active, err := s.itemRepo.ListActiveByEmployee(ctx, employee.ID)
		if err != nil {
			return fmt.Errorf("failed to list payroll items: %w", err)
		}
		position := 0
		for _, item := range active {
			position = max(position, item.Position)
		}

		isTaxable := false
		if req.IsTaxable != nil {
			isTaxable = *req.IsTaxable
		}
		items, err := s.itemRepo.CreateItems(ctx, []payroll.PayrollItem{{
			PayrollEmployeeID: employee.ID,
			Description:       req.Description,
			Type:              payroll.ItemType(req.Type),
			Category:          payroll.CategoryManual,
			Amount:            money.ToMinorUnits(req.Amount),
			SourceType:        payroll.SourceManual,
			IsManual:          true,
			IsActive:          true,
			IsTaxable:         isTaxable,
			Position:          position + 1,
		}})
		if err != nil {
			return fmt.Errorf("failed to create payroll item: %w", err)
		}
		created = items[0]

		return s.refreshTotals(ctx, run, employee.ID)
	})
	if err != nil {
		return payroll.PayrollItemResponse{}, err
	}
	return mapToItemResponse(created), nil
}

func (s *PayrollServiceImpl) UpdateItem(ctx context.Context, req payroll.UpdateItemRequest) (payroll.PayrollItemResponse, error) {
	companyID, _, err := getClaimsFromContext(ctx)
	if err != nil {
		return payroll.PayrollItemResponse{}, err
	}
	if err := req.Validate(); err != nil {
		return payroll.PayrollItemResponse{}, err
	}

	var item payroll.PayrollItem
	err = s.db.WithinTx(ctx, func(ctx context.Context) error {
		var run payroll.PayrollRun
		item, run, err = s.manualItemForUpdate(ctx, companyID, req.ID)
		if err != nil {
			return err
		}

		if req.Description != nil {
			item.Description = *req.Description
		}
		if req.Type != nil {
			item.Type = payroll.ItemType(*req.Type)
		}
		if req.Amount != nil {
			item.Amount = money.ToMinorUnits(*req.Amount)
		}
		if req.IsTaxable != nil {
			item.IsTaxable = *req.IsTaxable
		}
		if err := s.itemRepo.Update(ctx, item); err != nil {
			return fmt.Errorf("failed to update payroll item: %w", err)
		}

		return s.refreshTotals(ctx, run, item.PayrollEmployeeID)
	})
	if err != nil {
		return payroll.PayrollItemResponse{}, err
	}
	return mapToItemResponse(item), nil
}

// RemoveItem deactivates a manual item.
func (s *PayrollServiceImpl) RemoveItem(ctx context.Context, id string) error {
	companyID, _, err := getClaimsFromContext(ctx)
	if err != nil {
		return err
	}

	return s.db.WithinTx(ctx, func(ctx context.Context) error {
		item, run, err := s.manualItemForUpdate(ctx, companyID, id)
		if err != nil {
			return err
		}

		item.IsActive = false
		if err := s.itemRepo.Update(ctx, item); err != nil {
			return fmt.Errorf("failed to remove payroll item: %w", err)
		}

		return s.refreshTotals(ctx, run, item.PayrollEmployeeID)
	})
}

// ========== HELPERS ==========

// openRunForUpdate locks the run and rejects closed runs.
func (s *PayrollServiceImpl) openRunForUpdate(ctx context.Context, companyID, id string) (payroll.PayrollRun, error) {
	run, err := s.runRepo.GetForUpdate(ctx, companyID, id)
	if err != nil {
		return payroll.PayrollRun{}, err
	}
	if run.IsClosed {
		return payroll.PayrollRun{}, payroll.ErrPayrollClosed
	}
	return run, nil
}

// employeeForUpdate loads the slice and locks its open run. Slices of other
// companies are reported as not found.
func (s *PayrollServiceImpl) employeeForUpdate(ctx context.Context, companyID, payrollEmployeeID string) (payroll.PayrollEmployee, payroll.PayrollRun, error) {
	employee, err := s.employeeRepo.GetByID(ctx, payrollEmployeeID)
	if err != nil {
		return payroll.PayrollEmployee{}, payroll.PayrollRun{}, err
	}
	run, err := s.openRunForUpdate(ctx, companyID, employee.PayrollID)
	if err != nil {
		if errors.Is(err, payroll.ErrPayrollNotFound) {
			return payroll.PayrollEmployee{}, payroll.PayrollRun{}, payroll.ErrPayrollEmployeeNotFound
		}
		return payroll.PayrollEmployee{}, payroll.PayrollRun{}, err
	}
	return employee, run, nil
}

func (s *PayrollServiceImpl) manualItemForUpdate(ctx context.Context, companyID, itemID string) (payroll.PayrollItem, payroll.PayrollRun, error) {
	item, err := s.itemRepo.GetByID(ctx, itemID)
	if err != nil {
		return payroll.PayrollItem{}, payroll.PayrollRun{}, err
	}
	if !item.IsActive {
		return payroll.PayrollItem{}, payroll.PayrollRun{}, payroll.ErrPayrollItemNotFound
	}

	_, run, err := s.employeeForUpdate(ctx, companyID, item.PayrollEmployeeID)
	if err != nil {
		if errors.Is(err, payroll.ErrPayrollEmployeeNotFound) {
			return payroll.PayrollItem{}, payroll.PayrollRun{}, payroll.ErrPayrollItemNotFound
		}
		return payroll.PayrollItem{}, payroll.PayrollRun{}, err
	}
	if !item.IsManual {
		return payroll.PayrollItem{}, payroll.PayrollRun{}, payroll.ErrGeneratedItemReadOnly
	}
	return item, run, nil
}

// refreshTotals recomputes the employee and then the run totals.
func (s *PayrollServiceImpl) refreshTotals(ctx context.Context, run payroll.PayrollRun, payrollEmployeeID string) error {
	if _, err := s.totals.RecalculateEmployeeTotals(ctx, payrollEmployeeID); err != nil {
		return err
	}
	_, err := s.totals.RecalculatePayrollTotals(ctx, run)
	return err
}

// regenerateRun rebuilds every existing slice of the run from its stored contract.
func (s *PayrollServiceImpl) regenerateRun(ctx context.Context, run payroll.PayrollRun) error {
	employees, err := s.employeeRepo.ListByRun(ctx, run.ID)
	if err != nil {
		return fmt.Errorf("failed to list payroll employees: %w", err)
	}

	contracts := make([]contract.Contract, 0, len(employees))
	existing := make(map[string]payroll.PayrollEmployee, len(employees))
	for _, e := range employees {
		c, err := s.contractRepo.GetByID(ctx, run.CompanyID, e.ContractID)
		if err != nil {
			return err
		}
		contracts = append(contracts, c)
		existing[c.ID] = e
	}

	if err := s.generateSlices(ctx, run, contracts, existing); err != nil {
		return err
	}
	_, err = s.totals.RecalculatePayrollTotals(ctx, run)
	return err
}

func (s *PayrollServiceImpl) regenerateStoredEmployee(ctx context.Context, run payroll.PayrollRun, employee payroll.PayrollEmployee) error {
	c, err := s.contractRepo.GetByID(ctx, run.CompanyID, employee.ContractID)
	if err != nil {
		return err
	}
	if err := s.regenerateEmployee(ctx, run, c, employee); err != nil {
		return err
	}
	_, err = s.totals.RecalculatePayrollTotals(ctx, run)
	return err
}

// regenerateEmployee rebuilds one slice. Loans already charged by another
// slice of the same employee in this run are left out.
func (s *PayrollServiceImpl) regenerateEmployee(ctx context.Context, run payroll.PayrollRun, c contract.Contract, employee payroll.PayrollEmployee) error {
	siblings, err := s.employeeRepo.ListByRun(ctx, run.ID)
	if err != nil {
		return fmt.Errorf("failed to list payroll employees: %w", err)
	}

	skip := make(map[string]bool)
	for _, sibling := range siblings {
		if sibling.ID == employee.ID || sibling.EmployeeID != employee.EmployeeID {
			continue
		}
		items, err := s.itemRepo.ListActiveByEmployee(ctx, sibling.ID)
		if err != nil {
			return fmt.Errorf("failed to list payroll items: %w", err)
		}
		for _, item := range items {
			if item.SourceType == payroll.SourceLoan && item.ReferenceID != nil {
				skip[*item.ReferenceID] = true
			}
		}
	}

	return s.generate(ctx, run, []sliceJob{{contract: c, employee: &employee}}, skip)
}

// generateSlices builds or rebuilds the slice of every contract. existing maps
// contract id to the slice already stored for it.
func (s *PayrollServiceImpl) generateSlices(ctx context.Context, run payroll.PayrollRun, contracts []contract.Contract, existing map[string]payroll.PayrollEmployee) error {
	jobs := make([]sliceJob, 0, len(contracts))
	for _, c := range contracts {
		job := sliceJob{contract: c}
		if e, ok := existing[c.ID]; ok {
			job.employee = &e
		}
		jobs = append(jobs, job)
	}
	return s.generate(ctx, run, jobs, map[string]bool{})
}

type sliceJob struct {
	contract contract.Contract
	employee *payroll.PayrollEmployee
	input    GenerationInput
	items    []payroll.PayrollItem
}

// generate runs in three steps. Stale items are deactivated and due
// installments resolved inside the transaction, items are generated in
// parallel from those inputs, then slices, items and totals are written back
// in contract order.
func (s *PayrollServiceImpl) generate(ctx context.Context, run payroll.PayrollRun, jobs []sliceJob, skip map[string]bool) error {
	charged := make(map[string]int)
	for _, job := range jobs {
		if job.employee == nil {
			continue
		}
		if err := s.collectChargedInstallments(ctx, job.employee.ID, charged); err != nil {
			return err
		}
		if err := s.itemRepo.DeactivateByEmployee(ctx, job.employee.ID, !s.cfg.PreserveManualItems); err != nil {
			return fmt.Errorf("failed to deactivate payroll items: %w", err)
		}
	}

	var thirteenth *ThirteenthSalary
	if run.ThirteenthPercentage != nil {
		thirteenth = &ThirteenthSalary{Percentage: *run.ThirteenthPercentage}
		if run.ThirteenthTaxOption != nil {
			thirteenth.TaxOption = *run.ThirteenthTaxOption
		}
	}

	for i := range jobs {
		job := &jobs[i]
		installments, err := s.loans.DueInstallments(ctx, job.contract.EmployeeID, run.PeriodEnd, skip, charged)
		if err != nil {
			return err
		}
		for _, inst := range installments {
			skip[inst.Loan.ID] = true
		}

		job.input = GenerationInput{
			Contract:     job.contract,
			PeriodEnd:    run.PeriodEnd,
			Installments: installments,
			Thirteenth:   thirteenth,
		}
		if job.employee != nil && job.employee.OnVacation && job.employee.VacationStart != nil && job.employee.VacationEnd != nil {
			job.input.Vacation = &VacationPay{
				Start:  *job.employee.VacationStart,
				End:    *job.employee.VacationEnd,
				Amount: job.employee.VacationAmount,
			}
		}
	}

	var g errgroup.Group
	g.SetLimit(max(s.cfg.GenerationWorkers, 1))
	for i := range jobs {
		job := &jobs[i]
		g.Go(func() error {
			items, err := s.generator.Generate(job.input)
			if err != nil {
				return err
			}
			job.items = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i := range jobs {
		job := &jobs[i]
		employee, err := s.upsertEmployee(ctx, run, job)
		if err != nil {
			return err
		}

		for j := range job.items {
			job.items[j].PayrollEmployeeID = employee.ID
		}
		if err := s.placeAfterManualItems(ctx, employee.ID, job.items); err != nil {
			return err
		}
		if _, err := s.itemRepo.CreateItems(ctx, job.items); err != nil {
			return fmt.Errorf("failed to create payroll items: %w", err)
		}

		if _, err := s.totals.RecalculateEmployeeTotals(ctx, employee.ID); err != nil {
			return err
		}
	}
	return nil
}

// collectChargedInstallments records the loan installments a slice carries
// before its items are replaced.
func (s *PayrollServiceImpl) collectChargedInstallments(ctx context.Context, payrollEmployeeID string, charged map[string]int) error {
	items, err := s.itemRepo.ListActiveByEmployee(ctx, payrollEmployeeID)
	if err != nil {
		return fmt.Errorf("failed to list payroll items: %w", err)
	}
	for _, item := range items {
		if item.SourceType != payroll.SourceLoan || item.ReferenceID == nil || item.InstallmentNumber == nil {
			continue
		}
		charged[*item.ReferenceID] = *item.InstallmentNumber
	}
	return nil
}

func (s *PayrollServiceImpl) upsertEmployee(ctx context.Context, run payroll.PayrollRun, job *sliceJob) (payroll.PayrollEmployee, error) {
	salary := money.ToMinorUnits(job.contract.Value)
	if job.employee == nil {
		created, err := s.employeeRepo.Create(ctx, payroll.PayrollEmployee{
			PayrollID:    run.ID,
			EmployeeID:   job.contract.EmployeeID,
			ContractID:   job.contract.ID,
			EmployeeName: job.contract.EmployeeName,
			BaseSalary:   salary,
		})
		if err != nil {
			return payroll.PayrollEmployee{}, fmt.Errorf("failed to create payroll employee: %w", err)
		}
		return created, nil
	}

	employee := *job.employee
	employee.BaseSalary = salary
	employee.EmployeeName = job.contract.EmployeeName
	if err := s.employeeRepo.Update(ctx, employee); err != nil {
		return payroll.PayrollEmployee{}, fmt.Errorf("failed to update payroll employee: %w", err)
	}
	return employee, nil
}

// placeAfterManualItems moves the manual items that survived a regeneration
// behind the freshly generated ones.
func (s *PayrollServiceImpl) placeAfterManualItems(ctx context.Context, payrollEmployeeID string, items []payroll.PayrollItem) error {
	if !s.cfg.PreserveManualItems {
		return nil
	}
	manual, err := s.itemRepo.ListActiveByEmployee(ctx, payrollEmployeeID)
	if err != nil {
		return fmt.Errorf("failed to list payroll items: %w", err)
	}
	for i, item := range manual {
		item.Position = len(items) + i + 1
		if err := s.itemRepo.Update(ctx, item); err != nil {
			return fmt.Errorf("failed to reorder payroll item: %w", err)
		}
	}
	return nil
}

// ========== MAPPERS ==========

func formatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

func formatDatePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatDate(*t)
	return &s
}

func mapToPayrollResponse(run payroll.PayrollRun) payroll.PayrollResponse {
	resp := payroll.PayrollResponse{
		ID:                   run.ID,
		CompanyID:            run.CompanyID,
		PeriodStart:          formatDate(run.PeriodStart),
		PeriodEnd:            formatDate(run.PeriodEnd),
		IsClosed:             run.IsClosed,
		GrossPay:             money.FromMinorUnits(run.Totals.GrossPay),
		Deductions:           money.FromMinorUnits(run.Totals.Deductions),
		NetPay:               money.FromMinorUnits(run.Totals.NetPay),
		InssAmount:           money.FromMinorUnits(run.InssAmount),
		FgtsAmount:           money.FromMinorUnits(run.FgtsAmount),
		ThirteenthPercentage: run.ThirteenthPercentage,
		Notes:                run.Notes,
		CreatedAt:            run.CreatedAt.Format(time.RFC3339),
		UpdatedAt:            run.UpdatedAt.Format(time.RFC3339),
	}
	if run.ClosedAt != nil {
		closedAt := run.ClosedAt.Format(time.RFC3339)
		resp.ClosedAt = &closedAt
	}
	if run.ThirteenthTaxOption != nil {
		option := string(*run.ThirteenthTaxOption)
		resp.ThirteenthTaxOption = &option
	}
	return resp
}

func mapToEmployeeResponse(e payroll.PayrollEmployee, items []payroll.PayrollItem) payroll.PayrollEmployeeResponse {
	resp := payroll.PayrollEmployeeResponse{
		ID:             e.ID,
		PayrollID:      e.PayrollID,
		EmployeeID:     e.EmployeeID,
		EmployeeName:   e.EmployeeName,
		ContractID:     e.ContractID,
		BaseSalary:     money.FromMinorUnits(e.BaseSalary),
		OnVacation:     e.OnVacation,
		VacationStart:  formatDatePtr(e.VacationStart),
		VacationEnd:    formatDatePtr(e.VacationEnd),
		VacationAmount: money.FromMinorUnits(e.VacationAmount),
		GrossPay:       money.FromMinorUnits(e.Totals.GrossPay),
		Deductions:     money.FromMinorUnits(e.Totals.Deductions),
		NetPay:         money.FromMinorUnits(e.Totals.NetPay),
		Items:          make([]payroll.PayrollItemResponse, 0, len(items)),
	}
	for _, item := range items {
		resp.Items = append(resp.Items, mapToItemResponse(item))
	}
	return resp
}

func mapToItemResponse(item payroll.PayrollItem) payroll.PayrollItemResponse {
	return payroll.PayrollItemResponse{
		ID:                item.ID,
		Description:       item.Description,
		Type:              string(item.Type),
		Category:          string(item.Category),
		Amount:            money.FromMinorUnits(item.Amount),
		SourceType:        string(item.SourceType),
		ReferenceID:       item.ReferenceID,
		InstallmentNumber: item.InstallmentNumber,
		InstallmentTotal:  item.InstallmentTotal,
		IsManual:          item.IsManual,
		IsProportional:    item.IsProportional,
		IsTaxable:         item.IsTaxable,
	}
}

func (s *PayrollServiceImpl) employeeResponse(ctx context.Context, payrollEmployeeID string) (payroll.PayrollEmployeeResponse, error) {
	employee, err := s.employeeRepo.GetByID(ctx, payrollEmployeeID)
	if err != nil {
		return payroll.PayrollEmployeeResponse{}, err
	}
	items, err := s.itemRepo.ListActiveByEmployee(ctx, employee.ID)
	if err != nil {
		return payroll.PayrollEmployeeResponse{}, fmt.Errorf("failed to list payroll items: %w", err)
	}
	return mapToEmployeeResponse(employee, items), nil
}
