package payroll

import "github.com/cmlabs-hris/erp-backend-go/internal/pkg/apperror"

var (
	ErrPayrollNotFound         = apperror.NotFound("payroll not found")
	ErrPayrollEmployeeNotFound = apperror.NotFound("payroll employee not found")
	ErrPayrollItemNotFound     = apperror.NotFound("payroll item not found")

	ErrPayrollPeriodExists = apperror.Validation("payroll already exists for this period")
	ErrInvalidPeriod       = apperror.Validation("invalid payroll period")

	ErrOpenPayrollExists      = apperror.BusinessRule("company already has an open payroll")
	ErrNoEligibleContracts    = apperror.BusinessRule("no eligible contracts for payroll")
	ErrPayrollClosed          = apperror.BusinessRule("payroll is closed, cannot modify")
	ErrPayrollNotClosed       = apperror.BusinessRule("payroll is not closed")
	ErrPayrollNotLatest       = apperror.BusinessRule("only the most recent payroll can be deleted")
	ErrGeneratedItemReadOnly  = apperror.BusinessRule("generated payroll items cannot be edited, recalculate instead")
	ErrVacationNotSet         = apperror.BusinessRule("employee is not on vacation in this payroll")
	ErrThirteenthSalaryNotSet = apperror.BusinessRule("payroll has no thirteenth salary applied")
	ErrContractNotEligible    = apperror.BusinessRule("contract is no longer eligible for payroll, recalculate the whole payroll")
)
