package payroll

import (
	"time"

	"github.com/cmlabs-hris/erp-backend-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// ========== PAYROLL RUN DTOs ==========

type CreatePayrollRequest struct {
	PeriodStart string  `json:"period_start"`
	PeriodEnd   string  `json:"period_end"`
	Notes       *string `json:"notes,omitempty"`
}

func (r *CreatePayrollRequest) Validate() error {
	var errs validator.ValidationErrors

	start, startOK := validator.IsValidDate(r.PeriodStart)
	if !startOK {
		errs = append(errs, validator.ValidationError{Field: "period_start", Message: "must be a date in YYYY-MM-DD format"})
	}
	end, endOK := validator.IsValidDate(r.PeriodEnd)
	if !endOK {
		errs = append(errs, validator.ValidationError{Field: "period_end", Message: "must be a date in YYYY-MM-DD format"})
	}
	if startOK && endOK && end.Before(start) {
		errs = append(errs, validator.ValidationError{Field: "period_end", Message: "must not be before period_start"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Period returns the parsed period. Call after Validate.
func (r *CreatePayrollRequest) Period() (time.Time, time.Time) {
	start, _ := validator.IsValidDate(r.PeriodStart)
	end, _ := validator.IsValidDate(r.PeriodEnd)
	return start, end
}

type UpdatePayrollRequest struct {
	ID         string
	Notes      *string          `json:"notes,omitempty"`
	InssAmount *decimal.Decimal `json:"inss_amount,omitempty"`
	FgtsAmount *decimal.Decimal `json:"fgts_amount,omitempty"`
}

func (r *UpdatePayrollRequest) Validate() error {
	var errs validator.ValidationErrors

	if r.InssAmount != nil && r.InssAmount.IsNegative() {
		errs = append(errs, validator.ValidationError{Field: "inss_amount", Message: "must be non-negative"})
	}
	if r.FgtsAmount != nil && r.FgtsAmount.IsNegative() {
		errs = append(errs, validator.ValidationError{Field: "fgts_amount", Message: "must be non-negative"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type ThirteenthSalaryRequest struct {
	PayrollID  string
	Percentage decimal.Decimal `json:"percentage"`
	TaxOption  string          `json:"tax_option"`
}

func (r *ThirteenthSalaryRequest) Validate() error {
	var errs validator.ValidationErrors

	if !validator.IsPercentage(r.Percentage) {
		errs = append(errs, validator.ValidationError{Field: "percentage", Message: "must be greater than 0 and at most 100"})
	}
	if !ThirteenthTaxOption(r.TaxOption).IsValid() {
		errs = append(errs, validator.ValidationError{Field: "tax_option", Message: "must be 'first_installment' or 'second_installment'"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type PayrollFilter struct {
	CompanyID string `json:"-"`
	IsClosed  *bool  `json:"is_closed,omitempty"`
	Year      *int   `json:"year,omitempty"`
	Page      int    `json:"page"`
	Limit     int    `json:"limit"`
}

type PayrollResponse struct {
	ID                   string                    `json:"id"`
	CompanyID            string                    `json:"company_id"`
	PeriodStart          string                    `json:"period_start"`
	PeriodEnd            string                    `json:"period_end"`
	IsClosed             bool                      `json:"is_closed"`
	ClosedAt             *string                   `json:"closed_at,omitempty"`
	GrossPay             decimal.Decimal           `json:"gross_pay"`
	Deductions           decimal.Decimal           `json:"deductions"`
	NetPay               decimal.Decimal           `json:"net_pay"`
	InssAmount           decimal.Decimal           `json:"inss_amount"`
	FgtsAmount           decimal.Decimal           `json:"fgts_amount"`
	ThirteenthPercentage *decimal.Decimal          `json:"thirteenth_percentage,omitempty"`
	ThirteenthTaxOption  *string                   `json:"thirteenth_tax_option,omitempty"`
	Notes                *string                   `json:"notes,omitempty"`
	Employees            []PayrollEmployeeResponse `json:"employees,omitempty"`
	CreatedAt            string                    `json:"created_at"`
	UpdatedAt            string                    `json:"updated_at"`
}

type ListPayrollResponse struct {
	Data       []PayrollResponse `json:"data"`
	TotalCount int64             `json:"total_count"`
	Page       int               `json:"page"`
	Limit      int               `json:"limit"`
}

// ========== PAYROLL EMPLOYEE DTOs ==========

type VacationRequest struct {
	PayrollEmployeeID string
	StartDate         string          `json:"start_date"`
	EndDate           string          `json:"end_date"`
	Amount            decimal.Decimal `json:"amount"`
}

func (r *VacationRequest) Validate() error {
	var errs validator.ValidationErrors

	start, startOK := validator.IsValidDate(r.StartDate)
	if !startOK {
		errs = append(errs, validator.ValidationError{Field: "start_date", Message: "must be a date in YYYY-MM-DD format"})
	}
	end, endOK := validator.IsValidDate(r.EndDate)
	if !endOK {
		errs = append(errs, validator.ValidationError{Field: "end_date", Message: "must be a date in YYYY-MM-DD format"})
	}
	if startOK && endOK && end.Before(start) {
		errs = append(errs, validator.ValidationError{Field: "end_date", Message: "must not be before start_date"})
	}
	if r.Amount.IsNegative() {
		errs = append(errs, validator.ValidationError{Field: "amount", Message: "must be non-negative"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type PayrollEmployeeResponse struct {
	ID             string                `json:"id"`
	PayrollID      string                `json:"payroll_id"`
	EmployeeID     string                `json:"employee_id"`
	EmployeeName   string                `json:"employee_name"`
	ContractID     string                `json:"contract_id"`
	BaseSalary     decimal.Decimal       `json:"base_salary"`
	OnVacation     bool                  `json:"on_vacation"`
	VacationStart  *string               `json:"vacation_start,omitempty"`
	VacationEnd    *string               `json:"vacation_end,omitempty"`
	VacationAmount decimal.Decimal       `json:"vacation_amount"`
	GrossPay       decimal.Decimal       `json:"gross_pay"`
	Deductions     decimal.Decimal       `json:"deductions"`
	NetPay         decimal.Decimal       `json:"net_pay"`
	Items          []PayrollItemResponse `json:"items"`
}

// ========== PAYROLL ITEM DTOs ==========

type CreateItemRequest struct {
	PayrollEmployeeID string
	Description       string          `json:"description"`
	Type              string          `json:"type"`
	Amount            decimal.Decimal `json:"amount"`
	IsTaxable         *bool           `json:"is_taxable,omitempty"`
}

func (r *CreateItemRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.Description) {
		errs = append(errs, validator.ValidationError{Field: "description", Message: "is required"})
	}
	if !ItemType(r.Type).IsValid() {
		errs = append(errs, validator.ValidationError{Field: "type", Message: "must be 'credit' or 'debit'"})
	}
	if !r.Amount.IsPositive() {
		errs = append(errs, validator.ValidationError{Field: "amount", Message: "must be greater than 0"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type UpdateItemRequest struct {
	ID          string
	Description *string          `json:"description,omitempty"`
	Type        *string          `json:"type,omitempty"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	IsTaxable   *bool            `json:"is_taxable,omitempty"`
}

func (r *UpdateItemRequest) Validate() error {
	var errs validator.ValidationErrors

	if r.Description != nil && validator.IsEmpty(*r.Description) {
		errs = append(errs, validator.ValidationError{Field: "description", Message: "must not be empty"})
	}
	if r.Type != nil && !ItemType(*r.Type).IsValid() {
		errs = append(errs, validator.ValidationError{Field: "type", Message: "must be 'credit' or 'debit'"})
	}
	if r.Amount != nil && !r.Amount.IsPositive() {
		errs = append(errs, validator.ValidationError{Field: "amount", Message: "must be greater than 0"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type PayrollItemResponse struct {
	ID                string          `json:"id"`
	Description       string          `json:"description"`
	Type              string          `json:"type"`
	Category          string          `json:"category"`
	Amount            decimal.Decimal `json:"amount"`
	SourceType        string          `json:"source_type"`
	ReferenceID       *string         `json:"reference_id,omitempty"`
	InstallmentNumber *int            `json:"installment_number,omitempty"`
	InstallmentTotal  *int            `json:"installment_total,omitempty"`
	IsManual          bool            `json:"is_manual"`
	IsProportional    bool            `json:"is_proportional"`
	IsTaxable         bool            `json:"is_taxable"`
}
