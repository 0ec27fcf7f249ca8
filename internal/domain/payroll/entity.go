package payroll

import (
	"time"

	"github.com/shopspring/decimal"
)

// ItemType is the direction of a payroll line.
type ItemType string

const (
	ItemCredit ItemType = "credit"
	ItemDebit  ItemType = "debit"
)

func (t ItemType) IsValid() bool {
	switch t {
	case ItemCredit, ItemDebit:
		return true
	}
	return false
}

type ItemCategory string

const (
	CategorySalary   ItemCategory = "salary"
	CategoryBenefit  ItemCategory = "benefit"
	CategoryDiscount ItemCategory = "discount"
	CategoryLoan     ItemCategory = "loan"
	CategoryManual   ItemCategory = "manual"
)

// SourceType tags the rule that produced an item.
type SourceType string

const (
	SourceContractBenefit  SourceType = "contract_benefit"
	SourceContractDiscount SourceType = "contract_discount"
	SourceLoan             SourceType = "loan"
	SourceManual           SourceType = "manual"
	SourceVacation         SourceType = "vacation"
	SourceThirteenthSalary SourceType = "thirteenth_salary"
)

type ThirteenthTaxOption string

const (
	ThirteenthFirstInstallment  ThirteenthTaxOption = "first_installment"
	ThirteenthSecondInstallment ThirteenthTaxOption = "second_installment"
)

func (o ThirteenthTaxOption) IsValid() bool {
	switch o {
	case ThirteenthFirstInstallment, ThirteenthSecondInstallment:
		return true
	}
	return false
}

// Totals are the three aggregated amounts kept at employee and run level, in minor units.
type Totals struct {
	GrossPay   int64
	Deductions int64
	NetPay     int64
}

// Add accumulates o into t.
func (t Totals) Add(o Totals) Totals {
	return Totals{
		GrossPay:   t.GrossPay + o.GrossPay,
		Deductions: t.Deductions + o.Deductions,
		NetPay:     t.NetPay + o.NetPay,
	}
}

// PayrollRun is one payroll of a company over [PeriodStart, PeriodEnd].
type PayrollRun struct {
	ID                   string
	CompanyID            string
	PeriodStart          time.Time
	PeriodEnd            time.Time
	IsClosed             bool
	ClosedAt             *time.Time
	Totals               Totals
	InssAmount           int64
	FgtsAmount           int64
	ThirteenthPercentage *decimal.Decimal
	ThirteenthTaxOption  *ThirteenthTaxOption
	Notes                *string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// PayrollEmployee is the slice of a run derived from one contract.
type PayrollEmployee struct {
	ID             string
	PayrollID      string
	EmployeeID     string
	ContractID     string
	EmployeeName   string
	BaseSalary     int64
	OnVacation     bool
	VacationStart  *time.Time
	VacationEnd    *time.Time
	VacationAmount int64
	Totals         Totals
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type PayrollItem struct {
	ID                string
	PayrollEmployeeID string
	Description       string
	Type              ItemType
	Category          ItemCategory
	Amount            int64
	SourceType        SourceType
	ReferenceID       *string
	InstallmentNumber *int
	InstallmentTotal  *int
	IsManual          bool
	IsActive          bool
	IsProportional    bool
	IsTaxable         bool
	Position          int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
