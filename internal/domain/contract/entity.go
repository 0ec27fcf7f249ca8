package contract

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryType is the direction of a contract sub-entry.
type EntryType string

const (
	EntryCredit EntryType = "credit"
	EntryDebit  EntryType = "debit"
)

func (t EntryType) IsValid() bool {
	switch t {
	case EntryCredit, EntryDebit:
		return true
	}
	return false
}

// ApplicationRule decides in which periods a sub-entry is charged.
type ApplicationRule string

const (
	RuleMonthly    ApplicationRule = "monthly"
	RuleFixedMonth ApplicationRule = "fixed_month"
)

type Contract struct {
	ID           string
	CompanyID    string
	EmployeeID   string
	EmployeeName string
	Type         string
	Value        decimal.Decimal
	StartDate    time.Time
	EndDate      *time.Time
	IsActive     bool
	IsPayroll    bool
	Items        []Item
	CostCenters  []CostCenterAllocation
}

// Item is a recurring benefit (credit) or discount (debit) attached to a contract.
type Item struct {
	ID             string
	ContractID     string
	Description    string
	Type           EntryType
	Rule           ApplicationRule
	Amount         decimal.Decimal
	FixedMonth     *int
	IsProportional bool
	IsTaxable      bool
	Position       int
}

// AppliesTo reports whether the entry is charged in the period ending at periodEnd.
func (i Item) AppliesTo(periodEnd time.Time) bool {
	switch i.Rule {
	case RuleFixedMonth:
		return i.FixedMonth != nil && *i.FixedMonth == int(periodEnd.Month())
	default:
		return true
	}
}

type CostCenterAllocation struct {
	CostCenterID string
	Name         string
	Percentage   decimal.Decimal
}

// IsEligible reports whether the contract participates in payroll runs.
func (c Contract) IsEligible() bool {
	return c.IsActive && c.IsPayroll
}
