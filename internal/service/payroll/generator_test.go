package payroll

import (
	"context"
	"testing"
	"time"

	"github.com/cmlabs-hris/erp-backend-go/internal/domain/contract"
	"github.com/cmlabs-hris/erp-backend-go/internal/domain/loan"
	"github.com/cmlabs-hris/erp-backend-go/internal/domain/payroll"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var december = time.Date(2025, time.December, 31, 0, 0, 0, 0, time.UTC)

func TestItemGenerator_Order(t *testing.T) {
	c := anaContract()
	// debit listed first must still come after every credit
	c.Items = append([]contract.Item{
		{ID: "discount-transport", Description: "Transport", Type: contract.EntryDebit, Rule: contract.RuleMonthly, Amount: decimal.NewFromInt(30)},
	}, c.Items...)

	l := anaLoan(1200, 3)
	items, err := ItemGenerator{}.Generate(GenerationInput{
		Contract:     c,
		PeriodEnd:    december,
		Installments: []DueInstallment{{Loan: l, Number: 2, Amount: 40000}},
		Vacation:     &VacationPay{Start: december.AddDate(0, 0, -10), End: december, Amount: 50000},
		Thirteenth:   &ThirteenthSalary{Percentage: decimal.NewFromInt(100), TaxOption: payroll.ThirteenthSecondInstallment},
	})
	require.NoError(t, err)

	var got []string
	for i, item := range items {
		assert.Equal(t, i+1, item.Position)
		assert.True(t, item.IsActive)
		assert.False(t, item.IsManual)
		got = append(got, item.Description)
	}
	assert.Equal(t, []string{
		"Salary",
		"Meal allowance",
		"Transport",
		"Health plan",
		"Loan #loan-1 — Installment 2/3",
		"Vacation pay 2025-12-21 to 2025-12-31",
		"Thirteenth salary (100%)",
	}, got)

	assert.Equal(t, payroll.SourceVacation, items[5].SourceType)
	assert.Equal(t, int64(50000), items[5].Amount)
	assert.Equal(t, payroll.SourceThirteenthSalary, items[6].SourceType)
	assert.Equal(t, int64(300000), items[6].Amount)
}

func TestItemGenerator_FixedMonthEntries(t *testing.T) {
	month := 12
	c := simpleContract("contract-a", "employee-ana", "Ana Souza", 3000)
	c.Items = []contract.Item{
		{ID: "holiday-bonus", Description: "Holiday bonus", Type: contract.EntryCredit, Rule: contract.RuleFixedMonth, FixedMonth: &month, Amount: decimal.NewFromInt(500)},
	}

	tests := []struct {
		name      string
		periodEnd time.Time
		wantItems int
	}{
		{"matching month", time.Date(2025, time.December, 31, 0, 0, 0, 0, time.UTC), 2},
		{"other month", time.Date(2025, time.November, 30, 0, 0, 0, 0, time.UTC), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := ItemGenerator{}.Generate(GenerationInput{Contract: c, PeriodEnd: tt.periodEnd})
			require.NoError(t, err)
			assert.Len(t, items, tt.wantItems)
		})
	}
}

func TestItemGenerator_InvalidContract(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*contract.Contract)
		wantErr error
	}{
		{
			name: "unknown entry type",
			mutate: func(c *contract.Contract) {
				c.Items = []contract.Item{{ID: "x", Type: "refund", Rule: contract.RuleMonthly, Amount: decimal.NewFromInt(1)}}
			},
			wantErr: contract.ErrInvalidEntryType,
		},
		{
			name: "fixed month without month",
			mutate: func(c *contract.Contract) {
				c.Items = []contract.Item{{ID: "x", Type: contract.EntryCredit, Rule: contract.RuleFixedMonth, Amount: decimal.NewFromInt(1)}}
			},
			wantErr: contract.ErrInvalidFixedMonth,
		},
		{
			name: "cost centers below one hundred",
			mutate: func(c *contract.Contract) {
				c.CostCenters = []contract.CostCenterAllocation{{CostCenterID: "cc", Percentage: decimal.RequireFromString("99.5")}}
			},
			wantErr: contract.ErrCostCenterDistribution,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := simpleContract("contract-a", "employee-ana", "Ana Souza", 3000)
			tt.mutate(&c)

			items, err := ItemGenerator{}.Generate(GenerationInput{Contract: c, PeriodEnd: december})
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, items)
		})
	}
}

func TestSumItems(t *testing.T) {
	items := []payroll.PayrollItem{
		{Type: payroll.ItemCredit, Amount: 300000, IsActive: true},
		{Type: payroll.ItemCredit, Amount: 20000, IsActive: true},
		{Type: payroll.ItemDebit, Amount: 5000, IsActive: true},
		{Type: payroll.ItemDebit, Amount: 40000, IsActive: true},
		{Type: payroll.ItemDebit, Amount: 99999, IsActive: false},
	}

	got := SumItems(items)
	assert.Equal(t, payroll.Totals{GrossPay: 320000, Deductions: 45000, NetPay: 275000}, got)
}

func TestSumItems_NegativeNet(t *testing.T) {
	got := SumItems([]payroll.PayrollItem{
		{Type: payroll.ItemCredit, Amount: 1000, IsActive: true},
		{Type: payroll.ItemDebit, Amount: 2500, IsActive: true},
	})
	assert.Equal(t, int64(-1500), got.NetPay)
}

func TestSumEmployees(t *testing.T) {
	got := SumEmployees([]payroll.PayrollEmployee{
		{Totals: payroll.Totals{GrossPay: 320000, Deductions: 45000, NetPay: 275000}},
		{Totals: payroll.Totals{GrossPay: 200000, Deductions: 0, NetPay: 200000}},
	})
	assert.Equal(t, payroll.Totals{GrossPay: 520000, Deductions: 45000, NetPay: 475000}, got)
}

func TestEligibilityFilter(t *testing.T) {
	store := newMemStore()
	add := func(c contract.Contract) {
		c.CompanyID = testCompanyID
		store.contracts[c.ID] = c
	}
	add(simpleContract("contract-2", "employee-ana", "Ana Souza", 1000))
	add(simpleContract("contract-1", "employee-ana", "Ana Souza", 1000))
	add(simpleContract("contract-3", "employee-bruno", "Bruno Lima", 1000))
	ended := simpleContract("contract-4", "employee-carla", "Carla Dias", 1000)
	ended.IsActive = false
	add(ended)
	other := simpleContract("contract-5", "employee-diego", "Diego Reis", 1000)
	other.CompanyID = "company-2"
	store.contracts[other.ID] = other

	got, err := NewEligibilityFilter(&fakeContractRepo{store}).EligibleContracts(context.Background(), testCompanyID)
	require.NoError(t, err)

	var ids []string
	for _, c := range got {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"contract-1", "contract-2", "contract-3"}, ids)
}

func TestLoanTracker_DueInstallments(t *testing.T) {
	store := newMemStore()
	jan := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	store.loans["loan-b"] = loan.LoanAdvance{ID: "loan-b", EmployeeID: "employee-ana", Amount: decimal.NewFromInt(300), Installments: 3, StartDate: jan, IsApproved: true}
	store.loans["loan-a"] = loan.LoanAdvance{ID: "loan-a", EmployeeID: "employee-ana", Amount: decimal.NewFromInt(100), Installments: 2, StartDate: jan, IsApproved: true}
	store.loans["loan-pending"] = loan.LoanAdvance{ID: "loan-pending", EmployeeID: "employee-ana", Amount: decimal.NewFromInt(100), Installments: 1, StartDate: jan}
	store.loans["loan-paid"] = loan.LoanAdvance{ID: "loan-paid", EmployeeID: "employee-ana", Amount: decimal.NewFromInt(100), Installments: 1, StartDate: jan, IsApproved: true, IsFullyPaid: true}
	store.loans["loan-future"] = loan.LoanAdvance{ID: "loan-future", EmployeeID: "employee-ana", Amount: decimal.NewFromInt(100), Installments: 1, StartDate: jan.AddDate(0, 2, 0), IsApproved: true}

	// loan-a already charged twice in earlier runs
	for n := 1; n <= 2; n++ {
		id := store.nextID("item")
		store.items[id] = payroll.PayrollItem{
			ID: id, SourceType: payroll.SourceLoan, ReferenceID: ptr("loan-a"), InstallmentNumber: ptr(n), IsActive: true,
		}
	}
	// a replaced item does not advance the schedule
	store.items["item-stale"] = payroll.PayrollItem{
		ID: "item-stale", SourceType: payroll.SourceLoan, ReferenceID: ptr("loan-b"), InstallmentNumber: ptr(1), IsActive: false,
	}

	tracker := NewLoanTracker(&fakeLoanRepo{store}, &fakeItemRepo{store}, true)
	periodEnd := time.Date(2025, time.January, 31, 0, 0, 0, 0, time.UTC)

	due, err := tracker.DueInstallments(context.Background(), "employee-ana", periodEnd, map[string]bool{}, nil)
	require.NoError(t, err)
	require.Len(t, due, 1, "loan-a is exhausted")
	assert.Equal(t, "loan-b", due[0].Loan.ID)
	assert.Equal(t, 1, due[0].Number)
	assert.Equal(t, int64(10000), due[0].Amount)

	due, err = tracker.DueInstallments(context.Background(), "employee-ana", periodEnd, map[string]bool{"loan-b": true}, nil)
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestLoanTracker_DueInstallmentsKeepsChargedNumbers(t *testing.T) {
	store := newMemStore()
	jan := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	store.loans["loan-a"] = loan.LoanAdvance{ID: "loan-a", EmployeeID: "employee-ana", Amount: decimal.NewFromInt(300), Installments: 3, StartDate: jan, IsApproved: true}
	store.loans["loan-settled"] = loan.LoanAdvance{ID: "loan-settled", EmployeeID: "employee-ana", Amount: decimal.NewFromInt(100), Installments: 2, StartDate: jan, IsApproved: true, IsFullyPaid: true}

	// later runs already charged installments 2 and 3 of loan-a
	for n := 2; n <= 3; n++ {
		id := store.nextID("item")
		store.items[id] = payroll.PayrollItem{
			ID: id, SourceType: payroll.SourceLoan, ReferenceID: ptr("loan-a"), InstallmentNumber: ptr(n), IsActive: true,
		}
	}

	tracker := NewLoanTracker(&fakeLoanRepo{store}, &fakeItemRepo{store}, true)
	periodEnd := time.Date(2025, time.January, 31, 0, 0, 0, 0, time.UTC)

	t.Run("without charged numbers the schedule is exhausted", func(t *testing.T) {
		due, err := tracker.DueInstallments(context.Background(), "employee-ana", periodEnd, map[string]bool{}, nil)
		require.NoError(t, err)
		assert.Empty(t, due)
	})

	t.Run("charged numbers are reused", func(t *testing.T) {
		charged := map[string]int{"loan-a": 1, "loan-settled": 2, "loan-missing": 1}
		due, err := tracker.DueInstallments(context.Background(), "employee-ana", periodEnd, map[string]bool{}, charged)
		require.NoError(t, err)
		require.Len(t, due, 2)
		assert.Equal(t, "loan-a", due[0].Loan.ID)
		assert.Equal(t, 1, due[0].Number)
		assert.Equal(t, int64(10000), due[0].Amount)
		assert.Equal(t, "loan-settled", due[1].Loan.ID)
		assert.Equal(t, 2, due[1].Number)
	})

	t.Run("skip wins over charged numbers", func(t *testing.T) {
		charged := map[string]int{"loan-a": 1, "loan-settled": 2}
		due, err := tracker.DueInstallments(context.Background(), "employee-ana", periodEnd, map[string]bool{"loan-a": true, "loan-settled": true}, charged)
		require.NoError(t, err)
		assert.Empty(t, due)
	})
}

func TestLoanTracker_PendingLoansOrder(t *testing.T) {
	store := newMemStore()
	store.loans["loan-late"] = loan.LoanAdvance{ID: "loan-late", EmployeeID: "e", Installments: 1, StartDate: time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC), IsApproved: true}
	store.loans["loan-early"] = loan.LoanAdvance{ID: "loan-early", EmployeeID: "e", Installments: 1, StartDate: time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC), IsApproved: true}

	tracker := NewLoanTracker(&fakeLoanRepo{store}, &fakeItemRepo{store}, true)
	got, err := tracker.PendingLoans(context.Background(), "e", time.Date(2025, time.March, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "loan-early", got[0].ID)
	assert.Equal(t, "loan-late", got[1].ID)
}
