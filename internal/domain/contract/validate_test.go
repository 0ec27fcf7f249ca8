package contract

import (
	"errors"
	"testing"
	"time"

	"github.com/cmlabs-hris/erp-backend-go/internal/pkg/apperror"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func allocations(pcts ...string) []CostCenterAllocation {
	var out []CostCenterAllocation
	for i, p := range pcts {
		out = append(out, CostCenterAllocation{
			CostCenterID: string(rune('a' + i)),
			Percentage:   decimal.RequireFromString(p),
		})
	}
	return out
}

func TestValidateCostCenters(t *testing.T) {
	tests := []struct {
		name    string
		input   []CostCenterAllocation
		wantErr bool
	}{
		{"empty distribution", nil, false},
		{"exact hundred", allocations("70", "30"), false},
		{"within tolerance", allocations("50", "50.004"), false},
		{"ninety nine and a half", allocations("49.5", "50"), true},
		{"over tolerance", allocations("100.02"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCostCenters(tt.input)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrCostCenterDistribution))
				assert.True(t, apperror.IsValidation(err))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestContractValidate(t *testing.T) {
	month := 13
	c := Contract{
		ID:    "c1",
		Items: []Item{{ID: "i1", Type: EntryCredit, Rule: RuleFixedMonth, FixedMonth: &month}},
	}
	assert.ErrorIs(t, c.Validate(), ErrInvalidFixedMonth)

	c.Items = []Item{{ID: "i1", Type: "bonus", Rule: RuleMonthly}}
	assert.ErrorIs(t, c.Validate(), ErrInvalidEntryType)

	c.Items = []Item{{ID: "i1", Type: EntryDebit, Rule: RuleMonthly}}
	c.CostCenters = allocations("99.5")
	assert.ErrorIs(t, c.Validate(), ErrCostCenterDistribution)

	c.CostCenters = allocations("100.004")
	assert.NoError(t, c.Validate())
}

func TestItemAppliesTo(t *testing.T) {
	december := 12
	periodEnd := time.Date(2025, time.December, 31, 0, 0, 0, 0, time.UTC)

	assert.True(t, Item{Rule: RuleMonthly}.AppliesTo(periodEnd))
	assert.True(t, Item{Rule: RuleFixedMonth, FixedMonth: &december}.AppliesTo(periodEnd))
	assert.False(t, Item{Rule: RuleFixedMonth, FixedMonth: &december}.AppliesTo(time.Date(2025, time.November, 30, 0, 0, 0, 0, time.UTC)))
	assert.False(t, Item{Rule: RuleFixedMonth}.AppliesTo(periodEnd))
}
