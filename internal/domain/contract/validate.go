package contract

import (
	"fmt"

	"github.com/cmlabs-hris/erp-backend-go/internal/pkg/apperror"
	"github.com/cmlabs-hris/erp-backend-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// ValidateCostCenters checks that a non-empty distribution totals 100 within tolerance.
func ValidateCostCenters(allocations []CostCenterAllocation) error {
	if len(allocations) == 0 {
		return nil
	}
	percentages := make([]decimal.Decimal, 0, len(allocations))
	for _, a := range allocations {
		percentages = append(percentages, a.Percentage)
	}
	total, ok := validator.SumsToHundred(percentages)
	if !ok {
		return apperror.Wrap(ErrCostCenterDistribution, fmt.Errorf("got %s", total.String()))
	}
	return nil
}

// Validate checks the parts of a contract that item generation relies on.
func (c Contract) Validate() error {
	for _, item := range c.Items {
		if !item.Type.IsValid() {
			return apperror.Wrap(ErrInvalidEntryType, fmt.Errorf("item %s has type %q", item.ID, item.Type))
		}
		if item.Rule == RuleFixedMonth && (item.FixedMonth == nil || !validator.IsValidMonth(*item.FixedMonth)) {
			return apperror.Wrap(ErrInvalidFixedMonth, fmt.Errorf("item %s", item.ID))
		}
	}
	if err := ValidateCostCenters(c.CostCenters); err != nil {
		return fmt.Errorf("contract %s: %w", c.ID, err)
	}
	return nil
}
