package payroll

import (
	"context"
	"fmt"
	"sort"

	"github.com/cmlabs-hris/erp-backend-go/internal/domain/contract"
)

// EligibilityFilter selects the contracts that take part in a payroll run.
type EligibilityFilter struct {
	contractRepo contract.ContractRepository
}

func NewEligibilityFilter(contractRepo contract.ContractRepository) *EligibilityFilter {
	return &EligibilityFilter{contractRepo: contractRepo}
}

// EligibleContracts returns the active, payroll-flagged contracts of the
// company ordered by employee name, then contract id.
func (f *EligibilityFilter) EligibleContracts(ctx context.Context, companyID string) ([]contract.Contract, error) {
	contracts, err := f.contractRepo.EligiblePayrollContracts(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list eligible contracts: %w", err)
	}

	eligible := make([]contract.Contract, 0, len(contracts))
	for _, c := range contracts {
		if c.IsEligible() {
			eligible = append(eligible, c)
		}
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		if eligible[i].EmployeeName != eligible[j].EmployeeName {
			return eligible[i].EmployeeName < eligible[j].EmployeeName
		}
		return eligible[i].ID < eligible[j].ID
	})
	return eligible, nil
}
