package contract

import "context"

// ContractRepository reads contracts owned by the contracts module.
type ContractRepository interface {
	// EligiblePayrollContracts returns active, payroll-flagged contracts with their items and cost centers.
	EligiblePayrollContracts(ctx context.Context, companyID string) ([]Contract, error)
	GetByID(ctx context.Context, companyID, id string) (Contract, error)
}
