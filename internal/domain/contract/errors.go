package contract

import "github.com/cmlabs-hris/erp-backend-go/internal/pkg/apperror"

var (
	ErrContractNotFound       = apperror.NotFound("contract not found")
	ErrCostCenterDistribution = apperror.Validation("cost center percentages must sum to 100")
	ErrInvalidEntryType       = apperror.Validation("contract item type must be credit or debit")
	ErrInvalidFixedMonth      = apperror.Validation("fixed month must be between 1 and 12")
)
