package finance

import "github.com/cmlabs-hris/erp-backend-go/internal/pkg/apperror"

var (
	ErrTransactionsAlreadyPosted = apperror.BusinessRule("payroll transactions already posted")
	ErrTransactionSettled        = apperror.BusinessRule("payroll transactions already settled, cannot reverse")
)
