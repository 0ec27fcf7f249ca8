package finance

import "context"

// TransactionService books and reverses the accounting side of a payroll run.
type TransactionService interface {
	PostNetPayAndTaxTransactions(ctx context.Context, posting PayrollPosting) ([]Transaction, error)
	ReverseTransactions(ctx context.Context, payrollID string) error
}
