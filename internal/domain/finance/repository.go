package finance

import "context"

type TransactionRepository interface {
	CreateBatch(ctx context.Context, txs []Transaction) error
	ListByPayroll(ctx context.Context, payrollID string) ([]Transaction, error)
	DeleteByPayroll(ctx context.Context, payrollID string) (int64, error)
}
