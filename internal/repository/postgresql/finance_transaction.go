package postgresql

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/erp-backend-go/internal/domain/finance"
	"github.com/cmlabs-hris/erp-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/erp-backend-go/internal/pkg/money"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type financeTransactionRepository struct {
	db *database.DB
}

func NewFinanceTransactionRepository(db *database.DB) finance.TransactionRepository {
	return &financeTransactionRepository{db: db}
}

var financeTransactionColumns = []string{
	"id", "company_id", "payroll_id", "batch_id", "kind", "direction",
	"description", "amount", "due_date", "is_settled", "issued_at",
}

// CreateBatch copies all transactions of one posting in a single COPY.
func (r *financeTransactionRepository) CreateBatch(ctx context.Context, txs []finance.Transaction) error {
	if len(txs) == 0 {
		return nil
	}
	q := GetQuerier(ctx, r.db)

	rows := make([][]interface{}, 0, len(txs))
	for _, t := range txs {
		rows = append(rows, []interface{}{
			t.ID, t.CompanyID, t.PayrollID, t.BatchID, string(t.Kind), string(t.Direction),
			t.Description, money.FromMinorUnits(t.Amount), t.DueDate, t.IsSettled, t.IssuedAt,
		})
	}

	n, err := q.CopyFrom(ctx, pgx.Identifier{"financial_transactions"}, financeTransactionColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("failed to insert financial transactions: %w", err)
	}
	if n != int64(len(txs)) {
		return fmt.Errorf("inserted %d of %d financial transactions", n, len(txs))
	}
	return nil
}

func (r *financeTransactionRepository) ListByPayroll(ctx context.Context, payrollID string) ([]finance.Transaction, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, company_id, payroll_id, batch_id, kind, direction,
			   description, amount, due_date, is_settled, issued_at
		FROM financial_transactions
		WHERE payroll_id = $1
		ORDER BY issued_at, id
	`

	rows, err := q.Query(ctx, query, payrollID)
	if err != nil {
		return nil, fmt.Errorf("failed to list financial transactions: %w", err)
	}
	defer rows.Close()

	var txs []finance.Transaction
	for rows.Next() {
		var t finance.Transaction
		var kind, direction string
		var amount decimal.Decimal
		if err := rows.Scan(
			&t.ID, &t.CompanyID, &t.PayrollID, &t.BatchID, &kind, &direction,
			&t.Description, &amount, &t.DueDate, &t.IsSettled, &t.IssuedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan financial transaction: %w", err)
		}
		t.Kind = finance.Kind(kind)
		t.Direction = finance.Direction(direction)
		t.Amount = money.ToMinorUnits(amount)
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

func (r *financeTransactionRepository) DeleteByPayroll(ctx context.Context, payrollID string) (int64, error) {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `DELETE FROM financial_transactions WHERE payroll_id = $1 AND is_settled = false`, payrollID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete financial transactions: %w", err)
	}
	return tag.RowsAffected(), nil
}
