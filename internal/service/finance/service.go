package finance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/erp-backend-go/internal/config"
	"github.com/cmlabs-hris/erp-backend-go/internal/domain/finance"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

type TransactionServiceImpl struct {
	repo   finance.TransactionRepository
	cfg    config.PayrollConfig
	clock  clockwork.Clock
	logger *slog.Logger
}

func NewTransactionService(repo finance.TransactionRepository, cfg config.PayrollConfig, clock clockwork.Clock, logger *slog.Logger) finance.TransactionService {
	return &TransactionServiceImpl{
		repo:   repo,
		cfg:    cfg,
		clock:  clock,
		logger: logger,
	}
}

// PostNetPayAndTaxTransactions books one transaction per non-zero amount of the
// run. Negative amounts are booked as receivables.
func (s *TransactionServiceImpl) PostNetPayAndTaxTransactions(ctx context.Context, posting finance.PayrollPosting) ([]finance.Transaction, error) {
	existing, err := s.repo.ListByPayroll(ctx, posting.PayrollID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payroll transactions: %w", err)
	}
	if len(existing) > 0 {
		return nil, finance.ErrTransactionsAlreadyPosted
	}

	batchID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate batch id: %w", err)
	}
	issuedAt := s.clock.Now()
	period := posting.PeriodEnd.Format("01/2006")

	candidates := []struct {
		kind   finance.Kind
		amount int64
		dueDay int
		label  string
	}{
		{finance.KindNetPay, posting.NetPay, s.cfg.NetPayDueDay, "Net pay"},
		{finance.KindINSS, posting.InssAmount, s.cfg.InssDueDay, "INSS"},
		{finance.KindFGTS, posting.FgtsAmount, s.cfg.FgtsDueDay, "FGTS"},
	}

	var txs []finance.Transaction
	for _, c := range candidates {
		if c.amount == 0 {
			continue
		}
		// Net pay goes negative when deductions exceed gross; the employee owes the difference.
		direction, amount, label := finance.DirectionPayable, c.amount, c.label
		if amount < 0 {
			direction, amount, label = finance.DirectionReceivable, -amount, c.label+" owed by employees"
		}
		id, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("failed to generate transaction id: %w", err)
		}
		txs = append(txs, finance.Transaction{
			ID:          id.String(),
			CompanyID:   posting.CompanyID,
			PayrollID:   posting.PayrollID,
			BatchID:     batchID.String(),
			Kind:        c.kind,
			Direction:   direction,
			Description: fmt.Sprintf("%s - payroll %s", label, period),
			Amount:      amount,
			DueDate:     DueDate(posting.PeriodEnd, c.dueDay),
			IssuedAt:    issuedAt,
		})
	}

	if len(txs) == 0 {
		return nil, nil
	}
	if err := s.repo.CreateBatch(ctx, txs); err != nil {
		return nil, fmt.Errorf("failed to create payroll transactions: %w", err)
	}

	s.logger.InfoContext(ctx, "payroll transactions posted",
		slog.String("payroll_id", posting.PayrollID),
		slog.String("batch_id", batchID.String()),
		slog.Int("count", len(txs)),
	)
	return txs, nil
}

// ReverseTransactions removes the transactions booked for the run. Settled
// transactions block the reversal.
func (s *TransactionServiceImpl) ReverseTransactions(ctx context.Context, payrollID string) error {
	existing, err := s.repo.ListByPayroll(ctx, payrollID)
	if err != nil {
		return fmt.Errorf("failed to list payroll transactions: %w", err)
	}
	for _, tx := range existing {
		if tx.IsSettled {
			return finance.ErrTransactionSettled
		}
	}

	deleted, err := s.repo.DeleteByPayroll(ctx, payrollID)
	if err != nil {
		return fmt.Errorf("failed to delete payroll transactions: %w", err)
	}

	s.logger.InfoContext(ctx, "payroll transactions reversed",
		slog.String("payroll_id", payrollID),
		slog.Int64("count", deleted),
	)
	return nil
}

// DueDate returns day dueDay of the month after periodEnd.
func DueDate(periodEnd time.Time, dueDay int) time.Time {
	firstOfNext := time.Date(periodEnd.Year(), periodEnd.Month()+1, 1, 0, 0, 0, 0, periodEnd.Location())
	return firstOfNext.AddDate(0, 0, dueDay-1)
}
