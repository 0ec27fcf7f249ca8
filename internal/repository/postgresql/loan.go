package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/erp-backend-go/internal/domain/loan"
	"github.com/cmlabs-hris/erp-backend-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type loanRepository struct {
	db *database.DB
}

func NewLoanRepository(db *database.DB) loan.LoanRepository {
	return &loanRepository{db: db}
}

const loanColumns = `
	id, company_id, employee_id, amount, installments, start_date,
	is_approved, is_fully_paid, created_at
`

func scanLoan(row pgx.Row) (loan.LoanAdvance, error) {
	var l loan.LoanAdvance
	err := row.Scan(
		&l.ID, &l.CompanyID, &l.EmployeeID, &l.Amount, &l.Installments, &l.StartDate,
		&l.IsApproved, &l.IsFullyPaid, &l.CreatedAt,
	)
	return l, err
}

func (r *loanRepository) PendingLoans(ctx context.Context, employeeID string, referenceDate time.Time) ([]loan.LoanAdvance, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + loanColumns + `
		FROM loan_advances
		WHERE employee_id = $1
		  AND is_approved = true
		  AND is_fully_paid = false
		  AND start_date <= $2
		ORDER BY start_date, id
	`

	rows, err := q.Query(ctx, query, employeeID, referenceDate)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending loans: %w", err)
	}
	defer rows.Close()

	var loans []loan.LoanAdvance
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan loan: %w", err)
		}
		loans = append(loans, l)
	}
	return loans, rows.Err()
}

func (r *loanRepository) GetByID(ctx context.Context, id string) (loan.LoanAdvance, error) {
	q := GetQuerier(ctx, r.db)

	l, err := scanLoan(q.QueryRow(ctx, `SELECT `+loanColumns+` FROM loan_advances WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return loan.LoanAdvance{}, loan.ErrLoanNotFound
		}
		return loan.LoanAdvance{}, fmt.Errorf("failed to get loan: %w", err)
	}
	return l, nil
}
