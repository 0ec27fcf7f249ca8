package loan

import (
	"context"
	"time"

	"github.com/cmlabs-hris/erp-backend-go/internal/pkg/apperror"
)

var ErrLoanNotFound = apperror.NotFound("loan not found")

// LoanRepository reads loans owned by the loans module.
type LoanRepository interface {
	// PendingLoans returns approved, not fully paid loans of the employee that
	// started on or before referenceDate, oldest first.
	PendingLoans(ctx context.Context, employeeID string, referenceDate time.Time) ([]LoanAdvance, error)
	GetByID(ctx context.Context, id string) (LoanAdvance, error)
}
