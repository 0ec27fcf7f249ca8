package payroll

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"sort"
	"testing"
	"time"

	"github.com/cmlabs-hris/erp-backend-go/internal/config"
	"github.com/cmlabs-hris/erp-backend-go/internal/domain/contract"
	"github.com/cmlabs-hris/erp-backend-go/internal/domain/finance"
	"github.com/cmlabs-hris/erp-backend-go/internal/domain/loan"
	"github.com/cmlabs-hris/erp-backend-go/internal/domain/payroll"
	"github.com/go-chi/jwtauth/v5"
	"github.com/jonboulle/clockwork"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// memStore backs every fake repository. The fake transactor snapshots it
// before a unit of work and restores it when the work fails.
type memStore struct {
	seq       int
	runs      map[string]payroll.PayrollRun
	employees map[string]payroll.PayrollEmployee
	items     map[string]payroll.PayrollItem
	contracts map[string]contract.Contract
	loans     map[string]loan.LoanAdvance
	locks     int
}

func newMemStore() *memStore {
	return &memStore{
		runs:      map[string]payroll.PayrollRun{},
		employees: map[string]payroll.PayrollEmployee{},
		items:     map[string]payroll.PayrollItem{},
		contracts: map[string]contract.Contract{},
		loans:     map[string]loan.LoanAdvance{},
	}
}

func (s *memStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%04d", prefix, s.seq)
}

func (s *memStore) snapshot() *memStore {
	return &memStore{
		seq:       s.seq,
		runs:      maps.Clone(s.runs),
		employees: maps.Clone(s.employees),
		items:     maps.Clone(s.items),
		contracts: maps.Clone(s.contracts),
		loans:     maps.Clone(s.loans),
		locks:     s.locks,
	}
}

func (s *memStore) restore(from *memStore) {
	*s = *from
}

type fakeTransactor struct {
	store *memStore
	calls int
}

func (f *fakeTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.calls++
	before := f.store.snapshot()
	if err := fn(ctx); err != nil {
		f.store.restore(before)
		return err
	}
	return nil
}

// ========== RUNS ==========

type fakeRunRepo struct{ s *memStore }

func (r *fakeRunRepo) LockCompany(ctx context.Context, companyID string) error {
	r.s.locks++
	return nil
}

func (r *fakeRunRepo) Create(ctx context.Context, run payroll.PayrollRun) (payroll.PayrollRun, error) {
	run.ID = r.s.nextID("run")
	run.CreatedAt = time.Unix(int64(r.s.seq), 0).UTC()
	run.UpdatedAt = run.CreatedAt
	r.s.runs[run.ID] = run
	return run, nil
}

func (r *fakeRunRepo) GetByID(ctx context.Context, companyID, id string) (payroll.PayrollRun, error) {
	run, ok := r.s.runs[id]
	if !ok || run.CompanyID != companyID {
		return payroll.PayrollRun{}, payroll.ErrPayrollNotFound
	}
	return run, nil
}

func (r *fakeRunRepo) GetForUpdate(ctx context.Context, companyID, id string) (payroll.PayrollRun, error) {
	return r.GetByID(ctx, companyID, id)
}

func (r *fakeRunRepo) FindByPeriod(ctx context.Context, companyID string, periodStart, periodEnd time.Time) (*payroll.PayrollRun, error) {
	for _, run := range r.s.runs {
		if run.CompanyID == companyID && run.PeriodStart.Equal(periodStart) && run.PeriodEnd.Equal(periodEnd) {
			return &run, nil
		}
	}
	return nil, nil
}

func (r *fakeRunRepo) FindOpen(ctx context.Context, companyID string) (*payroll.PayrollRun, error) {
	for _, run := range r.s.runs {
		if run.CompanyID == companyID && !run.IsClosed {
			return &run, nil
		}
	}
	return nil, nil
}

func (r *fakeRunRepo) sorted(companyID string) []payroll.PayrollRun {
	var out []payroll.PayrollRun
	for _, run := range r.s.runs {
		if run.CompanyID == companyID {
			out = append(out, run)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *fakeRunRepo) GetLatest(ctx context.Context, companyID string) (payroll.PayrollRun, error) {
	runs := r.sorted(companyID)
	if len(runs) == 0 {
		return payroll.PayrollRun{}, payroll.ErrPayrollNotFound
	}
	return runs[0], nil
}

func (r *fakeRunRepo) List(ctx context.Context, filter payroll.PayrollFilter) ([]payroll.PayrollRun, int64, error) {
	var matched []payroll.PayrollRun
	for _, run := range r.sorted(filter.CompanyID) {
		if filter.IsClosed != nil && run.IsClosed != *filter.IsClosed {
			continue
		}
		matched = append(matched, run)
	}
	offset := (filter.Page - 1) * filter.Limit
	if offset >= len(matched) {
		return nil, int64(len(matched)), nil
	}
	end := min(offset+filter.Limit, len(matched))
	return matched[offset:end], int64(len(matched)), nil
}

func (r *fakeRunRepo) Update(ctx context.Context, run payroll.PayrollRun) error {
	if _, ok := r.s.runs[run.ID]; !ok {
		return payroll.ErrPayrollNotFound
	}
	r.s.runs[run.ID] = run
	return nil
}

func (r *fakeRunRepo) Delete(ctx context.Context, id string) error {
	if _, ok := r.s.runs[id]; !ok {
		return payroll.ErrPayrollNotFound
	}
	delete(r.s.runs, id)
	for eid, e := range r.s.employees {
		if e.PayrollID == id {
			(&fakeEmployeeRepo{r.s}).Delete(ctx, eid)
		}
	}
	return nil
}

// ========== EMPLOYEES ==========

type fakeEmployeeRepo struct{ s *memStore }

func (r *fakeEmployeeRepo) Create(ctx context.Context, e payroll.PayrollEmployee) (payroll.PayrollEmployee, error) {
	e.ID = r.s.nextID("emp")
	r.s.employees[e.ID] = e
	return e, nil
}

func (r *fakeEmployeeRepo) GetByID(ctx context.Context, id string) (payroll.PayrollEmployee, error) {
	e, ok := r.s.employees[id]
	if !ok {
		return payroll.PayrollEmployee{}, payroll.ErrPayrollEmployeeNotFound
	}
	return e, nil
}

func (r *fakeEmployeeRepo) ListByRun(ctx context.Context, payrollID string) ([]payroll.PayrollEmployee, error) {
	var out []payroll.PayrollEmployee
	for _, e := range r.s.employees {
		if e.PayrollID == payrollID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EmployeeName != out[j].EmployeeName {
			return out[i].EmployeeName < out[j].EmployeeName
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *fakeEmployeeRepo) Update(ctx context.Context, e payroll.PayrollEmployee) error {
	if _, ok := r.s.employees[e.ID]; !ok {
		return payroll.ErrPayrollEmployeeNotFound
	}
	r.s.employees[e.ID] = e
	return nil
}

func (r *fakeEmployeeRepo) Delete(ctx context.Context, id string) error {
	delete(r.s.employees, id)
	for iid, item := range r.s.items {
		if item.PayrollEmployeeID == id {
			delete(r.s.items, iid)
		}
	}
	return nil
}

// ========== ITEMS ==========

type fakeItemRepo struct{ s *memStore }

func (r *fakeItemRepo) CreateItems(ctx context.Context, items []payroll.PayrollItem) ([]payroll.PayrollItem, error) {
	out := make([]payroll.PayrollItem, 0, len(items))
	for _, item := range items {
		item.ID = r.s.nextID("item")
		r.s.items[item.ID] = item
		out = append(out, item)
	}
	return out, nil
}

func (r *fakeItemRepo) GetByID(ctx context.Context, id string) (payroll.PayrollItem, error) {
	item, ok := r.s.items[id]
	if !ok {
		return payroll.PayrollItem{}, payroll.ErrPayrollItemNotFound
	}
	return item, nil
}

func (r *fakeItemRepo) Update(ctx context.Context, item payroll.PayrollItem) error {
	if _, ok := r.s.items[item.ID]; !ok {
		return payroll.ErrPayrollItemNotFound
	}
	r.s.items[item.ID] = item
	return nil
}

func (r *fakeItemRepo) ListActiveByEmployee(ctx context.Context, payrollEmployeeID string) ([]payroll.PayrollItem, error) {
	var out []payroll.PayrollItem
	for _, item := range r.s.items {
		if item.PayrollEmployeeID == payrollEmployeeID && item.IsActive {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *fakeItemRepo) DeactivateByEmployee(ctx context.Context, payrollEmployeeID string, includeManual bool) error {
	for id, item := range r.s.items {
		if item.PayrollEmployeeID != payrollEmployeeID || !item.IsActive {
			continue
		}
		if item.IsManual && !includeManual {
			continue
		}
		item.IsActive = false
		r.s.items[id] = item
	}
	return nil
}

func (r *fakeItemRepo) NextInstallmentNumber(ctx context.Context, loanID string) (int, error) {
	highest := 0
	for _, item := range r.s.items {
		if !item.IsActive || item.SourceType != payroll.SourceLoan || item.ReferenceID == nil || *item.ReferenceID != loanID {
			continue
		}
		if item.InstallmentNumber != nil && *item.InstallmentNumber > highest {
			highest = *item.InstallmentNumber
		}
	}
	return highest + 1, nil
}

// ========== COLLABORATORS ==========

// fakeContractRepo returns every contract of the company so the eligibility
// rule is exercised by the filter, not the store.
type fakeContractRepo struct{ s *memStore }

func (r *fakeContractRepo) EligiblePayrollContracts(ctx context.Context, companyID string) ([]contract.Contract, error) {
	var out []contract.Contract
	for _, c := range r.s.contracts {
		if c.CompanyID == companyID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeContractRepo) GetByID(ctx context.Context, companyID, id string) (contract.Contract, error) {
	c, ok := r.s.contracts[id]
	if !ok || c.CompanyID != companyID {
		return contract.Contract{}, contract.ErrContractNotFound
	}
	return c, nil
}

type fakeLoanRepo struct{ s *memStore }

func (r *fakeLoanRepo) PendingLoans(ctx context.Context, employeeID string, referenceDate time.Time) ([]loan.LoanAdvance, error) {
	var out []loan.LoanAdvance
	for _, l := range r.s.loans {
		if l.EmployeeID == employeeID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *fakeLoanRepo) GetByID(ctx context.Context, id string) (loan.LoanAdvance, error) {
	l, ok := r.s.loans[id]
	if !ok {
		return loan.LoanAdvance{}, loan.ErrLoanNotFound
	}
	return l, nil
}

type fakeFinanceService struct {
	posts      []finance.PayrollPosting
	reversals  []string
	postErr    error
	reverseErr error
}

func (f *fakeFinanceService) PostNetPayAndTaxTransactions(ctx context.Context, posting finance.PayrollPosting) ([]finance.Transaction, error) {
	f.posts = append(f.posts, posting)
	if f.postErr != nil {
		return nil, f.postErr
	}
	return []finance.Transaction{{PayrollID: posting.PayrollID, Kind: finance.KindNetPay, Amount: posting.NetPay}}, nil
}

func (f *fakeFinanceService) ReverseTransactions(ctx context.Context, payrollID string) error {
	f.reversals = append(f.reversals, payrollID)
	return f.reverseErr
}

// ========== HARNESS ==========

const testCompanyID = "company-1"

type harness struct {
	store   *memStore
	tx      *fakeTransactor
	finance *fakeFinanceService
	clock   *clockwork.FakeClock
	svc     payroll.PayrollService
	ctx     context.Context
}

func newHarness(t *testing.T, mutate ...func(*config.PayrollConfig)) *harness {
	t.Helper()
	cfg := config.DefaultPayrollConfig()
	for _, m := range mutate {
		m(&cfg)
	}

	store := newMemStore()
	h := &harness{
		store:   store,
		tx:      &fakeTransactor{store: store},
		finance: &fakeFinanceService{},
		clock:   clockwork.NewFakeClockAt(time.Date(2025, time.April, 1, 9, 0, 0, 0, time.UTC)),
		ctx:     authContext(t, testCompanyID),
	}
	h.svc = NewPayrollService(
		h.tx,
		&fakeRunRepo{store},
		&fakeEmployeeRepo{store},
		&fakeItemRepo{store},
		&fakeContractRepo{store},
		&fakeLoanRepo{store},
		h.finance,
		cfg,
		h.clock,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	return h
}

func authContext(t *testing.T, companyID string) context.Context {
	t.Helper()
	token := jwt.New()
	if err := token.Set("company_id", companyID); err != nil {
		t.Fatal(err)
	}
	if err := token.Set("user_id", "user-1"); err != nil {
		t.Fatal(err)
	}
	return jwtauth.NewContext(context.Background(), token, nil)
}

func (h *harness) addContract(c contract.Contract) contract.Contract {
	if c.CompanyID == "" {
		c.CompanyID = testCompanyID
	}
	h.store.contracts[c.ID] = c
	return c
}

func (h *harness) addLoan(l loan.LoanAdvance) loan.LoanAdvance {
	h.store.loans[l.ID] = l
	return l
}

func (h *harness) activeItems(payrollEmployeeID string) []payroll.PayrollItem {
	items, _ := (&fakeItemRepo{h.store}).ListActiveByEmployee(context.Background(), payrollEmployeeID)
	return items
}
