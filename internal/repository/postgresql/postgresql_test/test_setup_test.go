package postgresql_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/cmlabs-hris/erp-backend-go/internal/pkg/database"
)

// TestDatabaseSetup holds the connection used by repository integration tests.
type TestDatabaseSetup struct {
	DB *database.DB
}

// NewTestDatabase connects to TEST_DATABASE_URL and applies the schema. The
// test is skipped when no database is configured.
func NewTestDatabase(t *testing.T) *TestDatabaseSetup {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := database.NewPostgreSQLDB(ctx, dsn, database.PoolConfig{MaxConns: 5, MinConns: 1})
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	setup := &TestDatabaseSetup{DB: db}
	if err := setup.applySchema(ctx); err != nil {
		db.Close()
		t.Fatalf("failed to apply schema: %v", err)
	}
	if err := setup.TruncateAllTables(ctx); err != nil {
		db.Close()
		t.Fatalf("failed to truncate tables: %v", err)
	}

	t.Cleanup(setup.Close)
	return setup
}

func (t *TestDatabaseSetup) applySchema(ctx context.Context) error {
	_, file, _, _ := runtime.Caller(0)
	path := filepath.Join(filepath.Dir(file), "..", "..", "..", "..", "migrations", "0001_payroll_engine.sql")

	schema, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	_, err = t.DB.Exec(ctx, string(schema))
	return err
}

// TruncateAllTables removes all rows written by the payroll engine and its collaborators.
func (t *TestDatabaseSetup) TruncateAllTables(ctx context.Context) error {
	tx, err := t.DB.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tables := []string{
		"financial_transactions",
		"payroll_items",
		"payroll_employees",
		"payroll_runs",
		"loan_advances",
		"contract_cost_centers",
		"cost_centers",
		"contract_items",
		"contracts",
		"employees",
	}

	for _, table := range tables {
		_, err := tx.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table))
		if err != nil {
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}

	return tx.Commit(ctx)
}

// Close closes the database connection.
func (t *TestDatabaseSetup) Close() {
	t.DB.Close()
}
