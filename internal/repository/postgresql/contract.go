package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/erp-backend-go/internal/domain/contract"
	"github.com/cmlabs-hris/erp-backend-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type contractRepository struct {
	db *database.DB
}

func NewContractRepository(db *database.DB) contract.ContractRepository {
	return &contractRepository{db: db}
}

const contractSelect = `
	SELECT c.id, c.company_id, c.employee_id, e.full_name, c.type, c.value,
		   c.start_date, c.end_date, c.is_active, c.is_payroll
	FROM contracts c
	JOIN employees e ON e.id = c.employee_id
`

func scanContract(row pgx.Row) (contract.Contract, error) {
	var c contract.Contract
	err := row.Scan(
		&c.ID, &c.CompanyID, &c.EmployeeID, &c.EmployeeName, &c.Type, &c.Value,
		&c.StartDate, &c.EndDate, &c.IsActive, &c.IsPayroll,
	)
	return c, err
}

func (r *contractRepository) EligiblePayrollContracts(ctx context.Context, companyID string) ([]contract.Contract, error) {
	q := GetQuerier(ctx, r.db)

	query := contractSelect + `
		WHERE c.company_id = $1 AND c.is_active = true AND c.is_payroll = true
		ORDER BY e.full_name, c.id
	`

	rows, err := q.Query(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payroll contracts: %w", err)
	}
	defer rows.Close()

	var contracts []contract.Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contract: %w", err)
		}
		contracts = append(contracts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate contracts: %w", err)
	}

	if err := r.attachDetails(ctx, contracts); err != nil {
		return nil, err
	}
	return contracts, nil
}

func (r *contractRepository) GetByID(ctx context.Context, companyID, id string) (contract.Contract, error) {
	q := GetQuerier(ctx, r.db)

	c, err := scanContract(q.QueryRow(ctx, contractSelect+` WHERE c.id = $1 AND c.company_id = $2`, id, companyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return contract.Contract{}, contract.ErrContractNotFound
		}
		return contract.Contract{}, fmt.Errorf("failed to get contract: %w", err)
	}

	contracts := []contract.Contract{c}
	if err := r.attachDetails(ctx, contracts); err != nil {
		return contract.Contract{}, err
	}
	return contracts[0], nil
}

// attachDetails loads sub-entries and cost centers of all contracts in two queries.
func (r *contractRepository) attachDetails(ctx context.Context, contracts []contract.Contract) error {
	if len(contracts) == 0 {
		return nil
	}
	q := GetQuerier(ctx, r.db)

	ids := make([]string, len(contracts))
	index := make(map[string]int, len(contracts))
	for i, c := range contracts {
		ids[i] = c.ID
		index[c.ID] = i
	}

	itemRows, err := q.Query(ctx, `
		SELECT id, contract_id, description, type, application_rule, amount,
			   fixed_month, is_proportional, is_taxable, position
		FROM contract_items
		WHERE contract_id = ANY($1)
		ORDER BY contract_id, position, id
	`, ids)
	if err != nil {
		return fmt.Errorf("failed to list contract items: %w", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var item contract.Item
		var entryType, rule string
		if err := itemRows.Scan(
			&item.ID, &item.ContractID, &item.Description, &entryType, &rule, &item.Amount,
			&item.FixedMonth, &item.IsProportional, &item.IsTaxable, &item.Position,
		); err != nil {
			return fmt.Errorf("failed to scan contract item: %w", err)
		}
		item.Type = contract.EntryType(entryType)
		item.Rule = contract.ApplicationRule(rule)
		i := index[item.ContractID]
		contracts[i].Items = append(contracts[i].Items, item)
	}
	itemRows.Close()
	if err := itemRows.Err(); err != nil {
		return fmt.Errorf("failed to iterate contract items: %w", err)
	}

	ccRows, err := q.Query(ctx, `
		SELECT ccc.contract_id, ccc.cost_center_id, cc.name, ccc.percentage
		FROM contract_cost_centers ccc
		JOIN cost_centers cc ON cc.id = ccc.cost_center_id
		WHERE ccc.contract_id = ANY($1)
		ORDER BY ccc.contract_id, cc.name
	`, ids)
	if err != nil {
		return fmt.Errorf("failed to list contract cost centers: %w", err)
	}
	defer ccRows.Close()

	for ccRows.Next() {
		var contractID string
		var a contract.CostCenterAllocation
		if err := ccRows.Scan(&contractID, &a.CostCenterID, &a.Name, &a.Percentage); err != nil {
			return fmt.Errorf("failed to scan contract cost center: %w", err)
		}
		i := index[contractID]
		contracts[i].CostCenters = append(contracts[i].CostCenters, a)
	}
	return ccRows.Err()
}
