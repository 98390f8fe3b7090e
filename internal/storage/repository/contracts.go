package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/magabrotheeeer/subscribepro/internal/models"
)

const contractColumns = `id, organization_id, corporate_name, effective_date, expiration_date, status`

func scanContract(row interface{ Scan(...any) error }) (models.Contract, error) {
	var c models.Contract
	err := row.Scan(&c.ID, &c.OrganizationID, &c.CorporateName, &c.EffectiveDate, &c.ExpirationDate, &c.Status)
	if err != nil {
		return models.Contract{}, err
	}
	c.EffectiveDate = c.EffectiveDate.UTC()
	c.ExpirationDate = c.ExpirationDate.UTC()
	return c, nil
}

// ListContracts возвращает все контракты.
func (s *Storage) ListContracts(ctx context.Context) ([]models.Contract, error) {
	const op = "storage.ListContracts"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx, `SELECT `+contractColumns+` FROM contracts ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	result := make([]models.Contract, 0)
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// GetContract возвращает контракт по ID.
func (s *Storage) GetContract(ctx context.Context, id string) (models.Contract, error) {
	const op = "storage.GetContract"
	if err := checkCtx(ctx, op); err != nil {
		return models.Contract{}, err
	}

	c, err := scanContract(s.DB.QueryRowContext(ctx, `SELECT `+contractColumns+` FROM contracts WHERE id = $1`, id))
	if err != nil {
		return models.Contract{}, notFound(err, op, "contract")
	}
	return c, nil
}

// CreateContract вставляет новый контракт.
func (s *Storage) CreateContract(ctx context.Context, c models.Contract) error {
	const op = "storage.CreateContract"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	query := `INSERT INTO contracts (` + contractColumns + `) VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := s.DB.ExecContext(ctx, query, c.ID, c.OrganizationID, c.CorporateName,
		c.EffectiveDate, c.ExpirationDate, string(c.Status)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// UpdateContractStatus меняет статус контракта.
func (s *Storage) UpdateContractStatus(ctx context.Context, id string, status models.ContractStatus) error {
	const op = "storage.UpdateContractStatus"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	result, err := s.DB.ExecContext(ctx, `UPDATE contracts SET status = $1 WHERE id = $2`, string(status), id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return affectedOne(result, op, "contract")
}

// ListContractPrices возвращает все цены по контрактам.
func (s *Storage) ListContractPrices(ctx context.Context) ([]models.ContractPrice, error) {
	const op = "storage.ListContractPrices"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx, `SELECT id, contract_id, product_id, price, effective_date, expiration_date
			  FROM contract_prices ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	result := make([]models.ContractPrice, 0)
	for rows.Next() {
		var p models.ContractPrice
		var exp sql.NullTime
		if err := rows.Scan(&p.ID, &p.ContractID, &p.ProductID, &p.Price, &p.EffectiveDate, &exp); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		p.EffectiveDate = p.EffectiveDate.UTC()
		if exp.Valid {
			t := exp.Time.UTC()
			p.ExpirationDate = &t
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// CreateContractPrice вставляет цену по контракту.
func (s *Storage) CreateContractPrice(ctx context.Context, p models.ContractPrice) error {
	const op = "storage.CreateContractPrice"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	var exp sql.NullTime
	if p.ExpirationDate != nil {
		exp = sql.NullTime{Time: *p.ExpirationDate, Valid: true}
	}
	query := `INSERT INTO contract_prices (id, contract_id, product_id, price, effective_date, expiration_date)
			  VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := s.DB.ExecContext(ctx, query, p.ID, p.ContractID, p.ProductID, p.Price, p.EffectiveDate, exp); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
