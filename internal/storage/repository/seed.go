package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/magabrotheeeer/subscribepro/internal/fixtures"
)

// Seed заполняет пустую базу фикстурами. Если продукты уже есть, ничего не делает.
func (s *Storage) Seed(ctx context.Context, seed *fixtures.Seed) error {
	const op = "storage.Seed"

	var count int
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&count); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if count > 0 {
		return nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, p := range seed.Products {
		if _, err := tx.ExecContext(ctx, `INSERT INTO products (`+productColumns+`)
				VALUES ($1, $2, $3, $4, $5, $6, $7) ON CONFLICT (id) DO NOTHING`,
			p.ID, p.Name, p.Description, p.ShortDescription, p.Category, p.ImageURL, p.RegularPrice); err != nil {
			return fmt.Errorf("%s: product %s: %w", op, p.ID, err)
		}
	}
	for _, c := range seed.Contracts {
		if _, err := tx.ExecContext(ctx, `INSERT INTO contracts (`+contractColumns+`)
				VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT (id) DO NOTHING`,
			c.ID, c.OrganizationID, c.CorporateName, c.EffectiveDate, c.ExpirationDate, string(c.Status)); err != nil {
			return fmt.Errorf("%s: contract %s: %w", op, c.ID, err)
		}
	}
	for _, p := range seed.ContractPrices {
		var exp sql.NullTime
		if p.ExpirationDate != nil {
			exp = sql.NullTime{Time: *p.ExpirationDate, Valid: true}
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO contract_prices (id, contract_id, product_id, price, effective_date, expiration_date)
				VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT (id) DO NOTHING`,
			p.ID, p.ContractID, p.ProductID, p.Price, p.EffectiveDate, exp); err != nil {
			return fmt.Errorf("%s: contract price %s: %w", op, p.ID, err)
		}
	}
	for _, sub := range seed.Subscriptions {
		if err := insertSubscription(ctx, tx, sub); err != nil {
			return fmt.Errorf("%s: subscription %s: %w", op, sub.ID, err)
		}
	}
	for _, inv := range seed.Invoices {
		if err := insertInvoice(ctx, tx, inv); err != nil {
			return fmt.Errorf("%s: invoice %s: %w", op, inv.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
