package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/magabrotheeeer/subscribepro/internal/models"
)

const subscriptionColumns = `id, user_id, product_id, product, start_date, next_billing_date, status, price`

func scanSubscription(row interface{ Scan(...any) error }) (models.Subscription, error) {
	var (
		sub     models.Subscription
		product []byte
	)
	if err := row.Scan(&sub.ID, &sub.UserID, &sub.ProductID, &product, &sub.StartDate,
		&sub.NextBillingDate, &sub.Status, &sub.Price); err != nil {
		return models.Subscription{}, err
	}
	if err := json.Unmarshal(product, &sub.Product); err != nil {
		return models.Subscription{}, fmt.Errorf("product snapshot of %s: %w", sub.ID, err)
	}
	sub.StartDate = sub.StartDate.UTC()
	sub.NextBillingDate = sub.NextBillingDate.UTC()
	return sub, nil
}

func (s *Storage) listSubscriptions(ctx context.Context, op, where string, args ...any) ([]models.Subscription, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT `+subscriptionColumns+` FROM subscriptions `+where+` ORDER BY created_at, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	result := make([]models.Subscription, 0)
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

func insertSubscription(ctx context.Context, tx *sql.Tx, sub models.Subscription) error {
	product, err := json.Marshal(sub.Product)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO subscriptions (`+subscriptionColumns+`)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			  ON CONFLICT (id) DO NOTHING`,
		sub.ID, sub.UserID, sub.ProductID, product, sub.StartDate, sub.NextBillingDate, string(sub.Status), sub.Price)
	return err
}

func insertInvoice(ctx context.Context, tx *sql.Tx, inv models.Invoice) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO invoices (id, subscription_id, product_name, billing_date, amount, status)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  ON CONFLICT DO NOTHING`,
		inv.ID, inv.SubscriptionID, inv.ProductName, inv.BillingDate, inv.Amount, string(inv.Status))
	return err
}

// CreateSubscription сохраняет подписку и ее первый счет в одной транзакции.
func (s *Storage) CreateSubscription(ctx context.Context, sub models.Subscription, first models.Invoice) error {
	const op = "storage.CreateSubscription"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := insertSubscription(ctx, tx, sub); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := insertInvoice(ctx, tx, first); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetSubscription возвращает подписку по ID.
func (s *Storage) GetSubscription(ctx context.Context, id string) (models.Subscription, error) {
	const op = "storage.GetSubscription"
	if err := checkCtx(ctx, op); err != nil {
		return models.Subscription{}, err
	}

	sub, err := scanSubscription(s.DB.QueryRowContext(ctx, `SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = $1`, id))
	if err != nil {
		return models.Subscription{}, notFound(err, op, "subscription")
	}
	return sub, nil
}

// ListSubscriptionsByUser возвращает подписки пользователя.
func (s *Storage) ListSubscriptionsByUser(ctx context.Context, userID string) ([]models.Subscription, error) {
	const op = "storage.ListSubscriptionsByUser"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	return s.listSubscriptions(ctx, op, `WHERE user_id = $1`, userID)
}

// UpdateSubscriptionStatus меняет статус подписки.
func (s *Storage) UpdateSubscriptionStatus(ctx context.Context, id string, status models.SubscriptionStatus) error {
	const op = "storage.UpdateSubscriptionStatus"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	result, err := s.DB.ExecContext(ctx, `UPDATE subscriptions SET status = $1 WHERE id = $2`, string(status), id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return affectedOne(result, op, "subscription")
}

// ListDueSubscriptions возвращает активные подписки с датой списания не позже now.
func (s *Storage) ListDueSubscriptions(ctx context.Context, now time.Time) ([]models.Subscription, error) {
	const op = "storage.ListDueSubscriptions"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	return s.listSubscriptions(ctx, op, `WHERE status = 'active' AND next_billing_date <= $1`, now)
}

// AdvanceBilling переносит дату списания и, если inv не nil, добавляет счет в той же транзакции.
func (s *Storage) AdvanceBilling(ctx context.Context, subscriptionID string, next time.Time, inv *models.Invoice) error {
	const op = "storage.AdvanceBilling"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `UPDATE subscriptions SET next_billing_date = $1 WHERE id = $2`, next, subscriptionID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := affectedOne(result, op, "subscription"); err != nil {
		return err
	}
	if inv != nil {
		if err := insertInvoice(ctx, tx, *inv); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// InvoiceExists сообщает, выставлен ли уже счет по подписке на дату billingDate.
func (s *Storage) InvoiceExists(ctx context.Context, subscriptionID string, billingDate time.Time) (bool, error) {
	const op = "storage.InvoiceExists"
	if err := checkCtx(ctx, op); err != nil {
		return false, err
	}

	var exists bool
	err := s.DB.QueryRowContext(ctx, `SELECT EXISTS (
			SELECT 1 FROM invoices WHERE subscription_id = $1 AND billing_date = $2
		)`, subscriptionID, billingDate).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}

// ListInvoicesByUser возвращает счета по всем подпискам пользователя.
func (s *Storage) ListInvoicesByUser(ctx context.Context, userID string) ([]models.Invoice, error) {
	const op = "storage.ListInvoicesByUser"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx, `SELECT i.id, i.subscription_id, i.product_name, i.billing_date, i.amount, i.status
			  FROM invoices i
			  JOIN subscriptions s ON s.id = i.subscription_id
			  WHERE s.user_id = $1
			  ORDER BY i.billing_date DESC, i.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	result := make([]models.Invoice, 0)
	for rows.Next() {
		var inv models.Invoice
		if err := rows.Scan(&inv.ID, &inv.SubscriptionID, &inv.ProductName, &inv.BillingDate, &inv.Amount, &inv.Status); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		inv.BillingDate = inv.BillingDate.UTC()
		result = append(result, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// CountSubscriptionsByUser возвращает число подписок каждого пользователя.
func (s *Storage) CountSubscriptionsByUser(ctx context.Context) (map[string]int, error) {
	const op = "storage.CountSubscriptionsByUser"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx, `SELECT user_id, COUNT(*) FROM subscriptions GROUP BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var userID string
		var n int
		if err := rows.Scan(&userID, &n); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		counts[userID] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return counts, nil
}
