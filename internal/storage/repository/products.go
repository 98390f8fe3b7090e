package repository

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/subscribepro/internal/models"
)

const productColumns = `id, name, description, short_description, category, image_url, regular_price`

// ListProducts возвращает все продукты в порядке добавления.
func (s *Storage) ListProducts(ctx context.Context) ([]models.Product, error) {
	const op = "storage.ListProducts"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx, `SELECT `+productColumns+` FROM products ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	result := make([]models.Product, 0)
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.ShortDescription,
			&p.Category, &p.ImageURL, &p.RegularPrice); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// GetProduct возвращает продукт по ID.
func (s *Storage) GetProduct(ctx context.Context, id string) (models.Product, error) {
	const op = "storage.GetProduct"
	if err := checkCtx(ctx, op); err != nil {
		return models.Product{}, err
	}

	var p models.Product
	err := s.DB.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.Description, &p.ShortDescription, &p.Category, &p.ImageURL, &p.RegularPrice)
	if err != nil {
		return models.Product{}, notFound(err, op, "product")
	}
	return p, nil
}

// CreateProduct вставляет новый продукт.
func (s *Storage) CreateProduct(ctx context.Context, p models.Product) error {
	const op = "storage.CreateProduct"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	query := `INSERT INTO products (` + productColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := s.DB.ExecContext(ctx, query, p.ID, p.Name, p.Description, p.ShortDescription,
		p.Category, p.ImageURL, p.RegularPrice); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// UpdateProduct обновляет продукт по ID.
func (s *Storage) UpdateProduct(ctx context.Context, p models.Product) error {
	const op = "storage.UpdateProduct"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	query := `UPDATE products
			  SET name = $1, description = $2, short_description = $3, category = $4,
			      image_url = $5, regular_price = $6
			  WHERE id = $7`
	result, err := s.DB.ExecContext(ctx, query, p.Name, p.Description, p.ShortDescription,
		p.Category, p.ImageURL, p.RegularPrice, p.ID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return affectedOne(result, op, "product")
}

// DeleteProduct удаляет продукт; его цены по контрактам удаляются каскадно.
func (s *Storage) DeleteProduct(ctx context.Context, id string) error {
	const op = "storage.DeleteProduct"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	result, err := s.DB.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return affectedOne(result, op, "product")
}
