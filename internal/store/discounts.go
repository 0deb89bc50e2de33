package store

import (
	"context"
	"fmt"

	"digitalstore/internal/models"
)

func (s *Store) GetActiveDiscount(ctx context.Context) (models.Discount, error) {
	var d models.Discount
	err := s.pool.QueryRow(ctx, `
		SELECT id, type, percentage, COALESCE(category, ''), is_active, created_at, updated_at
		FROM discounts WHERE is_active = true
		ORDER BY updated_at DESC LIMIT 1`,
	).Scan(&d.ID, &d.Type, &d.Percentage, &d.Category, &d.IsActive, &d.CreatedAt, &d.UpdatedAt)
	return d, notFound(err)
}

// SetDiscount deactivates whatever discount was active and inserts the new
// one in a single transaction, keeping "at most one active" true throughout.
func (s *Store) SetDiscount(ctx context.Context, discount models.Discount) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		UPDATE discounts SET is_active = false, updated_at = NOW()
		WHERE is_active = true`); err != nil {
		return fmt.Errorf("deactivate discounts: %w", err)
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO discounts (id, type, percentage, category, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7)`,
		discount.ID, discount.Type, discount.Percentage, discount.Category,
		discount.IsActive, discount.CreatedAt, discount.UpdatedAt); err != nil {
		return fmt.Errorf("insert discount: %w", err)
	}
	return tx.Commit(ctx)
}

func (s *Store) RemoveActiveDiscount(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE discounts SET is_active = false, updated_at = NOW()
		WHERE is_active = true`)
	return err
}
