package store

import (
	"context"
	"time"

	"digitalstore/internal/models"
	"digitalstore/internal/services"
)

const assetColumns = `id, user_id, product_id, order_id, purchase_date, expiry_date, is_active, created_at`

func scanAsset(row interface{ Scan(...any) error }) (models.UserAsset, error) {
	var a models.UserAsset
	err := row.Scan(&a.ID, &a.UserID, &a.ProductID, &a.OrderID,
		&a.PurchaseDate, &a.ExpiryDate, &a.IsActive, &a.CreatedAt)
	return a, err
}

// GetUserAsset returns the most recent entitlement row for the pair,
// regardless of active state; the evaluator decides what it means.
func (s *Store) GetUserAsset(ctx context.Context, userID, productID string) (models.UserAsset, error) {
	a, err := scanAsset(s.pool.QueryRow(ctx, `
		SELECT `+assetColumns+`
		FROM user_assets
		WHERE user_id = $1 AND product_id = $2
		ORDER BY created_at DESC LIMIT 1`, userID, productID))
	return a, notFound(err)
}

func (s *Store) GetActiveUserAsset(ctx context.Context, userID, productID string) (models.UserAsset, error) {
	a, err := scanAsset(s.pool.QueryRow(ctx, `
		SELECT `+assetColumns+`
		FROM user_assets
		WHERE user_id = $1 AND product_id = $2 AND is_active = true`, userID, productID))
	return a, notFound(err)
}

// ListActiveUserAssets returns every active entitlement for the given
// products, expired or not. The ownership guard keys on the active flag
// alone; expiry is the evaluator's concern.
func (s *Store) ListActiveUserAssets(ctx context.Context, userID string, productIDs []string) ([]models.UserAsset, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+assetColumns+`
		FROM user_assets
		WHERE user_id = $1 AND is_active = true AND product_id = ANY($2)`, userID, productIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var assets []models.UserAsset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

func (s *Store) ListUserAssets(ctx context.Context, userID string) ([]models.UserAsset, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+assetColumns+`
		FROM user_assets
		WHERE user_id = $1
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var assets []models.UserAsset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

// CreateUserAsset relies on the partial unique index over active
// (user_id, product_id) pairs; a duplicate insert surfaces as
// ErrDuplicateRequest so the caller can extend instead.
func (s *Store) CreateUserAsset(ctx context.Context, asset models.UserAsset) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO user_assets (id, user_id, product_id, order_id, purchase_date, expiry_date, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		asset.ID, asset.UserID, asset.ProductID, asset.OrderID,
		asset.PurchaseDate, asset.ExpiryDate, asset.IsActive, asset.CreatedAt)
	if isUniqueViolation(err) {
		return services.ErrDuplicateRequest
	}
	return err
}

func (s *Store) ExtendUserAsset(ctx context.Context, id string, newExpiry time.Time) error {
	ct, err := s.pool.Exec(ctx, `
		UPDATE user_assets SET expiry_date = $1
		WHERE id = $2`, newExpiry, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return services.ErrNotFound
	}
	return nil
}
