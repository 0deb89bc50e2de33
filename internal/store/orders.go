package store

import (
	"context"
	"time"

	"digitalstore/internal/models"
	"digitalstore/internal/services"
)

const orderColumns = `id, user_id, product_id, amount, status,
	COALESCE(stripe_payment_intent_id, ''), COALESCE(stripe_checkout_session_id, ''),
	purchase_date, expiry_date, created_at, updated_at`

func scanOrder(row interface{ Scan(...any) error }) (models.Order, error) {
	var o models.Order
	err := row.Scan(&o.ID, &o.UserID, &o.ProductID, &o.Amount, &o.Status,
		&o.StripePaymentIntentID, &o.StripeCheckoutSessionID,
		&o.PurchaseDate, &o.ExpiryDate, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

func (s *Store) CreateOrder(ctx context.Context, order models.Order) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO orders (id, user_id, product_id, amount, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		order.ID, order.UserID, order.ProductID, order.Amount, order.Status,
		order.CreatedAt, order.UpdatedAt)
	return err
}

func (s *Store) GetOrder(ctx context.Context, id string) (models.Order, error) {
	o, err := scanOrder(s.pool.QueryRow(ctx, `
		SELECT `+orderColumns+`
		FROM orders WHERE id = $1`, id))
	return o, notFound(err)
}

func (s *Store) ListUserOrders(ctx context.Context, userID string) ([]models.Order, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders WHERE user_id = $1
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var orders []models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (s *Store) ListRecentOrders(ctx context.Context, limit int) ([]models.Order, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var orders []models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (s *Store) DeletePendingOrders(ctx context.Context, userID string, productIDs []string) (int64, error) {
	ct, err := s.pool.Exec(ctx, `
		DELETE FROM orders
		WHERE user_id = $1 AND status = 'PENDING' AND product_id = ANY($2)`,
		userID, productIDs)
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}

func (s *Store) SetOrdersCheckoutSession(ctx context.Context, orderIDs []string, sessionID string) error {
	ct, err := s.pool.Exec(ctx, `
		UPDATE orders SET stripe_checkout_session_id = $1, updated_at = NOW()
		WHERE id = ANY($2)`, sessionID, orderIDs)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return services.ErrNotFound
	}
	return nil
}

func (s *Store) ListOrdersByCheckoutSession(ctx context.Context, sessionID string) ([]models.Order, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders WHERE stripe_checkout_session_id = $1`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var orders []models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// MarkOrderPaid is a conditional transition: only a PENDING order moves to
// PAID. RowsAffected tells the caller whether this call won the transition.
func (s *Store) MarkOrderPaid(ctx context.Context, orderID, paymentIntentID string, purchaseDate, expiryDate time.Time) (bool, error) {
	ct, err := s.pool.Exec(ctx, `
		UPDATE orders
		SET status = 'PAID', stripe_payment_intent_id = $1,
			purchase_date = $2, expiry_date = $3, updated_at = NOW()
		WHERE id = $4 AND status = 'PENDING'`,
		paymentIntentID, purchaseDate, expiryDate, orderID)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}
