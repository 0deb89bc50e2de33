package store

import (
	"context"
	"errors"

	"digitalstore/internal/services"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store implements every persistence interface the service layer consumes.
type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return services.ErrNotFound
	}
	return err
}

func (s *Store) GetStats(ctx context.Context) (services.Stats, error) {
	var stats services.Stats
	err := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM orders WHERE status = 'PAID'),
			(SELECT COALESCE(SUM(amount), 0) FROM orders WHERE status = 'PAID'),
			(SELECT COUNT(*) FROM user_assets WHERE is_active AND expiry_date > NOW())`,
	).Scan(&stats.TotalUsers, &stats.PaidOrders, &stats.TotalRevenue, &stats.ActiveEntitlements)
	if err != nil {
		return services.Stats{}, err
	}
	return stats, nil
}

var (
	_ services.UserStore        = (*Store)(nil)
	_ services.Catalog          = (*Store)(nil)
	_ services.OrderStore       = (*Store)(nil)
	_ services.EntitlementStore = (*Store)(nil)
	_ services.DiscountStore    = (*Store)(nil)
	_ services.WebhookStore     = (*Store)(nil)
	_ services.StatsStore       = (*Store)(nil)
)

// Stores bundles the single Store behind the service layer's interfaces.
func (s *Store) Stores() services.Stores {
	return services.Stores{
		Users:     s,
		Catalog:   s,
		Orders:    s,
		Assets:    s,
		Discounts: s,
		Webhooks:  s,
		Stats:     s,
	}
}
