package store

import (
	"context"

	"digitalstore/internal/models"
	"digitalstore/internal/services"
)

func (s *Store) GetProcessedWebhook(ctx context.Context, id string) (models.ProcessedWebhook, error) {
	var w models.ProcessedWebhook
	err := s.pool.QueryRow(ctx, `
		SELECT id, event_type, processed_at
		FROM processed_webhooks WHERE id = $1`, id,
	).Scan(&w.ID, &w.EventType, &w.ProcessedAt)
	return w, notFound(err)
}

// MarkWebhookProcessed inserts the idempotency marker. The primary key makes
// a concurrent duplicate fail loudly instead of silently double-processing.
func (s *Store) MarkWebhookProcessed(ctx context.Context, id, eventType string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO processed_webhooks (id, event_type)
		VALUES ($1, $2)`, id, eventType)
	if isUniqueViolation(err) {
		return services.ErrDuplicateRequest
	}
	return err
}
