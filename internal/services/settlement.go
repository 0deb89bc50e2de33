package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"digitalstore/internal/metrics"
	"digitalstore/internal/models"

	"github.com/google/uuid"
)

const checkoutCompletedEvent = "checkout.session.completed"

// CheckoutSessionEvent is the settlement processor's typed input, extracted
// from a signature-verified provider event at the HTTP boundary.
type CheckoutSessionEvent struct {
	SessionID       string
	PaymentStatus   string
	PaymentIntentID string
	Metadata        map[string]string
}

type SettlementResult struct {
	Processed        bool `json:"processed"`
	AlreadyProcessed bool `json:"already_processed,omitempty"`
	OrdersProcessed  int  `json:"orders_processed"`
}

// SettleCheckoutSession drives a verified "checkout completed" notification
// through to paid orders and entitlements. Delivery is at-least-once, so the
// session id is checked against the processed-webhook ledger first and
// recorded there afterwards; order transitions and entitlement creation are
// additionally guarded at the storage layer so a racing duplicate cannot
// double-grant.
func (s *Service) SettleCheckoutSession(ctx context.Context, event CheckoutSessionEvent) (SettlementResult, error) {
	if event.PaymentStatus != "paid" {
		s.log.Info().Str("session_id", event.SessionID).Str("payment_status", event.PaymentStatus).
			Msg("checkout session not paid yet, ignoring")
		metrics.WebhookEvents.WithLabelValues("unpaid").Inc()
		return SettlementResult{}, nil
	}

	if _, err := s.webhooks.GetProcessedWebhook(ctx, event.SessionID); err == nil {
		s.log.Info().Str("session_id", event.SessionID).Msg("webhook already processed")
		metrics.WebhookEvents.WithLabelValues("duplicate").Inc()
		return SettlementResult{AlreadyProcessed: true}, nil
	} else if !errors.Is(err, ErrNotFound) {
		return SettlementResult{}, fmt.Errorf("idempotency check: %w", err)
	}

	meta, err := ParseSessionMetadata(event.Metadata)
	if err != nil {
		return SettlementResult{}, err
	}

	orders, err := s.orders.ListOrdersByCheckoutSession(ctx, event.SessionID)
	if err != nil {
		return SettlementResult{}, fmt.Errorf("load orders: %w", err)
	}
	if len(orders) == 0 {
		return SettlementResult{}, ErrOrdersNotFound
	}
	if len(orders) != len(meta.OrderIDs) {
		s.log.Warn().Str("session_id", event.SessionID).
			Int("expected", len(meta.OrderIDs)).Int("found", len(orders)).
			Msg("order count mismatch against session metadata")
	}

	settledAt := s.now()
	processed := 0
	for _, order := range orders {
		if err := s.settleOrder(ctx, order, event.PaymentIntentID, settledAt); err != nil {
			// One failed order must not block its siblings.
			s.log.Error().Err(err).Str("order_id", order.ID).
				Str("session_id", event.SessionID).Msg("order settlement failed")
			continue
		}
		processed++
	}

	// The marker is written even when individual orders failed: provider
	// retries would hit the same failures, only human intervention fixes
	// them.
	if err := s.webhooks.MarkWebhookProcessed(ctx, event.SessionID, checkoutCompletedEvent); err != nil {
		if errors.Is(err, ErrDuplicateRequest) {
			// Lost the race against a concurrent delivery. The per-order
			// guards already prevented double-granting.
			s.log.Warn().Str("session_id", event.SessionID).Msg("concurrent webhook delivery detected")
		} else {
			return SettlementResult{}, fmt.Errorf("mark webhook processed: %w", err)
		}
	}

	metrics.WebhookEvents.WithLabelValues("settled").Inc()
	s.log.Info().Str("session_id", event.SessionID).Str("user_id", meta.UserID).
		Int("orders_processed", processed).Int("orders_total", len(orders)).
		Msg("webhook settled")

	return SettlementResult{Processed: true, OrdersProcessed: processed}, nil
}

func (s *Service) settleOrder(ctx context.Context, order models.Order, paymentIntentID string, settledAt time.Time) error {
	product, err := s.catalog.GetProduct(ctx, order.ProductID)
	if err != nil {
		return fmt.Errorf("resolve product %s: %w", order.ProductID, err)
	}

	duration := accessDuration(product, s.cfg.DefaultAccessDurationDays)
	expiry := settledAt.Add(duration)

	transitioned, err := s.orders.MarkOrderPaid(ctx, order.ID, paymentIntentID, settledAt, expiry)
	if err != nil {
		return fmt.Errorf("mark order paid: %w", err)
	}
	if !transitioned {
		// Already settled by an earlier (or concurrent) delivery.
		s.log.Info().Str("order_id", order.ID).Msg("order already settled, skipping grant")
		return nil
	}

	if err := s.grantOrExtend(ctx, order, settledAt, expiry, duration); err != nil {
		return err
	}
	s.promoteCustomer(ctx, order.UserID)
	return nil
}

// grantOrExtend creates the entitlement on first settlement and extends it
// additively on repeat purchases: new expiry = existing expiry + duration,
// stacking rather than resetting the clock. An entitlement that lapsed
// between checkout and settlement extends from the settlement time instead,
// so the buyer never pays for time already in the past.
func (s *Service) grantOrExtend(ctx context.Context, order models.Order, settledAt, expiry time.Time, duration time.Duration) error {
	existing, err := s.assets.GetActiveUserAsset(ctx, order.UserID, order.ProductID)
	if err == nil {
		newExpiry := extensionBase(existing.ExpiryDate, settledAt).Add(duration)
		if err := s.assets.ExtendUserAsset(ctx, existing.ID, newExpiry); err != nil {
			return fmt.Errorf("extend entitlement: %w", err)
		}
		s.log.Info().Str("user_id", order.UserID).Str("product_id", order.ProductID).
			Time("expiry", newExpiry).Msg("entitlement extended")
		return nil
	}
	if !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("entitlement lookup: %w", err)
	}

	asset := models.UserAsset{
		ID:           uuid.NewString(),
		UserID:       order.UserID,
		ProductID:    order.ProductID,
		OrderID:      order.ID,
		PurchaseDate: settledAt,
		ExpiryDate:   expiry,
		IsActive:     true,
		CreatedAt:    settledAt,
	}
	err = s.assets.CreateUserAsset(ctx, asset)
	if errors.Is(err, ErrDuplicateRequest) {
		// A concurrent settlement created the row between our lookup and
		// insert; fall back to extending it.
		existing, lookupErr := s.assets.GetActiveUserAsset(ctx, order.UserID, order.ProductID)
		if lookupErr != nil {
			return fmt.Errorf("entitlement re-lookup after conflict: %w", lookupErr)
		}
		return s.assets.ExtendUserAsset(ctx, existing.ID, extensionBase(existing.ExpiryDate, settledAt).Add(duration))
	}
	if err != nil {
		return fmt.Errorf("create entitlement: %w", err)
	}
	s.log.Info().Str("user_id", order.UserID).Str("product_id", order.ProductID).
		Time("expiry", expiry).Msg("entitlement granted")
	return nil
}

// promoteCustomer bumps FREE users to CUSTOMER on their first grant. Failure
// here never fails the settlement.
func (s *Service) promoteCustomer(ctx context.Context, userID string) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil || user.Role != models.RoleFree {
		return
	}
	if err := s.users.UpdateUserRole(ctx, userID, models.RoleCustomer); err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("customer promotion failed")
	}
}

// extensionBase clamps the extension start to the settlement time: a future
// expiry stacks, a past one restarts from now.
func extensionBase(expiry, settledAt time.Time) time.Time {
	if expiry.Before(settledAt) {
		return settledAt
	}
	return expiry
}

func accessDuration(product models.Product, defaultDays int) time.Duration {
	days := product.AccessDuration
	if days <= 0 {
		days = defaultDays
	}
	if days <= 0 {
		days = 365
	}
	return time.Duration(days) * 24 * time.Hour
}
