package services

import (
	"context"
	"fmt"

	"digitalstore/internal/metrics"
	"digitalstore/internal/models"

	"github.com/google/uuid"
)

type CheckoutResult struct {
	SessionID     string   `json:"session_id"`
	URL           string   `json:"url"`
	OrderIDs      []string `json:"order_ids"`
	TotalOriginal int64    `json:"total_original"`
	TotalFinal    int64    `json:"total_final"`
	HasDiscount   bool     `json:"has_discount"`
}

// CreateCheckout validates a purchase request, creates one PENDING order per
// product at the discounted price, and opens a hosted payment session. The
// session metadata carries everything the settlement processor needs to
// recover context later; the webhook delivers no other correlation.
//
// userID is always the authenticated session's user, never client input.
func (s *Service) CreateCheckout(ctx context.Context, userID string, productIDs []string) (CheckoutResult, error) {
	if s.checkout == nil {
		return CheckoutResult{}, ErrStripeNotConfigured
	}
	if userID == "" || len(productIDs) == 0 {
		return CheckoutResult{}, ErrInvalidRequest
	}

	products, err := s.catalog.FindActiveProducts(ctx, productIDs)
	if err != nil {
		return CheckoutResult{}, fmt.Errorf("resolve products: %w", err)
	}
	if len(products) == 0 {
		return CheckoutResult{}, ErrNoValidProducts
	}

	// Ownership guard: a user may not buy what they already hold valid
	// access to.
	owned, err := s.assets.ListActiveUserAssets(ctx, userID, productIDs)
	if err != nil {
		return CheckoutResult{}, fmt.Errorf("ownership check: %w", err)
	}
	if len(owned) > 0 {
		names := make([]string, 0, len(owned))
		for _, asset := range owned {
			names = append(names, productName(products, asset.ProductID))
		}
		return CheckoutResult{}, &AlreadyOwnedError{ProductNames: names}
	}

	// Abandoned carts leave PENDING orders behind; clear them before
	// creating fresh ones.
	deleted, err := s.orders.DeletePendingOrders(ctx, userID, productIDs)
	if err != nil {
		return CheckoutResult{}, fmt.Errorf("pending cleanup: %w", err)
	}
	if deleted > 0 {
		s.log.Info().Str("user_id", userID).Int64("deleted", deleted).Msg("removed stale pending orders")
	}

	quotes, err := s.QuotePrices(ctx, products)
	if err != nil {
		return CheckoutResult{}, fmt.Errorf("quote prices: %w", err)
	}

	now := s.now()
	orderIDs := make([]string, 0, len(products))
	lineItems := make([]CheckoutLineItem, 0, len(products))
	var totalOriginal, totalFinal int64
	for _, p := range products {
		quote := quotes[p.ID]
		order := models.Order{
			ID:        uuid.NewString(),
			UserID:    userID,
			ProductID: p.ID,
			Amount:    quote.FinalPrice,
			Status:    models.OrderStatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.orders.CreateOrder(ctx, order); err != nil {
			return CheckoutResult{}, fmt.Errorf("create order for %s: %w", p.ID, err)
		}
		orderIDs = append(orderIDs, order.ID)
		lineItems = append(lineItems, CheckoutLineItem{
			ProductID:   p.ID,
			Name:        p.Name,
			Description: p.ShortDescription,
			UnitAmount:  quote.FinalPrice,
		})
		totalOriginal += quote.OriginalPrice
		totalFinal += quote.FinalPrice
	}

	meta := SessionMetadata{
		UserID:        userID,
		OrderIDs:      orderIDs,
		TotalOriginal: totalOriginal,
		TotalFinal:    totalFinal,
		HasDiscount:   totalFinal < totalOriginal,
		TotalSavings:  totalOriginal - totalFinal,
	}
	sess, err := s.checkout.CreateCheckoutSession(ctx, CheckoutSessionParams{
		LineItems:  lineItems,
		Metadata:   meta.Encode(),
		SuccessURL: s.cfg.AppURL + "/sucesso?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  s.cfg.AppURL + "/carrinho",
	})
	if err != nil {
		metrics.CheckoutSessions.WithLabelValues("error").Inc()
		return CheckoutResult{}, fmt.Errorf("create checkout session: %w", err)
	}

	// The session reference on each order is the webhook's lookup path.
	if err := s.orders.SetOrdersCheckoutSession(ctx, orderIDs, sess.ID); err != nil {
		return CheckoutResult{}, fmt.Errorf("link orders to session: %w", err)
	}

	metrics.CheckoutSessions.WithLabelValues("created").Inc()
	s.log.Info().Str("user_id", userID).Str("session_id", sess.ID).
		Strs("order_ids", orderIDs).Int64("total_final", totalFinal).
		Bool("has_discount", meta.HasDiscount).Msg("checkout session created")

	return CheckoutResult{
		SessionID:     sess.ID,
		URL:           sess.URL,
		OrderIDs:      orderIDs,
		TotalOriginal: totalOriginal,
		TotalFinal:    totalFinal,
		HasDiscount:   meta.HasDiscount,
	}, nil
}

func productName(products []models.Product, id string) string {
	for _, p := range products {
		if p.ID == id {
			return p.Name
		}
	}
	return id
}
