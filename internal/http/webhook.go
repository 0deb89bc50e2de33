package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"digitalstore/internal/metrics"
	"digitalstore/internal/payments"
	"digitalstore/internal/services"

	"github.com/stripe/stripe-go/v76"
)

const webhookMaxBodyBytes = 65536

// handleStripeWebhook settles completed checkout sessions. The signature is
// verified over the raw body before anything is decoded, and failures after
// verification return 5xx so the provider retries the delivery.
func (s *Server) handleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, webhookMaxBodyBytes))
	if err != nil {
		respondError(w, http.StatusBadRequest, errors.New("failed to read request body"))
		return
	}

	event, err := payments.VerifyWebhookEvent(payload, r.Header.Get("Stripe-Signature"), s.cfg.StripeWebhookSecret)
	if err != nil {
		s.log.Warn().Err(err).Msg("webhook signature verification failed")
		metrics.WebhookEvents.WithLabelValues("invalid_signature").Inc()
		respondError(w, http.StatusBadRequest, errors.New("invalid webhook signature"))
		return
	}

	if event.Type != "checkout.session.completed" {
		s.log.Debug().Str("event_type", string(event.Type)).Msg("ignoring webhook event")
		metrics.WebhookEvents.WithLabelValues("ignored").Inc()
		respondJSON(w, http.StatusOK, map[string]any{"received": true})
		return
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		s.log.Error().Err(err).Str("event_id", event.ID).Msg("failed to decode checkout session")
		respondError(w, http.StatusBadRequest, errors.New("malformed event payload"))
		return
	}

	sessionEvent := services.CheckoutSessionEvent{
		SessionID:     sess.ID,
		PaymentStatus: string(sess.PaymentStatus),
		Metadata:      sess.Metadata,
	}
	if sess.PaymentIntent != nil {
		sessionEvent.PaymentIntentID = sess.PaymentIntent.ID
	}

	result, err := s.svc.SettleCheckoutSession(r.Context(), sessionEvent)
	if err != nil {
		s.log.Error().Err(err).Str("session_id", sess.ID).Msg("webhook settlement failed")
		// 5xx triggers a provider retry; malformed metadata will never
		// succeed but still needs a human to look at it.
		respondError(w, http.StatusInternalServerError, errors.New("settlement failed"))
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"received":         true,
		"processed":        result.Processed,
		"orders_processed": result.OrdersProcessed,
	})
}
