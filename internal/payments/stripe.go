package payments

import (
	"context"
	"errors"
	"fmt"

	"digitalstore/internal/services"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
	"github.com/stripe/stripe-go/v76/webhook"
)

// StripeClient implements services.CheckoutClient against Stripe's hosted
// checkout.
type StripeClient struct {
	currency string
}

func NewStripeClient(apiKey, currency string) *StripeClient {
	stripe.Key = apiKey
	return &StripeClient{currency: currency}
}

func (c *StripeClient) CreateCheckoutSession(ctx context.Context, params services.CheckoutSessionParams) (services.CheckoutSession, error) {
	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(params.LineItems))
	for _, item := range params.LineItems {
		productData := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(item.Name),
			Metadata: map[string]string{
				"productId": item.ProductID,
			},
		}
		if item.Description != "" {
			productData.Description = stripe.String(item.Description)
		}
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(c.currency),
				UnitAmount:  stripe.Int64(item.UnitAmount),
				ProductData: productData,
			},
			Quantity: stripe.Int64(1),
		})
	}

	sessionParams := &stripe.CheckoutSessionParams{
		Mode:                     stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:               stripe.String(params.SuccessURL),
		CancelURL:                stripe.String(params.CancelURL),
		LineItems:                lineItems,
		Metadata:                 params.Metadata,
		BillingAddressCollection: stripe.String(string(stripe.CheckoutSessionBillingAddressCollectionRequired)),
	}
	sessionParams.Context = ctx

	sess, err := session.New(sessionParams)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) {
			return services.CheckoutSession{}, fmt.Errorf("stripe %s: %s", stripeErr.Code, stripeErr.Msg)
		}
		return services.CheckoutSession{}, err
	}
	return services.CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

var _ services.CheckoutClient = (*StripeClient)(nil)

// VerifyWebhookEvent checks the provider signature over the raw payload and
// returns the decoded event. Nothing downstream runs on an unverified body.
func VerifyWebhookEvent(payload []byte, signatureHeader, secret string) (stripe.Event, error) {
	return webhook.ConstructEvent(payload, signatureHeader, secret)
}
