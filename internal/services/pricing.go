package services

import (
	"context"
	"errors"

	"digitalstore/internal/models"

	"github.com/google/uuid"
)

type PriceQuote struct {
	ProductID          string `json:"product_id"`
	OriginalPrice      int64  `json:"original_price"`
	FinalPrice         int64  `json:"final_price"`
	DiscountPercentage int    `json:"discount_percentage"`
	HasDiscount        bool   `json:"has_discount"`
}

// CalculateDiscountedPrice applies a percentage discount in minor units,
// floor-rounding the discount amount. Out-of-range percentages leave the
// price untouched.
func CalculateDiscountedPrice(price int64, percentage int) int64 {
	if percentage <= 0 || percentage > 100 {
		return price
	}
	return price - price*int64(percentage)/100
}

func discountApplies(d models.Discount, category string) bool {
	if d.Type == models.DiscountTypeGeneral {
		return true
	}
	return d.Type == models.DiscountTypeCategory && d.Category == category
}

// QuotePrices prices a set of products under the currently active discount.
// A missing discount row simply means full price.
func (s *Service) QuotePrices(ctx context.Context, products []models.Product) (map[string]PriceQuote, error) {
	discount, err := s.discounts.GetActiveDiscount(ctx)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	hasDiscount := err == nil

	quotes := make(map[string]PriceQuote, len(products))
	for _, p := range products {
		quote := PriceQuote{
			ProductID:     p.ID,
			OriginalPrice: p.Price,
			FinalPrice:    p.Price,
		}
		if hasDiscount && discountApplies(discount, p.Category) {
			quote.FinalPrice = CalculateDiscountedPrice(p.Price, discount.Percentage)
			quote.DiscountPercentage = discount.Percentage
			quote.HasDiscount = quote.FinalPrice < quote.OriginalPrice
		}
		quotes[p.ID] = quote
	}
	return quotes, nil
}

func (s *Service) ActiveDiscount(ctx context.Context) (models.Discount, error) {
	return s.discounts.GetActiveDiscount(ctx)
}

// SetDiscount replaces the active discount. Only one discount is active at a
// time; the store deactivates any previous one.
func (s *Service) SetDiscount(ctx context.Context, discountType string, percentage int, category string) (models.Discount, error) {
	if percentage <= 0 || percentage > 100 {
		return models.Discount{}, ErrInvalidRequest
	}
	switch discountType {
	case models.DiscountTypeGeneral:
		category = ""
	case models.DiscountTypeCategory:
		if category == "" {
			return models.Discount{}, ErrInvalidRequest
		}
	default:
		return models.Discount{}, ErrInvalidRequest
	}

	now := s.now()
	discount := models.Discount{
		ID:         uuid.NewString(),
		Type:       discountType,
		Percentage: percentage,
		Category:   category,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.discounts.SetDiscount(ctx, discount); err != nil {
		return models.Discount{}, err
	}
	s.log.Info().Str("discount_id", discount.ID).Str("type", discountType).
		Int("percentage", percentage).Str("category", category).Msg("discount activated")
	return discount, nil
}

func (s *Service) RemoveDiscount(ctx context.Context) error {
	return s.discounts.RemoveActiveDiscount(ctx)
}
