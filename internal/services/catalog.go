package services

import (
	"context"

	"digitalstore/internal/models"
)

// ProductListing is a catalog product together with its current price quote.
type ProductListing struct {
	models.Product
	Pricing PriceQuote `json:"pricing"`
}

func (s *Service) ListProducts(ctx context.Context) ([]ProductListing, error) {
	products, err := s.catalog.ListActiveProducts(ctx)
	if err != nil {
		return nil, err
	}
	quotes, err := s.QuotePrices(ctx, products)
	if err != nil {
		return nil, err
	}
	listings := make([]ProductListing, 0, len(products))
	for _, p := range products {
		listings = append(listings, ProductListing{Product: p, Pricing: quotes[p.ID]})
	}
	return listings, nil
}

func (s *Service) GetProduct(ctx context.Context, id string) (models.Product, error) {
	return s.catalog.GetProduct(ctx, id)
}

func (s *Service) ListModules(ctx context.Context, productID string) ([]models.ProductModule, error) {
	return s.catalog.ListModules(ctx, productID)
}

func (s *Service) ListMaterials(ctx context.Context, moduleID string) ([]models.ProductMaterial, error) {
	return s.catalog.ListMaterials(ctx, moduleID)
}

func (s *Service) GetMaterial(ctx context.Context, id string) (models.ProductMaterial, error) {
	return s.catalog.GetMaterial(ctx, id)
}
