package services

import (
	"context"
	"errors"

	"digitalstore/internal/metrics"
	"digitalstore/internal/models"
)

// VerifyProductAccess evaluates whether a user currently holds valid access
// to a product. Checks run in strict order and short-circuit on the first
// failure; any store error denies access (fail-closed). The verdict is
// computed fresh on every call because expiry is time-relative.
func (s *Service) VerifyProductAccess(ctx context.Context, userID, productID string) models.AccessResult {
	asset, err := s.assets.GetUserAsset(ctx, userID, productID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.log.Error().Err(err).Str("user_id", userID).Str("product_id", productID).
				Msg("entitlement lookup failed, denying access")
		}
		return s.verdict(models.AccessResult{
			HasAccess: false,
			Reason:    models.AccessReasonNotPurchased,
		})
	}

	if !asset.IsActive {
		return s.verdict(models.AccessResult{
			HasAccess:   false,
			Reason:      models.AccessReasonInactive,
			ExpiryDate:  &asset.ExpiryDate,
			IsActive:    &asset.IsActive,
			UserAssetID: asset.ID,
		})
	}

	if !asset.ExpiryDate.After(s.now()) {
		return s.verdict(models.AccessResult{
			HasAccess:   false,
			Reason:      models.AccessReasonExpired,
			ExpiryDate:  &asset.ExpiryDate,
			IsActive:    &asset.IsActive,
			UserAssetID: asset.ID,
		})
	}

	return s.verdict(models.AccessResult{
		HasAccess:   true,
		Reason:      models.AccessReasonValid,
		ExpiryDate:  &asset.ExpiryDate,
		IsActive:    &asset.IsActive,
		UserAssetID: asset.ID,
	})
}

// VerifyModuleAccess resolves the module's owning product and delegates.
// Access is never encoded at module grain.
func (s *Service) VerifyModuleAccess(ctx context.Context, userID, moduleID string) models.AccessResult {
	module, err := s.catalog.GetModule(ctx, moduleID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.log.Error().Err(err).Str("module_id", moduleID).Msg("module lookup failed, denying access")
		}
		return s.verdict(models.AccessResult{HasAccess: false, Reason: models.AccessReasonNotPurchased})
	}
	return s.VerifyProductAccess(ctx, userID, module.ProductID)
}

// VerifyMaterialAccess resolves material -> module -> product.
func (s *Service) VerifyMaterialAccess(ctx context.Context, userID, materialID string) models.AccessResult {
	material, err := s.catalog.GetMaterial(ctx, materialID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.log.Error().Err(err).Str("material_id", materialID).Msg("material lookup failed, denying access")
		}
		return s.verdict(models.AccessResult{HasAccess: false, Reason: models.AccessReasonNotPurchased})
	}
	return s.VerifyModuleAccess(ctx, userID, material.ModuleID)
}

func (s *Service) verdict(result models.AccessResult) models.AccessResult {
	metrics.AccessChecks.WithLabelValues(result.Reason).Inc()
	return result
}
