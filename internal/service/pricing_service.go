package service

import (
	"context"
	"errors"
	"fmt"

	"pastahub/internal/model"
	"pastahub/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PricingService resolves the unit price a given customer pays for a given
// product. Precedence: product-specific override > category override >
// category default > product direct price. The result is captured once
// into Item.UnitPrice at item-creation time and never recomputed.
type PricingService interface {
	ResolveUnitPrice(ctx context.Context, customerID uuid.UUID, product *model.Product) (decimal.Decimal, error)
}

type pricingService struct {
	overrideRepo repository.PriceOverrideRepository
	categoryRepo repository.PriceCategoryRepository
}

func NewPricingService(
	overrideRepo repository.PriceOverrideRepository,
	categoryRepo repository.PriceCategoryRepository,
) PricingService {
	return &pricingService{
		overrideRepo: overrideRepo,
		categoryRepo: categoryRepo,
	}
}

func (s *pricingService) ResolveUnitPrice(ctx context.Context, customerID uuid.UUID, product *model.Product) (decimal.Decimal, error) {
	override, err := s.overrideRepo.FindForProduct(ctx, customerID, product.ID)
	if err == nil {
		return override.UnitPrice, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, fmt.Errorf("failed to look up product override: %w", err)
	}

	if product.PriceCategoryID != nil {
		override, err = s.overrideRepo.FindForCategory(ctx, customerID, *product.PriceCategoryID)
		if err == nil {
			return override.UnitPrice, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, fmt.Errorf("failed to look up category override: %w", err)
		}

		category, err := s.categoryRepo.FindByID(ctx, *product.PriceCategoryID)
		if err != nil {
			return decimal.Zero, fmt.Errorf("failed to load price category: %w", err)
		}
		return category.DefaultPrice, nil
	}

	if product.UnitPrice != nil {
		return *product.UnitPrice, nil
	}

	return decimal.Zero, &ConfigurationError{
		Msg: fmt.Sprintf("product %q has neither a price category nor a unit price", product.Name),
	}
}
