package repository

import (
	"context"

	"pastahub/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PriceCategoryRepository interface {
	Create(ctx context.Context, category *model.PriceCategory) error
	Update(ctx context.Context, category *model.PriceCategory) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.PriceCategory, error)
	List(ctx context.Context) ([]model.PriceCategory, error)
}

type priceCategoryRepository struct {
	db *gorm.DB
}

func NewPriceCategoryRepository(db *gorm.DB) PriceCategoryRepository {
	return &priceCategoryRepository{db: db}
}

func (r *priceCategoryRepository) Create(ctx context.Context, category *model.PriceCategory) error {
	return GetDB(ctx, r.db).Create(category).Error
}

func (r *priceCategoryRepository) Update(ctx context.Context, category *model.PriceCategory) error {
	return GetDB(ctx, r.db).Save(category).Error
}

func (r *priceCategoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.PriceCategory, error) {
	var category model.PriceCategory
	if err := GetDB(ctx, r.db).First(&category, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *priceCategoryRepository) List(ctx context.Context) ([]model.PriceCategory, error) {
	var categories []model.PriceCategory
	if err := GetDB(ctx, r.db).Order("name").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

type PriceOverrideRepository interface {
	Upsert(ctx context.Context, override *model.PriceOverride) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindForProduct(ctx context.Context, customerID, productID uuid.UUID) (*model.PriceOverride, error)
	FindForCategory(ctx context.Context, customerID, categoryID uuid.UUID) (*model.PriceOverride, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]model.PriceOverride, error)
}

type priceOverrideRepository struct {
	db *gorm.DB
}

func NewPriceOverrideRepository(db *gorm.DB) PriceOverrideRepository {
	return &priceOverrideRepository{db: db}
}

// Upsert replaces an existing override for the same (customer, category) or
// (customer, product) pair, keeping the at-most-one invariant.
func (r *priceOverrideRepository) Upsert(ctx context.Context, override *model.PriceOverride) error {
	db := GetDB(ctx, r.db)

	var existing model.PriceOverride
	query := db.Where("customer_id = ?", override.CustomerID)
	if override.ProductID != nil {
		query = query.Where("product_id = ?", *override.ProductID)
	} else {
		query = query.Where("price_category_id = ?", *override.PriceCategoryID)
	}

	err := query.First(&existing).Error
	if err == nil {
		existing.UnitPrice = override.UnitPrice
		return db.Save(&existing).Error
	}
	if err != gorm.ErrRecordNotFound {
		return err
	}
	return db.Create(override).Error
}

func (r *priceOverrideRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.PriceOverride{}).Error
}

func (r *priceOverrideRepository) FindForProduct(ctx context.Context, customerID, productID uuid.UUID) (*model.PriceOverride, error) {
	var override model.PriceOverride
	err := GetDB(ctx, r.db).
		Where("customer_id = ? AND product_id = ?", customerID, productID).
		First(&override).Error
	if err != nil {
		return nil, err
	}
	return &override, nil
}

func (r *priceOverrideRepository) FindForCategory(ctx context.Context, customerID, categoryID uuid.UUID) (*model.PriceOverride, error) {
	var override model.PriceOverride
	err := GetDB(ctx, r.db).
		Where("customer_id = ? AND price_category_id = ?", customerID, categoryID).
		First(&override).Error
	if err != nil {
		return nil, err
	}
	return &override, nil
}

func (r *priceOverrideRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]model.PriceOverride, error) {
	var overrides []model.PriceOverride
	if err := GetDB(ctx, r.db).Where("customer_id = ?", customerID).Find(&overrides).Error; err != nil {
		return nil, err
	}
	return overrides, nil
}
