package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PriceCategory groups products sharing a price point.
type PriceCategory struct {
	ID           uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name         string          `gorm:"type:varchar(50);uniqueIndex;not null" json:"name"`
	DefaultPrice decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"default_price"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// PriceOverride is a customer-specific price for either a whole price
// category or one concrete product. At most one override may exist per
// (customer, category) and per (customer, product) pair.
type PriceOverride struct {
	ID              uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CustomerID      uuid.UUID       `gorm:"type:uuid;not null;index;uniqueIndex:idx_override_category;uniqueIndex:idx_override_product" json:"customer_id"`
	PriceCategoryID *uuid.UUID      `gorm:"type:uuid;uniqueIndex:idx_override_category" json:"price_category_id"`
	ProductID       *uuid.UUID      `gorm:"type:uuid;uniqueIndex:idx_override_product" json:"product_id"`
	UnitPrice       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"unit_price"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}
