package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProductKind enum constants
const (
	KindPasta = "PASTA"
	KindSauce = "SAUCE"
	KindOther = "OTHER"
)

// PastaLength enum constants (only meaningful when kind = PASTA)
const (
	PastaShort = "SHORT"
	PastaLong  = "LONG"
)

// SauceType enum constants (only meaningful when kind = SAUCE)
const (
	SauceMustard = "MUSTARD"
	SaucePesto   = "PESTO"
)

// Product is a catalog entry. Exactly one of PriceCategoryID and UnitPrice
// must be set; OnHand changes only through StockTransaction application.
type Product struct {
	ID              uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name            string           `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	Kind            string           `gorm:"type:varchar(10);not null;default:'OTHER'" json:"kind"` // PASTA, SAUCE, OTHER
	PastaLength     *string          `gorm:"type:varchar(10)" json:"pasta_length,omitempty"`
	SauceType       *string          `gorm:"type:varchar(10)" json:"sauce_type,omitempty"`
	Active          bool             `gorm:"default:true" json:"active"`
	PriceCategoryID *uuid.UUID       `gorm:"type:uuid;index" json:"price_category_id"`
	PriceCategory   *PriceCategory   `gorm:"foreignKey:PriceCategoryID" json:"price_category,omitempty"`
	UnitPrice       *decimal.Decimal `gorm:"type:decimal(10,2)" json:"unit_price"`
	OnHand          int              `gorm:"type:int;not null;default:0" json:"on_hand"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
	DeletedAt       gorm.DeletedAt   `gorm:"index" json:"-"`
}

// Unit returns the unit of measure implied by the product kind:
// pasta is sold by weight, sauces by piece.
func (p *Product) Unit() string {
	switch p.Kind {
	case KindPasta:
		return "kg"
	case KindSauce:
		return "pcs"
	default:
		return ""
	}
}
