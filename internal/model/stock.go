package model

import (
	"time"

	"github.com/google/uuid"
)

// StockTransactionType constants. Production adds stock, completion and
// liquidation remove it.
const (
	StockTxProduction  = "PRODUCTION"
	StockTxCompletion  = "COMPLETION"
	StockTxLiquidation = "LIQUIDATION"
)

// StockTransaction is an append-only ledger row. Applying one is the only
// way Product.OnHand changes; rows are never edited after creation.
// StockAfter records the clamped on-hand balance right after application,
// so the requested quantity and the actual decrement can differ when the
// balance would have gone negative.
type StockTransaction struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProductID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"product_id"`
	Product     *Product   `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	OrderID     *uuid.UUID `gorm:"type:uuid;index" json:"order_id"` // required when type = COMPLETION
	Type        string     `gorm:"type:varchar(15);not null" json:"type"`
	Quantity    int        `gorm:"type:int;not null" json:"quantity"`
	StockAfter  int        `gorm:"type:int;not null" json:"stock_after"`
	CommittedBy *uuid.UUID `gorm:"type:uuid" json:"committed_by"`
	Actor       *User      `gorm:"foreignKey:CommittedBy" json:"actor,omitempty"`
	Note        string     `gorm:"type:varchar(150)" json:"note"`
	CreatedAt   time.Time  `gorm:"index" json:"created_at"`
}
