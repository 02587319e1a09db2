package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus constants
const (
	OrderStatusRejected  = "REJECTED"
	OrderStatusPending   = "PENDING"
	OrderStatusConfirmed = "CONFIRMED"
	OrderStatusCompleted = "COMPLETED"
)

// Quantity bounds per entry channel
const (
	MaxItemQuantitySelfService = 250
	MaxItemQuantityStaff       = 1000
)

// Order is a customer order. OrderedAt is nil while the order is still an
// open draft (cart); at most one draft exists per customer. Invoiced only
// ever moves false -> true. DeliveryNoteNumber is assigned once and is
// globally monotonic; DeliveryNoteRecipient is a frozen JSON snapshot of
// the billing data taken at note-creation time.
type Order struct {
	ID                    uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Number                int              `gorm:"autoIncrement;uniqueIndex" json:"number"`
	CustomerID            uuid.UUID        `gorm:"type:uuid;not null;index;uniqueIndex:idx_orders_open_draft,where:ordered_at IS NULL" json:"customer_id"`
	Customer              *Customer        `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	DeliveryAddressID     *uuid.UUID       `gorm:"type:uuid;constraint:OnDelete:SET NULL" json:"delivery_address_id"`
	DeliveryAddress       *DeliveryAddress `gorm:"foreignKey:DeliveryAddressID" json:"delivery_address,omitempty"`
	DateRequired          time.Time        `gorm:"type:date;not null" json:"date_required"`
	Status                string           `gorm:"type:varchar(20);not null;default:'PENDING'" json:"status"`
	OrderedAt             *time.Time       `json:"ordered_at"`
	Invoiced              bool             `gorm:"default:false" json:"invoiced"`
	DeliveryNoteNumber    *int             `gorm:"uniqueIndex" json:"delivery_note_number"`
	DeliveryNoteRecipient string           `gorm:"type:jsonb" json:"delivery_note_recipient,omitempty"`
	CustomerNote          string           `gorm:"type:varchar(100)" json:"customer_note"`
	StaffNote             string           `gorm:"type:varchar(100)" json:"staff_note"`
	Items                 []Item           `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt             time.Time        `json:"created_at"`
	UpdatedAt             time.Time        `json:"updated_at"`
}

// IsDraft reports whether the order has not been submitted yet.
func (o *Order) IsDraft() bool {
	return o.OrderedAt == nil
}

// TotalPrice sums quantity * unit price across all items.
func (o *Order) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

// NoteRecipient is the shape serialized into Order.DeliveryNoteRecipient.
type NoteRecipient struct {
	Name            string `json:"name"`
	TaxID           string `json:"tax_id"`
	Street          string `json:"street"`
	City            string `json:"city"`
	PostalCode      string `json:"postal_code"`
	DeliveryAddress string `json:"delivery_address"`
}

// Item is one order line. Name and UnitPrice are captured at creation time
// and never follow later catalog or override changes.
type Item struct {
	ID        uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"order_id"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	Product   *Product        `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Name      string          `gorm:"type:varchar(100);not null" json:"name"`
	Quantity  int             `gorm:"type:int;not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"unit_price"`
}
