package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionCreateProduct = "CREATE_PRODUCT"
	ActionUpdateProduct = "UPDATE_PRODUCT"
	ActionDeleteProduct = "DELETE_PRODUCT"

	ActionSubmitOrder   = "SUBMIT_ORDER"
	ActionConfirmOrder  = "CONFIRM_ORDER"
	ActionRejectOrder   = "REJECT_ORDER"
	ActionCompleteOrder = "COMPLETE_ORDER"

	ActionRecordStock        = "RECORD_STOCK"
	ActionCreateDeliveryNote = "CREATE_DELIVERY_NOTE"
	ActionInvoiceOrder       = "INVOICE_ORDER"
	ActionInvoiceBatch       = "INVOICE_BATCH"
	ActionSyncContacts       = "SYNC_CONTACTS"
)

// AuditLog tracks Who, What, and When for critical system changes
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // Nullable gracefully if automated job
	User       *User      `gorm:"foreignKey:UserID" json:"user"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`        // Reference string (uuid/number)
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"` // Human readable name
	Details    string     `gorm:"type:jsonb" json:"details"`                      // Serialized JSON payload of the action
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}
