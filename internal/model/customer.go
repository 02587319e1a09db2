package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Customer is a wholesale buyer with a billing profile and one or more
// delivery addresses. IDokladContactID stays nil until the customer is
// linked to a contact in the external accounting service.
type Customer struct {
	ID               uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name             string            `gorm:"type:varchar(100);not null" json:"name"`
	UserID           *uuid.UUID        `gorm:"type:uuid;uniqueIndex" json:"user_id"`
	User             *User             `gorm:"foreignKey:UserID" json:"-"`
	TaxID            string            `gorm:"type:varchar(8)" json:"tax_id"` // 8-digit company registration number
	Street           string            `gorm:"type:varchar(200)" json:"street"`
	City             string            `gorm:"type:varchar(100)" json:"city"`
	PostalCode       string            `gorm:"type:varchar(10)" json:"postal_code"`
	IDokladContactID *int              `gorm:"column:idoklad_contact_id" json:"idoklad_contact_id"`
	Addresses        []DeliveryAddress `gorm:"foreignKey:CustomerID;constraint:OnDelete:CASCADE" json:"addresses"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
	DeletedAt        gorm.DeletedAt    `gorm:"index" json:"-"`
}

// DeliveryAddress belongs to exactly one customer. The weekday flags drive
// the delivery calendar; an address with no flag set inherits the
// system-wide default schedule.
type DeliveryAddress struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CustomerID  uuid.UUID `gorm:"type:uuid;not null;index" json:"customer_id"`
	Label       string    `gorm:"type:varchar(50)" json:"label"`
	FullAddress string    `gorm:"type:text;not null" json:"full_address"`
	Monday      bool      `gorm:"default:false" json:"monday"`
	Tuesday     bool      `gorm:"default:false" json:"tuesday"`
	Wednesday   bool      `gorm:"default:false" json:"wednesday"`
	Thursday    bool      `gorm:"default:false" json:"thursday"`
	Friday      bool      `gorm:"default:false" json:"friday"`
	Saturday    bool      `gorm:"default:false" json:"saturday"`
	Sunday      bool      `gorm:"default:false" json:"sunday"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Weekdays returns the set of time.Weekday values the address is served on.
func (a *DeliveryAddress) Weekdays() []time.Weekday {
	flags := []bool{a.Sunday, a.Monday, a.Tuesday, a.Wednesday, a.Thursday, a.Friday, a.Saturday}
	var days []time.Weekday
	for i, set := range flags {
		if set {
			days = append(days, time.Weekday(i))
		}
	}
	return days
}
