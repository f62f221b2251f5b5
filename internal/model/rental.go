package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Rental statuses
const (
	RentalBudget    = "budget"
	RentalReserved  = "reserved"
	RentalPickedUp  = "picked_up"
	RentalReturned  = "returned"
	RentalCancelled = "cancelled"
)

// Delivery types
const (
	DeliveryPickupStore = "pickup_store"
	DeliveryHome        = "delivery"
)

// Installment statuses
const (
	InstallmentPending       = "pending"
	InstallmentPartiallyPaid = "partially_paid"
	InstallmentPaid          = "paid"
)

type Rental struct {
	BaseModel
	StoreID           uuid.UUID       `gorm:"type:uuid;not null;index" json:"store_id"`
	Store             *Store          `gorm:"foreignKey:StoreID" json:"store,omitempty"`
	CustomerID        uuid.UUID       `gorm:"type:uuid;not null;index" json:"customer_id"`
	Customer          *Customer       `gorm:"foreignKey:CustomerID;constraint:OnDelete:RESTRICT" json:"customer,omitempty"`
	UserID            uuid.UUID       `gorm:"type:uuid;not null" json:"user_id"`
	DeliveryAddressID *uuid.UUID      `gorm:"type:uuid" json:"delivery_address_id"`
	DeliveryType      string          `gorm:"type:varchar(20);not null;default:'pickup_store'" json:"delivery_type"`
	StartDate         time.Time       `gorm:"type:date;not null" json:"start_date"`
	EndDateScheduled  time.Time       `gorm:"type:date;not null" json:"end_date_scheduled"`
	ReturnedAt        *time.Time      `json:"returned_at"`
	Status            string          `gorm:"type:varchar(20);not null;default:'reserved';index" json:"status"`
	TotalAmount       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_amount"`
	Discount          decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"discount"`
	Notes             string          `gorm:"type:text" json:"notes"`
	Items             []RentalItem    `gorm:"foreignKey:RentalID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
	Installments      []Installment   `gorm:"foreignKey:RentalID;constraint:OnDelete:CASCADE" json:"installments,omitempty"`
}

// RentalItem snapshots the product's rental price at creation time
type RentalItem struct {
	BaseModel
	RentalID  uuid.UUID       `gorm:"type:uuid;not null;index" json:"rental_id"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	Product   *Product        `gorm:"foreignKey:ProductID;constraint:OnDelete:RESTRICT" json:"product,omitempty"`
	UnitPrice decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unit_price"`
	Quantity  int             `gorm:"not null;default:1" json:"quantity"`
}

type Installment struct {
	BaseModel
	RentalID          uuid.UUID       `gorm:"type:uuid;not null;index" json:"rental_id"`
	Number            int             `gorm:"not null" json:"number"`
	TotalInstallments int             `gorm:"not null" json:"total_installments"`
	Value             decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"value"`
	DueDate           time.Time       `gorm:"type:date;not null" json:"due_date"`
	Status            string          `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	AmountPaid        decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"amount_paid"`
	PaidAt            *time.Time      `json:"paid_at"`
}

// RentalSummary is the row shape of the rental listing
type RentalSummary struct {
	ID               uuid.UUID       `json:"id"`
	StoreID          uuid.UUID       `json:"store_id"`
	StoreName        string          `json:"store_name"`
	CustomerID       uuid.UUID       `json:"customer_id"`
	CustomerName     string          `json:"customer_name"`
	Status           string          `json:"status"`
	StartDate        time.Time       `json:"start_date"`
	EndDateScheduled time.Time       `json:"end_date_scheduled"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	CreatedAt        time.Time       `json:"created_at"`
}
