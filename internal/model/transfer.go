package model

import (
	"time"

	"github.com/google/uuid"
)

// Transfer statuses
const (
	TransferInTransit = "in_transit"
	TransferCompleted = "completed"
	TransferCancelled = "cancelled"
)

// ProductTransfer moves one product between two stores: requested, then received.
type ProductTransfer struct {
	BaseModel
	ProductID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"product_id"`
	Product     *Product   `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	FromStoreID uuid.UUID  `gorm:"type:uuid;not null;index" json:"from_store_id"`
	FromStore   *Store     `gorm:"foreignKey:FromStoreID" json:"from_store,omitempty"`
	ToStoreID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"to_store_id"`
	ToStore     *Store     `gorm:"foreignKey:ToStoreID" json:"to_store,omitempty"`
	RequestedBy uuid.UUID  `gorm:"type:uuid;not null" json:"requested_by"`
	ReceivedBy  *uuid.UUID `gorm:"type:uuid" json:"received_by"`
	Status      string     `gorm:"type:varchar(20);not null;default:'in_transit';index" json:"status"`
	RequestedAt time.Time  `gorm:"not null" json:"requested_at"`
	ReceivedAt  *time.Time `json:"received_at"`
}
