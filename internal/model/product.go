package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product statuses. The status gates which workflow may act on a product.
const (
	ProductAvailable    = "available"
	ProductReserved     = "reserved"
	ProductRented       = "rented"
	ProductTransferring = "transferring"
	ProductLaundry      = "laundry"
)

// ValidProductStatus reports whether s is a known product status
func ValidProductStatus(s string) bool {
	switch s {
	case ProductAvailable, ProductReserved, ProductRented, ProductTransferring, ProductLaundry:
		return true
	}
	return false
}

type Product struct {
	BaseModel
	StoreID       uuid.UUID       `gorm:"type:uuid;not null;index;uniqueIndex:idx_products_store_code" json:"store_id"`
	Store         *Store          `gorm:"foreignKey:StoreID" json:"store,omitempty"`
	CategoryID    *uuid.UUID      `gorm:"type:uuid;index" json:"category_id"`
	Category      *Category       `gorm:"foreignKey:CategoryID;constraint:OnDelete:RESTRICT" json:"category,omitempty"`
	Code          string          `gorm:"type:varchar(50);not null;uniqueIndex:idx_products_store_code" json:"code"`
	Name          string          `gorm:"type:varchar(255);not null" json:"name"`
	Description   string          `gorm:"type:text" json:"description"`
	Size          string          `gorm:"type:varchar(20)" json:"size"`
	Color         string          `gorm:"type:varchar(50)" json:"color"`
	Brand         string          `gorm:"type:varchar(100)" json:"brand"`
	PurchasePrice decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"purchase_price"`
	RentalPrice   decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"rental_price"`
	Status        string          `gorm:"type:varchar(20);not null;default:'available';index" json:"status"`
	IsFeatured    bool            `gorm:"not null;default:false" json:"is_featured"`
	Images        []ProductImage  `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"images,omitempty"`
}

type ProductImage struct {
	BaseModel
	ProductID uuid.UUID `gorm:"type:uuid;not null;index" json:"product_id"`
	URLThumb  string    `gorm:"type:varchar(500);not null" json:"url_thumb"`
	URLFull   string    `gorm:"type:varchar(500);not null" json:"url_full"`
	IsMain    bool      `gorm:"not null;default:false" json:"is_main"`
	Position  int       `gorm:"not null;default:0" json:"position"`
}

// ProductSummary is the row shape of the product listing
type ProductSummary struct {
	ID           uuid.UUID       `json:"id"`
	StoreID      uuid.UUID       `json:"store_id"`
	StoreName    string          `json:"store_name"`
	CategoryID   *uuid.UUID      `json:"category_id"`
	CategoryName *string         `json:"category_name"`
	Code         string          `json:"code"`
	Name         string          `json:"name"`
	Size         string          `json:"size"`
	Color        string          `json:"color"`
	RentalPrice  decimal.Decimal `json:"rental_price"`
	Status       string          `json:"status"`
	IsFeatured   bool            `json:"is_featured"`
	MainImage    *string         `json:"main_image"`
}
