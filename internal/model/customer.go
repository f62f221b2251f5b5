package model

import (
	"time"

	"github.com/google/uuid"
)

// Customer is a person who rents products.
// Addresses and Contacts are replaced as a whole on update.
type Customer struct {
	BaseModel
	SoftDelete
	Name         string         `gorm:"type:varchar(255);not null;index" json:"name"`
	CPF          *string        `gorm:"type:varchar(20);uniqueIndex" json:"cpf"`
	RG           *string        `gorm:"type:varchar(30);uniqueIndex" json:"rg"`
	BirthDate    *time.Time     `gorm:"type:date" json:"birth_date"`
	Measurements map[string]any `gorm:"type:jsonb;serializer:json" json:"measurements"`
	Notes        string         `gorm:"type:text" json:"notes"`
	IsActive     bool           `gorm:"not null;default:true" json:"is_active"`
	Addresses    []Address      `gorm:"foreignKey:CustomerID;constraint:OnDelete:CASCADE" json:"addresses"`
	Contacts     []Contact      `gorm:"foreignKey:CustomerID;constraint:OnDelete:CASCADE" json:"contacts"`
}

type Address struct {
	BaseModel
	CustomerID   uuid.UUID `gorm:"type:uuid;not null;index" json:"customer_id"`
	Type         string    `gorm:"type:varchar(20);default:'residential'" json:"type"`
	Label        string    `gorm:"type:varchar(100)" json:"label"`
	ZipCode      string    `gorm:"type:varchar(20)" json:"zip_code"`
	Street       string    `gorm:"type:varchar(255)" json:"street"`
	Number       string    `gorm:"type:varchar(20)" json:"number"`
	Complement   string    `gorm:"type:varchar(100)" json:"complement"`
	Neighborhood string    `gorm:"type:varchar(100)" json:"neighborhood"`
	City         string    `gorm:"type:varchar(100)" json:"city"`
	State        string    `gorm:"type:varchar(2)" json:"state"`
	IsDefault    bool      `gorm:"not null;default:false" json:"is_default"`
	Position     int       `gorm:"not null;default:0" json:"-"`
}

// Contact types
const (
	ContactWhatsApp = "whatsapp"
	ContactMobile   = "mobile"
	ContactPhone    = "phone"
	ContactEmail    = "email"
)

type Contact struct {
	BaseModel
	CustomerID uuid.UUID `gorm:"type:uuid;not null;index" json:"customer_id"`
	Type       string    `gorm:"type:varchar(20);not null" json:"type"`
	Value      string    `gorm:"type:varchar(255);not null" json:"value"`
	IsPrimary  bool      `gorm:"not null;default:false" json:"is_primary"`
	Position   int       `gorm:"not null;default:0" json:"-"`
}

// CustomerSummary is the row shape of the customer listing
type CustomerSummary struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	CPF       *string    `json:"cpf"`
	BirthDate *time.Time `json:"birth_date"`
	MainPhone *string    `json:"main_phone"`
	City      *string    `json:"city"`
}
