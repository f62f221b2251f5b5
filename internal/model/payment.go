package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment is an immutable receipt. Its side effect is on the linked installment.
type Payment struct {
	BaseModel
	RentalID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"rental_id"`
	InstallmentID *uuid.UUID      `gorm:"type:uuid;index" json:"installment_id"`
	UserID        uuid.UUID       `gorm:"type:uuid;not null" json:"user_id"`
	User          *User           `gorm:"foreignKey:UserID" json:"-"`
	Amount        decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	PaymentMethod string          `gorm:"type:varchar(30);not null" json:"payment_method"`
	PaidAt        time.Time       `gorm:"not null" json:"paid_at"`
	Notes         string          `gorm:"type:text" json:"notes"`
	RecordedBy    string          `gorm:"->;-:migration" json:"recorded_by,omitempty"`
}
