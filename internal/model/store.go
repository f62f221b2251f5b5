package model

// Store is a branch that owns users, products and rentals
type Store struct {
	BaseModel
	Name    string `gorm:"type:varchar(255);not null" json:"name"`
	Phone   string `gorm:"type:varchar(30)" json:"phone"`
	Address string `gorm:"type:varchar(500)" json:"address,omitempty"`
}
