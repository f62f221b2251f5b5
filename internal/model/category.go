package model

import "github.com/google/uuid"

// Category forms a tree through ParentID
type Category struct {
	BaseModel
	ParentID    *uuid.UUID `gorm:"type:uuid;index" json:"parent_id"`
	Parent      *Category  `gorm:"foreignKey:ParentID;constraint:OnDelete:RESTRICT" json:"-"`
	Name        string     `gorm:"type:varchar(100);not null" json:"name"`
	Description string     `gorm:"type:text" json:"description"`
	ParentName  string     `gorm:"->;-:migration" json:"parent_name,omitempty"`
}
