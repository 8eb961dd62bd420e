package models

import (
	"gorm.io/gorm"
)

// Listing is a marketplace item offered by a creator. Price is in integer
// minor currency units.
type Listing struct {
	gorm.Model
	CreatorID uint   `gorm:"not null;index"`
	Title     string `gorm:"not null"`
	Price     int64  `gorm:"not null"`
	Currency  string `gorm:"not null;default:'usd'"`
	Active    bool   `gorm:"default:true"`
}
