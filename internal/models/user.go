package models

import (
	"gorm.io/gorm"
)

// User roles
const (
	RoleBuyer   = "buyer"
	RoleCreator = "creator"
	RoleAdmin   = "admin"
)

// User is the minimal account record the settlement core needs to resolve
// buyer and creator ids. Account management lives in the surrounding app.
type User struct {
	gorm.Model
	Email  string `gorm:"uniqueIndex;not null"`
	Name   string `gorm:"not null"`
	Role   string `gorm:"default:'buyer'"`
	Status string `gorm:"default:'active'"`
}
