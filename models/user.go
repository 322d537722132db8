package models

import (
	"gorm.io/gorm"
)

// User is the identity record issued by the identity provider. The board
// service only reads it: to resolve the caller of a request and to find the
// invitee of an invitation by email.
type User struct {
	gorm.Model

	Email    string  `gorm:"uniqueIndex;not null" json:"email"`
	Name     *string `json:"name,omitempty"`
	IsActive bool    `gorm:"default:true" json:"is_active"`
}
