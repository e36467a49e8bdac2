package models

import "github.com/google/uuid"

type User struct {
	Base
	Name         string    `gorm:"size:255;not null" json:"name"`
	Email        string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	CompanyID    uuid.UUID `gorm:"type:uuid;index;not null" json:"company_id"`

	// Relationships
	Company *Company `gorm:"foreignKey:CompanyID" json:"company,omitempty"`
}

func (User) TableName() string {
	return "users"
}
