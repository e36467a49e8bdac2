package models

// Company is the tenant. It is created together with its first user and
// never changes afterwards.
type Company struct {
	Base
	Name       string `gorm:"size:255;not null" json:"name"`
	Identifier string `gorm:"size:255;uniqueIndex;not null" json:"identifier"`

	// Relationships
	Users []User `gorm:"foreignKey:CompanyID" json:"-"`
	Tasks []Task `gorm:"foreignKey:CompanyID" json:"-"`
}

func (Company) TableName() string {
	return "companies"
}
