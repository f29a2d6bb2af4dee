package models

import "github.com/erp/shopcore/internal/domain/sales"

// CustomerModel is the customer master read when a sale is made
type CustomerModel struct {
	BaseModel
	Name  string `gorm:"type:varchar(200);not null"`
	Phone string `gorm:"type:varchar(50);index"`
}

// TableName returns the table name for GORM
func (CustomerModel) TableName() string {
	return "customers"
}

// ToContact returns the contact copied onto sales and returns
func (m *CustomerModel) ToContact() *sales.CustomerContact {
	return &sales.CustomerContact{
		ID:    m.ID,
		Name:  m.Name,
		Phone: m.Phone,
	}
}
