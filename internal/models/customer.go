package models

import "time"

// Customer entity. Deleting a customer is refused while sales reference it.
type Customer struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"not null;index"`
	LastName  string
	Email     string `gorm:"index"`
	Phone     string
	Address   string
	CreatedAt time.Time
	UpdatedAt time.Time
}
