package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog entry with its current stock level.
type Product struct {
	ID          uint            `gorm:"primaryKey"`
	Code        string          `gorm:"size:40;not null;uniqueIndex"`
	Name        string          `gorm:"not null;index"`
	Description string
	UnitPrice   decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	// Quantity is the current quantity on hand. It never goes below zero:
	// every decrement is a conditional UPDATE guarded by quantity >= n.
	Quantity    int    `gorm:"not null;default:0"`
	MinQuantity int    `gorm:"not null;default:0"` // reorder threshold
	ImagePath   string // relative path under the upload dir, empty if none
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// LowStock reports whether the product is at or below its reorder threshold.
func (p *Product) LowStock() bool { return p.Quantity <= p.MinQuantity }

// Movement kinds for the stock journal.
const (
	MovementIn  = "in"
	MovementOut = "out"
)

// StockMovement is one journal entry of stock entering or leaving a product.
type StockMovement struct {
	ID        uint    `gorm:"primaryKey"`
	ProductID uint    `gorm:"not null;index"`
	Product   Product `gorm:"foreignKey:ProductID"`
	Kind      string  `gorm:"size:10;not null"` // in | out
	Quantity  int     `gorm:"not null"`
	Reason    string
	Actor     string `gorm:"size:60"` // username of whoever moved the stock
	CreatedAt time.Time
}
