package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SaleCodePrefix is used when generating human-readable sale codes (VNT-000001).
const SaleCodePrefix = "VNT-"

// Sale groups the lines sold to one customer in a single transaction.
// A sale is immutable once recorded; deleting it restores the stock
// its lines decremented.
type Sale struct {
	ID         uint     `gorm:"primaryKey"`
	Code       string   `gorm:"size:20;not null;uniqueIndex"`
	CustomerID uint     `gorm:"not null;index"`
	Customer   Customer `gorm:"foreignKey:CustomerID"`
	Total      decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Lines      []SaleLine      `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time       `gorm:"index"`
	UpdatedAt  time.Time
}

// SaleLine is one product entry within a sale. UnitPrice is a snapshot of
// the product price at the moment the sale was recorded and never tracks
// later price edits.
type SaleLine struct {
	ID        uint            `gorm:"primaryKey"`
	SaleID    uint            `gorm:"not null;index"`
	ProductID uint            `gorm:"not null"`
	Product   Product         `gorm:"foreignKey:ProductID"`
	Quantity  int             `gorm:"not null"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Subtotal  decimal.Decimal `gorm:"type:decimal(12,2);not null"`
}
