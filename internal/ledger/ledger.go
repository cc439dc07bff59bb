// Package ledger owns product stock levels. Every mutation runs in a single
// transaction and stock decrements are guarded so the quantity on hand can
// never go negative, even under concurrent sales of the same product.
package ledger

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lmedina/inventario/internal/models"
)

type Ledger struct {
	DB *gorm.DB
}

func New(db *gorm.DB) *Ledger { return &Ledger{DB: db} }

// LineInput is one validated product/quantity pair of a sale request.
type LineInput struct {
	ProductID uint
	Quantity  int
}

// RecordSale creates a sale with one line per input, snapshotting each
// product's current unit price, and decrements stock accordingly. Either
// every line succeeds and the sale is persisted, or nothing is applied.
//
// The decrement is a conditional UPDATE (quantity = quantity - n WHERE
// quantity >= n), so two concurrent sales that would together oversell a
// product cannot both succeed: the second one sees zero rows affected and
// the transaction rolls back with InsufficientStockError.
func (l *Ledger) RecordSale(customerID uint, lines []LineInput, actor string) (*models.Sale, error) {
	if len(lines) == 0 {
		return nil, &InvalidQuantityError{Quantity: 0}
	}
	for _, ln := range lines {
		if ln.Quantity <= 0 {
			return nil, &InvalidQuantityError{ProductID: ln.ProductID, Quantity: ln.Quantity}
		}
	}

	var sale models.Sale
	err := l.DB.Transaction(func(tx *gorm.DB) error {
		var customerCount int64
		if err := tx.Model(&models.Customer{}).Where("id = ?", customerID).Count(&customerCount).Error; err != nil {
			return translate(err)
		}
		if customerCount == 0 {
			return &UnknownCustomerError{CustomerID: customerID}
		}

		total := decimal.Zero
		saleLines := make([]models.SaleLine, 0, len(lines))
		for _, ln := range lines {
			var p models.Product
			if err := tx.First(&p, ln.ProductID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return &UnknownProductError{ProductID: ln.ProductID}
				}
				return translate(err)
			}
			if err := l.decrement(tx, &p, ln.Quantity); err != nil {
				return err
			}
			subtotal := p.UnitPrice.Mul(decimal.NewFromInt(int64(ln.Quantity)))
			saleLines = append(saleLines, models.SaleLine{
				ProductID: p.ID,
				Quantity:  ln.Quantity,
				UnitPrice: p.UnitPrice,
				Subtotal:  subtotal,
			})
			total = total.Add(subtotal)
		}

		code, err := nextSaleCode(tx)
		if err != nil {
			return translate(err)
		}
		sale = models.Sale{Code: code, CustomerID: customerID, Total: total, Lines: saleLines}
		if err := tx.Create(&sale).Error; err != nil {
			return translate(err)
		}
		for _, ln := range sale.Lines {
			mv := models.StockMovement{ProductID: ln.ProductID, Kind: models.MovementOut,
				Quantity: ln.Quantity, Reason: "sale " + sale.Code, Actor: actor}
			if err := tx.Create(&mv).Error; err != nil {
				return translate(err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

// decrement subtracts qty from the product's on-hand quantity. Zero rows
// affected means another transaction drained the stock first (or the row
// vanished); it re-reads the row to report what is actually available.
func (l *Ledger) decrement(tx *gorm.DB, p *models.Product, qty int) error {
	res := tx.Model(&models.Product{}).
		Where("id = ? AND quantity >= ?", p.ID, qty).
		Update("quantity", gorm.Expr("quantity - ?", qty))
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		var current models.Product
		if err := tx.First(&current, p.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &UnknownProductError{ProductID: p.ID}
			}
			return translate(err)
		}
		return &InsufficientStockError{
			ProductID: p.ID,
			Code:      p.Code,
			Name:      p.Name,
			Available: current.Quantity,
			Requested: qty,
		}
	}
	return nil
}

// AdjustStock sets a product's quantity on hand to an absolute value
// (restock or correction) and journals the delta as a stock movement.
func (l *Ledger) AdjustStock(productID uint, newQuantity int, reason, actor string) (*models.Product, error) {
	if newQuantity < 0 {
		return nil, &InvalidQuantityError{ProductID: productID, Quantity: newQuantity}
	}
	var p models.Product
	err := l.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&p, productID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &UnknownProductError{ProductID: productID}
			}
			return translate(err)
		}
		diff := newQuantity - p.Quantity
		if diff == 0 {
			return nil
		}
		kind := models.MovementIn
		if diff < 0 {
			kind = models.MovementOut
			diff = -diff
		}
		if reason == "" {
			reason = "stock adjustment"
		}
		if err := tx.Model(&p).Update("quantity", newQuantity).Error; err != nil {
			return translate(err)
		}
		p.Quantity = newQuantity
		mv := models.StockMovement{ProductID: p.ID, Kind: kind, Quantity: diff, Reason: reason, Actor: actor}
		if err := tx.Create(&mv).Error; err != nil {
			return translate(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// RegisterMovement records a manual stock entry or exit. An exit larger
// than the quantity on hand is refused.
func (l *Ledger) RegisterMovement(productID uint, kind string, qty int, reason, actor string) (*models.StockMovement, error) {
	if qty <= 0 {
		return nil, &InvalidQuantityError{ProductID: productID, Quantity: qty}
	}
	if kind != models.MovementIn && kind != models.MovementOut {
		return nil, fmt.Errorf("unknown movement kind %q", kind)
	}
	var mv models.StockMovement
	err := l.DB.Transaction(func(tx *gorm.DB) error {
		var p models.Product
		if err := tx.First(&p, productID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &UnknownProductError{ProductID: productID}
			}
			return translate(err)
		}
		if kind == models.MovementOut {
			if err := l.decrement(tx, &p, qty); err != nil {
				return err
			}
		} else {
			if err := tx.Model(&p).Update("quantity", gorm.Expr("quantity + ?", qty)).Error; err != nil {
				return translate(err)
			}
		}
		mv = models.StockMovement{ProductID: p.ID, Kind: kind, Quantity: qty, Reason: reason, Actor: actor}
		if err := tx.Create(&mv).Error; err != nil {
			return translate(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &mv, nil
}

// IsLowStock reports whether the product's quantity on hand is at or below
// its reorder threshold.
func (l *Ledger) IsLowStock(productID uint) (bool, error) {
	var p models.Product
	if err := l.DB.First(&p, productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, &UnknownProductError{ProductID: productID}
		}
		return false, translate(err)
	}
	return p.LowStock(), nil
}

// ListLowStock returns every product at or below its threshold, most
// urgent first (ascending quantity, ties broken by id for determinism).
func (l *Ledger) ListLowStock() ([]models.Product, error) {
	var products []models.Product
	if err := l.DB.
		Where("quantity <= min_quantity").
		Order("quantity asc, id asc").
		Find(&products).Error; err != nil {
		return nil, translate(err)
	}
	return products, nil
}

// DeleteSale removes a recorded sale and restores the stock its lines
// decremented, in one transaction.
func (l *Ledger) DeleteSale(saleID uint, actor string) error {
	return l.DB.Transaction(func(tx *gorm.DB) error {
		var sale models.Sale
		if err := tx.Preload("Lines").First(&sale, saleID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &UnknownSaleError{SaleID: saleID}
			}
			return translate(err)
		}
		for _, ln := range sale.Lines {
			if err := tx.Model(&models.Product{}).
				Where("id = ?", ln.ProductID).
				Update("quantity", gorm.Expr("quantity + ?", ln.Quantity)).Error; err != nil {
				return translate(err)
			}
			mv := models.StockMovement{ProductID: ln.ProductID, Kind: models.MovementIn,
				Quantity: ln.Quantity, Reason: "sale " + sale.Code + " deleted", Actor: actor}
			if err := tx.Create(&mv).Error; err != nil {
				return translate(err)
			}
		}
		if err := tx.Where("sale_id = ?", sale.ID).Delete(&models.SaleLine{}).Error; err != nil {
			return translate(err)
		}
		if err := tx.Delete(&sale).Error; err != nil {
			return translate(err)
		}
		return nil
	})
}

// nextSaleCode allocates the next VNT-%06d code from the current max id.
// Runs inside the sale transaction so a rolled back sale never burns a code
// that another committed sale also used.
func nextSaleCode(tx *gorm.DB) (string, error) {
	var lastID uint
	if err := tx.Model(&models.Sale{}).Select("COALESCE(MAX(id), 0)").Scan(&lastID).Error; err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%06d", models.SaleCodePrefix, lastID+1), nil
}

// translate maps backing-store concurrency failures to ConflictError so
// callers can offer a retry instead of a generic 500.
func translate(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"database is locked",       // sqlite busy
		"database table is locked", // sqlite shared-cache
		"could not serialize",      // postgres serialization failure
		"deadlock detected",
		"unique constraint", // two sales racing for the same code
		"duplicate key",
	} {
		if strings.Contains(msg, marker) {
			return &ConflictError{Err: err}
		}
	}
	return err
}
