package ledger

import "fmt"

// InvalidQuantityError is returned when a requested quantity is not a
// positive integer (or, for adjustments, is negative).
type InvalidQuantityError struct {
	ProductID uint
	Quantity  int
}

func (e *InvalidQuantityError) Error() string {
	if e.ProductID != 0 {
		return fmt.Sprintf("invalid quantity %d for product %d", e.Quantity, e.ProductID)
	}
	return fmt.Sprintf("invalid quantity %d", e.Quantity)
}

// UnknownProductError is returned when a referenced product does not exist.
type UnknownProductError struct {
	ProductID uint
}

func (e *UnknownProductError) Error() string {
	return fmt.Sprintf("unknown product %d", e.ProductID)
}

// UnknownCustomerError is returned when a sale references a customer that
// does not exist.
type UnknownCustomerError struct {
	CustomerID uint
}

func (e *UnknownCustomerError) Error() string {
	return fmt.Sprintf("unknown customer %d", e.CustomerID)
}

// UnknownSaleError is returned when a sale id does not exist.
type UnknownSaleError struct {
	SaleID uint
}

func (e *UnknownSaleError) Error() string {
	return fmt.Sprintf("unknown sale %d", e.SaleID)
}

// InsufficientStockError is returned when a requested quantity exceeds the
// quantity on hand at evaluation time. Available is the on-hand quantity
// observed when the decrement was refused.
type InsufficientStockError struct {
	ProductID uint
	Code      string
	Name      string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: available %d, requested %d",
		e.Code, e.Available, e.Requested)
}

// ConflictError wraps a backing-store concurrency failure (serialization
// failure, deadlock, sqlite busy). The operation left no partial state and
// the caller may retry.
type ConflictError struct {
	Err error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("concurrent update conflict: %v", e.Err)
}

func (e *ConflictError) Unwrap() error { return e.Err }
