package handlers

import (
	"net/http"
	"strconv"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/lmedina/inventario/internal/auth"
	"github.com/lmedina/inventario/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// Unique in-memory database per test to avoid cross-test collisions.
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Product{}, &models.StockMovement{},
		&models.Customer{}, &models.Sale{}, &models.SaleLine{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB, username, role string) *models.User {
	t.Helper()
	u := models.User{Username: username, Email: username + "@test", PasswordHash: "x", Role: role}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return &u
}

func seedProduct(t *testing.T, db *gorm.DB, code string, qty, minQty int, price string) *models.Product {
	t.Helper()
	p := models.Product{
		Code:        code,
		Name:        "Producto " + code,
		UnitPrice:   decimal.RequireFromString(price),
		Quantity:    qty,
		MinQuantity: minQty,
	}
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return &p
}

func seedCustomer(t *testing.T, db *gorm.DB, name string) *models.Customer {
	t.Helper()
	c := models.Customer{Name: name, LastName: "Prueba", Email: name + "@test"}
	if err := db.Create(&c).Error; err != nil {
		t.Fatalf("seed customer: %v", err)
	}
	return &c
}

// asUser injects the session user id the way auth.Middleware would.
func asUser(r *http.Request, u *models.User) *http.Request {
	return r.WithContext(auth.WithUserID(r.Context(), u.ID))
}

func itoa(id uint) string { return strconv.FormatUint(uint64(id), 10) }
