package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/lmedina/inventario/internal/ledger"
	"github.com/lmedina/inventario/internal/models"
)

func TestProductCreateJSONJournalsInitialStock(t *testing.T) {
	db := setupTestDB(t)
	h := NewProductHandler(db, ledger.New(db), t.TempDir())
	user := seedUser(t, db, "almacen", models.RoleStock)

	body := `{"code":"tec-001","name":"Teclado mecánico","unit_price":"12.50","quantity":5,"min_quantity":2}`
	req := httptest.NewRequest(http.MethodPost, "/products", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = asUser(req, user)
	w := httptest.NewRecorder()
	h.Create(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d body=%s", w.Code, w.Body.String())
	}
	var p models.Product
	if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.Code != "TEC-001" {
		t.Fatalf("expected uppercased code TEC-001 got %s", p.Code)
	}
	if !p.UnitPrice.Equal(decimal.RequireFromString("12.50")) {
		t.Fatalf("unexpected price %s", p.UnitPrice)
	}

	var mv models.StockMovement
	if err := db.Where("product_id = ?", p.ID).First(&mv).Error; err != nil {
		t.Fatalf("expected initial stock movement: %v", err)
	}
	if mv.Kind != models.MovementIn || mv.Quantity != 5 || mv.Actor != "almacen" {
		t.Fatalf("unexpected movement %+v", mv)
	}

	// A product created empty gets no journal entry.
	body2 := `{"code":"MOU-001","name":"Ratón","unit_price":"3.00","quantity":0}`
	req2 := httptest.NewRequest(http.MethodPost, "/products", strings.NewReader(body2))
	req2.Header.Set("Content-Type", "application/json")
	req2 = asUser(req2, user)
	w2 := httptest.NewRecorder()
	h.Create(w2, req2)
	if w2.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d body=%s", w2.Code, w2.Body.String())
	}
	var total int64
	db.Model(&models.StockMovement{}).Count(&total)
	if total != 1 {
		t.Fatalf("expected exactly 1 movement got %d", total)
	}
}

func TestProductCreateValidation(t *testing.T) {
	db := setupTestDB(t)
	h := NewProductHandler(db, ledger.New(db), t.TempDir())
	user := seedUser(t, db, "almacen", models.RoleStock)

	req := httptest.NewRequest(http.MethodPost, "/products", strings.NewReader(`{"code":"","name":"","unit_price":"abc"}`))
	req.Header.Set("Content-Type", "application/json")
	req = asUser(req, user)
	w := httptest.NewRecorder()
	h.Create(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "validation_failed") {
		t.Fatalf("expected validation_failed body=%s", w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "invalid_number") {
		t.Fatalf("expected unit_price error body=%s", w.Body.String())
	}
}

func TestProductCreateDuplicateCode(t *testing.T) {
	db := setupTestDB(t)
	h := NewProductHandler(db, ledger.New(db), t.TempDir())
	user := seedUser(t, db, "almacen", models.RoleStock)
	seedProduct(t, db, "TEC-001", 1, 0, "10.00")

	body := `{"code":"TEC-001","name":"Otro","unit_price":"5.00"}`
	req := httptest.NewRequest(http.MethodPost, "/products", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = asUser(req, user)
	w := httptest.NewRecorder()
	h.Create(w, req)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d body=%s", w.Code, w.Body.String())
	}

	// The rejected create must not leave a journal entry behind.
	var movements int64
	db.Model(&models.StockMovement{}).Count(&movements)
	if movements != 0 {
		t.Fatalf("expected no movements after failed create, got %d", movements)
	}
}

func TestProductDeleteRemovesJournal(t *testing.T) {
	db := setupTestDB(t)
	led := ledger.New(db)
	h := NewProductHandler(db, led, t.TempDir())
	p := seedProduct(t, db, "TEC-001", 10, 2, "10.00")
	if _, err := led.RegisterMovement(p.ID, models.MovementIn, 5, "restock", "almacen"); err != nil {
		t.Fatalf("movement: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/products/delete?id="+itoa(p.ID), nil)
	req.Header.Set("Accept", "application/json")
	w := httptest.NewRecorder()
	h.Delete(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}
	var products, movements int64
	db.Model(&models.Product{}).Count(&products)
	db.Model(&models.StockMovement{}).Count(&movements)
	if products != 0 || movements != 0 {
		t.Fatalf("expected product and journal gone, got %d products %d movements", products, movements)
	}
}

func TestProductListSearchAndLowStock(t *testing.T) {
	db := setupTestDB(t)
	h := NewProductHandler(db, ledger.New(db), t.TempDir())
	seedProduct(t, db, "TEC-001", 10, 2, "10.00")
	seedProduct(t, db, "MON-001", 1, 5, "99.00")
	seedProduct(t, db, "MOU-001", 3, 5, "7.50")

	list := func(target string) (items []models.Product, total int64) {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		req.Header.Set("Accept", "application/json")
		w := httptest.NewRecorder()
		h.List(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("GET %s: expected 200 got %d", target, w.Code)
		}
		var payload struct {
			Items []models.Product `json:"items"`
			Total int64            `json:"total"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return payload.Items, payload.Total
	}

	if _, total := list("/products"); total != 3 {
		t.Fatalf("expected 3 products got %d", total)
	}
	if items, total := list("/products?q=TEC"); total != 1 || items[0].Code != "TEC-001" {
		t.Fatalf("search failed: total=%d items=%+v", total, items)
	}
	items, total := list("/products?low_stock=1")
	if total != 2 {
		t.Fatalf("expected 2 low-stock got %d", total)
	}
	// Most urgent first.
	if items[0].Code != "MON-001" || items[1].Code != "MOU-001" {
		t.Fatalf("unexpected low-stock order %s, %s", items[0].Code, items[1].Code)
	}
}

func TestProductUpdateLeavesQuantityAlone(t *testing.T) {
	db := setupTestDB(t)
	h := NewProductHandler(db, ledger.New(db), t.TempDir())
	p := seedProduct(t, db, "TEC-001", 10, 2, "10.00")

	body := `{"name":"Teclado v2","unit_price":"15.00","min_quantity":4}`
	req := httptest.NewRequest(http.MethodPost, "/products/update?id="+itoa(p.ID), strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	w := httptest.NewRecorder()
	h.Update(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}
	var got models.Product
	if err := db.First(&got, p.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Name != "Teclado v2" || got.MinQuantity != 4 {
		t.Fatalf("update not applied: %+v", got)
	}
	if !got.UnitPrice.Equal(decimal.RequireFromString("15.00")) {
		t.Fatalf("unexpected price %s", got.UnitPrice)
	}
	if got.Quantity != 10 {
		t.Fatalf("quantity must not change on update, got %d", got.Quantity)
	}
}

func TestProductDeleteRefusedWhileReferenced(t *testing.T) {
	db := setupTestDB(t)
	h := NewProductHandler(db, ledger.New(db), t.TempDir())
	p := seedProduct(t, db, "TEC-001", 10, 2, "10.00")
	c := seedCustomer(t, db, "Ana")
	sale := models.Sale{Code: "VNT-000001", CustomerID: c.ID, Total: decimal.RequireFromString("10.00")}
	if err := db.Create(&sale).Error; err != nil {
		t.Fatalf("seed sale: %v", err)
	}
	line := models.SaleLine{SaleID: sale.ID, ProductID: p.ID, Quantity: 1,
		UnitPrice: p.UnitPrice, Subtotal: p.UnitPrice}
	if err := db.Create(&line).Error; err != nil {
		t.Fatalf("seed line: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/products/delete?id="+itoa(p.ID), nil)
	req.Header.Set("Accept", "application/json")
	w := httptest.NewRecorder()
	h.Delete(w, req)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d body=%s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "product_has_sales") {
		t.Fatalf("unexpected body %s", w.Body.String())
	}

	// Once nothing references it the delete goes through.
	db.Delete(&models.SaleLine{}, line.ID)
	req2 := httptest.NewRequest(http.MethodPost, "/products/delete?id="+itoa(p.ID), nil)
	req2.Header.Set("Accept", "application/json")
	w2 := httptest.NewRecorder()
	h.Delete(w2, req2)
	if w2.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w2.Code, w2.Body.String())
	}
}

func TestProductAdjustAndMovement(t *testing.T) {
	db := setupTestDB(t)
	h := NewProductHandler(db, ledger.New(db), t.TempDir())
	user := seedUser(t, db, "almacen", models.RoleStock)
	p := seedProduct(t, db, "TEC-001", 10, 2, "10.00")

	req := httptest.NewRequest(http.MethodPost, "/products/adjust?id="+itoa(p.ID),
		strings.NewReader(`{"quantity":25,"reason":"recuento"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req = asUser(req, user)
	w := httptest.NewRecorder()
	h.Adjust(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("adjust: expected 200 got %d body=%s", w.Code, w.Body.String())
	}
	var got models.Product
	db.First(&got, p.ID)
	if got.Quantity != 25 {
		t.Fatalf("expected quantity 25 got %d", got.Quantity)
	}
	var mv models.StockMovement
	if err := db.Where("product_id = ? AND reason = ?", p.ID, "recuento").First(&mv).Error; err != nil {
		t.Fatalf("expected adjustment movement: %v", err)
	}
	if mv.Kind != models.MovementIn || mv.Quantity != 15 {
		t.Fatalf("unexpected movement %+v", mv)
	}

	// Missing quantity is a validation error, not a zero adjustment.
	reqMissing := httptest.NewRequest(http.MethodPost, "/products/adjust?id="+itoa(p.ID),
		strings.NewReader(`{"reason":"sin cantidad"}`))
	reqMissing.Header.Set("Content-Type", "application/json")
	reqMissing = asUser(reqMissing, user)
	wMissing := httptest.NewRecorder()
	h.Adjust(wMissing, reqMissing)
	if wMissing.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", wMissing.Code)
	}

	// Outbound movement beyond what is on hand is refused.
	reqOut := httptest.NewRequest(http.MethodPost, "/products/movement?id="+itoa(p.ID),
		strings.NewReader(`{"kind":"out","quantity":100,"reason":"rotura"}`))
	reqOut.Header.Set("Content-Type", "application/json")
	reqOut.Header.Set("Accept", "application/json")
	reqOut = asUser(reqOut, user)
	wOut := httptest.NewRecorder()
	h.Movement(wOut, reqOut)
	if wOut.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d body=%s", wOut.Code, wOut.Body.String())
	}
	if !strings.Contains(wOut.Body.String(), "insufficient_stock") {
		t.Fatalf("unexpected body %s", wOut.Body.String())
	}

	// Unknown movement kind.
	reqBad := httptest.NewRequest(http.MethodPost, "/products/movement?id="+itoa(p.ID),
		strings.NewReader(`{"kind":"sideways","quantity":1}`))
	reqBad.Header.Set("Content-Type", "application/json")
	reqBad = asUser(reqBad, user)
	wBad := httptest.NewRecorder()
	h.Movement(wBad, reqBad)
	if wBad.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", wBad.Code)
	}
	if !strings.Contains(wBad.Body.String(), "invalid_movement_kind") {
		t.Fatalf("unexpected body %s", wBad.Body.String())
	}

	// A valid inbound movement lands in the journal.
	reqIn := httptest.NewRequest(http.MethodPost, "/products/movement?id="+itoa(p.ID),
		strings.NewReader(`{"kind":"in","quantity":5,"reason":"reposición"}`))
	reqIn.Header.Set("Content-Type", "application/json")
	reqIn.Header.Set("Accept", "application/json")
	reqIn = asUser(reqIn, user)
	wIn := httptest.NewRecorder()
	h.Movement(wIn, reqIn)
	if wIn.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d body=%s", wIn.Code, wIn.Body.String())
	}
	db.First(&got, p.ID)
	if got.Quantity != 30 {
		t.Fatalf("expected quantity 30 got %d", got.Quantity)
	}
}
