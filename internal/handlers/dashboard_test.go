package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lmedina/inventario/internal/ledger"
	"github.com/lmedina/inventario/internal/models"
	"github.com/lmedina/inventario/internal/services"
)

func TestDashboardJSON(t *testing.T) {
	db := setupTestDB(t)
	led := ledger.New(db)
	h := NewDashboardHandler(db, services.NewReportsService(db))
	user := seedUser(t, db, "admin", models.RoleAdmin)
	p := seedProduct(t, db, "TEC-001", 10, 20, "5.00") // below threshold
	c := seedCustomer(t, db, "Ana")
	if _, err := led.RecordSale(c.ID, []ledger.LineInput{{ProductID: p.ID, Quantity: 2}}, "admin"); err != nil {
		t.Fatalf("record sale: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.Header.Set("Accept", "application/json")
	req = asUser(req, user)
	w := httptest.NewRecorder()
	h.Dashboard(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}
	var resp struct {
		SalesToday  int64            `json:"sales_today"`
		Products    int64            `json:"products"`
		Customers   int64            `json:"customers"`
		LowStock    []models.Product `json:"low_stock"`
		RecentSales []models.Sale    `json:"recent_sales"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.SalesToday != 1 || resp.Products != 1 || resp.Customers != 1 {
		t.Fatalf("unexpected counters %+v", resp)
	}
	if len(resp.LowStock) != 1 || len(resp.RecentSales) != 1 {
		t.Fatalf("expected low-stock and recent sale entries, got %+v", resp)
	}
}

func TestDashboardRedirectsAnonymous(t *testing.T) {
	db := setupTestDB(t)
	h := NewDashboardHandler(db, services.NewReportsService(db))

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	w := httptest.NewRecorder()
	h.Dashboard(w, req)
	if w.Code != http.StatusSeeOther {
		t.Fatalf("expected 303 got %d", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/login" {
		t.Fatalf("expected redirect to /login got %s", loc)
	}
}

func TestStatsEndpoint(t *testing.T) {
	db := setupTestDB(t)
	led := ledger.New(db)
	h := NewDashboardHandler(db, services.NewReportsService(db))
	seedUser(t, db, "admin", models.RoleAdmin)
	p := seedProduct(t, db, "TEC-001", 10, 0, "5.00")
	c := seedCustomer(t, db, "Ana")
	if _, err := led.RecordSale(c.ID, []ledger.LineInput{{ProductID: p.ID, Quantity: 3}}, "admin"); err != nil {
		t.Fatalf("record sale: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/reports/stats?days=7", nil)
	w := httptest.NewRecorder()
	h.Stats(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}
	var stats services.SalesStats
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.Days != 7 || stats.SaleCount != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if len(stats.TopProducts) != 1 || stats.TopProducts[0].Units != 3 {
		t.Fatalf("unexpected top products %+v", stats.TopProducts)
	}
	if len(stats.TopCustomers) != 1 || stats.TopCustomers[0].Name != "Ana" {
		t.Fatalf("unexpected top customers %+v", stats.TopCustomers)
	}
}

func TestStatsRejectsBadDays(t *testing.T) {
	db := setupTestDB(t)
	h := NewDashboardHandler(db, services.NewReportsService(db))

	for _, days := range []string{"0", "-3", "999999", "abc"} {
		req := httptest.NewRequest(http.MethodGet, "/reports/stats?days="+days, nil)
		w := httptest.NewRecorder()
		h.Stats(w, req)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("days=%s: expected 400 got %d", days, w.Code)
		}
	}
}
