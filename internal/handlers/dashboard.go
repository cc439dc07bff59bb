package handlers

import (
	"net/http"
	"strconv"

	"gorm.io/gorm"

	"github.com/lmedina/inventario/internal/httpx"
	"github.com/lmedina/inventario/internal/services"
)

type DashboardHandler struct {
	DB  *gorm.DB
	Svc *services.ReportsService
}

func NewDashboardHandler(db *gorm.DB, svc *services.ReportsService) *DashboardHandler {
	return &DashboardHandler{DB: db, Svc: svc}
}

// Dashboard: GET /dashboard — today's and this month's sales, low-stock
// top five and the latest sales.
func (h *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(h.DB, r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	stats, err := h.Svc.Dashboard()
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "dashboard_failed", nil)
		return
	}
	if wantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{
			"sales_today":      stats.SalesToday,
			"total_today":      stats.TotalToday,
			"sales_this_month": stats.SalesThisMonth,
			"total_this_month": stats.TotalThisMonth,
			"products":         stats.ProductCount,
			"customers":        stats.CustomerCount,
			"low_stock":        stats.LowStockTop,
			"recent_sales":     stats.RecentSales,
		})
		return
	}
	renderTemplate(w, r, "dashboard.html", map[string]any{"User": user, "Stats": stats})
}

// Stats: GET /reports/stats?days=N — JSON statistics for the reports page.
func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	days := 30
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 3650 {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_days", nil)
			return
		}
		days = n
	}
	stats, err := h.Svc.SalesStats(days)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "stats_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, stats)
}
