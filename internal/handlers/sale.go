package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/lmedina/inventario/internal/httpx"
	"github.com/lmedina/inventario/internal/ledger"
	"github.com/lmedina/inventario/internal/middleware"
	"github.com/lmedina/inventario/internal/models"
	"github.com/lmedina/inventario/internal/pdf"
)

type SaleHandler struct {
	DB     *gorm.DB
	Ledger *ledger.Ledger
}

func NewSaleHandler(db *gorm.DB, led *ledger.Ledger) *SaleHandler {
	return &SaleHandler{DB: db, Ledger: led}
}

// List: GET /sales — newest first, optional ?from&to date filter
// (YYYY-MM-DD, inclusive), paginated.
func (h *SaleHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	dbq := h.DB.Model(&models.Sale{})

	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	if from != "" {
		if day, err := time.Parse("2006-01-02", from); err == nil {
			dbq = dbq.Where("created_at >= ?", day)
		}
	}
	if to != "" {
		if day, err := time.Parse("2006-01-02", to); err == nil {
			dbq = dbq.Where("created_at < ?", day.AddDate(0, 0, 1))
		}
	}

	var total int64
	dbq.Count(&total)
	var sales []models.Sale
	if err := dbq.Preload("Customer").Preload("Lines").
		Order("created_at desc, id desc").Limit(limit).Offset(offset).Find(&sales).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_sales", nil)
		return
	}
	if wantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{"items": sales, "total": total, "limit": limit, "offset": offset})
		return
	}
	renderTemplate(w, r, "sales.html", map[string]any{"Sales": sales, "Total": total, "From": from, "To": to})
}

// Create: POST /sales — records a sale through the ledger. JSON body:
// {"customer_id": 1, "lines": [{"product_id": 2, "quantity": 3}]}.
// The form variant accepts parallel product_id/quantity fields, one pair
// per line, blank pairs skipped.
func (h *SaleHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(h.DB, r)
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}

	var customerID uint
	var lines []ledger.LineInput
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var req struct {
			CustomerID uint `json:"customer_id"`
			Lines      []struct {
				ProductID uint `json:"product_id"`
				Quantity  int  `json:"quantity"`
			} `json:"lines"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
			return
		}
		customerID = req.CustomerID
		for _, ln := range req.Lines {
			lines = append(lines, ledger.LineInput{ProductID: ln.ProductID, Quantity: ln.Quantity})
		}
	} else {
		if err := r.ParseForm(); err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_form", nil)
			return
		}
		if v := r.Form.Get("customer_id"); v != "" {
			if id, err := strconv.Atoi(v); err == nil && id > 0 {
				customerID = uint(id)
			}
		}
		pids := r.Form["product_id"]
		qtys := r.Form["quantity"]
		for i, pv := range pids {
			if strings.TrimSpace(pv) == "" {
				continue
			}
			pid, _ := strconv.Atoi(pv)
			qty := 0
			if i < len(qtys) {
				qty, _ = strconv.Atoi(qtys[i])
			}
			lines = append(lines, ledger.LineInput{ProductID: uint(pid), Quantity: qty})
		}
	}

	if customerID == 0 || len(lines) == 0 {
		if wantsJSON(r) || strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
			httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{
				"customer_id": "required", "lines": "required",
			})
			return
		}
		middleware.Flash(w, r, "sale_needs_items")
		http.Redirect(w, r, "/sales", http.StatusSeeOther)
		return
	}

	sale, err := h.Ledger.RecordSale(customerID, lines, user.Username)
	if err != nil {
		if wantsJSON(r) || strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
			writeLedgerError(w, err)
			return
		}
		middleware.Flash(w, r, ledgerFlashCode(err))
		http.Redirect(w, r, "/sales", http.StatusSeeOther)
		return
	}
	if wantsJSON(r) || strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		httpx.JSON(w, http.StatusCreated, map[string]any{
			"id": sale.ID, "code": sale.Code, "total": sale.Total, "lines": len(sale.Lines),
		})
		return
	}
	middleware.Flash(w, r, "sale_recorded")
	http.Redirect(w, r, "/sales", http.StatusSeeOther)
}

// Detail: GET /sales/detail?id=
func (h *SaleHandler) Detail(w http.ResponseWriter, r *http.Request) {
	id := idParam(r)
	if id == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var sale models.Sale
	if err := h.DB.Preload("Customer").Preload("Lines.Product").First(&sale, id).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	if wantsJSON(r) {
		httpx.JSON(w, http.StatusOK, sale)
		return
	}
	renderTemplate(w, r, "sale_detail.html", map[string]any{"Sale": sale})
}

// Delete: POST/DELETE /sales/delete?id= — removes the sale and restores the
// stock its lines decremented.
func (h *SaleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodDelete {
		httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	user, ok := currentUser(h.DB, r)
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	id := idParam(r)
	if id == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	if err := h.Ledger.DeleteSale(id, user.Username); err != nil {
		if wantsJSON(r) {
			writeLedgerError(w, err)
			return
		}
		middleware.Flash(w, r, ledgerFlashCode(err))
		http.Redirect(w, r, "/sales", http.StatusSeeOther)
		return
	}
	if wantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{"deleted": id, "stock_restored": true})
		return
	}
	middleware.Flash(w, r, "sale_deleted")
	http.Redirect(w, r, "/sales", http.StatusSeeOther)
}

// PDF: GET /sales/pdf?id= — downloadable receipt with the snapshot prices.
func (h *SaleHandler) PDF(w http.ResponseWriter, r *http.Request) {
	id := idParam(r)
	if id == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var sale models.Sale
	if err := h.DB.Preload("Customer").Preload("Lines.Product").First(&sale, id).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}

	data := pdf.ReceiptData{
		Code:     sale.Code,
		Date:     sale.CreatedAt.Format("2006-01-02"),
		Customer: strings.TrimSpace(sale.Customer.Name + " " + sale.Customer.LastName),
		Email:    sale.Customer.Email,
		Total:    "$" + sale.Total.StringFixed(2),
	}
	for _, ln := range sale.Lines {
		data.Lines = append(data.Lines, pdf.ReceiptLine{
			Description: ln.Product.Name,
			Quantity:    strconv.Itoa(ln.Quantity),
			UnitPrice:   "$" + ln.UnitPrice.StringFixed(2),
			Subtotal:    "$" + ln.Subtotal.StringFixed(2),
		})
	}

	doc, err := pdf.SaleReceipt(data)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "pdf_generation_failed", nil)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+sale.Code+`.pdf"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}
