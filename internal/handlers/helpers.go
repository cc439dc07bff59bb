package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/lmedina/inventario/internal/auth"
	"github.com/lmedina/inventario/internal/httpx"
	"github.com/lmedina/inventario/internal/ledger"
	"github.com/lmedina/inventario/internal/models"
	"github.com/lmedina/inventario/internal/view"
)

// wantsJSON distinguishes API clients from browsers. Browsers send
// text/html (or nothing) in Accept; API clients ask for application/json.
func wantsJSON(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "application/json") && !strings.Contains(accept, "text/html")
}

// currentUser loads the authenticated user from the session context.
func currentUser(db *gorm.DB, r *http.Request) (*models.User, bool) {
	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok || uid == 0 {
		return nil, false
	}
	var user models.User
	if err := db.First(&user, uid).Error; err != nil {
		return nil, false
	}
	return &user, true
}

// pagination reads ?page and ?limit with the defaults the list pages use.
func pagination(r *http.Request) (limit, offset int) {
	limit = 10
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 1 {
			offset = (n - 1) * limit
		}
	}
	return limit, offset
}

// idParam reads the record id from query or form.
func idParam(r *http.Request) uint {
	idStr := r.URL.Query().Get("id")
	if idStr == "" {
		idStr = r.FormValue("id")
	}
	id, _ := strconv.Atoi(idStr)
	if id < 0 {
		return 0
	}
	return uint(id)
}

func renderTemplate(w http.ResponseWriter, r *http.Request, name string, data map[string]any) {
	if err := view.Render(w, r, name, data); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		if _, werr := w.Write([]byte("template error")); werr != nil {
			_ = werr
		}
	}
}

// writeLedgerError maps the stock ledger error taxonomy to HTTP codes so
// the caller always gets a distinguishable, actionable error.
func writeLedgerError(w http.ResponseWriter, err error) {
	var invalid *ledger.InvalidQuantityError
	var unknownProduct *ledger.UnknownProductError
	var unknownCustomer *ledger.UnknownCustomerError
	var unknownSale *ledger.UnknownSaleError
	var insufficient *ledger.InsufficientStockError
	var conflict *ledger.ConflictError
	switch {
	case errors.As(err, &invalid):
		httpx.JSONError(w, http.StatusBadRequest, "invalid_quantity", map[string]any{
			"product_id": invalid.ProductID, "quantity": invalid.Quantity,
		})
	case errors.As(err, &unknownProduct):
		httpx.JSONError(w, http.StatusNotFound, "unknown_product", map[string]any{
			"product_id": unknownProduct.ProductID,
		})
	case errors.As(err, &unknownCustomer):
		httpx.JSONError(w, http.StatusNotFound, "unknown_customer", map[string]any{
			"customer_id": unknownCustomer.CustomerID,
		})
	case errors.As(err, &unknownSale):
		httpx.JSONError(w, http.StatusNotFound, "unknown_sale", map[string]any{
			"sale_id": unknownSale.SaleID,
		})
	case errors.As(err, &insufficient):
		httpx.JSONError(w, http.StatusConflict, "insufficient_stock", map[string]any{
			"product_id": insufficient.ProductID,
			"code":       insufficient.Code,
			"available":  insufficient.Available,
			"requested":  insufficient.Requested,
		})
	case errors.As(err, &conflict):
		httpx.JSONError(w, http.StatusConflict, "concurrent_update_conflict", nil)
	default:
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
	}
}

// ledgerFlashCode picks the flash message for a ledger error so form
// clients get the same taxonomy as API clients, translated.
func ledgerFlashCode(err error) string {
	var invalid *ledger.InvalidQuantityError
	var unknownProduct *ledger.UnknownProductError
	var unknownCustomer *ledger.UnknownCustomerError
	var unknownSale *ledger.UnknownSaleError
	var insufficient *ledger.InsufficientStockError
	var conflict *ledger.ConflictError
	switch {
	case errors.As(err, &invalid):
		return "invalid_quantity"
	case errors.As(err, &unknownProduct):
		return "unknown_product"
	case errors.As(err, &unknownCustomer):
		return "unknown_customer"
	case errors.As(err, &unknownSale):
		return "unknown_sale"
	case errors.As(err, &insufficient):
		return "insufficient_stock"
	case errors.As(err, &conflict):
		return "concurrent_update_conflict"
	default:
		return "internal_error"
	}
}
