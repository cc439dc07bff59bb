package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lmedina/inventario/internal/httpx"
	"github.com/lmedina/inventario/internal/ledger"
	"github.com/lmedina/inventario/internal/middleware"
	"github.com/lmedina/inventario/internal/models"
	"github.com/lmedina/inventario/internal/validation"
)

var searchSafe = regexp.MustCompile(`[^a-zA-Z0-9 \-_]`)

type ProductHandler struct {
	DB        *gorm.DB
	Ledger    *ledger.Ledger
	UploadDir string
}

func NewProductHandler(db *gorm.DB, led *ledger.Ledger, uploadDir string) *ProductHandler {
	return &ProductHandler{DB: db, Ledger: led, UploadDir: uploadDir}
}

// List: GET /products — pagination via ?page&limit, search via ?q,
// ?low_stock=1 narrows to products at or below their threshold.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	query := strings.TrimSpace(r.URL.Query().Get("q"))

	dbq := h.DB.Model(&models.Product{})
	if query != "" {
		like := "%" + strings.ToLower(searchSafe.ReplaceAllString(query, "")) + "%"
		dbq = dbq.Where("lower(name) LIKE ? OR lower(code) LIKE ?", like, like)
	}
	lowOnly := r.URL.Query().Get("low_stock") != ""
	if lowOnly {
		dbq = dbq.Where("quantity <= min_quantity")
	}

	var total int64
	dbq.Count(&total)
	var products []models.Product
	order := "name asc"
	if lowOnly {
		order = "quantity asc, id asc"
	}
	if err := dbq.Order(order).Limit(limit).Offset(offset).Find(&products).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_products", nil)
		return
	}
	if wantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{"items": products, "total": total, "limit": limit, "offset": offset})
		return
	}
	renderTemplate(w, r, "products.html", map[string]any{
		"Products": products, "Total": total, "PageSize": limit, "Query": query, "LowOnly": lowOnly,
	})
}

// LowStock: GET /products/low-stock — the reorder list, most urgent first.
func (h *ProductHandler) LowStock(w http.ResponseWriter, r *http.Request) {
	products, err := h.Ledger.ListLowStock()
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_products", nil)
		return
	}
	if wantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{"items": products, "total": len(products)})
		return
	}
	renderTemplate(w, r, "low_stock.html", map[string]any{"Products": products})
}

type productInput struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
	UnitPrice   string `json:"unit_price"`
	Quantity    int    `json:"quantity"`
	MinQuantity int    `json:"min_quantity"`
}

func (in *productInput) validate() (decimal.Decimal, validation.Violations) {
	v := validation.Violations{}
	validation.Required("code", in.Code, v)
	validation.Required("name", in.Name, v)
	validation.NonNegativeInt("quantity", in.Quantity, v)
	validation.NonNegativeInt("min_quantity", in.MinQuantity, v)
	price := decimal.Zero
	if in.UnitPrice == "" {
		v["unit_price"] = "required"
	} else if parsed, err := decimal.NewFromString(in.UnitPrice); err != nil {
		v["unit_price"] = "invalid_number"
	} else if parsed.IsNegative() {
		v["unit_price"] = "must_not_be_negative"
	} else {
		price = parsed.Round(2)
	}
	return price, v
}

// Create: POST /products — JSON body or multipart form with an optional
// product image. The initial quantity is journaled as an "in" movement.
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(h.DB, r)
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}

	var in productInput
	imagePath := ""
	ct := r.Header.Get("Content-Type")
	switch {
	case strings.HasPrefix(ct, "application/json"):
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
			return
		}
	default:
		// 8 MiB is plenty for a product photo.
		if err := r.ParseMultipartForm(8 << 20); err != nil {
			if err := r.ParseForm(); err != nil {
				httpx.JSONError(w, http.StatusBadRequest, "invalid_form", nil)
				return
			}
		}
		in = productInputFromForm(r)
		if path, err := h.saveImage(r); err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "image_upload_failed", nil)
			return
		} else if path != "" {
			imagePath = path
		}
	}

	in.Code = strings.ToUpper(strings.TrimSpace(in.Code))
	price, v := in.validate()
	if !v.Empty() {
		if wantsJSON(r) || strings.HasPrefix(ct, "application/json") {
			httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
			return
		}
		renderTemplate(w, r, "product_form.html", map[string]any{"Errors": v, "Input": in})
		return
	}

	p := models.Product{
		Code:        in.Code,
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		UnitPrice:   price,
		Quantity:    in.Quantity,
		MinQuantity: in.MinQuantity,
		ImagePath:   imagePath,
	}
	// Product row and its initial-stock journal entry commit together.
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&p).Error; err != nil {
			return err
		}
		if p.Quantity > 0 {
			mv := models.StockMovement{ProductID: p.ID, Kind: models.MovementIn, Quantity: p.Quantity, Reason: "initial stock", Actor: user.Username}
			if err := tx.Create(&mv).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique") || strings.Contains(strings.ToLower(err.Error()), "duplicate") {
			httpx.JSONError(w, http.StatusConflict, "code_already_exists", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "product_create_failed", nil)
		return
	}
	if wantsJSON(r) || strings.HasPrefix(ct, "application/json") {
		httpx.JSON(w, http.StatusCreated, p)
		return
	}
	middleware.Flash(w, r, "product_created")
	http.Redirect(w, r, "/products", http.StatusSeeOther)
}

func productInputFromForm(r *http.Request) productInput {
	qty, _ := strconv.Atoi(r.FormValue("quantity"))
	minQty, _ := strconv.Atoi(r.FormValue("min_quantity"))
	return productInput{
		Code:        r.FormValue("code"),
		Name:        r.FormValue("name"),
		Description: r.FormValue("description"),
		UnitPrice:   r.FormValue("unit_price"),
		Quantity:    qty,
		MinQuantity: minQty,
	}
}

// saveImage stores an uploaded product photo under the upload dir, named by
// timestamp to avoid collisions. Returns "" when no file was sent.
func (h *ProductHandler) saveImage(r *http.Request) (string, error) {
	if r.MultipartForm == nil {
		return "", nil
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return "", nil
		}
		return "", err
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp":
	default:
		return "", fmt.Errorf("unsupported image type %q", ext)
	}
	if err := os.MkdirAll(h.UploadDir, 0o755); err != nil {
		return "", err
	}
	name := fmt.Sprintf("%d%s", time.Now().UnixNano(), ext)
	dst, err := os.Create(filepath.Join(h.UploadDir, name))
	if err != nil {
		return "", err
	}
	defer dst.Close()
	if _, err := io.Copy(dst, file); err != nil {
		return "", err
	}
	return name, nil
}

// Update: POST/PUT/PATCH /products/update?id= — edits catalog fields.
// Quantity is deliberately not editable here: stock changes go through
// /products/adjust or /products/movement so the journal stays honest.
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodPut && r.Method != http.MethodPatch {
		httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	id := idParam(r)
	if id == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var p models.Product
	if err := h.DB.First(&p, id).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}

	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var body struct {
			Name        *string `json:"name"`
			Description *string `json:"description"`
			UnitPrice   *string `json:"unit_price"`
			MinQuantity *int    `json:"min_quantity"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
			return
		}
		if body.Name != nil {
			p.Name = strings.TrimSpace(*body.Name)
		}
		if body.Description != nil {
			p.Description = *body.Description
		}
		if body.UnitPrice != nil {
			price, err := decimal.NewFromString(*body.UnitPrice)
			if err != nil || price.IsNegative() {
				httpx.JSONError(w, http.StatusBadRequest, "validation_failed", validation.Violations{"unit_price": "invalid_number"})
				return
			}
			p.UnitPrice = price.Round(2)
		}
		if body.MinQuantity != nil {
			if *body.MinQuantity < 0 {
				httpx.JSONError(w, http.StatusBadRequest, "validation_failed", validation.Violations{"min_quantity": "must_not_be_negative"})
				return
			}
			p.MinQuantity = *body.MinQuantity
		}
	} else {
		if v := r.FormValue("name"); v != "" {
			p.Name = strings.TrimSpace(v)
		}
		if v := r.FormValue("description"); v != "" {
			p.Description = v
		}
		if v := r.FormValue("unit_price"); v != "" {
			if price, err := decimal.NewFromString(v); err == nil && !price.IsNegative() {
				p.UnitPrice = price.Round(2)
			}
		}
		if v := r.FormValue("min_quantity"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				p.MinQuantity = n
			}
		}
	}
	if err := h.DB.Save(&p).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "update_failed", nil)
		return
	}
	if wantsJSON(r) {
		httpx.JSON(w, http.StatusOK, p)
		return
	}
	middleware.Flash(w, r, "product_updated")
	http.Redirect(w, r, "/products", http.StatusSeeOther)
}

// Delete: POST/DELETE /products/delete?id= — refused while sale lines
// reference the product, since each line must outlive its sale snapshot.
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodDelete {
		httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	id := idParam(r)
	if id == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var refs int64
	if err := h.DB.Model(&models.SaleLine{}).Where("product_id = ?", id).Count(&refs).Error; err == nil && refs > 0 {
		httpx.JSONError(w, http.StatusConflict, "product_has_sales", map[string]any{"sale_lines": refs})
		return
	}
	// The product and its journal leave together or not at all.
	var deleted int64
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.Product{}, id)
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected
		if deleted == 0 {
			return nil
		}
		return tx.Where("product_id = ?", id).Delete(&models.StockMovement{}).Error
	})
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "delete_failed", nil)
		return
	}
	if deleted == 0 {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	if wantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{"deleted": id})
		return
	}
	middleware.Flash(w, r, "product_deleted")
	http.Redirect(w, r, "/products", http.StatusSeeOther)
}

// Adjust: POST /products/adjust?id= — sets the quantity on hand to an
// absolute value (restock or correction).
func (h *ProductHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
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
	var in struct {
		Quantity *int   `json:"quantity"`
		Reason   string `json:"reason"`
	}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
			return
		}
	} else {
		if v := r.FormValue("quantity"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				in.Quantity = &n
			}
		}
		in.Reason = r.FormValue("reason")
	}
	if in.Quantity == nil {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", validation.Violations{"quantity": "required"})
		return
	}
	p, err := h.Ledger.AdjustStock(id, *in.Quantity, in.Reason, user.Username)
	if err != nil {
		if wantsJSON(r) || strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
			writeLedgerError(w, err)
			return
		}
		middleware.Flash(w, r, ledgerFlashCode(err))
		http.Redirect(w, r, "/products", http.StatusSeeOther)
		return
	}
	if wantsJSON(r) {
		httpx.JSON(w, http.StatusOK, p)
		return
	}
	middleware.Flash(w, r, "stock_adjusted")
	http.Redirect(w, r, "/products", http.StatusSeeOther)
}

// Movement: POST /products/movement?id= — manual stock entry/exit.
func (h *ProductHandler) Movement(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
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
	var in struct {
		Kind     string `json:"kind"`
		Quantity int    `json:"quantity"`
		Reason   string `json:"reason"`
	}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
			return
		}
	} else {
		in.Kind = r.FormValue("kind")
		in.Quantity, _ = strconv.Atoi(r.FormValue("quantity"))
		in.Reason = r.FormValue("reason")
	}
	mv, err := h.Ledger.RegisterMovement(id, in.Kind, in.Quantity, in.Reason, user.Username)
	if err != nil {
		asJSON := wantsJSON(r) || strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
		if !errorsAsLedger(err) {
			if asJSON {
				httpx.JSONError(w, http.StatusBadRequest, "invalid_movement_kind", nil)
				return
			}
			middleware.Flash(w, r, "invalid_movement_kind")
			http.Redirect(w, r, "/products", http.StatusSeeOther)
			return
		}
		if asJSON {
			writeLedgerError(w, err)
			return
		}
		middleware.Flash(w, r, ledgerFlashCode(err))
		http.Redirect(w, r, "/products", http.StatusSeeOther)
		return
	}
	if wantsJSON(r) {
		httpx.JSON(w, http.StatusCreated, mv)
		return
	}
	middleware.Flash(w, r, "movement_recorded")
	http.Redirect(w, r, "/products", http.StatusSeeOther)
}

// errorsAsLedger reports whether err belongs to the ledger taxonomy (as
// opposed to the plain kind-validation error RegisterMovement can return).
func errorsAsLedger(err error) bool {
	var invalid *ledger.InvalidQuantityError
	var unknown *ledger.UnknownProductError
	var insufficient *ledger.InsufficientStockError
	var conflict *ledger.ConflictError
	return errors.As(err, &invalid) || errors.As(err, &unknown) ||
		errors.As(err, &insufficient) || errors.As(err, &conflict)
}
