package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/lmedina/inventario/internal/httpx"
	"github.com/lmedina/inventario/internal/middleware"
	"github.com/lmedina/inventario/internal/models"
	"github.com/lmedina/inventario/internal/validation"
)

type CustomerHandler struct{ DB *gorm.DB }

func NewCustomerHandler(db *gorm.DB) *CustomerHandler { return &CustomerHandler{DB: db} }

// List: GET /customers — paginated, searchable by name/email.
func (h *CustomerHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	query := strings.TrimSpace(r.URL.Query().Get("q"))

	dbq := h.DB.Model(&models.Customer{})
	if query != "" {
		like := "%" + strings.ToLower(searchSafe.ReplaceAllString(query, "")) + "%"
		dbq = dbq.Where("lower(name) LIKE ? OR lower(last_name) LIKE ? OR lower(email) LIKE ?", like, like, like)
	}
	var total int64
	dbq.Count(&total)
	var customers []models.Customer
	if err := dbq.Order("name asc, last_name asc").Limit(limit).Offset(offset).Find(&customers).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_customers", nil)
		return
	}
	if wantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{"items": customers, "total": total, "limit": limit, "offset": offset})
		return
	}
	renderTemplate(w, r, "customers.html", map[string]any{"Customers": customers, "Total": total, "Query": query})
}

type customerInput struct {
	Name     string `json:"name"`
	LastName string `json:"last_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
}

func (in *customerInput) validate() validation.Violations {
	v := validation.Violations{}
	validation.Required("name", in.Name, v)
	validation.Email("email", in.Email, v)
	validation.MaxLen("name", in.Name, 120, v)
	return v
}

func customerInputFrom(r *http.Request) (customerInput, bool) {
	var in customerInput
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			return in, false
		}
		return in, true
	}
	if err := r.ParseForm(); err != nil {
		return in, false
	}
	in.Name = r.FormValue("name")
	in.LastName = r.FormValue("last_name")
	in.Email = r.FormValue("email")
	in.Phone = r.FormValue("phone")
	in.Address = r.FormValue("address")
	return in, true
}

// Create: POST /customers
func (h *CustomerHandler) Create(w http.ResponseWriter, r *http.Request) {
	in, ok := customerInputFrom(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_input", nil)
		return
	}
	in.Name = strings.TrimSpace(in.Name)
	if v := in.validate(); !v.Empty() {
		if wantsJSON(r) {
			httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
			return
		}
		renderTemplate(w, r, "customer_form.html", map[string]any{"Errors": v, "Input": in})
		return
	}
	c := models.Customer{Name: in.Name, LastName: in.LastName, Email: in.Email, Phone: in.Phone, Address: in.Address}
	if err := h.DB.Create(&c).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "customer_create_failed", nil)
		return
	}
	if wantsJSON(r) {
		httpx.JSON(w, http.StatusCreated, c)
		return
	}
	middleware.Flash(w, r, "customer_created")
	http.Redirect(w, r, "/customers", http.StatusSeeOther)
}

// Update: POST /customers/update?id=
func (h *CustomerHandler) Update(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodPut && r.Method != http.MethodPatch {
		httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	id := idParam(r)
	if id == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var c models.Customer
	if err := h.DB.First(&c, id).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	in, ok := customerInputFrom(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_input", nil)
		return
	}
	if in.Name != "" {
		c.Name = strings.TrimSpace(in.Name)
	}
	if in.LastName != "" {
		c.LastName = in.LastName
	}
	if in.Email != "" {
		v := validation.Violations{}
		validation.Email("email", in.Email, v)
		if !v.Empty() {
			httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
			return
		}
		c.Email = in.Email
	}
	if in.Phone != "" {
		c.Phone = in.Phone
	}
	if in.Address != "" {
		c.Address = in.Address
	}
	if err := h.DB.Save(&c).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "update_failed", nil)
		return
	}
	if wantsJSON(r) {
		httpx.JSON(w, http.StatusOK, c)
		return
	}
	middleware.Flash(w, r, "customer_updated")
	http.Redirect(w, r, "/customers", http.StatusSeeOther)
}

// Delete: POST/DELETE /customers/delete?id= — refused while the customer
// has recorded sales, mirroring a protected foreign key.
func (h *CustomerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodDelete {
		httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	id := idParam(r)
	if id == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var saleCount int64
	if err := h.DB.Model(&models.Sale{}).Where("customer_id = ?", id).Count(&saleCount).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "delete_failed", nil)
		return
	}
	if saleCount > 0 {
		if wantsJSON(r) {
			httpx.JSONError(w, http.StatusConflict, "customer_has_sales", map[string]any{"sales": saleCount})
			return
		}
		middleware.Flash(w, r, "customer_has_sales")
		http.Redirect(w, r, "/customers", http.StatusSeeOther)
		return
	}
	res := h.DB.Delete(&models.Customer{}, id)
	if res.Error != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "delete_failed", nil)
		return
	}
	if res.RowsAffected == 0 {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	if wantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{"deleted": id})
		return
	}
	middleware.Flash(w, r, "customer_deleted")
	http.Redirect(w, r, "/customers", http.StatusSeeOther)
}
