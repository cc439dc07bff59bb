package handlers

import (
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/lmedina/inventario/internal/auth"
	"github.com/lmedina/inventario/internal/httpx"
	"github.com/lmedina/inventario/internal/models"
	"github.com/lmedina/inventario/internal/validation"
)

type AuthHandler struct{ DB *gorm.DB }

func NewAuthHandler(db *gorm.DB) *AuthHandler { return &AuthHandler{DB: db} }

func (h *AuthHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/register", h.register)
	mux.HandleFunc("/login", h.login)
	mux.HandleFunc("/logout", h.logout)
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		renderTemplate(w, r, "register.html", nil)
		return
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "GET,POST")
		httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	if err := r.ParseForm(); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_form", nil)
		return
	}
	username := strings.TrimSpace(r.FormValue("username"))
	email := strings.TrimSpace(r.FormValue("email"))
	pass := r.FormValue("password")
	role := r.FormValue("role")
	if role != models.RoleAdmin && role != models.RoleStock {
		role = models.RoleSeller
	}

	v := validation.Violations{}
	validation.Required("username", username, v)
	validation.Required("password", pass, v)
	validation.Email("email", email, v)
	if len(pass) > 0 && len(pass) < 8 {
		v["password"] = "too_short"
	}
	if !v.Empty() {
		if wantsJSON(r) {
			httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
			return
		}
		renderTemplate(w, r, "register.html", map[string]any{"Errors": v, "Username": username, "Email": email})
		return
	}

	// First registered account becomes admin so a fresh install is usable.
	var userCount int64
	if err := h.DB.Model(&models.User{}).Count(&userCount).Error; err == nil && userCount == 0 {
		role = models.RoleAdmin
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(pass), bcrypt.DefaultCost)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "hash_failed", nil)
		return
	}
	user := models.User{Username: username, Email: email, PasswordHash: string(hash), Role: role}
	if err := h.DB.Create(&user).Error; err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique") || strings.Contains(strings.ToLower(err.Error()), "duplicate") {
			if wantsJSON(r) {
				httpx.JSONError(w, http.StatusConflict, "username_taken", nil)
				return
			}
			renderTemplate(w, r, "register.html", map[string]any{"Errors": validation.Violations{"username": "taken"}})
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "user_create_failed", nil)
		return
	}
	auth.CreateSession(w, user.ID)
	if wantsJSON(r) {
		httpx.JSON(w, http.StatusCreated, map[string]any{"id": user.ID, "username": user.Username, "role": user.Role})
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		// Already logged in with a live session: straight to the dashboard.
		if uid, ok := auth.ParseSession(r); ok && uid != 0 {
			var count int64
			if err := h.DB.Model(&models.User{}).Where("id = ?", uid).Count(&count).Error; err == nil && count > 0 {
				http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
				return
			}
			auth.ClearSession(w)
		}
		renderTemplate(w, r, "login.html", nil)
		return
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "GET,POST")
		httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	if err := r.ParseForm(); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_form", nil)
		return
	}
	username := strings.TrimSpace(r.FormValue("username"))
	pass := r.FormValue("password")

	var user models.User
	err := h.DB.Where("username = ?", username).First(&user).Error
	if err != nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(pass)) != nil {
		if wantsJSON(r) {
			httpx.JSONError(w, http.StatusUnauthorized, "invalid_credentials", nil)
			return
		}
		renderTemplate(w, r, "login.html", map[string]any{"Error": "invalid_credentials", "Username": username})
		return
	}
	auth.CreateSession(w, user.ID)
	if wantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{"id": user.ID, "username": user.Username, "role": user.Role})
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSession(w)
	if wantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
