package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/lmedina/inventario/internal/models"
)

func registerForm(username, password, role string) *strings.Reader {
	form := url.Values{}
	form.Set("username", username)
	form.Set("email", username+"@example.com")
	form.Set("password", password)
	if role != "" {
		form.Set("role", role)
	}
	return strings.NewReader(form.Encode())
}

func TestRegisterFirstUserBecomesAdmin(t *testing.T) {
	db := setupTestDB(t)
	h := NewAuthHandler(db)
	mux := http.NewServeMux()
	h.Register(mux)

	req := httptest.NewRequest(http.MethodPost, "/register", registerForm("ana", "secreta123", "seller"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d body=%s", w.Code, w.Body.String())
	}
	var resp struct {
		Username string `json:"username"`
		Role     string `json:"role"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Role != models.RoleAdmin {
		t.Fatalf("first account should be admin, got %s", resp.Role)
	}
	var gotCookie bool
	for _, c := range w.Result().Cookies() {
		if c.Name == "session" && c.Value != "" {
			gotCookie = true
		}
	}
	if !gotCookie {
		t.Fatalf("expected session cookie on register")
	}

	// The second account keeps the requested role.
	req2 := httptest.NewRequest(http.MethodPost, "/register", registerForm("luis", "secreta123", "stock"))
	req2.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req2.Header.Set("Accept", "application/json")
	w2 := httptest.NewRecorder()
	mux.ServeHTTP(w2, req2)
	if w2.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d body=%s", w2.Code, w2.Body.String())
	}
	var user models.User
	if err := db.Where("username = ?", "luis").First(&user).Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	if user.Role != models.RoleStock {
		t.Fatalf("expected stock role got %s", user.Role)
	}
}

func TestRegisterValidation(t *testing.T) {
	db := setupTestDB(t)
	h := NewAuthHandler(db)
	mux := http.NewServeMux()
	h.Register(mux)

	req := httptest.NewRequest(http.MethodPost, "/register", registerForm("ana", "corta", ""))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d body=%s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "too_short") {
		t.Fatalf("expected password error body=%s", w.Body.String())
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	db := setupTestDB(t)
	h := NewAuthHandler(db)
	mux := http.NewServeMux()
	h.Register(mux)

	for i, want := range []int{http.StatusCreated, http.StatusConflict} {
		req := httptest.NewRequest(http.MethodPost, "/register", registerForm("ana", "secreta123", ""))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("Accept", "application/json")
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)
		if w.Code != want {
			t.Fatalf("attempt %d: expected %d got %d body=%s", i, want, w.Code, w.Body.String())
		}
	}
}

func TestLoginRightAndWrongPassword(t *testing.T) {
	db := setupTestDB(t)
	h := NewAuthHandler(db)
	mux := http.NewServeMux()
	h.Register(mux)

	reg := httptest.NewRequest(http.MethodPost, "/register", registerForm("ana", "secreta123", ""))
	reg.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	reg.Header.Set("Accept", "application/json")
	mux.ServeHTTP(httptest.NewRecorder(), reg)

	login := func(password string) *httptest.ResponseRecorder {
		form := url.Values{"username": {"ana"}, "password": {password}}
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("Accept", "application/json")
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)
		return w
	}

	if w := login("equivocada"); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d body=%s", w.Code, w.Body.String())
	}
	w := login("secreta123")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}
	var gotCookie bool
	for _, c := range w.Result().Cookies() {
		if c.Name == "session" && c.Value != "" {
			gotCookie = true
		}
	}
	if !gotCookie {
		t.Fatalf("expected session cookie on login")
	}
}

func TestLogoutClearsSession(t *testing.T) {
	db := setupTestDB(t)
	h := NewAuthHandler(db)
	mux := http.NewServeMux()
	h.Register(mux)

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.Header.Set("Accept", "application/json")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w.Code)
	}
	var cleared bool
	for _, c := range w.Result().Cookies() {
		if c.Name == "session" && c.Value == "" {
			cleared = true
		}
	}
	if !cleared {
		t.Fatalf("expected session cookie cleared")
	}
}
