package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSessionRoundTrip(t *testing.T) {
	w := httptest.NewRecorder()
	CreateSession(w, 42)
	res := w.Result()
	cookies := res.Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected 1 cookie, got %d", len(cookies))
	}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(cookies[0])
	uid, ok := ParseSession(r)
	if !ok || uid != 42 {
		t.Fatalf("expected uid 42, got %d ok=%v", uid, ok)
	}
}

func TestParseSessionRejectsTampering(t *testing.T) {
	w := httptest.NewRecorder()
	CreateSession(w, 42)
	c := w.Result().Cookies()[0]

	// Change the uid without re-signing.
	c.Value = "43." + c.Value[len("42."):]
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(c)
	if _, ok := ParseSession(r); ok {
		t.Fatal("tampered session accepted")
	}
}

func TestRequireAuthRedirectsBrowsers(t *testing.T) {
	h := RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	r := httptest.NewRequest(http.MethodGet, "/products", nil)
	r.Header.Set("Accept", "text/html")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect, got %d", w.Code)
	}

	rj := httptest.NewRequest(http.MethodGet, "/products", nil)
	rj.Header.Set("Accept", "application/json")
	wj := httptest.NewRecorder()
	h.ServeHTTP(wj, rj)
	if wj.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", wj.Code)
	}
}

func TestRequireAuthVerifier(t *testing.T) {
	SetUserVerifier(func(_ context.Context, uid uint) bool { return uid == 1 })
	defer SetUserVerifier(nil)

	h := RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	ok := httptest.NewRequest(http.MethodGet, "/", nil)
	ok = ok.WithContext(WithUserID(ok.Context(), 1))
	ok.Header.Set("Accept", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, ok)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for verified user, got %d", w.Code)
	}

	gone := httptest.NewRequest(http.MethodGet, "/", nil)
	gone = gone.WithContext(WithUserID(gone.Context(), 9))
	gone.Header.Set("Accept", "application/json")
	w2 := httptest.NewRecorder()
	h.ServeHTTP(w2, gone)
	if w2.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for deleted user, got %d", w2.Code)
	}
}
