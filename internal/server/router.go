package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/lmedina/inventario/internal/auth"
	"github.com/lmedina/inventario/internal/handlers"
	"github.com/lmedina/inventario/internal/httpx"
	"github.com/lmedina/inventario/internal/ledger"
	"github.com/lmedina/inventario/internal/middleware"
	"github.com/lmedina/inventario/internal/models"
	"github.com/lmedina/inventario/internal/services"
)

// New constructs the root http.Handler with all routes and middlewares.
func New(db *gorm.DB, uploadDir string) http.Handler {
	mux := http.NewServeMux()

	// RequireAuth verifies on each request that the session's user exists.
	auth.SetUserVerifier(func(_ context.Context, uid uint) bool {
		var count int64
		if err := db.Model(&models.User{}).Where("id = ?", uid).Count(&count).Error; err != nil {
			return false
		}
		return count > 0
	})

	led := ledger.New(db)
	reports := services.NewReportsService(db)

	//revive:disable:unused-parameter simple handlers intentionally ignore *http.Request
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Exec("SELECT 1").Error; err != nil {
			httpx.JSONError(w, http.StatusServiceUnavailable, "degraded", nil)
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	//revive:enable:unused-parameter

	authHandler := handlers.NewAuthHandler(db)
	authHandler.Register(mux)

	// Stock management: admin or stock role.
	ph := handlers.NewProductHandler(db, led, uploadDir)
	mux.Handle("/products", protect(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			ph.List(w, r) // any authenticated user may browse the catalog
		case http.MethodPost:
			requireRole(db, (*models.User).CanManageStock, ph.Create)(w, r)
		default:
			w.Header().Set("Allow", "GET,POST")
			httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		}
	}))
	mux.Handle("/products/low-stock", protect(ph.LowStock))
	mux.Handle("/products/update", protect(requireRole(db, (*models.User).CanManageStock, ph.Update)))
	mux.Handle("/products/delete", protect(requireRole(db, (*models.User).CanManageStock, ph.Delete)))
	mux.Handle("/products/adjust", protect(requireRole(db, (*models.User).CanManageStock, ph.Adjust)))
	mux.Handle("/products/movement", protect(requireRole(db, (*models.User).CanManageStock, ph.Movement)))

	// Selling: admin or seller role.
	ch := handlers.NewCustomerHandler(db)
	mux.Handle("/customers", protect(requireRole(db, (*models.User).CanSell, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			ch.List(w, r)
		case http.MethodPost:
			ch.Create(w, r)
		default:
			w.Header().Set("Allow", "GET,POST")
			httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		}
	})))
	mux.Handle("/customers/update", protect(requireRole(db, (*models.User).CanSell, ch.Update)))
	mux.Handle("/customers/delete", protect(requireRole(db, (*models.User).CanSell, ch.Delete)))

	sh := handlers.NewSaleHandler(db, led)
	mux.Handle("/sales", protect(requireRole(db, (*models.User).CanSell, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			sh.List(w, r)
		case http.MethodPost:
			sh.Create(w, r)
		default:
			w.Header().Set("Allow", "GET,POST")
			httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		}
	})))
	mux.Handle("/sales/detail", protect(requireRole(db, (*models.User).CanSell, sh.Detail)))
	mux.Handle("/sales/pdf", protect(requireRole(db, (*models.User).CanSell, sh.PDF)))
	mux.Handle("/sales/delete", protect(requireRole(db, (*models.User).CanSell, sh.Delete)))

	dh := handlers.NewDashboardHandler(db, reports)
	mux.Handle("/dashboard", protect(dh.Dashboard))
	mux.Handle("/reports/stats", protect(requireRole(db, (*models.User).CanSell, dh.Stats)))

	// Static assets: stylesheets plus uploaded product images.
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir("static"))))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
	})

	return middleware.Prefs(withRecover(withLogging(auth.Middleware(mux))))
}

func protect(next http.HandlerFunc) http.Handler {
	return auth.RequireAuth(next)
}

// requireRole loads the session user and refuses the request when the role
// check fails. Runs after RequireAuth, so a missing user means the account
// was deleted mid-session.
func requireRole(db *gorm.DB, allowed func(*models.User) bool, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
			return
		}
		var user models.User
		if err := db.First(&user, uid).Error; err != nil {
			httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
			return
		}
		if !allowed(&user) {
			httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
			return
		}
		next(w, r)
	}
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}

func withRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("panic serving %s %s: %v", r.Method, r.URL.Path, rec)
				httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
