// Package view renders the server-side HTML templates with a shared func
// map and a parse cache.
package view

import (
	"html/template"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lmedina/inventario/internal/i18n"
	"github.com/lmedina/inventario/internal/middleware"
)

var (
	baseDir  string
	once     sync.Once
	tplCache = struct {
		sync.RWMutex
		m map[string]*template.Template
	}{m: map[string]*template.Template{}}
)

func detectBase() {
	// Works whether the binary runs from the repo root or a subdir (tests).
	for _, c := range []string{"templates", "../templates", "../../templates"} {
		if fi, err := os.Stat(filepath.Clean(c)); err == nil && fi.IsDir() {
			baseDir = filepath.Clean(c)
			return
		}
	}
	baseDir = "templates"
}

// Funcs returns the shared template helpers, bound to the request's
// language preference.
func Funcs(r *http.Request) template.FuncMap {
	lang := middleware.LangFrom(r)
	return template.FuncMap{
		"t":    func(code string) string { return i18n.T(lang, code) },
		"lang": func() string { return lang },
		"year": func() int { return time.Now().Year() },
		"money": func(d decimal.Decimal) string {
			return "$" + d.StringFixed(2)
		},
		"mul": func(qty int, price decimal.Decimal) string {
			return "$" + price.Mul(decimal.NewFromInt(int64(qty))).StringFixed(2)
		},
	}
}

// Render executes templates/<name> with the shared funcs. Parsed templates
// are cached except in dev (DEV=1), where edits reload per request.
func Render(w http.ResponseWriter, r *http.Request, name string, data map[string]any) error {
	once.Do(detectBase)
	if data == nil {
		data = map[string]any{}
	}
	if _, exists := data["Year"]; !exists {
		data["Year"] = time.Now().Year()
	}
	if _, exists := data["Flash"]; !exists {
		if msg := middleware.PopFlash(w, r); msg != "" {
			data["Flash"] = msg
		}
	}

	dev := os.Getenv("DEV") == "1"
	// Cache key includes the language: the func map bakes translations in.
	key := middleware.LangFrom(r) + ":" + name
	var tpl *template.Template
	if !dev {
		tplCache.RLock()
		tpl = tplCache.m[key]
		tplCache.RUnlock()
	}
	if tpl == nil {
		var err error
		tpl, err = template.New(name).Funcs(Funcs(r)).ParseFiles(filepath.Join(baseDir, name))
		if err != nil {
			return err
		}
		if !dev {
			tplCache.Lock()
			tplCache.m[key] = tpl
			tplCache.Unlock()
		}
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return tpl.ExecuteTemplate(w, name, data)
}
