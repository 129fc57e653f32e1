package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"

	"ms-invoicing/internal/alert"
	"ms-invoicing/internal/models"

	"github.com/gorilla/csrf"
)

//go:embed templates/*.html
var templateFS embed.FS

const layoutTemplate = "layout.html"

// standalone pages are rendered without the navigation layout.
var standalone = map[string]bool{"invoice.html": true}

var funcs = template.FuncMap{
	"money":  func(a models.Amount) string { return a.Currency() },
	"amount": func(a models.Amount) string { return a.String() },
	"badge":  func(s models.PaymentStatus) string { return s.BadgeClass() },
}

// Page is what every template receives.
type Page struct {
	Title     string
	Active    string
	Flash     *alert.Alert
	CSRFField template.HTML
	Data      any
}

type Renderer struct {
	pages map[string]*template.Template
}

func NewRenderer() (*Renderer, error) {
	names, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	r := &Renderer{pages: make(map[string]*template.Template)}
	for _, path := range names {
		name := strings.TrimPrefix(path, "templates/")
		if name == layoutTemplate {
			continue
		}

		var tpl *template.Template
		if standalone[name] {
			tpl, err = template.New(name).Funcs(funcs).ParseFS(templateFS, path)
		} else {
			tpl, err = template.New(layoutTemplate).Funcs(funcs).ParseFS(templateFS, "templates/"+layoutTemplate, path)
		}
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		r.pages[name] = tpl
	}
	return r, nil
}

// Render executes into a buffer first so a template failure never sends a half page.
func (rd *Renderer) Render(w http.ResponseWriter, r *http.Request, status int, name string, p Page) error {
	tpl, ok := rd.pages[name]
	if !ok {
		return fmt.Errorf("unknown template %s", name)
	}
	p.CSRFField = csrf.TemplateField(r)

	var buf bytes.Buffer
	if err := tpl.Execute(&buf, p); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
