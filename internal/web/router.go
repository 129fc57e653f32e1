package web

import (
	"fmt"
	"net/http"

	"ms-invoicing/internal/analytics"
	"ms-invoicing/internal/analytics/analytics_api"
	"ms-invoicing/internal/catalog"
	"ms-invoicing/internal/catalog/catalog_api"
	"ms-invoicing/internal/config"
	"ms-invoicing/internal/invoice"
	"ms-invoicing/internal/invoice/invoice_api"
	"ms-invoicing/internal/logger"
	"ms-invoicing/internal/registration"
	"ms-invoicing/internal/registration/registration_api"
	"ms-invoicing/internal/sse"
	"ms-invoicing/internal/students"
	"ms-invoicing/internal/students/student_api"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/securecookie"
)

type Deps struct {
	Students     *students.Service
	Catalog      *catalog.Service
	Registration *registration.Service
	Invoices     *invoice.Service
	Analytics    *analytics.Service
	Hub          *sse.LedgerHub
	Logger       *logger.Logger
	Web          config.WebConfig
}

// NewRouter wires the HTML sections, the JSON API under /api and the ledger stream.
func NewRouter(d Deps) (http.Handler, error) {
	renderer, err := NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}

	key := d.Web.CSRFKey
	if len(key) == 0 {
		key = securecookie.GenerateRandomKey(32)
		d.Logger.LogSecurity("CSRF", "CSRF_KEY not set, using a random key; forms break across restarts")
	}

	pages := &Pages{
		Students:     d.Students,
		Catalog:      d.Catalog,
		Registration: d.Registration,
		Invoices:     d.Invoices,
		Analytics:    d.Analytics,
		Renderer:     renderer,
		Flashes:      NewFlashes(key, d.Web.Secure),
		Logger:       d.Logger,
	}

	studentHandler := student_api.NewHandler(d.Students, d.Logger)
	catalogHandler := catalog_api.NewHandler(d.Catalog, d.Logger)
	registrationHandler := registration_api.NewHandler(d.Registration, d.Logger)
	invoiceHandler := invoice_api.NewHandler(d.Invoices, d.Logger)
	analyticsHandler := analytics_api.NewHandler(d.Analytics, d.Logger)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(d.Logger))

	r.Route("/api", func(r chi.Router) {
		r.Route("/students", func(r chi.Router) {
			studentHandler.Routes(r)
			r.Get("/options", registrationHandler.ListStudentOptions)
		})
		r.Route("/events", catalogHandler.Routes)
		r.Route("/registrations", registrationHandler.Routes)
		r.Route("/invoices", invoiceHandler.Routes)
		analyticsHandler.RegisterRoutes(r)
	})
	d.Logger.Info("ROUTER", "API routes registered under /api")

	r.Method(http.MethodGet, "/events/ledger", &LedgerStream{Hub: d.Hub, Logger: d.Logger})
	r.Get("/invoices/{id}/qr.png", invoiceHandler.QRCode)

	r.Group(func(r chi.Router) {
		r.Use(CSRF(key, d.Web.Secure, d.Web.TrustedOrigins, d.Logger))

		r.Get("/", pages.Dashboard)
		r.Get("/students", pages.StudentList)
		r.Post("/students", pages.AddStudent)
		r.Get("/events", pages.EventList)
		r.Post("/events", pages.AddEvent)
		r.Post("/events/{eventId}/segments", pages.AddSegment)
		r.Get("/registrations", pages.RegistrationForm)
		r.Post("/registrations", pages.SubmitRegistration)
		r.Get("/invoices", pages.InvoiceList)
		r.Get("/invoices/{id}", pages.InvoiceDetail)
		r.Post("/invoices/{id}/pay", pages.MarkPaid)
	})
	d.Logger.Info("ROUTER", "HTML routes registered")

	return r, nil
}
