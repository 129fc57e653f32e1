package web

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"ms-invoicing/internal/alert"
	"ms-invoicing/internal/analytics"
	"ms-invoicing/internal/catalog"
	"ms-invoicing/internal/invoice"
	"ms-invoicing/internal/logger"
	"ms-invoicing/internal/models"
	"ms-invoicing/internal/registration"
	"ms-invoicing/internal/students"

	"github.com/go-chi/chi/v5"
)

const (
	loadErrorText     = "Error loading data."
	segmentsErrorText = "Error loading segments."
)

type studentsView struct {
	Students  []models.Student
	Total     int
	LoadError string
}

type eventsView struct {
	Events          models.Dropdown
	SelectedEventID string
	Segments        []models.Segment
	SegmentsError   string
}

type registrationsView struct {
	Students      models.Dropdown
	Events        models.Dropdown
	StudentID     string
	EventID       string
	Form          *registration.Form
	SegmentsError string
}

type invoicesView struct {
	Ledger    *models.Ledger
	LoadError string
}

// Pages serves the HTML sections. Every write redirects back to a GET so a
// refresh never repeats it.
type Pages struct {
	Students     *students.Service
	Catalog      *catalog.Service
	Registration *registration.Service
	Invoices     *invoice.Service
	Analytics    *analytics.Service
	Renderer     *Renderer
	Flashes      *Flashes
	Logger       *logger.Logger
}

func (p *Pages) render(w http.ResponseWriter, r *http.Request, name, title, active string, data any, loadAlert *alert.Alert) {
	page := Page{Title: title, Active: active, Data: data}
	if flash, ok := p.Flashes.Pop(w, r); ok {
		page.Flash = flash
	}
	// a load failure on this request outranks a stale flash
	if loadAlert != nil {
		page.Flash = loadAlert
	}
	if err := p.Renderer.Render(w, r, http.StatusOK, name, page); err != nil {
		p.Logger.Error("WEB", err.Error())
		http.Error(w, "Render error", http.StatusInternalServerError)
	}
}

func (p *Pages) redirect(w http.ResponseWriter, r *http.Request, to string, a *alert.Alert) {
	if a != nil {
		if err := p.Flashes.Set(w, *a); err != nil {
			p.Logger.Warn("WEB", fmt.Sprintf("Failed to set flash: %v", err))
		}
	}
	http.Redirect(w, r, to, http.StatusSeeOther)
}

func (p *Pages) fail(w http.ResponseWriter, r *http.Request, to, action string, err error) {
	a := alert.FromError(action, err)
	p.Logger.Warn("WEB", fmt.Sprintf("%s failed: %v", action, err))
	p.redirect(w, r, to, &a)
}

func loadFailure(action string, err error) *alert.Alert {
	a := alert.FromError(action, err)
	return &a
}

func (p *Pages) Dashboard(w http.ResponseWriter, r *http.Request) {
	p.render(w, r, "dashboard.html", "Dashboard", "dashboard", p.Analytics.Dashboard(r.Context()), nil)
}

func (p *Pages) StudentList(w http.ResponseWriter, r *http.Request) {
	dir, err := p.Students.ListStudents(r.Context())
	if err != nil {
		p.render(w, r, "students.html", "Students", "students", studentsView{LoadError: loadErrorText}, loadFailure("loading students", err))
		return
	}
	p.render(w, r, "students.html", "Students", "students", studentsView{Students: dir.Students, Total: dir.Total}, nil)
}

func (p *Pages) AddStudent(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		p.fail(w, r, "/students", "adding student", alert.UserErrorf("Invalid form: %v", err))
		return
	}
	_, err := p.Students.AddStudent(r.Context(), students.NewStudent{
		Name:    r.PostFormValue("name"),
		Class:   r.PostFormValue("class"),
		Section: r.PostFormValue("section"),
		RollNo:  r.PostFormValue("rollNo"),
	})
	if err != nil {
		p.fail(w, r, "/students", "adding student", err)
		return
	}
	ok := alert.Info("Student added successfully!")
	p.redirect(w, r, "/students", &ok)
}

func (p *Pages) EventList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	view := eventsView{
		Events:          models.NewDropdown(catalog.SegmentEventSelect, "-- Select Event --"),
		SelectedEventID: r.URL.Query().Get("event"),
	}

	dropdowns, err := p.Catalog.ListEventOptions(ctx)
	if err != nil {
		p.render(w, r, "events.html", "Events", "events", view, loadFailure("loading events", err))
		return
	}
	if d, ok := models.FindDropdown(dropdowns, catalog.SegmentEventSelect); ok {
		view.Events = d
	}

	var loadAlert *alert.Alert
	if view.SelectedEventID != "" {
		view.Segments, err = p.Catalog.ListSegmentsForEvent(ctx, view.SelectedEventID)
		if err != nil {
			view.SegmentsError = segmentsErrorText
			loadAlert = loadFailure("loading segments", err)
		}
	}
	p.render(w, r, "events.html", "Events", "events", view, loadAlert)
}

func (p *Pages) AddEvent(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		p.fail(w, r, "/events", "adding event", alert.UserErrorf("Invalid form: %v", err))
		return
	}
	_, err := p.Catalog.AddEvent(r.Context(), catalog.NewEvent{
		Name:        r.PostFormValue("eventName"),
		Date:        r.PostFormValue("eventDate"),
		Description: r.PostFormValue("description"),
		IsActive:    r.PostFormValue("isActive") != "",
	})
	if err != nil {
		p.fail(w, r, "/events", "adding event", err)
		return
	}
	ok := alert.Info("Event created successfully!")
	p.redirect(w, r, "/events", &ok)
}

func (p *Pages) AddSegment(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")
	back := "/events?event=" + url.QueryEscape(eventID)

	fee, err := models.ParseAmount(r.PostFormValue("fee"))
	if err != nil {
		p.fail(w, r, back, "adding segment", err)
		return
	}
	_, err = p.Catalog.AddSegment(r.Context(), catalog.NewSegment{
		EventID: eventID,
		Name:    r.PostFormValue("segmentName"),
		Fee:     fee,
	})
	if errors.Is(err, catalog.ErrNoEventSelected) {
		p.redirect(w, r, "/events", nil)
		return
	}
	if err != nil {
		p.fail(w, r, back, "adding segment", err)
		return
	}
	p.redirect(w, r, back, nil)
}

func (p *Pages) RegistrationForm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	view := registrationsView{
		Students:  models.NewDropdown(registration.StudentSelect, "-- Choose Student --"),
		Events:    models.NewDropdown(catalog.RegistrationEventSelect, "-- Choose Event --"),
		StudentID: q.Get("student"),
		EventID:   q.Get("event"),
	}

	var loadAlert *alert.Alert
	if d, err := p.Registration.ListStudentOptions(ctx); err != nil {
		// the student select stays at its placeholder
		p.Logger.Error("WEB", fmt.Sprintf("Error loading students for registration: %v", err))
	} else {
		view.Students = d
	}

	dropdowns, err := p.Catalog.ListEventOptions(ctx)
	if err != nil {
		loadAlert = loadFailure("loading events", err)
	} else if d, ok := models.FindDropdown(dropdowns, catalog.RegistrationEventSelect); ok {
		view.Events = d
	}

	if view.EventID != "" {
		view.Form, err = p.Registration.PrepareForm(ctx, view.StudentID, view.EventID, nil)
		if err != nil {
			view.SegmentsError = segmentsErrorText
			loadAlert = loadFailure("loading segments for registration", err)
		}
	}
	p.render(w, r, "registrations.html", "Registrations", "registrations", view, loadAlert)
}

func (p *Pages) SubmitRegistration(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		p.fail(w, r, "/registrations", "registering", alert.UserErrorf("Invalid form: %v", err))
		return
	}
	req := registration.SubmitRequest{
		StudentID:  r.PostFormValue("studentId"),
		EventID:    r.PostFormValue("eventId"),
		SegmentIDs: r.PostForm["segmentIds"],
		Confirmed:  r.PostFormValue("confirm") == "1",
	}

	receipt, err := p.Registration.Submit(r.Context(), req)
	if err != nil {
		back := url.Values{}
		if req.StudentID != "" {
			back.Set("student", req.StudentID)
		}
		if req.EventID != "" {
			back.Set("event", req.EventID)
		}
		to := "/registrations"
		if len(back) > 0 {
			to += "?" + back.Encode()
		}
		p.fail(w, r, to, "registering", err)
		return
	}

	ok := alert.Info(receipt.Message())
	p.redirect(w, r, "/registrations", &ok)
}

func (p *Pages) InvoiceList(w http.ResponseWriter, r *http.Request) {
	ledger, err := p.Invoices.ListInvoices(r.Context())
	if err != nil {
		p.render(w, r, "invoices.html", "Invoices", "invoices", invoicesView{LoadError: loadErrorText}, loadFailure("loading invoices", err))
		return
	}
	p.render(w, r, "invoices.html", "Invoices", "invoices", invoicesView{Ledger: ledger}, nil)
}

func (p *Pages) MarkPaid(w http.ResponseWriter, r *http.Request) {
	confirmed := r.PostFormValue("confirm") == "1"
	if _, err := p.Invoices.MarkPaid(r.Context(), chi.URLParam(r, "id"), confirmed); err != nil {
		p.fail(w, r, "/invoices", "updating payment status", err)
		return
	}
	p.redirect(w, r, "/invoices", nil)
}

func (p *Pages) InvoiceDetail(w http.ResponseWriter, r *http.Request) {
	detail, err := p.Invoices.OpenInvoice(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		p.fail(w, r, "/invoices", "opening invoice", err)
		return
	}
	p.render(w, r, "invoice.html", "Invoice "+detail.InvoiceNo, "invoices", detail, nil)
}
