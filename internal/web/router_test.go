package web

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"ms-invoicing/internal/analytics"
	"ms-invoicing/internal/catalog"
	"ms-invoicing/internal/config"
	"ms-invoicing/internal/invoice"
	"ms-invoicing/internal/logger"
	"ms-invoicing/internal/models"
	"ms-invoicing/internal/registration"
	"ms-invoicing/internal/sse"
	"ms-invoicing/internal/store"
	"ms-invoicing/internal/store/storetest"
	"ms-invoicing/internal/students"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var tokenField = regexp.MustCompile(`name="gorilla.csrf.Token" value="([^"]+)"`)

type testApp struct {
	server *httptest.Server
	client *http.Client
	store  *store.Store
	hub    *sse.LedgerHub
}

func newTestApp(t *testing.T, deny ...string) *testApp {
	t.Helper()
	st := storetest.New(t, deny...)
	hub := sse.NewLedgerHub()
	log := logger.Discard()

	studentSvc := students.NewService(st.Students, nil, log)
	catalogSvc := catalog.NewService(st.Events, st.Segments, nil, log)
	h, err := NewRouter(Deps{
		Students:     studentSvc,
		Catalog:      catalogSvc,
		Registration: registration.NewService(st, hub, nil, log, "INV-"),
		Invoices:     invoice.NewService(st, hub, nil, log, config.InvoiceConfig{QRSecret: "test"}),
		Analytics:    analytics.NewService(analytics.NewDB(st.DB, st.Rules), studentSvc, catalogSvc, nil, log),
		Hub:          hub,
		Logger:       log,
		Web:          config.WebConfig{CSRFKey: []byte(strings.Repeat("k", 32))},
	})
	require.NoError(t, err)

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &testApp{server: srv, client: &http.Client{Jar: jar}, store: st, hub: hub}
}

func (a *testApp) get(t *testing.T, path string) (int, string) {
	t.Helper()
	resp, err := a.client.Get(a.server.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

// submit loads the page holding the form for its CSRF token, then posts.
func (a *testApp) submit(t *testing.T, formPage, action string, values url.Values) (int, string) {
	t.Helper()
	_, page := a.get(t, formPage)
	m := tokenField.FindStringSubmatch(page)
	require.Len(t, m, 2, "no csrf token on %s", formPage)
	values.Set("gorilla.csrf.Token", m[1])

	resp, err := a.client.PostForm(a.server.URL+action, values)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestDashboardPage(t *testing.T) {
	app := newTestApp(t)

	code, body := app.get(t, "/")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "Total Students")
	assert.Contains(t, body, `id="total-revenue">$0.00`)
	assert.Contains(t, body, `class="nav-btn active" href="/"`)
}

func TestFormPostWithoutTokenIsRejected(t *testing.T) {
	app := newTestApp(t)

	resp, err := app.client.PostForm(app.server.URL+"/students", url.Values{"name": {"A"}})
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	n, err := app.store.Students.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestJSONPostToFormRouteStillNeedsToken(t *testing.T) {
	app := newTestApp(t)

	resp, err := app.client.Post(app.server.URL+"/students", "application/json",
		strings.NewReader(`{"name":"A","class":"5","section":"B","rollNo":"12"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	n, err := app.store.Students.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStudentsPage(t *testing.T) {
	app := newTestApp(t)

	_, body := app.get(t, "/students")
	assert.Contains(t, body, "No students found.")

	code, body := app.submit(t, "/students", "/students", url.Values{
		"name": {"A"}, "class": {"5"}, "section": {"B"}, "rollNo": {"12"},
	})
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "Student added successfully!")
	assert.Contains(t, body, "<td>A</td><td>5</td><td>B</td><td>12</td>")

	// the flash is shown once
	_, body = app.get(t, "/students")
	assert.NotContains(t, body, "Student added successfully!")
}

func TestStudentsPageLoadFailure(t *testing.T) {
	app := newTestApp(t, "students:read")

	code, body := app.get(t, "/students")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "Error loading data.")
	assert.Contains(t, body, "Permission Denied (loading students)")
}

func TestEventAndSegmentPages(t *testing.T) {
	app := newTestApp(t)

	_, body := app.submit(t, "/events", "/events", url.Values{
		"eventName": {"Sports Day"}, "eventDate": {"2025-03-14"}, "isActive": {"true"},
	})
	assert.Contains(t, body, "Event created successfully!")
	assert.Contains(t, body, "Sports Day (2025-03-14)")
	assert.Equal(t, 1, strings.Count(body, "-- Select Event --"))

	events, err := app.store.Events.List(context.Background(), store.Query{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	eventPage := "/events?event=" + events[0].ID

	_, body = app.get(t, eventPage)
	assert.Contains(t, body, "No segments added yet.")

	_, body = app.submit(t, eventPage, "/events/"+events[0].ID+"/segments", url.Values{
		"segmentName": {"Running"}, "fee": {"10"},
	})
	assert.Contains(t, body, "<span>Running</span><strong>$10.00</strong>")

	_, body = app.submit(t, eventPage, "/events/"+events[0].ID+"/segments", url.Values{
		"segmentName": {"Broken"}, "fee": {"ten"},
	})
	assert.Contains(t, body, "adding segment")
	assert.NotContains(t, body, "<span>Broken</span>")
}

func seedCatalog(t *testing.T, st *store.Store) (*models.Student, *models.Event, *models.Segment) {
	t.Helper()
	ctx := context.Background()
	student := &models.Student{Name: "A", Class: "5", Section: "B", RollNo: "12"}
	_, err := st.Students.Insert(ctx, student)
	require.NoError(t, err)
	event := &models.Event{Name: "Sports Day", Date: "2025-03-14", IsActive: true}
	_, err = st.Events.Insert(ctx, event)
	require.NoError(t, err)
	seg := &models.Segment{EventID: event.ID, Name: "Running", Fee: 1000}
	_, err = st.Segments.Insert(ctx, seg)
	require.NoError(t, err)
	return student, event, seg
}

func TestRegistrationToPaidInvoice(t *testing.T) {
	app := newTestApp(t)
	student, event, seg := seedCatalog(t, app.store)
	formPage := "/registrations?student=" + student.ID + "&event=" + event.ID

	_, body := app.get(t, formPage)
	assert.Contains(t, body, "A (5-B)")
	assert.Contains(t, body, `data-fee="10.00"`)

	_, body = app.submit(t, formPage, "/registrations", url.Values{
		"studentId": {student.ID}, "eventId": {event.ID}, "segmentIds": {seg.ID},
	})
	assert.Contains(t, body, "Registration successful! Invoice #INV-")

	_, body = app.get(t, "/invoices")
	assert.Contains(t, body, "Sports Day")
	assert.Contains(t, body, `<span class="status-badge pending">Pending</span>`)
	assert.Contains(t, body, "Mark Paid")
	assert.Contains(t, body, `id="total-revenue">$10.00`)

	regs, err := app.store.Registrations.List(context.Background(), store.Query{})
	require.NoError(t, err)
	require.Len(t, regs, 1)

	// unconfirmed does nothing but ask
	_, body = app.submit(t, "/invoices", "/invoices/"+regs[0].ID+"/pay", url.Values{})
	assert.Contains(t, body, `alert("Mark this invoice as PAID?")`)
	assert.Contains(t, body, "Mark Paid")

	_, body = app.submit(t, "/invoices", "/invoices/"+regs[0].ID+"/pay", url.Values{"confirm": {"1"}})
	assert.Contains(t, body, `<span class="status-badge paid">Paid</span>`)
	assert.NotContains(t, body, "btn-pay")

	_, body = app.get(t, "/invoices/"+regs[0].ID)
	assert.Contains(t, body, "Class: 5, Sec: B, Roll: 12")
	assert.Contains(t, body, "/invoices/"+regs[0].ID+"/qr.png")

	resp, err := app.client.Get(app.server.URL + "/invoices/" + regs[0].ID + "/qr.png")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
}

func TestZeroSegmentRegistrationNeedsConfirmation(t *testing.T) {
	app := newTestApp(t)
	student, event, _ := seedCatalog(t, app.store)
	formPage := "/registrations?student=" + student.ID + "&event=" + event.ID

	_, body := app.submit(t, formPage, "/registrations", url.Values{
		"studentId": {student.ID}, "eventId": {event.ID},
	})
	assert.Contains(t, body, `alert("No segments selected. Continue with $0 amount?")`)
	n, err := app.store.Registrations.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	_, body = app.submit(t, formPage, "/registrations", url.Values{
		"studentId": {student.ID}, "eventId": {event.ID}, "confirm": {"1"},
	})
	assert.Contains(t, body, "Registration successful!")
}

func TestRegistrationRequiresSelection(t *testing.T) {
	app := newTestApp(t)

	_, body := app.submit(t, "/registrations", "/registrations", url.Values{})
	assert.Contains(t, body, "Please select student and event.")
}

func TestAPIIsMountedWithoutCSRF(t *testing.T) {
	app := newTestApp(t)

	resp, err := app.client.Post(app.server.URL+"/api/students", "application/json",
		strings.NewReader(`{"name":"A","class":"5","section":"B","rollNo":"12"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	code, body := app.get(t, "/api/students/options")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "A (5-B)")

	code, body = app.get(t, "/api/dashboard")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `"totalStudents":1`)
}

func TestLedgerStream(t *testing.T) {
	app := newTestApp(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, app.server.URL+"/events/ledger", nil)
	require.NoError(t, err)
	resp, err := app.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: connected\n", line)

	require.Eventually(t, func() bool { return app.hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)
	app.hub.Broadcast(models.LedgerEvent{Type: models.LedgerRegistrationPaid, InvoiceNo: "INV-1234567"})

	for {
		line, err = reader.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "event: registration.paid") {
			break
		}
	}
	line, err = reader.ReadString('\n')
	require.NoError(t, err)
	assert.Contains(t, line, "INV-1234567")
}
