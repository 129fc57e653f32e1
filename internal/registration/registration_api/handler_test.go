package registration_api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ms-invoicing/internal/logger"
	"ms-invoicing/internal/models"
	"ms-invoicing/internal/registration"
	"ms-invoicing/internal/sse"
	"ms-invoicing/internal/store"
	"ms-invoicing/internal/store/storetest"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func setup(t *testing.T) (http.Handler, *store.Store, *sse.LedgerHub) {
	st := storetest.New(t)
	hub := sse.NewLedgerHub()
	h := NewHandler(registration.NewService(st, hub, nil, logger.Discard(), "INV-"), logger.Discard())

	r := chi.NewRouter()
	r.Route("/api/registrations", h.Routes)
	r.Get("/api/students/options", h.ListStudentOptions)
	return r, st, hub
}

func post(t *testing.T, r http.Handler, path, body string) (int, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, strings.NewReader(body)))
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec.Code, env
}

func TestSubmitRegistration(t *testing.T) {
	r, st, hub := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := hub.Subscribe(ctx)

	student := &models.Student{Name: "A", Class: "5", Section: "B", RollNo: "12"}
	_, err := st.Students.Insert(ctx, student)
	require.NoError(t, err)
	event := &models.Event{Name: "Sports Day", Date: "2025-03-14", IsActive: true}
	_, err = st.Events.Insert(ctx, event)
	require.NoError(t, err)
	seg := &models.Segment{EventID: event.ID, Name: "Running", Fee: 1000}
	_, err = st.Segments.Insert(ctx, seg)
	require.NoError(t, err)

	code, env := post(t, r, "/api/registrations/quote", fmt.Sprintf(`{"eventId":%q,"segmentIds":[%q]}`, event.ID, seg.ID))
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Total: $10.00", env.Message)

	body := fmt.Sprintf(`{"studentId":%q,"eventId":%q,"segmentIds":[%q]}`, student.ID, event.ID, seg.ID)
	code, env = post(t, r, "/api/registrations", body)
	require.Equal(t, http.StatusCreated, code)
	assert.Contains(t, env.Message, "Registration successful! Invoice #INV-")

	evt := <-events
	assert.Equal(t, models.LedgerRegistrationCreated, evt.Type)
	assert.Equal(t, models.Amount(1000), evt.Amount)
}

func TestSubmitStatusCodes(t *testing.T) {
	r, st, _ := setup(t)
	ctx := context.Background()

	code, env := post(t, r, "/api/registrations", `{"studentId":"","eventId":""}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, registration.SelectionRequiredMessage, env.Message)

	student := &models.Student{Name: "A"}
	_, err := st.Students.Insert(ctx, student)
	require.NoError(t, err)

	code, env = post(t, r, "/api/registrations", fmt.Sprintf(`{"studentId":%q,"eventId":"e1"}`, student.ID))
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, registration.ZeroAmountPrompt, env.Message)

	code, _ = post(t, r, "/api/registrations", fmt.Sprintf(`{"studentId":%q,"eventId":"e1","confirm":true}`, student.ID))
	assert.Equal(t, http.StatusCreated, code)
}

func TestListStudentOptionsEndpoint(t *testing.T) {
	r, st, _ := setup(t)
	_, err := st.Students.Insert(context.Background(), &models.Student{Name: "A", Class: "5", Section: "B"})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/students/options", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	var d models.Dropdown
	require.NoError(t, json.Unmarshal(env.Data, &d))
	assert.Equal(t, "A (5-B)", d.Choices()[0].Label)
}
