package catalog_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"ms-invoicing/internal/alert"
	"ms-invoicing/internal/catalog"
	"ms-invoicing/internal/logger"
	"ms-invoicing/internal/utils"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	Catalog *catalog.Service
	Logger  *logger.Logger
}

func NewHandler(svc *catalog.Service, log *logger.Logger) *Handler {
	return &Handler{Catalog: svc, Logger: log}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.ListEvents)
	r.Post("/", h.CreateEvent)
	r.Get("/options", h.ListEventOptions)
	r.Get("/active/count", h.ActiveEventCount)
	r.Get("/{eventId}/segments", h.ListSegments)
	r.Post("/{eventId}/segments", h.CreateSegment)
}

func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.Catalog.ListEvents(r.Context())
	if err != nil {
		utils.WriteError(w, "loading events", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, fmt.Sprintf("%d events", len(events)), events)
}

func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req catalog.NewEvent
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, "creating event", alert.UserErrorf("Invalid request body: %v", err))
		return
	}

	event, err := h.Catalog.AddEvent(r.Context(), req)
	if err != nil {
		utils.WriteError(w, "creating event", err)
		return
	}

	h.Logger.Info("API", fmt.Sprintf("Event created: %s", event.ID))
	utils.WriteSuccess(w, http.StatusCreated, "Event created successfully!", event)
}

func (h *Handler) ListEventOptions(w http.ResponseWriter, r *http.Request) {
	dropdowns, err := h.Catalog.ListEventOptions(r.Context())
	if err != nil {
		utils.WriteError(w, "loading events", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "event options", dropdowns)
}

func (h *Handler) ActiveEventCount(w http.ResponseWriter, r *http.Request) {
	n, ok := h.Catalog.ActiveEventCount(r.Context())
	if !ok {
		utils.WriteSuccess(w, http.StatusOK, "active event count unavailable", map[string]any{"count": nil})
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "active event count", map[string]any{"count": n})
}

func (h *Handler) ListSegments(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")

	segments, err := h.Catalog.ListSegmentsForEvent(r.Context(), eventID)
	if err != nil {
		utils.WriteError(w, "loading segments", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, fmt.Sprintf("%d segments", len(segments)), segments)
}

func (h *Handler) CreateSegment(w http.ResponseWriter, r *http.Request) {
	var req catalog.NewSegment
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, "adding segment", alert.UserErrorf("Invalid request body: %v", err))
		return
	}
	req.EventID = chi.URLParam(r, "eventId")

	segment, err := h.Catalog.AddSegment(r.Context(), req)
	if errors.Is(err, catalog.ErrNoEventSelected) {
		utils.WriteError(w, "adding segment", alert.UserErrorf("Please select an event first."))
		return
	}
	if err != nil {
		utils.WriteError(w, "adding segment", err)
		return
	}

	utils.WriteSuccess(w, http.StatusCreated, "Segment added", segment)
}
