package registration_api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"ms-invoicing/internal/alert"
	"ms-invoicing/internal/logger"
	"ms-invoicing/internal/registration"
	"ms-invoicing/internal/utils"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	Registration *registration.Service
	Logger       *logger.Logger
}

func NewHandler(svc *registration.Service, log *logger.Logger) *Handler {
	return &Handler{Registration: svc, Logger: log}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.Submit)
	r.Post("/quote", h.Quote)
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var req registration.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, "registering", alert.UserErrorf("Invalid request body: %v", err))
		return
	}

	receipt, err := h.Registration.Submit(r.Context(), req)
	if err != nil {
		utils.WriteError(w, "registering", err)
		return
	}

	h.Logger.Info("API", fmt.Sprintf("Registration created: %s (%s)", receipt.Registration.ID, receipt.Registration.InvoiceNo))
	utils.WriteSuccess(w, http.StatusCreated, receipt.Message(), receipt)
}

func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EventID    string   `json:"eventId"`
		SegmentIDs []string `json:"segmentIds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, "pricing registration", alert.UserErrorf("Invalid request body: %v", err))
		return
	}

	quote, err := h.Registration.Quote(r.Context(), req.EventID, req.SegmentIDs)
	if err != nil {
		utils.WriteError(w, "pricing registration", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Total: $"+quote.Total.String(), quote)
}

func (h *Handler) ListStudentOptions(w http.ResponseWriter, r *http.Request) {
	dropdown, err := h.Registration.ListStudentOptions(r.Context())
	if err != nil {
		utils.WriteError(w, "loading students", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "student options", dropdown)
}
