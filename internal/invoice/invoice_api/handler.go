package invoice_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"ms-invoicing/internal/alert"
	"ms-invoicing/internal/invoice"
	"ms-invoicing/internal/logger"
	"ms-invoicing/internal/utils"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	Invoices *invoice.Service
	Logger   *logger.Logger
}

func NewHandler(svc *invoice.Service, log *logger.Logger) *Handler {
	return &Handler{Invoices: svc, Logger: log}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Get("/{id}/qr.png", h.QRCode)
	r.Post("/{id}/pay", h.MarkPaid)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ledger, err := h.Invoices.ListInvoices(r.Context())
	if err != nil {
		utils.WriteError(w, "loading invoices", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, fmt.Sprintf("%d invoices", len(ledger.Rows)), ledger)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	detail, err := h.Invoices.OpenInvoice(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		utils.WriteError(w, "loading invoice", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Invoice #"+detail.InvoiceNo, detail)
}

func (h *Handler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Confirm bool `json:"confirm"`
	}
	// an empty body means unconfirmed
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		utils.WriteError(w, "updating payment", alert.UserErrorf("Invalid request body: %v", err))
		return
	}

	reg, err := h.Invoices.MarkPaid(r.Context(), chi.URLParam(r, "id"), req.Confirm)
	if err != nil {
		utils.WriteError(w, "updating payment", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Invoice #"+reg.InvoiceNo+" marked as paid", reg)
}

func (h *Handler) QRCode(w http.ResponseWriter, r *http.Request) {
	png, err := h.Invoices.QRCode(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.Logger.Warn("INVOICE", fmt.Sprintf("QR code failed: %v", err))
		http.Error(w, http.StatusText(alert.Status(err)), alert.Status(err))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(png)
}
