package analytics_api

import (
	"net/http"

	"ms-invoicing/internal/analytics"
	"ms-invoicing/internal/logger"
	"ms-invoicing/internal/utils"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	Service *analytics.Service
	Logger  *logger.Logger
}

func NewHandler(service *analytics.Service, log *logger.Logger) *Handler {
	return &Handler{Service: service, Logger: log}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/dashboard", h.GetDashboard)
}

// GetDashboard always answers 200; unavailable tiles are flagged in the body.
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	utils.WriteSuccess(w, http.StatusOK, "dashboard", h.Service.Dashboard(r.Context()))
}
