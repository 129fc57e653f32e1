package student_api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"ms-invoicing/internal/alert"
	"ms-invoicing/internal/logger"
	"ms-invoicing/internal/students"
	"ms-invoicing/internal/utils"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	Students *students.Service
	Logger   *logger.Logger
}

func NewHandler(svc *students.Service, log *logger.Logger) *Handler {
	return &Handler{Students: svc, Logger: log}
}

// Routes mounts the student endpoints under the caller's prefix.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.ListStudents)
	r.Post("/", h.CreateStudent)
}

func (h *Handler) ListStudents(w http.ResponseWriter, r *http.Request) {
	dir, err := h.Students.ListStudents(r.Context())
	if err != nil {
		utils.WriteError(w, "loading students", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, fmt.Sprintf("%d students", dir.Total), dir)
}

func (h *Handler) CreateStudent(w http.ResponseWriter, r *http.Request) {
	var req students.NewStudent
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, "adding student", alert.UserErrorf("Invalid request body: %v", err))
		return
	}

	student, err := h.Students.AddStudent(r.Context(), req)
	if err != nil {
		utils.WriteError(w, "adding student", err)
		return
	}

	h.Logger.Info("API", fmt.Sprintf("Student created: %s", student.ID))
	utils.WriteSuccess(w, http.StatusCreated, "Student added successfully!", student)
}
