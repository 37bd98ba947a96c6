package student

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"gradebook/common/httputil"
	"gradebook/internal/export"
	"gradebook/internal/metrics"
	"gradebook/internal/validation"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

type Handler struct {
	service  Service
	validate *validator.Validate
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

func NewHandler(service Service, logger *slog.Logger, metrics *metrics.Metrics) *Handler {
	return &Handler{
		service:  service,
		validate: validation.New(),
		logger:   logger,
		metrics:  metrics,
	}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Post("/students", h.CreateStudent)
	router.Get("/students", h.GetAllStudents)
	router.Get("/students/{id}", h.GetStudent)
	router.Put("/students/{id}", h.UpdateStudent)
	router.Delete("/students/{id}", h.DeleteStudent)
	router.Get("/classes", h.ListClasses)
	router.Get("/export/students.csv", h.ExportCSV)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (Request, bool) {
	var req Request
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid request")
		return req, false
	}
	if err := h.validate.Struct(&req); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, validation.Message(err))
		return req, false
	}
	return req, true
}

func (h *Handler) CreateStudent(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	h.logger.InfoContext(r.Context(), "creating student", "name", req.Name, "class", req.Class)
	student, err := h.service.CreateStudent(r.Context(), req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.metrics.RecordStudentCreated(r.Context())
	httputil.RespondWithJSON(w, http.StatusCreated, student)
}

func (h *Handler) GetAllStudents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := Filter{
		Class:   q.Get("class"),
		Section: q.Get("section"),
		Query:   q.Get("q"),
	}

	students, err := h.service.GetAllStudents(r.Context(), filter)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, students)
}

func (h *Handler) GetStudent(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid student ID")
		return
	}

	student, err := h.service.GetStudentByID(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, student)
}

func (h *Handler) UpdateStudent(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid student ID")
		return
	}
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	h.logger.InfoContext(r.Context(), "updating student", "id", id)
	student, err := h.service.UpdateStudent(r.Context(), id, req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, student)
}

func (h *Handler) DeleteStudent(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid student ID")
		return
	}

	h.logger.InfoContext(r.Context(), "deleting student", "id", id)
	if err := h.service.DeleteStudent(r.Context(), id); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListClasses(w http.ResponseWriter, r *http.Request) {
	classes, err := h.service.ListClasses(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, classes)
}

func (h *Handler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	students, err := h.service.GetAllStudents(r.Context(), Filter{})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	rows := make([][]string, 0, len(students))
	for _, s := range students {
		rows = append(rows, []string{
			strconv.Itoa(s.ID),
			s.Name,
			s.Class,
			s.Section,
			s.DateOfBirth.Format(validation.DateLayout),
		})
	}
	body, err := export.WriteCSV([]string{"id", "name", "class", "section", "date_of_birth"}, rows)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.metrics.RecordExport(r.Context(), "students", "csv")
	httputil.RespondWithAttachment(w, "text/csv", "students.csv", body)
}

func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, ErrStudentNotFound) {
		h.logger.InfoContext(r.Context(), "student not found")
		httputil.RespondWithError(w, http.StatusNotFound, "Student not found")
		return
	}
	if errors.Is(err, ErrInvalidInput) {
		h.logger.InfoContext(r.Context(), "invalid input", "error", err)
		httputil.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.logger.ErrorContext(r.Context(), "internal error", "error", err)
	httputil.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
}
