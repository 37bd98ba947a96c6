package subject

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
	router.Post("/subjects", h.CreateSubject)
	router.Get("/subjects", h.GetAllSubjects)
	router.Post("/subjects/defaults", h.AddDefaults)
	router.Get("/subjects/{id}", h.GetSubject)
	router.Put("/subjects/{id}", h.UpdateSubject)
	router.Delete("/subjects/{id}", h.DeleteSubject)
	router.Get("/export/subjects.csv", h.ExportCSV)
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

func (h *Handler) CreateSubject(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	h.logger.InfoContext(r.Context(), "creating subject", "name", req.Name)
	subject, err := h.service.CreateSubject(r.Context(), req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.metrics.RecordSubjectsCreated(r.Context(), 1)
	httputil.RespondWithJSON(w, http.StatusCreated, subject)
}

func (h *Handler) GetAllSubjects(w http.ResponseWriter, r *http.Request) {
	subjects, err := h.service.GetAllSubjects(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, subjects)
}

func (h *Handler) AddDefaults(w http.ResponseWriter, r *http.Request) {
	created, err := h.service.AddDefaults(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "added default subjects", "created", len(created))
	h.metrics.RecordSubjectsCreated(r.Context(), len(created))
	httputil.RespondWithJSON(w, http.StatusOK, map[string]any{
		"created": created,
		"count":   len(created),
	})
}

func (h *Handler) GetSubject(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid subject ID")
		return
	}

	subject, err := h.service.GetSubjectByID(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, subject)
}

func (h *Handler) UpdateSubject(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid subject ID")
		return
	}
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	h.logger.InfoContext(r.Context(), "updating subject", "id", id)
	subject, err := h.service.UpdateSubject(r.Context(), id, req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, subject)
}

func (h *Handler) DeleteSubject(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid subject ID")
		return
	}

	h.logger.InfoContext(r.Context(), "deleting subject", "id", id)
	if err := h.service.DeleteSubject(r.Context(), id); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	subjects, err := h.service.GetAllSubjects(r.Context(), "")
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	rows := make([][]string, 0, len(subjects))
	for _, s := range subjects {
		rows = append(rows, []string{strconv.Itoa(s.ID), s.Name})
	}
	body, err := export.WriteCSV([]string{"id", "name"}, rows)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.metrics.RecordExport(r.Context(), "subjects", "csv")
	httputil.RespondWithAttachment(w, "text/csv", "subjects.csv", body)
}

func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrSubjectNotFound):
		h.logger.InfoContext(r.Context(), "subject not found")
		httputil.RespondWithError(w, http.StatusNotFound, "Subject not found")
	case errors.Is(err, ErrSubjectExists):
		h.logger.InfoContext(r.Context(), "subject already exists")
		httputil.RespondWithError(w, http.StatusConflict, "Subject already exists")
	case errors.Is(err, ErrInvalidInput):
		httputil.RespondWithError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.ErrorContext(r.Context(), "internal error", "error", err)
		httputil.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}
