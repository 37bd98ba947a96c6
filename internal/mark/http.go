package mark

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"gradebook/common/httputil"
	"gradebook/internal/export"
	"gradebook/internal/grading"
	"gradebook/internal/metrics"
	"gradebook/internal/validation"

	"github.com/go-chi/chi/v5"
)

const maxImportBytes = 10 << 20

type Handler struct {
	service Service
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewHandler(service Service, logger *slog.Logger, metrics *metrics.Metrics) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
		metrics: metrics,
	}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Post("/marks", h.RecordMark)
	router.Get("/marks", h.GetAllMarks)
	router.Post("/marks/bulk", h.RecordBulk)
	router.Post("/marks/import", h.ImportCSV)
	router.Get("/marks/{id}", h.GetMark)
	router.Put("/marks/{id}", h.UpdateMark)
	router.Delete("/marks/{id}", h.DeleteMark)
	router.Get("/export/marks.csv", h.ExportCSV)
}

func (h *Handler) RecordMark(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	h.logger.InfoContext(r.Context(), "recording mark", "student_id", req.StudentID, "subject_id", req.SubjectID)
	mark, err := h.service.RecordMark(r.Context(), req, "api")
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.metrics.RecordMarksRecorded(r.Context(), "api", 1)
	httputil.RespondWithJSON(w, http.StatusCreated, mark)
}

func (h *Handler) RecordBulk(w http.ResponseWriter, r *http.Request) {
	var req BulkRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	h.logger.InfoContext(r.Context(), "recording bulk marks", "subject_id", req.SubjectID, "entries", len(req.Entries))
	marks, err := h.service.RecordBulk(r.Context(), req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.metrics.RecordMarksRecorded(r.Context(), "bulk", len(marks))
	httputil.RespondWithJSON(w, http.StatusCreated, marks)
}

// ImportCSV accepts either a multipart upload in field "file" or a raw
// text/csv body.
func (h *Handler) ImportCSV(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)

	var body io.Reader = r.Body
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, _, err := r.FormFile("file")
		if err != nil {
			httputil.RespondWithError(w, http.StatusBadRequest, "Missing CSV file")
			return
		}
		defer file.Close()
		body = file
	}

	result, err := h.service.ImportCSV(r.Context(), body)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.metrics.RecordMarksImported(r.Context(), result.Imported)
	h.metrics.RecordMarksRecorded(r.Context(), "import", result.Imported)
	httputil.RespondWithJSON(w, http.StatusOK, result)
}

func (h *Handler) GetAllMarks(w http.ResponseWriter, r *http.Request) {
	filter, ok := parseFilter(w, r)
	if !ok {
		return
	}
	marks, err := h.service.GetAllMarks(r.Context(), filter)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, marks)
}

func parseFilter(w http.ResponseWriter, r *http.Request) (Filter, bool) {
	var filter Filter
	var err error
	if filter.StudentID, err = httputil.QueryInt(r, "student_id", 0); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid student_id")
		return filter, false
	}
	if filter.SubjectID, err = httputil.QueryInt(r, "subject_id", 0); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid subject_id")
		return filter, false
	}
	return filter, true
}

func (h *Handler) GetMark(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid mark ID")
		return
	}

	mark, err := h.service.GetMarkByID(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, mark)
}

func (h *Handler) UpdateMark(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid mark ID")
		return
	}
	var req Request
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	h.logger.InfoContext(r.Context(), "updating mark", "id", id)
	mark, err := h.service.UpdateMark(r.Context(), id, req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, mark)
}

func (h *Handler) DeleteMark(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid mark ID")
		return
	}

	h.logger.InfoContext(r.Context(), "deleting mark", "id", id)
	if err := h.service.DeleteMark(r.Context(), id); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExportCSV dumps marks in the import column order plus derived columns.
func (h *Handler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	filter, ok := parseFilter(w, r)
	if !ok {
		return
	}
	marks, err := h.service.GetAllMarks(r.Context(), filter)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	header := append([]string{"id"}, ImportColumns...)
	header = append(header, "percentage", "grade")
	rows := make([][]string, 0, len(marks))
	for _, m := range marks {
		pct := grading.Percentage(m.MarksObtained, m.MaxMarks)
		rows = append(rows, []string{
			strconv.Itoa(m.ID),
			strconv.Itoa(m.StudentID),
			strconv.Itoa(m.SubjectID),
			export.Plain(m.MarksObtained),
			export.Plain(m.MaxMarks),
			m.AssessmentDate.Format(validation.DateLayout),
			m.AssessmentType,
			export.Plain(pct),
			string(grading.Of(pct)),
		})
	}
	body, err := export.WriteCSV(header, rows)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.metrics.RecordExport(r.Context(), "marks", "csv")
	httputil.RespondWithAttachment(w, "text/csv", "marks.csv", body)
}

func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrMarkNotFound):
		h.logger.InfoContext(r.Context(), "mark not found")
		httputil.RespondWithError(w, http.StatusNotFound, "Mark not found")
	case errors.Is(err, ErrInvalidInput):
		h.logger.InfoContext(r.Context(), "invalid input", "error", err)
		httputil.RespondWithError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.ErrorContext(r.Context(), "internal error", "error", err)
		httputil.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}
