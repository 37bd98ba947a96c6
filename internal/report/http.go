package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"gradebook/common/httputil"
	"gradebook/internal/analytics"
	"gradebook/internal/metrics"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	service *Service
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewHandler(service *Service, logger *slog.Logger, metrics *metrics.Metrics) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
		metrics: metrics,
	}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Get("/students/{id}/report-card", h.reportCard(formatJSON))
	router.Get("/students/{id}/report-card.csv", h.reportCard(formatCSV))
	router.Get("/students/{id}/report-card.pdf", h.reportCard(formatPDF))

	router.Get("/classes/{class}/report", h.classReport(formatJSON))
	router.Get("/classes/{class}/report.csv", h.classReport(formatCSV))
	router.Get("/classes/{class}/report.pdf", h.classReport(formatPDF))

	router.Route("/analytics", func(r chi.Router) {
		r.Get("/top-performers", h.TopPerformers)
		r.Get("/subjects", h.SubjectComparison)
		r.Get("/classes", h.ClassComparison)
		r.Get("/overview", h.Overview)
	})
}

type format string

const (
	formatJSON format = "json"
	formatCSV  format = "csv"
	formatPDF  format = "pdf"
)

func (f format) contentType() string {
	switch f {
	case formatCSV:
		return "text/csv"
	case formatPDF:
		return "application/pdf"
	}
	return "application/json"
}

func (h *Handler) reportCard(f format) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			httputil.RespondWithError(w, http.StatusBadRequest, "Invalid student ID")
			return
		}

		h.logger.InfoContext(r.Context(), "building report card", "student_id", id, "format", f)
		card, err := h.service.ReportCard(r.Context(), id)
		if err != nil {
			h.handleServiceError(w, r, err)
			return
		}
		h.metrics.RecordReportCard(r.Context(), string(f))

		h.respond(w, r, f, fmt.Sprintf("report_card_%d.%s", id, f), card, func() ([]byte, error) {
			if f == formatCSV {
				return ReportCardCSV(card)
			}
			return ReportCardPDF(card)
		})
	}
}

func (h *Handler) classReport(f format) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		class := chi.URLParam(r, "class")
		section := r.URL.Query().Get("section")
		top, err := httputil.QueryInt(r, "top", DefaultTop)
		if err != nil {
			httputil.RespondWithError(w, http.StatusBadRequest, "Invalid top")
			return
		}

		h.logger.InfoContext(r.Context(), "building class report", "class", class, "section", section, "format", f)
		report, err := h.service.ClassReport(r.Context(), class, section, top)
		if err != nil {
			h.handleServiceError(w, r, err)
			return
		}
		h.metrics.RecordClassReport(r.Context(), string(f))

		name := "class_" + class
		if section != "" {
			name += "_" + section
		}
		h.respond(w, r, f, fmt.Sprintf("%s_report.%s", name, f), report, func() ([]byte, error) {
			if f == formatCSV {
				return ClassReportCSV(report)
			}
			return ClassReportPDF(report)
		})
	}
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, f format, filename string, payload any, render func() ([]byte, error)) {
	if f == formatJSON {
		httputil.RespondWithJSON(w, http.StatusOK, payload)
		return
	}
	body, err := render()
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.metrics.RecordExport(r.Context(), "report", string(f))
	httputil.RespondWithAttachment(w, f.contentType(), filename, body)
}

func (h *Handler) TopPerformers(w http.ResponseWriter, r *http.Request) {
	limit, err := httputil.QueryInt(r, "limit", DefaultTop)
	if err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid limit")
		return
	}
	q := r.URL.Query()

	ranked, err := h.service.TopPerformers(r.Context(), limit, q.Get("class"), q.Get("section"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, ranked)
}

func (h *Handler) SubjectComparison(w http.ResponseWriter, r *http.Request) {
	respondWith(w, r, h, h.service.SubjectComparison)
}

func (h *Handler) ClassComparison(w http.ResponseWriter, r *http.Request) {
	respondWith(w, r, h, h.service.ClassComparison)
}

func (h *Handler) Overview(w http.ResponseWriter, r *http.Request) {
	respondWith(w, r, h, h.service.Overview)
}

func respondWith[T any](w http.ResponseWriter, r *http.Request, h *Handler, fetch func(context.Context) (T, error)) {
	out, err := fetch(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, out)
}

func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrStudentNotFound):
		httputil.RespondWithError(w, http.StatusNotFound, "Student not found")
	case errors.Is(err, ErrClassNotFound):
		httputil.RespondWithError(w, http.StatusNotFound, "Class not found")
	case errors.Is(err, ErrInvalidInput), errors.Is(err, analytics.ErrNegativeLimit):
		httputil.RespondWithError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.ErrorContext(r.Context(), "internal error", "error", err)
		httputil.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}
