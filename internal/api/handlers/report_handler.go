package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	middleware "github.com/markdave123-py/fieldreport/internal/api/middlewares"
	"github.com/markdave123-py/fieldreport/internal/core/quota"
	"github.com/markdave123-py/fieldreport/internal/logger"
	"github.com/markdave123-py/fieldreport/internal/models"
	"github.com/markdave123-py/fieldreport/internal/services"
)

// ReportAdmin is the slice of the report service exposed over HTTP.
type ReportAdmin interface {
	Quota(ctx context.Context, userID int64) (quota.Status, error)
	History(ctx context.Context, userID int64, limit int) ([]models.GeneratedReport, error)
	Download(ctx context.Context, userID int64, filename string) ([]byte, error)
	ResetQuotas(ctx context.Context) (int64, error)
}

type ReportHandler struct {
	reports ReportAdmin
	log     logger.ILogger
}

func NewReportHandler(reports ReportAdmin, log logger.ILogger) *ReportHandler {
	return &ReportHandler{reports: reports, log: log}
}

func (h *ReportHandler) GetQuota(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	st, err := h.reports.Quota(r.Context(), userID)
	if err != nil {
		h.internalError(w, "quota lookup failed", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *ReportHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	reports, err := h.reports.History(r.Context(), userID, limit)
	if err != nil {
		h.internalError(w, "report history failed", err)
		return
	}
	if reports == nil {
		reports = []models.GeneratedReport{}
	}
	writeJSON(w, http.StatusOK, reports)
}

func (h *ReportHandler) DownloadReport(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	filename := chi.URLParam(r, "filename")

	data, err := h.reports.Download(r.Context(), userID, filename)
	if errors.Is(err, services.ErrReportNotFound) {
		http.Error(w, "report not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.internalError(w, "report download failed", err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	_, _ = w.Write(data)
}

// ResetLimits zeroes every user's daily counter and logs the admin who asked.
func (h *ReportHandler) ResetLimits(w http.ResponseWriter, r *http.Request) {
	admin, _ := middleware.Subject(r.Context())
	n, err := h.reports.ResetQuotas(r.Context())
	if err != nil {
		h.internalError(w, "reset failed", err)
		return
	}
	h.log.Info("api", "Daily limits reset", map[string]interface{}{"users": n, "admin": admin})
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "users_reset": n})
}

func (h *ReportHandler) internalError(w http.ResponseWriter, msg string, err error) {
	h.log.Error("api", msg, map[string]interface{}{"error": err})
	http.Error(w, msg, http.StatusInternalServerError)
}

func userIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
