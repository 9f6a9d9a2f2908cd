package handlers

import (
	"net/http"
	"time"

	"routineTracker/internal/logger"
	"routineTracker/internal/models/assignment"
	"routineTracker/internal/service"

	"go.uber.org/zap"
)

func (h *Handler) PerformanceReport(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	if !actor.IsAdmin() {
		handleServiceError(w, r, service.NewPermissionDenied("performance_report", "требуется роль admin"), "performance_report")
		return
	}

	userIDs, err := parseUUIDList(r.URL.Query()["user_id"])
	if err != nil {
		badQuery(w, r, err)
		return
	}
	from, to, err := parseRange(r)
	if err != nil {
		badQuery(w, r, err)
		return
	}

	report, err := h.Reports.Report(r.Context(), assignment.ReportFilter{UserIDs: userIDs, From: from, To: to})
	if err != nil {
		handleServiceError(w, r, err, "performance_report")
		return
	}

	logger.Info("HTTP_OUT: Отчёт по исполнителям построен",
		zap.Int("users", len(report.Users)),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithData(w, http.StatusOK, report)
}

func (h *Handler) SummaryReport(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	if !actor.IsAdmin() {
		handleServiceError(w, r, service.NewPermissionDenied("summary_report", "требуется роль admin"), "summary_report")
		return
	}

	kind := assignment.BucketKind(r.URL.Query().Get("period"))
	if kind == "" {
		kind = assignment.BucketWeekly
	}
	from, to, err := parseRange(r)
	if err != nil {
		badQuery(w, r, err)
		return
	}

	buckets, err := h.Reports.SummaryByPeriod(r.Context(), kind, from, to)
	if err != nil {
		handleServiceError(w, r, err, "summary_report")
		return
	}

	responseWithJSON(w, http.StatusOK,
		toPayload("period", kind),
		toPayload("buckets", buckets),
	)
}
