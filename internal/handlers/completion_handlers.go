package handlers

import (
	"net/http"
	"time"

	"routineTracker/internal/handlers/dto"
	"routineTracker/internal/logger"
	"routineTracker/internal/models/assignment"

	"go.uber.org/zap"
)

// CompleteAssignment записывает выполнение текущего периода от имени вызывающего
func (h *Handler) CompleteAssignment(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var request dto.CompleteRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	logger.Info("HTTP: Вызов сервиса записи выполнения", zap.String("assignment_id", id.String()))
	completion, err := h.Completions.Complete(r.Context(), id, actor.ID, request.CompletionNote, h.Now())
	if err != nil {
		handleServiceError(w, r, err, "complete_assignment")
		return
	}

	logger.Info("HTTP_OUT: Выполнение записано",
		zap.String("completion_id", completion.UUID.String()),
		zap.Bool("on_time", completion.IsOnTime),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusCreated))

	responseWithData(w, http.StatusCreated, dto.FromCompletion(completion))
}

func (h *Handler) ListCompletions(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	page, err := parsePagination(r)
	if err != nil {
		badQuery(w, r, err)
		return
	}

	var filter assignment.CompletionFilter
	query := r.URL.Query()
	if filter.AssignmentID, err = parseOptionalUUID(query.Get("assignment_id")); err != nil {
		badQuery(w, r, err)
		return
	}
	if filter.CompletedByID, err = parseOptionalUUID(query.Get("user_id")); err != nil {
		badQuery(w, r, err)
		return
	}

	from, to, err := parseRange(r)
	if err != nil {
		badQuery(w, r, err)
		return
	}
	if !from.IsZero() {
		filter.From = &from
	}
	if !to.IsZero() {
		filter.To = &to
	}

	items, err := h.Completions.ListCompletions(r.Context(), actor, filter, page)
	if err != nil {
		handleServiceError(w, r, err, "list_completions")
		return
	}

	responseWithData(w, http.StatusOK, dto.FromCompletionList(items))
}
