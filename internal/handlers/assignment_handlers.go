package handlers

import (
	"net/http"
	"time"

	"routineTracker/internal/handlers/dto"
	"routineTracker/internal/logger"
	"routineTracker/internal/models/assignment"
	"routineTracker/internal/service"

	"go.uber.org/zap"
)

func (h *Handler) CreateAssignment(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var request dto.CreateAssignmentRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	logger.Info("HTTP: Вызов сервиса создания назначения")
	created, err := h.Assignments.CreateAssignment(r.Context(), actor, request.ToInput(), h.Now())
	if err != nil {
		handleServiceError(w, r, err, "create_assignment")
		return
	}

	logger.Info("HTTP_OUT: Назначение создано",
		zap.String("assignment_id", created.UUID.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusCreated))

	responseWithData(w, http.StatusCreated, dto.FromAssignment(created))
}

func (h *Handler) CreateSelfAssignment(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var request dto.CreateAssignmentRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	created, err := h.Assignments.CreateSelfAssignment(r.Context(), actor, request.ToInput(), h.Now())
	if err != nil {
		handleServiceError(w, r, err, "create_self_assignment")
		return
	}

	logger.Info("HTTP_OUT: Личное назначение создано",
		zap.String("assignment_id", created.UUID.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusCreated))

	responseWithData(w, http.StatusCreated, dto.FromAssignment(created))
}

func (h *Handler) ListAssignments(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	page, err := parsePagination(r)
	if err != nil {
		badQuery(w, r, err)
		return
	}

	var filter assignment.Filter
	if filter.AssigneeID, err = parseOptionalUUID(r.URL.Query().Get("assignee_id")); err != nil {
		badQuery(w, r, err)
		return
	}
	if raw := r.URL.Query().Get("active"); raw != "" {
		active := raw == "true" || raw == "1"
		filter.IsActive = &active
	}

	items, err := h.Assignments.ListAssignments(r.Context(), actor, filter, page, h.Now())
	if err != nil {
		handleServiceError(w, r, err, "list_assignments")
		return
	}

	logger.Info("HTTP_OUT: Назначения получены",
		zap.Int("count", len(items)),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithData(w, http.StatusOK, dto.FromWithStatusList(items))
}

func (h *Handler) MyAssignments(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	page, err := parsePagination(r)
	if err != nil {
		badQuery(w, r, err)
		return
	}

	items, err := h.Assignments.MyAssignments(r.Context(), actor, page, h.Now())
	if err != nil {
		handleServiceError(w, r, err, "my_assignments")
		return
	}

	responseWithData(w, http.StatusOK, dto.FromWithStatusList(items))
}

func (h *Handler) MyStats(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	stats, err := h.Assignments.MyStats(r.Context(), actor, h.Now())
	if err != nil {
		handleServiceError(w, r, err, "my_stats")
		return
	}

	responseWithData(w, http.StatusOK, stats)
}

func (h *Handler) GetAssignment(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	item, err := h.Assignments.GetAssignment(r.Context(), actor, id, h.Now())
	if err != nil {
		handleServiceError(w, r, err, "get_assignment")
		return
	}

	logger.Info("HTTP_OUT: Назначение получено",
		zap.String("assignment_id", id.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithData(w, http.StatusOK, dto.FromWithStatus(*item))
}

func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	item, err := h.Assignments.GetAssignment(r.Context(), actor, id, h.Now())
	if err != nil {
		handleServiceError(w, r, err, "get_status")
		return
	}

	responseWithData(w, http.StatusOK, dto.FromStatus(*item))
}

// UpdateAssignment - PATCH. Администратор меняет всё, исполнитель - только то, что разрешает сервис.
func (h *Handler) UpdateAssignment(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var request dto.UpdateAssignmentRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	var (
		updated *assignment.Assignment
		err     error
	)
	switch {
	case actor.IsAdmin():
		updated, err = h.Assignments.AdminUpdate(r.Context(), actor, id, request.ToAdminUpdate(), h.Now())
	case request.AdminOnly():
		err = service.NewPermissionDenied("update_assignment", "исполнитель, активность и сброс дат меняются только администратором")
	default:
		updated, err = h.Assignments.AssigneeUpdate(r.Context(), actor, id, request.ToAssigneeUpdate(), h.Now())
	}
	if err != nil {
		handleServiceError(w, r, err, "update_assignment")
		return
	}

	logger.Info("HTTP_OUT: Назначение обновлено",
		zap.String("assignment_id", id.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithData(w, http.StatusOK, dto.FromAssignment(updated))
}

func (h *Handler) DeleteAssignment(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	logger.Info("HTTP: Обращение к сервису для удаления назначения")
	if err := h.Assignments.DeleteAssignment(r.Context(), actor, id); err != nil {
		handleServiceError(w, r, err, "delete_assignment")
		return
	}

	logger.Info("HTTP_OUT: Назначение удалено",
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusNoContent))

	responseWithData(w, http.StatusNoContent, nil)
}
