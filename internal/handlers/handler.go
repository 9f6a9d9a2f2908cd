package handlers

import (
	"net/http"
	"time"

	"routineTracker/internal/logger"
	"routineTracker/internal/middleware"
	"routineTracker/internal/models/assignment"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const serviceName = "routine-tracker"

type Handler struct {
	Assignments AssignmentService
	Completions CompletionService
	Reports     ReportService
	// Now подменяется в тестах
	Now func() time.Time
}

func NewHandler(assignments AssignmentService, completions CompletionService, reports ReportService) *Handler {
	return &Handler{
		Assignments: assignments,
		Completions: completions,
		Reports:     reports,
		Now:         time.Now,
	}
}

// Routes регистрирует маршруты API. Всё, кроме /health, требует личность вызывающего.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/health", h.HealthCheck)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Actor)

		r.Route("/assignments", func(r chi.Router) {
			r.Get("/", h.ListAssignments)           // GET /assignments
			r.Post("/", h.CreateAssignment)         // POST /assignments
			r.Post("/self", h.CreateSelfAssignment) // POST /assignments/self
			r.Get("/my", h.MyAssignments)           // GET /assignments/my
			r.Get("/my/stats", h.MyStats)           // GET /assignments/my/stats

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetAssignment)               // GET /assignments/{id}
				r.Patch("/", h.UpdateAssignment)          // PATCH /assignments/{id}
				r.Delete("/", h.DeleteAssignment)         // DELETE /assignments/{id}
				r.Get("/status", h.GetStatus)             // GET /assignments/{id}/status
				r.Post("/complete", h.CompleteAssignment) // POST /assignments/{id}/complete
			})
		})

		r.Get("/completions", h.ListCompletions)

		r.Route("/reports", func(r chi.Router) {
			r.Get("/performance", h.PerformanceReport)
			r.Get("/summary", h.SummaryReport)
		})
	})
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP: Health check")

	if err := h.Assignments.HealthCheck(r.Context()); err != nil {
		logger.Error("HTTP: Сервис недоступен", err)
		responseWithJSON(w, http.StatusServiceUnavailable,
			toPayload("status", "unavailable"),
			toPayload("service", serviceName),
		)
		return
	}

	responseWithJSON(w, http.StatusOK,
		toPayload("status", "ok"),
		toPayload("service", serviceName),
		toPayload("time", h.Now()),
	)
}

// actor достаёт вызывающего; без middleware.Actor запрос отклоняется
func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (assignment.Actor, bool) {
	actor, ok := middleware.ActorFrom(r.Context())
	if !ok {
		logger.Warn("HTTP: Нет данных о пользователе", zap.String("path", r.URL.Path))
		responseWithError(w, http.StatusUnauthorized, "пользователь не определён")
		return assignment.Actor{}, false
	}
	return actor, true
}
