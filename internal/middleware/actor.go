package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"routineTracker/internal/logger"
	"routineTracker/internal/models/assignment"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	UserIDHeader   = "X-User-ID"
	UserRoleHeader = "X-User-Role"
)

const actorKey contextKey = "actor"

// Actor достаёт личность вызывающего из заголовков, выставленных шлюзом аутентификации.
// Без корректного X-User-ID запрос отклоняется с 401; роль по умолчанию - user.
func Actor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(strings.TrimSpace(r.Header.Get(UserIDHeader)))
		if err != nil || id == uuid.Nil {
			logger.Warn("HTTP: Запрос без идентификатора пользователя",
				zap.String("request_id", GetRequestID(r.Context())),
				zap.String("client_ip", r.RemoteAddr))
			unauthorized(w, r, "заголовок "+UserIDHeader+" отсутствует или некорректен")
			return
		}

		role := assignment.Role(strings.ToLower(strings.TrimSpace(r.Header.Get(UserRoleHeader))))
		switch role {
		case "":
			role = assignment.RoleUser
		case assignment.RoleAdmin, assignment.RoleUser:
		default:
			unauthorized(w, r, "неизвестная роль "+string(role))
			return
		}

		ctx := WithActor(r.Context(), assignment.Actor{ID: id, Role: role})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func WithActor(ctx context.Context, actor assignment.Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

func ActorFrom(ctx context.Context) (assignment.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(assignment.Actor)
	return actor, ok
}

func unauthorized(w http.ResponseWriter, r *http.Request, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]any{
		"error":      "unauthorized",
		"message":    message,
		"request_id": GetRequestID(r.Context()),
	})
}
