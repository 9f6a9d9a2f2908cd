package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"routineTracker/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type contextKey string

const requestIDKey contextKey = "request_id"

const RequestIDHeader = "X-Request-ID"

// RequestID берёт идентификатор запроса от клиента или выдаёт новый и возвращает его в ответе
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(RequestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// statusRecorder запоминает код ответа и размер тела для журнала
type statusRecorder struct {
	http.ResponseWriter
	status  int
	written int
	sent    bool
}

func (rec *statusRecorder) WriteHeader(code int) {
	if rec.sent {
		return
	}
	rec.status = code
	rec.sent = true
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *statusRecorder) Write(b []byte) (int, error) {
	if !rec.sent {
		rec.WriteHeader(http.StatusOK)
	}
	n, err := rec.ResponseWriter.Write(b)
	rec.written += n
	return n, err
}

// Logging пишет начало и конец запроса. Middleware стоит до Actor,
// поэтому пользователь берётся прямо из заголовка, без проверки.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := GetRequestID(r.Context())
		actorID := callerID(r)

		logger.Info("HTTP_IN: Начало запроса",
			zap.String("request_id", requestID),
			zap.String("actor_id", actorID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("query", r.URL.RawQuery),
			zap.String("client_ip", clientIP(r)),
		)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		level := zap.InfoLevel
		switch {
		case rec.status >= 500:
			level = zap.ErrorLevel
		case rec.status >= 400:
			level = zap.WarnLevel
		}
		logger.Log(level, "HTTP_OUT: Завершение запроса",
			zap.String("request_id", requestID),
			zap.String("actor_id", actorID),
			zap.Int("status", rec.status),
			zap.Int("bytes_written", rec.written),
			zap.Duration("ms", time.Since(start)),
		)
	})
}

// callerID - X-User-ID как есть или "anonymous"
func callerID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(UserIDHeader)); id != "" {
		return id
	}
	return "anonymous"
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
