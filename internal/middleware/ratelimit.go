package middleware

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"routineTracker/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const rateWindow = time.Minute

type bucket struct {
	used    int
	resetAt time.Time
}

// RateLimiter - фиксированное окно в минуту на пользователя (X-User-ID),
// для запросов без корректного идентификатора - на IP клиента.
// Истёкшие окна вычищаются не реже раза в окно.
type RateLimiter struct {
	limit  int
	window time.Duration
	// Now подменяется в тестах
	Now func() time.Time

	mtx       sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

func NewRateLimiter(rpm int) *RateLimiter {
	return &RateLimiter{
		limit:   rpm,
		window:  rateWindow,
		Now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

// RateLimit - middleware с лимитом rpm запросов в минуту; rpm <= 0 отключает ограничение
func RateLimit(rpm int) func(http.Handler) http.Handler {
	return NewRateLimiter(rpm).Handler
}

// Tracked - сколько ключей сейчас хранится
func (l *RateLimiter) Tracked() int {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	return len(l.buckets)
}

type decision struct {
	allowed    bool
	remaining  int
	resetAt    time.Time
	retryAfter time.Duration
}

func (l *RateLimiter) take(key string) decision {
	now := l.Now()

	l.mtx.Lock()
	defer l.mtx.Unlock()

	if now.Sub(l.lastSweep) >= l.window {
		l.sweep(now)
	}

	b, ok := l.buckets[key]
	if !ok || now.After(b.resetAt) {
		b = &bucket{resetAt: now.Add(l.window)}
		l.buckets[key] = b
	}

	if b.used >= l.limit {
		return decision{resetAt: b.resetAt, retryAfter: b.resetAt.Sub(now)}
	}
	b.used++
	return decision{allowed: true, remaining: l.limit - b.used, resetAt: b.resetAt}
}

// sweep удаляет окна, которые уже закончились; вызывается под мьютексом
func (l *RateLimiter) sweep(now time.Time) {
	for key, b := range l.buckets {
		if now.After(b.resetAt) {
			delete(l.buckets, key)
		}
	}
	l.lastSweep = now
}

func (l *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if l.limit <= 0 {
			next.ServeHTTP(w, r)
			return
		}

		key := rateKey(r)
		d := l.take(key)

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.resetAt.Unix(), 10))

		if !d.allowed {
			retryAfter := int(d.retryAfter.Round(time.Second) / time.Second)
			logger.Warn("HTTP: Превышен лимит запросов",
				zap.String("key", key),
				zap.String("request_id", GetRequestID(r.Context())),
				zap.Int("retry_after", retryAfter))

			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]any{
				"error":       "rate_limit_exceeded",
				"message":     "Слишком много запросов. Попробуйте позже.",
				"retry_after": retryAfter,
				"request_id":  GetRequestID(r.Context()),
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// rateKey - пользователь из X-User-ID, иначе IP клиента
func rateKey(r *http.Request) string {
	if id, err := uuid.Parse(strings.TrimSpace(r.Header.Get(UserIDHeader))); err == nil && id != uuid.Nil {
		return "user:" + id.String()
	}
	return "ip:" + clientIP(r)
}
