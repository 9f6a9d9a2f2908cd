package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"routineTracker/internal/logger"
	"routineTracker/internal/models/assignment"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

func checkContentType(r *http.Request, target string) bool {
	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		return false
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}

	return mediaType == target
}

// decodeJSON проверяет Content-Type и читает тело; при ошибке ответ уже записан
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if !checkContentType(r, "application/json") {
		logger.Warn("HTTP: Неверный тип контента",
			zap.String("expected", "application/json"),
			zap.String("received", r.Header.Get("Content-Type")),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusUnsupportedMediaType, "Content-Type должен быть application/json")
		return false
	}

	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	defer r.Body.Close()

	if err := decoder.Decode(dst); err != nil {
		logger.Warn("HTTP: ошибка чтения JSON",
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusBadRequest, "неверное тело запроса: "+err.Error())
		return false
	}
	return true
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	idParam := chi.URLParam(r, "id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		logger.Warn("HTTP: Не удалось получить id",
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusBadRequest, "не удалось получить id: "+err.Error())
		return uuid.Nil, false
	}

	if id == uuid.Nil {
		logger.Warn("HTTP: Неверное значение id",
			zap.String("error", "nil id"),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusBadRequest, "id не может быть пустым")
		return uuid.Nil, false
	}
	return id, true
}

func parsePagination(r *http.Request) (assignment.Pagination, error) {
	var page assignment.Pagination
	var err error

	if raw := r.URL.Query().Get("page"); raw != "" {
		if page.Page, err = strconv.Atoi(raw); err != nil || page.Page < 1 {
			return page, fmt.Errorf("неверное значение page: %q", raw)
		}
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if page.Limit, err = strconv.Atoi(raw); err != nil || page.Limit < 1 {
			return page, fmt.Errorf("неверное значение limit: %q", raw)
		}
	}
	return page.Normalize(), nil
}

// parseTime принимает RFC3339 или дату YYYY-MM-DD. Для дат endOfDay сдвигает
// значение на последний момент суток, чтобы верхняя граница включала весь день.
func parseTime(raw string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}

	day, err := time.ParseInLocation(time.DateOnly, raw, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("ожидается RFC3339 или YYYY-MM-DD, получено %q", raw)
	}
	if endOfDay {
		return day.AddDate(0, 0, 1).Add(-time.Nanosecond), nil
	}
	return day, nil
}

// parseRange читает from/to; отсутствующая граница остаётся нулевой
func parseRange(r *http.Request) (from, to time.Time, err error) {
	if raw := r.URL.Query().Get("from"); raw != "" {
		if from, err = parseTime(raw, false); err != nil {
			return from, to, fmt.Errorf("from: %w", err)
		}
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		if to, err = parseTime(raw, true); err != nil {
			return from, to, fmt.Errorf("to: %w", err)
		}
	}
	return from, to, nil
}

func parseOptionalUUID(raw string) (*uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// parseUUIDList принимает повторяющийся параметр и списки через запятую
func parseUUIDList(values []string) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := uuid.Parse(part)
			if err != nil {
				return nil, errors.New("неверный идентификатор пользователя: " + part)
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func badQuery(w http.ResponseWriter, r *http.Request, err error) {
	logger.Warn("HTTP: Неверный параметр запроса",
		zap.Error(err),
		zap.String("client_ip", r.RemoteAddr))

	responseWithError(w, http.StatusBadRequest, err.Error())
}
