package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"routineTracker/internal/config"
	"routineTracker/internal/middleware"
	"routineTracker/internal/models/assignment"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T, cfg *config.Config) *App {
	t.Helper()
	a, err := New(cfg).Init(context.Background())
	require.NoError(t, err)
	t.Cleanup(a.shutdown)
	return a
}

func call(t *testing.T, h http.Handler, method, path string, actor assignment.Actor, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.UserIDHeader, actor.ID.String())
	req.Header.Set(middleware.UserRoleHeader, string(actor.Role))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestApp_CompletionFlow(t *testing.T) {
	cfg := config.Default()
	cfg.Server.RateLimitRPM = 0
	cfg.Completion.MinNoteChars = 10
	a := newTestApp(t, cfg)

	admin := assignment.Actor{ID: uuid.New(), Role: assignment.RoleAdmin}
	worker := assignment.Actor{ID: uuid.New(), Role: assignment.RoleUser}
	require.NoError(t, a.storage.SaveUser(context.Background(), &assignment.User{UUID: worker.ID, Name: "Анна", Role: assignment.RoleUser, IsActive: true}))

	h := a.Handler()

	w := call(t, h, http.MethodPost, "/assignments", admin, map[string]any{
		"title":         "Обход склада",
		"schedule_kind": "WEEKLY",
		"assignee_id":   worker.ID,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		ID uuid.UUID `json:"id"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&created))

	path := "/assignments/" + created.ID.String()

	w = call(t, h, http.MethodGet, path+"/status", worker, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"PENDING"`)

	w = call(t, h, http.MethodPost, path+"/complete", worker, map[string]string{"completion_note": "кратко"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = call(t, h, http.MethodPost, path+"/complete", admin, map[string]string{"completion_note": "обход выполнен полностью"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = call(t, h, http.MethodPost, path+"/complete", worker, map[string]string{"completion_note": "обход выполнен полностью"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = call(t, h, http.MethodPost, path+"/complete", worker, map[string]string{"completion_note": "обход выполнен полностью"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = call(t, h, http.MethodGet, path+"/status", worker, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"COMPLETED"`)

	w = call(t, h, http.MethodGet, "/reports/performance", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var report assignment.PerformanceReport
	require.NoError(t, json.NewDecoder(w.Body).Decode(&report))
	require.Len(t, report.Users, 1)
	assert.Equal(t, 1, report.Users[0].TotalCompletions)
	assert.Equal(t, 100, report.Overall.AverageOnTimeRate)
}

func TestApp_SQLiteBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Repository.Type = config.RepositorySQLite
	cfg.SQLite.Path = filepath.Join(t.TempDir(), "routine.db")
	a := newTestApp(t, cfg)

	w := httptest.NewRecorder()
	a.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestApp_CORS(t *testing.T) {
	cfg := config.Default()
	cfg.Server.CORSOrigins = []string{"https://ops.example.com"}
	a := newTestApp(t, cfg)

	req := httptest.NewRequest(http.MethodOptions, "/assignments/my", nil)
	req.Header.Set("Origin", "https://ops.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := httptest.NewRecorder()
	a.Handler().ServeHTTP(w, req)

	assert.Equal(t, "https://ops.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestOpenStorage_UnknownType(t *testing.T) {
	cfg := config.Default()
	cfg.Repository.Type = "mongo"
	_, err := OpenStorage(context.Background(), cfg)
	assert.Error(t, err)
}
