package inmemory_test

import (
	"context"
	"fmt"
	"routineTracker/internal/models/assignment"
	"routineTracker/internal/repository"
	"routineTracker/internal/repository/inmemory"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAssignment(assignee uuid.UUID, title string) *assignment.Assignment {
	return &assignment.Assignment{
		UUID:         uuid.New(),
		Title:        title,
		ScheduleKind: assignment.ScheduleDaily,
		AssigneeID:   assignee,
		AssignedByID: uuid.New(),
		IsActive:     true,
	}
}

func newCompletion(a *assignment.Assignment, completedAt time.Time) *assignment.Completion {
	start := time.Date(completedAt.Year(), completedAt.Month(), completedAt.Day(), 0, 0, 0, 0, time.UTC)
	return &assignment.Completion{
		UUID:           uuid.New(),
		AssignmentID:   a.UUID,
		PeriodStart:    start,
		PeriodEnd:      start.Add(24*time.Hour - time.Second),
		CompletedByID:  a.AssigneeID,
		CompletionNote: "сделано полностью, проверено и задокументировано",
		IsOnTime:       true,
		CompletedAt:    completedAt,
	}
}

// TestStorage_HealthCheck тестирует проверку здоровья
func TestStorage_HealthCheck(t *testing.T) {
	storage := inmemory.NewStorage()
	assert.NoError(t, storage.HealthCheck(context.Background()))
}

// TestStorage_CreateAndGet тестирует создание и получение назначения
func TestStorage_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewStorage()

	a := newAssignment(uuid.New(), "Проверить склад")
	require.NoError(t, storage.Create(ctx, a))
	assert.False(t, a.CreatedAt.IsZero())

	got, err := storage.GetByID(ctx, a.UUID)
	require.NoError(t, err)
	assert.Equal(t, "Проверить склад", got.Title)

	_, err = storage.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

// TestStorage_ReturnsCopies тестирует, что изменения снаружи не попадают в хранилище без Update
func TestStorage_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewStorage()

	a := newAssignment(uuid.New(), "Оригинал")
	require.NoError(t, storage.Create(ctx, a))

	got, err := storage.GetByID(ctx, a.UUID)
	require.NoError(t, err)
	got.Title = "Изменено"

	again, err := storage.GetByID(ctx, a.UUID)
	require.NoError(t, err)
	assert.Equal(t, "Оригинал", again.Title)
}

// TestStorage_Update тестирует обновление назначения
func TestStorage_Update(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewStorage()

	a := newAssignment(uuid.New(), "Старое название")
	require.NoError(t, storage.Create(ctx, a))

	a.Title = "Новое название"
	a.IsPaused = true
	require.NoError(t, storage.Update(ctx, a))

	got, err := storage.GetByID(ctx, a.UUID)
	require.NoError(t, err)
	assert.Equal(t, "Новое название", got.Title)
	assert.True(t, got.IsPaused)
	assert.NotNil(t, got.UpdatedAt)

	err = storage.Update(ctx, newAssignment(uuid.New(), "нет такого"))
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

// TestStorage_DeleteCascades тестирует удаление назначения вместе с выполнениями
func TestStorage_DeleteCascades(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewStorage()

	a := newAssignment(uuid.New(), "Удаляемое")
	require.NoError(t, storage.Create(ctx, a))
	c := newCompletion(a, time.Date(2024, time.May, 15, 10, 0, 0, 0, time.UTC))
	require.NoError(t, storage.Insert(ctx, c))

	require.NoError(t, storage.Delete(ctx, a.UUID))

	_, err := storage.GetByID(ctx, a.UUID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = storage.FindExact(ctx, a.UUID, c.PeriodStart, c.PeriodEnd)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	assert.ErrorIs(t, storage.Delete(ctx, a.UUID), repository.ErrNotFound)
}

// TestStorage_ListAssignments тестирует фильтры и пагинацию
func TestStorage_ListAssignments(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewStorage()
	assignee := uuid.New()

	for i := 1; i <= 5; i++ {
		require.NoError(t, storage.Create(ctx, newAssignment(assignee, fmt.Sprintf("Задача %d", i))))
	}
	inactive := newAssignment(assignee, "Неактивная")
	inactive.IsActive = false
	require.NoError(t, storage.Create(ctx, inactive))
	require.NoError(t, storage.Create(ctx, newAssignment(uuid.New(), "Чужая")))

	active := true
	first, err := storage.ListAssignments(ctx, assignment.Filter{AssigneeID: &assignee, IsActive: &active}, assignment.Pagination{Page: 1, Limit: 3})
	require.NoError(t, err)
	require.Len(t, first, 3)
	// новые первыми
	assert.Equal(t, "Задача 5", first[0].Title)

	second, err := storage.ListAssignments(ctx, assignment.Filter{AssigneeID: &assignee, IsActive: &active}, assignment.Pagination{Page: 2, Limit: 3})
	require.NoError(t, err)
	assert.Len(t, second, 2)

	all, err := storage.ListAssignments(ctx, assignment.Filter{}, assignment.Pagination{Page: 1, Limit: 100})
	require.NoError(t, err)
	assert.Len(t, all, 7)
}

// TestStorage_InsertUnique тестирует уникальность выполнения за период
func TestStorage_InsertUnique(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewStorage()

	a := newAssignment(uuid.New(), "Ежедневная")
	require.NoError(t, storage.Create(ctx, a))

	c := newCompletion(a, time.Date(2024, time.May, 15, 10, 0, 0, 0, time.UTC))
	require.NoError(t, storage.Insert(ctx, c))

	dup := newCompletion(a, time.Date(2024, time.May, 15, 18, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, storage.Insert(ctx, dup), repository.ErrDuplicateCompletion)

	found, err := storage.FindExact(ctx, a.UUID, c.PeriodStart, c.PeriodEnd)
	require.NoError(t, err)
	assert.Equal(t, c.UUID, found.UUID)

	next := newCompletion(a, time.Date(2024, time.May, 16, 10, 0, 0, 0, time.UTC))
	assert.NoError(t, storage.Insert(ctx, next))
}

// TestStorage_ConcurrentInsert тестирует, что из параллельных вставок проходит ровно одна
func TestStorage_ConcurrentInsert(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewStorage()

	a := newAssignment(uuid.New(), "Гонка")
	require.NoError(t, storage.Create(ctx, a))
	completedAt := time.Date(2024, time.May, 15, 10, 0, 0, 0, time.UTC)

	const writers = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded, duplicates := 0, 0

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := storage.Insert(ctx, newCompletion(a, completedAt))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else if err == repository.ErrDuplicateCompletion {
				duplicates++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, writers-1, duplicates)
}

// TestStorage_ListCompletions тестирует фильтры выполнений
func TestStorage_ListCompletions(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewStorage()

	a := newAssignment(uuid.New(), "Отчёт")
	require.NoError(t, storage.Create(ctx, a))

	for day := 10; day <= 14; day++ {
		require.NoError(t, storage.Insert(ctx, newCompletion(a, time.Date(2024, time.May, day, 9, 0, 0, 0, time.UTC))))
	}

	from := time.Date(2024, time.May, 11, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, time.May, 13, 23, 59, 59, 0, time.UTC)
	items, err := storage.ListCompletions(ctx, assignment.CompletionFilter{AssignmentID: &a.UUID, From: &from, To: &to}, assignment.Pagination{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, 13, items[0].CompletedAt.Day())
	assert.Equal(t, "Отчёт", items[0].AssignmentTitle)
	assert.Equal(t, assignment.ScheduleDaily, items[0].ScheduleKind)

	// окно периода
	periodStart := time.Date(2024, time.May, 12, 0, 0, 0, 0, time.UTC)
	periodEnd := time.Date(2024, time.May, 12, 23, 59, 59, 0, time.UTC)
	within, err := storage.ListCompletions(ctx, assignment.CompletionFilter{AssignmentID: &a.UUID, PeriodStartFrom: &periodStart, PeriodEndTo: &periodEnd}, assignment.Pagination{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, within, 1)

	paged, err := storage.ListCompletions(ctx, assignment.CompletionFilter{}, assignment.Pagination{Page: 3, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, paged, 1)

	beyond, err := storage.ListCompletions(ctx, assignment.CompletionFilter{}, assignment.Pagination{Page: 10, Limit: 2})
	require.NoError(t, err)
	assert.Empty(t, beyond)
}

// TestStorage_UsersAndSettings тестирует справочник пользователей и настройки
func TestStorage_UsersAndSettings(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewStorage()

	alice := &assignment.User{UUID: uuid.New(), Name: "Алиса", Role: assignment.RoleUser, IsActive: true}
	bob := &assignment.User{UUID: uuid.New(), Name: "Боб", Role: assignment.RoleAdmin, IsActive: false}
	require.NoError(t, storage.SaveUser(ctx, alice))
	require.NoError(t, storage.SaveUser(ctx, bob))

	got, err := storage.GetUser(ctx, bob.UUID)
	require.NoError(t, err)
	assert.Equal(t, "Боб", got.Name)

	users, err := storage.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, alice.UUID, users[0].UUID)

	_, err = storage.Get(ctx, "TASK_COMPLETION_MIN_CHARS")
	assert.ErrorIs(t, err, repository.ErrSettingNotFound)

	require.NoError(t, storage.Set(ctx, "TASK_COMPLETION_MIN_CHARS", "40"))
	value, err := storage.Get(ctx, "TASK_COMPLETION_MIN_CHARS")
	require.NoError(t, err)
	assert.Equal(t, "40", value)
}
