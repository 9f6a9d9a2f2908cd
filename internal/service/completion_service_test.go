package service_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"routineTracker/internal/models/assignment"
	"routineTracker/internal/period"
	"routineTracker/internal/repository"
	"routineTracker/internal/repository/inmemory"
	"routineTracker/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const validNote = "Проверено полностью, всё в порядке, замечаний нет"

func dailyAssignment(assignee uuid.UUID) *assignment.Assignment {
	return &assignment.Assignment{
		UUID:         uuid.New(),
		Title:        "Проверка температуры",
		ScheduleKind: assignment.ScheduleDaily,
		AssigneeID:   assignee,
		AssignedByID: uuid.New(),
		IsActive:     true,
	}
}

func noSettings() *MockSettingsRepository {
	m := new(MockSettingsRepository)
	m.On("Get", mock.Anything, service.MinNoteCharsKey).Return("", repository.ErrSettingNotFound)
	return m
}

// TestCompletionService_Complete тестирует запись выполнения на моках
func TestCompletionService_Complete(t *testing.T) {
	ctx := context.Background()
	assignee := uuid.New()
	a := dailyAssignment(assignee)
	now := time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC)
	w := period.Compute(a.ScheduleKind, nil, nil, now)

	tests := []struct {
		name          string
		submitter     uuid.UUID
		note          string
		setupMock     func(*MockAssignmentRepository, *MockCompletionRepository)
		expectCode    string
		expectOnTime  bool
		expectInserts bool
	}{
		{
			name:      "error - assignment not found",
			submitter: assignee,
			note:      validNote,
			setupMock: func(ar *MockAssignmentRepository, cr *MockCompletionRepository) {
				ar.On("GetByID", mock.Anything, a.UUID).Return(nil, repository.ErrNotFound)
			},
			expectCode: service.CodeNotFound,
		},
		{
			name:      "error - submitter is not the assignee",
			submitter: uuid.New(),
			note:      validNote,
			setupMock: func(ar *MockAssignmentRepository, cr *MockCompletionRepository) {
				ar.On("GetByID", mock.Anything, a.UUID).Return(a, nil)
			},
			expectCode: service.CodePermissionDenied,
		},
		{
			name:      "error - note has 29 characters",
			submitter: assignee,
			note:      strings.Repeat("a", 29),
			setupMock: func(ar *MockAssignmentRepository, cr *MockCompletionRepository) {
				ar.On("GetByID", mock.Anything, a.UUID).Return(a, nil)
			},
			expectCode: service.CodeValidation,
		},
		{
			name:      "error - padding does not count towards note length",
			submitter: assignee,
			note:      "   " + strings.Repeat("a", 29) + "\n\t",
			setupMock: func(ar *MockAssignmentRepository, cr *MockCompletionRepository) {
				ar.On("GetByID", mock.Anything, a.UUID).Return(a, nil)
			},
			expectCode: service.CodeValidation,
		},
		{
			name:      "error - already completed for this period",
			submitter: assignee,
			note:      validNote,
			setupMock: func(ar *MockAssignmentRepository, cr *MockCompletionRepository) {
				ar.On("GetByID", mock.Anything, a.UUID).Return(a, nil)
				cr.On("FindExact", mock.Anything, a.UUID, w.Start, w.End).
					Return(&assignment.Completion{UUID: uuid.New(), AssignmentID: a.UUID}, nil)
			},
			expectCode: service.CodeAlreadyCompleted,
		},
		{
			name:      "error - concurrent insert won the race",
			submitter: assignee,
			note:      validNote,
			setupMock: func(ar *MockAssignmentRepository, cr *MockCompletionRepository) {
				ar.On("GetByID", mock.Anything, a.UUID).Return(a, nil)
				cr.On("FindExact", mock.Anything, a.UUID, w.Start, w.End).Return(nil, repository.ErrNotFound)
				cr.On("Insert", mock.Anything, mock.AnythingOfType("*assignment.Completion")).
					Return(repository.ErrDuplicateCompletion)
			},
			expectCode:    service.CodeAlreadyCompleted,
			expectInserts: true,
		},
		{
			name:      "success - exactly 30 characters",
			submitter: assignee,
			note:      strings.Repeat("a", 30),
			setupMock: func(ar *MockAssignmentRepository, cr *MockCompletionRepository) {
				ar.On("GetByID", mock.Anything, a.UUID).Return(a, nil)
				cr.On("FindExact", mock.Anything, a.UUID, w.Start, w.End).Return(nil, repository.ErrNotFound)
				cr.On("Insert", mock.Anything, mock.AnythingOfType("*assignment.Completion")).Return(nil)
			},
			expectOnTime:  true,
			expectInserts: true,
		},
		{
			name:      "success - note length is counted in characters",
			submitter: assignee,
			note:      strings.Repeat("я", 30),
			setupMock: func(ar *MockAssignmentRepository, cr *MockCompletionRepository) {
				ar.On("GetByID", mock.Anything, a.UUID).Return(a, nil)
				cr.On("FindExact", mock.Anything, a.UUID, w.Start, w.End).Return(nil, repository.ErrNotFound)
				cr.On("Insert", mock.Anything, mock.AnythingOfType("*assignment.Completion")).Return(nil)
			},
			expectOnTime:  true,
			expectInserts: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ar := new(MockAssignmentRepository)
			cr := new(MockCompletionRepository)
			tt.setupMock(ar, cr)

			svc := service.NewCompletionService(ar, cr, service.NewNoteLimit(noSettings(), 30))
			got, err := svc.Complete(ctx, a.UUID, tt.submitter, tt.note, now)

			if tt.expectCode != "" {
				require.Error(t, err)
				assert.True(t, service.IsCode(err, tt.expectCode), "ожидался код %s, получено: %v", tt.expectCode, err)
				assert.Nil(t, got)
			} else {
				require.NoError(t, err)
				assert.Equal(t, a.UUID, got.AssignmentID)
				assert.Equal(t, tt.submitter, got.CompletedByID)
				assert.Equal(t, w.Start, got.PeriodStart)
				assert.Equal(t, w.End, got.PeriodEnd)
				assert.Equal(t, tt.expectOnTime, got.IsOnTime)
				assert.Equal(t, now, got.CompletedAt)
				assert.Equal(t, a.Title, got.AssignmentTitle)
				assert.Equal(t, strings.TrimSpace(tt.note), got.CompletionNote)
			}

			if !tt.expectInserts {
				cr.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
			}
			ar.AssertExpectations(t)
			cr.AssertExpectations(t)
		})
	}
}

func TestCompletionService_StorageErrorIsNotBusinessError(t *testing.T) {
	ar := new(MockAssignmentRepository)
	cr := new(MockCompletionRepository)
	a := dailyAssignment(uuid.New())
	ar.On("GetByID", mock.Anything, a.UUID).Return(a, nil)
	cr.On("FindExact", mock.Anything, a.UUID, mock.Anything, mock.Anything).Return(nil, errors.New("db down"))

	svc := service.NewCompletionService(ar, cr, service.NewNoteLimit(noSettings(), 30))
	_, err := svc.Complete(context.Background(), a.UUID, a.AssigneeID, validNote, time.Now())

	require.Error(t, err)
	var busErr *service.BusinessError
	assert.False(t, errors.As(err, &busErr))
	assert.Contains(t, err.Error(), "поиск выполнения за период")
}

func TestNoteLimit_Get(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		err      error
		expected int
	}{
		{name: "override from settings", value: "10", expected: 10},
		{name: "override with spaces", value: " 45 ", expected: 45},
		{name: "zero disables the minimum", value: "0", expected: 0},
		{name: "missing setting falls back", err: repository.ErrSettingNotFound, expected: 30},
		{name: "storage error falls back", err: errors.New("connection refused"), expected: 30},
		{name: "garbage falls back", value: "тридцать", expected: 30},
		{name: "negative falls back", value: "-5", expected: 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := new(MockSettingsRepository)
			settings.On("Get", mock.Anything, service.MinNoteCharsKey).Return(tt.value, tt.err)

			limit := service.NewNoteLimit(settings, 30)
			assert.Equal(t, tt.expected, limit.Get(context.Background()))
			settings.AssertExpectations(t)
		})
	}

	assert.Equal(t, 30, service.NewNoteLimit(nil, 30).Get(context.Background()))
}

func TestCompletionService_SettingsOverrideMinimum(t *testing.T) {
	ctx := context.Background()
	store := inmemory.NewStorage()
	a := dailyAssignment(uuid.New())
	require.NoError(t, store.Create(ctx, a))
	require.NoError(t, store.Set(ctx, service.MinNoteCharsKey, "5"))

	svc := service.NewCompletionService(store, store, service.NewNoteLimit(store, 30))
	assert.Equal(t, 5, svc.MinNoteChars(ctx))

	_, err := svc.Complete(ctx, a.UUID, a.AssigneeID, "abcd", time.Now())
	assert.True(t, service.IsCode(err, service.CodeValidation))

	_, err = svc.Complete(ctx, a.UUID, a.AssigneeID, "abcde", time.Now())
	assert.NoError(t, err)
}

// TestCompletionService_DailyBoundary - граница суток для DAILY
func TestCompletionService_DailyBoundary(t *testing.T) {
	ctx := context.Background()
	store := inmemory.NewStorage()
	svc := service.NewCompletionService(store, store, service.NewNoteLimit(store, 30))
	resolver := service.NewStatusResolver(store)

	onTimeCase := dailyAssignment(uuid.New())
	require.NoError(t, store.Create(ctx, onTimeCase))

	lastSecond := time.Date(2024, 3, 15, 23, 59, 59, 0, time.UTC)
	got, err := svc.Complete(ctx, onTimeCase.UUID, onTimeCase.AssigneeID, validNote, lastSecond)
	require.NoError(t, err)
	assert.True(t, got.IsOnTime)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), got.PeriodStart)

	// через секунду начинается следующий период, и он ещё не выполнен
	nextDay := lastSecond.Add(time.Second)
	status, err := resolver.Resolve(ctx, onTimeCase, nextDay)
	require.NoError(t, err)
	assert.Equal(t, assignment.StatusPending, status.Status)

	next, err := svc.Complete(ctx, onTimeCase.UUID, onTimeCase.AssigneeID, validNote, nextDay)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC), next.PeriodStart)
	assert.True(t, next.IsOnTime)

	// невыполненный период сам по себе становится OVERDUE после своего конца
	missed := dailyAssignment(uuid.New())
	require.NoError(t, store.Create(ctx, missed))

	afterEnd := time.Date(2024, 3, 15, 23, 59, 59, 500_000_000, time.UTC)
	status, err = resolver.Resolve(ctx, missed, afterEnd)
	require.NoError(t, err)
	assert.Equal(t, assignment.StatusOverdue, status.Status)
	require.NotNil(t, status.DueDate)
	assert.Equal(t, time.Date(2024, 3, 15, 23, 59, 59, 0, time.UTC), *status.DueDate)

	late, err := svc.Complete(ctx, missed.UUID, missed.AssigneeID, validNote, afterEnd)
	require.NoError(t, err)
	assert.False(t, late.IsOnTime)
}

func TestCompletionService_SecondCompletionSamePeriod(t *testing.T) {
	ctx := context.Background()
	store := inmemory.NewStorage()
	svc := service.NewCompletionService(store, store, service.NewNoteLimit(store, 30))

	a := dailyAssignment(uuid.New())
	a.ScheduleKind = assignment.ScheduleWeekly
	require.NoError(t, store.Create(ctx, a))

	monday := time.Date(2024, 3, 11, 10, 0, 0, 0, time.UTC)
	_, err := svc.Complete(ctx, a.UUID, a.AssigneeID, validNote, monday)
	require.NoError(t, err)

	friday := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	_, err = svc.Complete(ctx, a.UUID, a.AssigneeID, "Другой комментарий, но тоже достаточно длинный", friday)
	assert.True(t, service.IsCode(err, service.CodeAlreadyCompleted))

	nextWeek := time.Date(2024, 3, 18, 10, 0, 0, 0, time.UTC)
	_, err = svc.Complete(ctx, a.UUID, a.AssigneeID, validNote, nextWeek)
	assert.NoError(t, err)
}

func TestCompletionService_ConcurrentComplete(t *testing.T) {
	ctx := context.Background()
	store := inmemory.NewStorage()
	svc := service.NewCompletionService(store, store, service.NewNoteLimit(store, 30))

	a := dailyAssignment(uuid.New())
	require.NoError(t, store.Create(ctx, a))
	now := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)

	const workers = 16
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Complete(ctx, a.UUID, a.AssigneeID, validNote, now)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, service.IsCode(err, service.CodeAlreadyCompleted), "неожиданная ошибка: %v", err)
	}
	assert.Equal(t, 1, succeeded)
}

func TestCompletionService_ListCompletions(t *testing.T) {
	ctx := context.Background()
	user := uuid.New()
	other := uuid.New()
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)

	t.Run("user sees only own completions", func(t *testing.T) {
		cr := new(MockCompletionRepository)
		cr.On("ListCompletions", mock.Anything, mock.MatchedBy(func(f assignment.CompletionFilter) bool {
			return f.CompletedByID != nil && *f.CompletedByID == user
		}), assignment.Pagination{Page: 1, Limit: assignment.DefaultLimit}).
			Return([]*assignment.CompletionView{}, nil)

		svc := service.NewCompletionService(new(MockAssignmentRepository), cr, service.NewNoteLimit(nil, 30))
		_, err := svc.ListCompletions(ctx, assignment.Actor{ID: user, Role: assignment.RoleUser}, assignment.CompletionFilter{}, assignment.Pagination{})
		require.NoError(t, err)
		cr.AssertExpectations(t)
	})

	t.Run("user cannot request someone else", func(t *testing.T) {
		cr := new(MockCompletionRepository)
		svc := service.NewCompletionService(new(MockAssignmentRepository), cr, service.NewNoteLimit(nil, 30))
		_, err := svc.ListCompletions(ctx, assignment.Actor{ID: user, Role: assignment.RoleUser},
			assignment.CompletionFilter{CompletedByID: &other}, assignment.Pagination{})
		assert.True(t, service.IsCode(err, service.CodePermissionDenied))
		cr.AssertNotCalled(t, "ListCompletions", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("admin filter is passed through", func(t *testing.T) {
		cr := new(MockCompletionRepository)
		cr.On("ListCompletions", mock.Anything, assignment.CompletionFilter{CompletedByID: &other}, mock.Anything).
			Return([]*assignment.CompletionView{{}}, nil)

		svc := service.NewCompletionService(new(MockAssignmentRepository), cr, service.NewNoteLimit(nil, 30))
		items, err := svc.ListCompletions(ctx, assignment.Actor{ID: user, Role: assignment.RoleAdmin},
			assignment.CompletionFilter{CompletedByID: &other}, assignment.Pagination{})
		require.NoError(t, err)
		assert.Len(t, items, 1)
	})

	t.Run("inverted range is rejected", func(t *testing.T) {
		svc := service.NewCompletionService(new(MockAssignmentRepository), new(MockCompletionRepository), service.NewNoteLimit(nil, 30))
		_, err := svc.ListCompletions(ctx, assignment.Actor{ID: user, Role: assignment.RoleAdmin},
			assignment.CompletionFilter{From: &to, To: &from}, assignment.Pagination{})
		assert.True(t, service.IsCode(err, service.CodeValidation))
	})
}

func TestCompletionService_SubMicrosecondNow(t *testing.T) {
	ctx := context.Background()
	store := inmemory.NewStorage()
	svc := service.NewCompletionService(store, store, service.NewNoteLimit(store, 30))
	resolver := service.NewStatusResolver(store)

	// без дат окно DATE_RANGE совпадает с моментом выполнения
	a := &assignment.Assignment{
		UUID:         uuid.New(),
		Title:        "Разовая проверка",
		ScheduleKind: assignment.ScheduleDateRange,
		AssigneeID:   uuid.New(),
		IsActive:     true,
	}
	require.NoError(t, store.Create(ctx, a))

	now := time.Date(2024, 3, 15, 10, 0, 0, 123_456_789, time.UTC)
	got, err := svc.Complete(ctx, a.UUID, a.AssigneeID, validNote, now)
	require.NoError(t, err)
	assert.True(t, got.IsOnTime)
	assert.Equal(t, time.Date(2024, 3, 15, 10, 0, 0, 123_456_000, time.UTC), got.PeriodStart)
	assert.Equal(t, got.PeriodStart, got.PeriodEnd)

	status, err := resolver.Resolve(ctx, a, now)
	require.NoError(t, err)
	assert.Equal(t, assignment.StatusCompleted, status.Status)
}
