package service_test

import (
	"context"
	"time"

	"routineTracker/internal/models/assignment"
	"routineTracker/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockAssignmentRepository - мок хранилища назначений
type MockAssignmentRepository struct {
	mock.Mock
}

func (m *MockAssignmentRepository) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockAssignmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*assignment.Assignment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*assignment.Assignment), args.Error(1)
}

func (m *MockAssignmentRepository) ListAssignments(ctx context.Context, filter assignment.Filter, page assignment.Pagination) ([]*assignment.Assignment, error) {
	args := m.Called(ctx, filter, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*assignment.Assignment), args.Error(1)
}

func (m *MockAssignmentRepository) Create(ctx context.Context, a *assignment.Assignment) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *MockAssignmentRepository) Update(ctx context.Context, a *assignment.Assignment) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *MockAssignmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockCompletionRepository - мок журнала выполнений
type MockCompletionRepository struct {
	mock.Mock
}

func (m *MockCompletionRepository) FindExact(ctx context.Context, assignmentID uuid.UUID, periodStart, periodEnd time.Time) (*assignment.Completion, error) {
	args := m.Called(ctx, assignmentID, periodStart, periodEnd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*assignment.Completion), args.Error(1)
}

func (m *MockCompletionRepository) Insert(ctx context.Context, c *assignment.Completion) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockCompletionRepository) ListCompletions(ctx context.Context, filter assignment.CompletionFilter, page assignment.Pagination) ([]*assignment.CompletionView, error) {
	args := m.Called(ctx, filter, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*assignment.CompletionView), args.Error(1)
}

// MockSettingsRepository - мок хранилища настроек
type MockSettingsRepository struct {
	mock.Mock
}

func (m *MockSettingsRepository) Get(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockSettingsRepository) Set(ctx context.Context, key, value string) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

// MockUserDirectory - мок справочника пользователей
type MockUserDirectory struct {
	mock.Mock
}

func (m *MockUserDirectory) GetUser(ctx context.Context, id uuid.UUID) (*assignment.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*assignment.User), args.Error(1)
}

func (m *MockUserDirectory) ListUsers(ctx context.Context) ([]*assignment.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*assignment.User), args.Error(1)
}

var (
	_ service.AssignmentRepository = (*MockAssignmentRepository)(nil)
	_ service.CompletionRepository = (*MockCompletionRepository)(nil)
	_ service.SettingsRepository   = (*MockSettingsRepository)(nil)
	_ service.UserDirectory        = (*MockUserDirectory)(nil)
)
