package service

import (
	"context"
	"routineTracker/internal/models/assignment"
	"time"

	"github.com/google/uuid"
)

// хранилища - внешние зависимости; реализации в internal/repository

type AssignmentRepository interface {
	HealthCheck(context.Context) error
	GetByID(context.Context, uuid.UUID) (*assignment.Assignment, error)
	// ListAssignments отдаёт назначения в порядке created_at по убыванию
	ListAssignments(context.Context, assignment.Filter, assignment.Pagination) ([]*assignment.Assignment, error)
	Create(context.Context, *assignment.Assignment) error
	Update(context.Context, *assignment.Assignment) error
	Delete(context.Context, uuid.UUID) error
}

type CompletionRepository interface {
	FindExact(ctx context.Context, assignmentID uuid.UUID, periodStart, periodEnd time.Time) (*assignment.Completion, error)
	// Insert обязан вернуть repository.ErrDuplicateCompletion при нарушении уникальности
	// (assignment_id, period_start, period_end) - это единственная защита от гонки двух вставок.
	Insert(context.Context, *assignment.Completion) error
	// ListCompletions отдаёт выполнения в порядке completed_at по убыванию
	ListCompletions(context.Context, assignment.CompletionFilter, assignment.Pagination) ([]*assignment.CompletionView, error)
}

type SettingsRepository interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

type UserDirectory interface {
	GetUser(context.Context, uuid.UUID) (*assignment.User, error)
	ListUsers(context.Context) ([]*assignment.User, error)
}
