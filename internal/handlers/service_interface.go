package handlers

import (
	"context"
	"time"

	"routineTracker/internal/models/assignment"

	"github.com/google/uuid"
)

type AssignmentService interface {
	HealthCheck(context.Context) error
	CreateAssignment(ctx context.Context, actor assignment.Actor, in assignment.Input, now time.Time) (*assignment.Assignment, error)
	CreateSelfAssignment(ctx context.Context, actor assignment.Actor, in assignment.Input, now time.Time) (*assignment.Assignment, error)
	AdminUpdate(ctx context.Context, actor assignment.Actor, id uuid.UUID, upd assignment.AdminUpdate, now time.Time) (*assignment.Assignment, error)
	AssigneeUpdate(ctx context.Context, actor assignment.Actor, id uuid.UUID, upd assignment.AssigneeUpdate, now time.Time) (*assignment.Assignment, error)
	DeleteAssignment(ctx context.Context, actor assignment.Actor, id uuid.UUID) error
	GetAssignment(ctx context.Context, actor assignment.Actor, id uuid.UUID, now time.Time) (*assignment.WithStatus, error)
	ListAssignments(ctx context.Context, actor assignment.Actor, filter assignment.Filter, page assignment.Pagination, now time.Time) ([]assignment.WithStatus, error)
	MyAssignments(ctx context.Context, actor assignment.Actor, page assignment.Pagination, now time.Time) ([]assignment.WithStatus, error)
	MyStats(ctx context.Context, actor assignment.Actor, now time.Time) (assignment.Stats, error)
}

type CompletionService interface {
	Complete(ctx context.Context, assignmentID, submitterID uuid.UUID, note string, now time.Time) (*assignment.CompletionView, error)
	ListCompletions(ctx context.Context, actor assignment.Actor, filter assignment.CompletionFilter, page assignment.Pagination) ([]*assignment.CompletionView, error)
	MinNoteChars(ctx context.Context) int
}

type ReportService interface {
	Report(ctx context.Context, filter assignment.ReportFilter) (*assignment.PerformanceReport, error)
	SummaryByPeriod(ctx context.Context, kind assignment.BucketKind, from, to time.Time) ([]assignment.PeriodBucket, error)
}
