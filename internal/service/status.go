package service

import (
	"context"
	"fmt"
	"routineTracker/internal/models/assignment"
	"routineTracker/internal/period"
	"time"
)

// StatusResolver - единственное место, где выводится статус назначения.
// Все чтения (список, "мои задачи", одиночное получение, статистика) идут через него.
type StatusResolver struct {
	completions CompletionRepository
}

func NewStatusResolver(completions CompletionRepository) *StatusResolver {
	return &StatusResolver{completions: completions}
}

func (r *StatusResolver) Resolve(ctx context.Context, a *assignment.Assignment, now time.Time) (assignment.StatusResult, error) {
	w := period.Compute(a.ScheduleKind, a.StartDate, a.EndDate, now)

	found, err := r.completions.ListCompletions(ctx, assignment.CompletionFilter{
		AssignmentID:    &a.UUID,
		PeriodStartFrom: &w.Start,
		PeriodEndTo:     &w.End,
	}, assignment.Pagination{Page: 1, Limit: 1})
	if err != nil {
		return assignment.StatusResult{}, fmt.Errorf("поиск выполнения за период: %w", err)
	}

	if len(found) > 0 {
		c := found[0]
		completedAt := c.CompletedAt
		onTime := c.IsOnTime
		return assignment.StatusResult{
			Status:      assignment.StatusCompleted,
			CompletedAt: &completedAt,
			IsOnTime:    &onTime,
		}, nil
	}

	due := w.End
	if w.Expired(now) {
		return assignment.StatusResult{
			Status:  assignment.StatusOverdue,
			DueDate: &due,
		}, nil
	}

	start, end := w.Start, w.End
	return assignment.StatusResult{
		Status:      assignment.StatusPending,
		DueDate:     &due,
		PeriodStart: &start,
		PeriodEnd:   &end,
	}, nil
}

// ResolveAll применяет Resolve к каждому назначению по очереди
func (r *StatusResolver) ResolveAll(ctx context.Context, items []*assignment.Assignment, now time.Time) ([]assignment.WithStatus, error) {
	res := make([]assignment.WithStatus, 0, len(items))
	for _, a := range items {
		status, err := r.Resolve(ctx, a, now)
		if err != nil {
			return nil, err
		}
		res = append(res, assignment.WithStatus{Assignment: a, Status: status})
	}
	return res, nil
}
