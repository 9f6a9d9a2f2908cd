package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"routineTracker/internal/logger"
	"routineTracker/internal/models/assignment"
	"routineTracker/internal/period"
	"routineTracker/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultReportWorkers = 4

// ReportService - статистика выполнений по пользователям и по периодам
type ReportService struct {
	assignments AssignmentRepository
	completions CompletionRepository
	users       UserDirectory
	workers     int
}

func NewReportService(assignments AssignmentRepository, completions CompletionRepository, users UserDirectory, workers int) *ReportService {
	if workers <= 0 {
		workers = defaultReportWorkers
	}
	return &ReportService{
		assignments: assignments,
		completions: completions,
		users:       users,
		workers:     workers,
	}
}

func (s *ReportService) Report(ctx context.Context, filter assignment.ReportFilter) (*assignment.PerformanceReport, error) {
	start := time.Now()

	if err := validateRange(filter.From, filter.To); err != nil {
		return nil, err
	}

	users, err := s.resolveUsers(ctx, filter.UserIDs)
	if err != nil {
		return nil, err
	}

	results := make([]assignment.UserPerformance, len(users))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for i, u := range users {
		g.Go(func() error {
			perf, err := s.userPerformance(gctx, u, filter.From, filter.To)
			if err != nil {
				return fmt.Errorf("статистика пользователя %s: %w", u.UUID, err)
			}
			results[i] = perf
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("Service: Ошибка построения отчёта", err)
		return nil, err
	}

	report := &assignment.PerformanceReport{
		From:    filter.From,
		To:      filter.To,
		Users:   results,
		Overall: overall(results),
	}

	logger.Info("Service: Отчёт построен",
		zap.Int("users", len(results)),
		zap.Duration("ms", time.Since(start)))
	return report, nil
}

func (s *ReportService) SummaryByPeriod(ctx context.Context, kind assignment.BucketKind, from, to time.Time) ([]assignment.PeriodBucket, error) {
	var keyOf func(time.Time) string
	switch kind {
	case assignment.BucketWeekly:
		keyOf = func(t time.Time) string { return period.WeekStart(t).Format(time.DateOnly) }
	case assignment.BucketMonthly:
		keyOf = func(t time.Time) string { return t.Format("2006-01") }
	default:
		return nil, NewValidationError("period", fmt.Sprintf("ожидается weekly или monthly, получено %q", kind))
	}

	if err := validateRange(from, to); err != nil {
		return nil, err
	}

	completions, err := listAllCompletions(ctx, s.completions, rangeFilter(from, to))
	if err != nil {
		return nil, err
	}

	type acc struct {
		bucket assignment.PeriodBucket
		users  map[uuid.UUID]struct{}
	}
	buckets := make(map[string]*acc)

	for _, c := range completions {
		key := keyOf(c.CompletedAt)
		b, ok := buckets[key]
		if !ok {
			b = &acc{
				bucket: assignment.PeriodBucket{Key: key},
				users:  make(map[uuid.UUID]struct{}),
			}
			buckets[key] = b
		}

		b.bucket.TotalCompletions++
		if c.IsOnTime {
			b.bucket.OnTimeCompletions++
		} else {
			b.bucket.LateCompletions++
		}
		b.users[c.CompletedByID] = struct{}{}
	}

	res := make([]assignment.PeriodBucket, 0, len(buckets))
	for _, b := range buckets {
		b.bucket.ActiveUsers = len(b.users)
		b.bucket.OnTimeRate = onTimeRate(b.bucket.OnTimeCompletions, b.bucket.TotalCompletions)
		res = append(res, b.bucket)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Key < res[j].Key })

	return res, nil
}

func (s *ReportService) resolveUsers(ctx context.Context, ids []uuid.UUID) ([]*assignment.User, error) {
	if len(ids) == 0 {
		users, err := s.users.ListUsers(ctx)
		if err != nil {
			return nil, fmt.Errorf("получение пользователей: %w", err)
		}
		return users, nil
	}

	users := make([]*assignment.User, 0, len(ids))
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		u, err := s.users.GetUser(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, NewNotFound("пользователь", id.String())
			}
			return nil, fmt.Errorf("получение пользователя: %w", err)
		}
		users = append(users, u)
	}
	return users, nil
}

func (s *ReportService) userPerformance(ctx context.Context, u *assignment.User, from, to time.Time) (assignment.UserPerformance, error) {
	perf := assignment.UserPerformance{
		UserID:     u.UUID,
		UserName:   u.Name,
		BySchedule: make(map[assignment.ScheduleKind]int),
	}

	owned, err := listAllAssignments(ctx, s.assignments, assignment.Filter{AssigneeID: &u.UUID})
	if err != nil {
		return perf, err
	}

	kinds := make(map[uuid.UUID]assignment.ScheduleKind, len(owned))
	for _, a := range owned {
		kinds[a.UUID] = a.ScheduleKind
		if a.IsActive {
			perf.TotalAssignments++
		}
	}

	filter := rangeFilter(from, to)
	filter.CompletedByID = &u.UUID
	completions, err := listAllCompletions(ctx, s.completions, filter)
	if err != nil {
		return perf, err
	}

	for _, c := range completions {
		perf.TotalCompletions++
		if c.IsOnTime {
			perf.OnTime++
		} else {
			perf.Late++
		}

		kind := c.ScheduleKind
		if kind == "" {
			kind = kinds[c.AssignmentID]
		}
		if kind != "" {
			perf.BySchedule[kind]++
		}
	}

	perf.OnTimeRate = onTimeRate(perf.OnTime, perf.TotalCompletions)
	return perf, nil
}

// overall суммирует по пользователям; средний процент - невзвешенное среднее процентов пользователей
func overall(users []assignment.UserPerformance) assignment.OverallStats {
	stats := assignment.OverallStats{TotalUsers: len(users)}
	rateSum := 0
	for _, u := range users {
		stats.TotalAssignments += u.TotalAssignments
		stats.TotalCompletions += u.TotalCompletions
		stats.OnTime += u.OnTime
		stats.Late += u.Late
		rateSum += u.OnTimeRate
	}
	if len(users) > 0 {
		stats.AverageOnTimeRate = int(math.Round(float64(rateSum) / float64(len(users))))
	}
	return stats
}

func onTimeRate(onTime, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(onTime) / float64(total) * 100))
}

func validateRange(from, to time.Time) error {
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return NewValidationError("from", "начало диапазона позже конца")
	}
	return nil
}

// нулевая граница диапазона не ограничивает выборку
func rangeFilter(from, to time.Time) assignment.CompletionFilter {
	var f assignment.CompletionFilter
	if !from.IsZero() {
		f.From = &from
	}
	if !to.IsZero() {
		f.To = &to
	}
	return f
}

func listAllCompletions(ctx context.Context, repo CompletionRepository, filter assignment.CompletionFilter) ([]*assignment.CompletionView, error) {
	var all []*assignment.CompletionView
	page := assignment.Pagination{Page: 1, Limit: assignment.MaxLimit}
	for {
		items, err := repo.ListCompletions(ctx, filter, page)
		if err != nil {
			return nil, fmt.Errorf("получение выполнений: %w", err)
		}
		all = append(all, items...)
		if len(items) < page.Limit {
			return all, nil
		}
		page.Page++
	}
}
