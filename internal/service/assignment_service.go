package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"routineTracker/internal/logger"
	"routineTracker/internal/models/assignment"
	"routineTracker/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AssignmentService struct {
	repo     AssignmentRepository
	users    UserDirectory
	resolver *StatusResolver
}

func NewAssignmentService(repo AssignmentRepository, users UserDirectory, resolver *StatusResolver) *AssignmentService {
	return &AssignmentService{
		repo:     repo,
		users:    users,
		resolver: resolver,
	}
}

func (s *AssignmentService) HealthCheck(ctx context.Context) error {
	if err := s.repo.HealthCheck(ctx); err != nil {
		return fmt.Errorf("проверка здоровья сервиса: %w", err)
	}
	return nil
}

// CreateAssignment - назначение от администратора
func (s *AssignmentService) CreateAssignment(ctx context.Context, actor assignment.Actor, in assignment.Input, now time.Time) (*assignment.Assignment, error) {
	if !actor.IsAdmin() {
		return nil, NewPermissionDenied("create_assignment", "требуется роль admin")
	}

	if in.AssigneeID == uuid.Nil {
		return nil, NewValidationError("assignee_id", "исполнитель обязателен")
	}
	if err := s.ensureUser(ctx, in.AssigneeID); err != nil {
		return nil, err
	}

	return s.create(ctx, in, actor.ID, false, now)
}

// CreateSelfAssignment - пользователь назначает задачу самому себе
func (s *AssignmentService) CreateSelfAssignment(ctx context.Context, actor assignment.Actor, in assignment.Input, now time.Time) (*assignment.Assignment, error) {
	in.AssigneeID = actor.ID
	return s.create(ctx, in, actor.ID, true, now)
}

func (s *AssignmentService) create(ctx context.Context, in assignment.Input, assignedBy uuid.UUID, self bool, now time.Time) (*assignment.Assignment, error) {
	a := &assignment.Assignment{
		UUID:          uuid.New(),
		Title:         strings.TrimSpace(in.Title),
		ScheduleKind:  in.ScheduleKind,
		StartDate:     in.StartDate,
		EndDate:       in.EndDate,
		AssigneeID:    in.AssigneeID,
		AssignedByID:  assignedBy,
		IsActive:      true,
		IsSelfCreated: self,
		CreatedAt:     now,
	}

	if err := validateAssignment(a); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("создание назначения: %w", err)
	}

	logger.Info("Service: Назначение создано",
		zap.String("assignment_id", a.UUID.String()),
		zap.String("schedule_kind", string(a.ScheduleKind)),
		zap.Bool("self_created", self))
	return a, nil
}

func (s *AssignmentService) AdminUpdate(ctx context.Context, actor assignment.Actor, id uuid.UUID, upd assignment.AdminUpdate, now time.Time) (*assignment.Assignment, error) {
	if !actor.IsAdmin() {
		return nil, NewPermissionDenied("update_assignment", "требуется роль admin")
	}

	a, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.AssigneeID != nil && *upd.AssigneeID != a.AssigneeID {
		if err := s.ensureUser(ctx, *upd.AssigneeID); err != nil {
			return nil, err
		}
	}

	upd.Apply(a)
	return s.save(ctx, a, now)
}

func (s *AssignmentService) AssigneeUpdate(ctx context.Context, actor assignment.Actor, id uuid.UUID, upd assignment.AssigneeUpdate, now time.Time) (*assignment.Assignment, error) {
	a, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	if a.AssigneeID != actor.ID {
		return nil, NewPermissionDenied("update_assignment", "изменять назначение может только исполнитель")
	}
	if upd.TouchesSchedule() && !a.IsSelfCreated {
		return nil, NewValidationError("schedule", "название и расписание назначения от администратора меняет только администратор")
	}

	upd.Apply(a)
	return s.save(ctx, a, now)
}

func (s *AssignmentService) DeleteAssignment(ctx context.Context, actor assignment.Actor, id uuid.UUID) error {
	a, err := s.get(ctx, id)
	if err != nil {
		return err
	}

	ownSelfCreated := a.IsSelfCreated && a.AssigneeID == actor.ID
	if !actor.IsAdmin() && !ownSelfCreated {
		return NewPermissionDenied("delete_assignment", "удалить можно только собственное назначение")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return NewNotFound("назначение", id.String())
		}
		return fmt.Errorf("удаление назначения: %w", err)
	}

	logger.Info("Service: Назначение удалено", zap.String("assignment_id", id.String()))
	return nil
}

func (s *AssignmentService) GetAssignment(ctx context.Context, actor assignment.Actor, id uuid.UUID, now time.Time) (*assignment.WithStatus, error) {
	a, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && a.AssigneeID != actor.ID {
		return nil, NewPermissionDenied("get_assignment", "назначение принадлежит другому пользователю")
	}

	status, err := s.resolver.Resolve(ctx, a, now)
	if err != nil {
		return nil, err
	}
	return &assignment.WithStatus{Assignment: a, Status: status}, nil
}

func (s *AssignmentService) ListAssignments(ctx context.Context, actor assignment.Actor, filter assignment.Filter, page assignment.Pagination, now time.Time) ([]assignment.WithStatus, error) {
	if !actor.IsAdmin() {
		return nil, NewPermissionDenied("list_assignments", "требуется роль admin")
	}

	items, err := s.repo.ListAssignments(ctx, filter, page.Normalize())
	if err != nil {
		return nil, fmt.Errorf("получение назначений: %w", err)
	}
	return s.resolver.ResolveAll(ctx, items, now)
}

// MyAssignments - активные назначения текущего пользователя со статусами
func (s *AssignmentService) MyAssignments(ctx context.Context, actor assignment.Actor, page assignment.Pagination, now time.Time) ([]assignment.WithStatus, error) {
	active := true
	items, err := s.repo.ListAssignments(ctx, assignment.Filter{AssigneeID: &actor.ID, IsActive: &active}, page.Normalize())
	if err != nil {
		return nil, fmt.Errorf("получение назначений: %w", err)
	}
	return s.resolver.ResolveAll(ctx, items, now)
}

func (s *AssignmentService) MyStats(ctx context.Context, actor assignment.Actor, now time.Time) (assignment.Stats, error) {
	active := true
	items, err := listAllAssignments(ctx, s.repo, assignment.Filter{AssigneeID: &actor.ID, IsActive: &active})
	if err != nil {
		return assignment.Stats{}, err
	}

	resolved, err := s.resolver.ResolveAll(ctx, items, now)
	if err != nil {
		return assignment.Stats{}, err
	}

	var stats assignment.Stats
	for _, item := range resolved {
		stats.Total++
		if item.Assignment.IsPaused {
			stats.Paused++
		}
		switch item.Status.Status {
		case assignment.StatusPending:
			stats.Pending++
		case assignment.StatusOverdue:
			stats.Overdue++
		case assignment.StatusCompleted:
			stats.Completed++
		}
	}
	return stats, nil
}

func (s *AssignmentService) get(ctx context.Context, id uuid.UUID) (*assignment.Assignment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			logger.Info("Service: Назначение не найдено", zap.String("target_id", id.String()))
			return nil, NewNotFound("назначение", id.String())
		}
		return nil, fmt.Errorf("получение назначения: %w", err)
	}
	return a, nil
}

func (s *AssignmentService) save(ctx context.Context, a *assignment.Assignment, now time.Time) (*assignment.Assignment, error) {
	a.Title = strings.TrimSpace(a.Title)
	if err := validateAssignment(a); err != nil {
		return nil, err
	}

	a.UpdatedAt = &now
	if err := s.repo.Update(ctx, a); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewNotFound("назначение", a.UUID.String())
		}
		return nil, fmt.Errorf("обновление назначения: %w", err)
	}

	logger.Info("Service: Назначение обновлено", zap.String("assignment_id", a.UUID.String()))
	return a, nil
}

func (s *AssignmentService) ensureUser(ctx context.Context, id uuid.UUID) error {
	if s.users == nil {
		return nil
	}
	if _, err := s.users.GetUser(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return NewNotFound("пользователь", id.String())
		}
		return fmt.Errorf("получение пользователя: %w", err)
	}
	return nil
}

func validateAssignment(a *assignment.Assignment) error {
	if a.Title == "" {
		return NewValidationError("title", "название не может быть пустым")
	}
	if !a.ScheduleKind.Valid() {
		return NewValidationError("schedule_kind", fmt.Sprintf("неизвестный вид расписания %q", a.ScheduleKind))
	}

	switch a.ScheduleKind {
	case assignment.ScheduleDateRange:
		if a.StartDate == nil || a.EndDate == nil {
			return NewValidationError("start_date", "для DATE_RANGE нужны start_date и end_date")
		}
	case assignment.ScheduleSpecificDate:
		if a.StartDate == nil {
			return NewValidationError("start_date", "для SPECIFIC_DATE нужна start_date")
		}
	}

	if a.StartDate != nil && a.EndDate != nil && a.EndDate.Before(*a.StartDate) {
		return NewValidationError("end_date", "end_date раньше start_date")
	}
	return nil
}

// listAllAssignments выбирает все страницы
func listAllAssignments(ctx context.Context, repo AssignmentRepository, filter assignment.Filter) ([]*assignment.Assignment, error) {
	var all []*assignment.Assignment
	page := assignment.Pagination{Page: 1, Limit: assignment.MaxLimit}
	for {
		items, err := repo.ListAssignments(ctx, filter, page)
		if err != nil {
			return nil, fmt.Errorf("получение назначений: %w", err)
		}
		all = append(all, items...)
		if len(items) < page.Limit {
			return all, nil
		}
		page.Page++
	}
}
