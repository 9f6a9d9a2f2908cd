package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"routineTracker/internal/logger"
	"routineTracker/internal/models/assignment"
	"routineTracker/internal/period"
	"routineTracker/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CompletionService - журнал выполнений: не больше одной записи на назначение за период
type CompletionService struct {
	assignments AssignmentRepository
	completions CompletionRepository
	noteLimit   *NoteLimit
}

func NewCompletionService(assignments AssignmentRepository, completions CompletionRepository, noteLimit *NoteLimit) *CompletionService {
	return &CompletionService{
		assignments: assignments,
		completions: completions,
		noteLimit:   noteLimit,
	}
}

func (s *CompletionService) Complete(ctx context.Context, assignmentID, submitterID uuid.UUID, note string, now time.Time) (*assignment.CompletionView, error) {
	a, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			logger.Info("Service: Назначение не найдено", zap.String("target_id", assignmentID.String()))
			return nil, NewNotFound("назначение", assignmentID.String())
		}
		return nil, fmt.Errorf("получение назначения: %w", err)
	}

	if a.AssigneeID != submitterID {
		logger.Warn("Service: Попытка выполнить чужое назначение",
			zap.String("assignment_id", assignmentID.String()),
			zap.String("submitter_id", submitterID.String()))
		return nil, NewPermissionDenied("complete", "выполнить назначение может только исполнитель")
	}

	minChars := s.noteLimit.Get(ctx)
	note = strings.TrimSpace(note)
	if utf8.RuneCountInString(note) < minChars {
		return nil, NewValidationError("note", "комментарий должен содержать не менее "+strconv.Itoa(minChars)+" символов")
	}

	w := period.Compute(a.ScheduleKind, a.StartDate, a.EndDate, now)

	_, err = s.completions.FindExact(ctx, a.UUID, w.Start, w.End)
	switch {
	case err == nil:
		return nil, NewAlreadyCompleted(a.UUID.String(), w.Start, w.End)
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("поиск выполнения за период: %w", err)
	}

	completion := &assignment.Completion{
		UUID:           uuid.New(),
		AssignmentID:   a.UUID,
		PeriodStart:    w.Start,
		PeriodEnd:      w.End,
		CompletedByID:  submitterID,
		CompletionNote: note,
		IsOnTime:       !w.Expired(now),
		CompletedAt:    now,
	}

	if err := s.completions.Insert(ctx, completion); err != nil {
		// параллельная вставка успела раньше - уникальный индекс хранилища это поймал
		if errors.Is(err, repository.ErrDuplicateCompletion) {
			logger.Info("Service: Выполнение за период уже записано параллельным запросом",
				zap.String("assignment_id", a.UUID.String()))
			return nil, NewAlreadyCompleted(a.UUID.String(), w.Start, w.End)
		}
		return nil, fmt.Errorf("сохранение выполнения: %w", err)
	}

	logger.Info("Service: Выполнение записано",
		zap.String("assignment_id", a.UUID.String()),
		zap.String("completion_id", completion.UUID.String()),
		zap.Bool("on_time", completion.IsOnTime))

	return &assignment.CompletionView{
		Completion:      *completion,
		AssignmentTitle: a.Title,
		ScheduleKind:    a.ScheduleKind,
	}, nil
}

// ListCompletions - только чтение; обычный пользователь видит лишь свои выполнения
func (s *CompletionService) ListCompletions(ctx context.Context, actor assignment.Actor, filter assignment.CompletionFilter, page assignment.Pagination) ([]*assignment.CompletionView, error) {
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return nil, NewValidationError("from", "начало диапазона позже конца")
	}

	if !actor.IsAdmin() {
		if filter.CompletedByID != nil && *filter.CompletedByID != actor.ID {
			return nil, NewPermissionDenied("list_completions", "доступны только собственные выполнения")
		}
		id := actor.ID
		filter.CompletedByID = &id
	}

	items, err := s.completions.ListCompletions(ctx, filter, page.Normalize())
	if err != nil {
		return nil, fmt.Errorf("получение выполнений: %w", err)
	}
	return items, nil
}

func (s *CompletionService) MinNoteChars(ctx context.Context) int {
	return s.noteLimit.Get(ctx)
}
