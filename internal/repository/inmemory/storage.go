package inmemory

import (
	"context"
	"sort"
	"sync"
	"time"

	"routineTracker/internal/logger"
	"routineTracker/internal/models/assignment"
	repo "routineTracker/internal/repository"

	"github.com/google/uuid"
)

type completionKey struct {
	assignmentID uuid.UUID
	start        int64
	end          int64
}

func keyOf(assignmentID uuid.UUID, start, end time.Time) completionKey {
	return completionKey{assignmentID: assignmentID, start: start.UnixNano(), end: end.UnixNano()}
}

// Storage хранит всё в памяти процесса. Наружу отдаются только копии,
// чтобы вызывающий код не мог поменять состояние в обход Update.
type Storage struct {
	mtx *sync.RWMutex

	assignments   map[uuid.UUID]*assignment.Assignment
	assignmentIDs []uuid.UUID

	completions []*assignment.Completion
	// уникальный индекс (assignment_id, period_start, period_end)
	completionIdx map[completionKey]*assignment.Completion

	users    map[uuid.UUID]*assignment.User
	userIDs  []uuid.UUID
	settings map[string]string
}

func NewStorage() *Storage {
	return &Storage{
		mtx:           &sync.RWMutex{},
		assignments:   make(map[uuid.UUID]*assignment.Assignment),
		assignmentIDs: []uuid.UUID{},
		completionIdx: make(map[completionKey]*assignment.Completion),
		users:         make(map[uuid.UUID]*assignment.User),
		settings:      make(map[string]string),
	}
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	logger.Debug("Repository: Хранилище в памяти доступно")
	return nil
}

func (s *Storage) Close() {}

// ---- назначения ----

func (s *Storage) Create(ctx context.Context, a *assignment.Assignment) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	stored := copyAssignment(a)
	s.assignments[a.UUID] = stored
	s.assignmentIDs = append(s.assignmentIDs, a.UUID)
	return nil
}

func (s *Storage) Update(ctx context.Context, a *assignment.Assignment) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.assignments[a.UUID]; !ok {
		return repo.ErrNotFound
	}
	if a.UpdatedAt == nil {
		now := time.Now()
		a.UpdatedAt = &now
	}
	s.assignments[a.UUID] = copyAssignment(a)
	return nil
}

func (s *Storage) GetByID(ctx context.Context, id uuid.UUID) (*assignment.Assignment, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	a, ok := s.assignments[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return copyAssignment(a), nil
}

// Delete удаляет назначение вместе с его выполнениями
func (s *Storage) Delete(ctx context.Context, id uuid.UUID) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.assignments[id]; !ok {
		return repo.ErrNotFound
	}
	delete(s.assignments, id)
	for ind, val := range s.assignmentIDs {
		if val == id {
			s.assignmentIDs = append(s.assignmentIDs[:ind], s.assignmentIDs[ind+1:]...)
			break
		}
	}

	kept := s.completions[:0]
	for _, c := range s.completions {
		if c.AssignmentID == id {
			delete(s.completionIdx, keyOf(c.AssignmentID, c.PeriodStart, c.PeriodEnd))
			continue
		}
		kept = append(kept, c)
	}
	s.completions = kept
	return nil
}

// ListAssignments - от новых к старым, как и в postgres
func (s *Storage) ListAssignments(ctx context.Context, filter assignment.Filter, page assignment.Pagination) ([]*assignment.Assignment, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	page = page.Normalize()
	offset := page.Offset()
	res := []*assignment.Assignment{}
	matched := 0

	for i := len(s.assignmentIDs) - 1; i >= 0; i-- {
		a := s.assignments[s.assignmentIDs[i]]
		if filter.AssigneeID != nil && a.AssigneeID != *filter.AssigneeID {
			continue
		}
		if filter.IsActive != nil && a.IsActive != *filter.IsActive {
			continue
		}

		matched++
		if matched <= offset {
			continue
		}
		res = append(res, copyAssignment(a))
		if len(res) >= page.Limit {
			break
		}
	}
	return res, nil
}

// ---- выполнения ----

func (s *Storage) FindExact(ctx context.Context, assignmentID uuid.UUID, periodStart, periodEnd time.Time) (*assignment.Completion, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	c, ok := s.completionIdx[keyOf(assignmentID, periodStart, periodEnd)]
	if !ok {
		return nil, repo.ErrNotFound
	}
	found := *c
	return &found, nil
}

// Insert проверяет уникальность под той же блокировкой, что и запись
func (s *Storage) Insert(ctx context.Context, c *assignment.Completion) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	key := keyOf(c.AssignmentID, c.PeriodStart, c.PeriodEnd)
	if _, exists := s.completionIdx[key]; exists {
		return repo.ErrDuplicateCompletion
	}
	if _, ok := s.assignments[c.AssignmentID]; !ok {
		return repo.ErrNotFound
	}

	stored := *c
	s.completions = append(s.completions, &stored)
	s.completionIdx[key] = &stored
	return nil
}

func (s *Storage) ListCompletions(ctx context.Context, filter assignment.CompletionFilter, page assignment.Pagination) ([]*assignment.CompletionView, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	matched := make([]*assignment.Completion, 0)
	for _, c := range s.completions {
		if matchCompletion(c, filter) {
			matched = append(matched, c)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CompletedAt.After(matched[j].CompletedAt)
	})

	page = page.Normalize()
	offset := page.Offset()
	if offset >= len(matched) {
		return []*assignment.CompletionView{}, nil
	}
	end := offset + page.Limit
	if end > len(matched) {
		end = len(matched)
	}

	res := make([]*assignment.CompletionView, 0, end-offset)
	for _, c := range matched[offset:end] {
		view := &assignment.CompletionView{Completion: *c}
		if a, ok := s.assignments[c.AssignmentID]; ok {
			view.AssignmentTitle = a.Title
			view.ScheduleKind = a.ScheduleKind
		}
		res = append(res, view)
	}
	return res, nil
}

func matchCompletion(c *assignment.Completion, f assignment.CompletionFilter) bool {
	if f.AssignmentID != nil && c.AssignmentID != *f.AssignmentID {
		return false
	}
	if f.CompletedByID != nil && c.CompletedByID != *f.CompletedByID {
		return false
	}
	if f.From != nil && c.CompletedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && c.CompletedAt.After(*f.To) {
		return false
	}
	if f.PeriodStartFrom != nil && c.PeriodStart.Before(*f.PeriodStartFrom) {
		return false
	}
	if f.PeriodEndTo != nil && c.PeriodEnd.After(*f.PeriodEndTo) {
		return false
	}
	return true
}

// ---- пользователи ----

func (s *Storage) SaveUser(ctx context.Context, u *assignment.User) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, exists := s.users[u.UUID]; !exists {
		s.userIDs = append(s.userIDs, u.UUID)
	}
	stored := *u
	s.users[u.UUID] = &stored
	return nil
}

func (s *Storage) GetUser(ctx context.Context, id uuid.UUID) (*assignment.User, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	found := *u
	return &found, nil
}

// ListUsers - только активные пользователи, в порядке добавления
func (s *Storage) ListUsers(ctx context.Context) ([]*assignment.User, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res := []*assignment.User{}
	for _, id := range s.userIDs {
		u := s.users[id]
		if !u.IsActive {
			continue
		}
		found := *u
		res = append(res, &found)
	}
	return res, nil
}

// ---- настройки ----

func (s *Storage) Get(ctx context.Context, key string) (string, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	value, ok := s.settings[key]
	if !ok {
		return "", repo.ErrSettingNotFound
	}
	return value, nil
}

func (s *Storage) Set(ctx context.Context, key, value string) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.settings[key] = value
	return nil
}

func copyAssignment(a *assignment.Assignment) *assignment.Assignment {
	c := *a
	if a.StartDate != nil {
		start := *a.StartDate
		c.StartDate = &start
	}
	if a.EndDate != nil {
		end := *a.EndDate
		c.EndDate = &end
	}
	if a.UpdatedAt != nil {
		updated := *a.UpdatedAt
		c.UpdatedAt = &updated
	}
	return &c
}
