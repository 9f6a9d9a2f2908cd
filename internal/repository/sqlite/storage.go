package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"routineTracker/internal/logger"
	"routineTracker/internal/models/assignment"
	repo "routineTracker/internal/repository"
	"routineTracker/internal/repository/migrations"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// время хранится строкой фиксированной ширины в UTC: сравнение строк совпадает со сравнением моментов
const timeLayout = "2006-01-02 15:04:05.000000000"

const slowQuery = time.Millisecond * 100

type Storage struct {
	db *sql.DB
}

// Open открывает файл базы (создавая каталог) и применяет миграции
func Open(ctx context.Context, path string) (*Storage, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("не задан путь к файлу sqlite")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("создание каталога для sqlite: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		logger.Error("Repository: Ошибка открытия sqlite", err, zap.String("path", path))
		return nil, fmt.Errorf("открытие sqlite: %w", err)
	}
	// у sqlite один писатель
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("проверка соединения sqlite: %w", err)
	}
	if err := migrations.UpSQLite(db); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("Repository: Успешное подключение к SQLite", zap.String("path", path))
	return &Storage{db: db}, nil
}

func (s *Storage) Close() {
	if err := s.db.Close(); err != nil {
		logger.Error("Repository: Ошибка закрытия sqlite", err)
		return
	}
	logger.Info("Repository: Соединение SQLite закрыто")
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		logger.Error("Repository: Неудачная проверка ping", err)
		return fmt.Errorf("проверка соединения ping: %w", err)
	}
	return nil
}

func observe(op string, start time.Time) {
	if elapsed := time.Since(start); elapsed > slowQuery {
		logger.Warn("Repository: Медленная операция", zap.String("op", op), zap.Duration("ms", elapsed))
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseTime(value string) (time.Time, error) {
	t, err := time.ParseInLocation(timeLayout, value, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("разбор времени %q: %w", value, err)
	}
	return t.Local(), nil
}

func parseTimePtr(value sql.NullString) (*time.Time, error) {
	if !value.Valid {
		return nil, nil
	}
	t, err := parseTime(value.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// isConstraint узнаёт нарушение ограничения по расширенному коду, а при базовом коде - по тексту
func isConstraint(err error, code int, marker string) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	if sqliteErr.Code() == code {
		return true
	}
	return sqliteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(sqliteErr.Error(), marker)
}

// ---- назначения ----

const assignmentColumns = `uuid, title, schedule_kind, start_date, end_date, assignee_id,
	assigned_by_id, is_active, is_paused, is_self_created, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanAssignment(row scanner) (*assignment.Assignment, error) {
	a := &assignment.Assignment{}
	var startDate, endDate, updatedAt sql.NullString
	var createdAt string

	err := row.Scan(
		&a.UUID,
		&a.Title,
		&a.ScheduleKind,
		&startDate,
		&endDate,
		&a.AssigneeID,
		&a.AssignedByID,
		&a.IsActive,
		&a.IsPaused,
		&a.IsSelfCreated,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if a.StartDate, err = parseTimePtr(startDate); err != nil {
		return nil, err
	}
	if a.EndDate, err = parseTimePtr(endDate); err != nil {
		return nil, err
	}
	if a.UpdatedAt, err = parseTimePtr(updatedAt); err != nil {
		return nil, err
	}
	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Storage) Create(ctx context.Context, a *assignment.Assignment) error {
	start := time.Now()
	defer observe("assignment.create", start)

	if a.CreatedAt.IsZero() {
		a.CreatedAt = start
	}

	query := `INSERT INTO assignments (` + assignmentColumns + `)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		a.UUID,
		a.Title,
		string(a.ScheduleKind),
		formatTimePtr(a.StartDate),
		formatTimePtr(a.EndDate),
		a.AssigneeID,
		a.AssignedByID,
		a.IsActive,
		a.IsPaused,
		a.IsSelfCreated,
		formatTime(a.CreatedAt),
		formatTimePtr(a.UpdatedAt),
	)
	if err != nil {
		logger.Error("Repository: Не удалось создать назначение", err, zap.String("assignment_id", a.UUID.String()))
		return fmt.Errorf("создание назначения: %w", err)
	}
	return nil
}

func (s *Storage) Update(ctx context.Context, a *assignment.Assignment) error {
	start := time.Now()
	defer observe("assignment.update", start)

	if a.UpdatedAt == nil {
		now := time.Now()
		a.UpdatedAt = &now
	}

	query := `UPDATE assignments
			SET title = ?,
				schedule_kind = ?,
				start_date = ?,
				end_date = ?,
				assignee_id = ?,
				is_active = ?,
				is_paused = ?,
				updated_at = ?
			WHERE uuid = ?`

	res, err := s.db.ExecContext(ctx, query,
		a.Title,
		string(a.ScheduleKind),
		formatTimePtr(a.StartDate),
		formatTimePtr(a.EndDate),
		a.AssigneeID,
		a.IsActive,
		a.IsPaused,
		formatTimePtr(a.UpdatedAt),
		a.UUID,
	)
	if err != nil {
		logger.Error("Repository: Не удалось обновить назначение", err, zap.String("assignment_id", a.UUID.String()))
		return fmt.Errorf("обновление назначения: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (s *Storage) GetByID(ctx context.Context, id uuid.UUID) (*assignment.Assignment, error) {
	start := time.Now()
	defer observe("assignment.get", start)

	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE uuid = ?`

	a, err := scanAssignment(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: Ошибка получения назначения", err, zap.String("assignment_id", id.String()))
		return nil, fmt.Errorf("получение назначения: %w", err)
	}
	return a, nil
}

// Delete удаляет назначение; выполнения уходят каскадом (foreign_keys включены в DSN)
func (s *Storage) Delete(ctx context.Context, id uuid.UUID) error {
	start := time.Now()
	defer observe("assignment.delete", start)

	res, err := s.db.ExecContext(ctx, `DELETE FROM assignments WHERE uuid = ?`, id)
	if err != nil {
		logger.Error("Repository: Не удалось удалить назначение", err, zap.String("assignment_id", id.String()))
		return fmt.Errorf("удаление назначения: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (s *Storage) ListAssignments(ctx context.Context, filter assignment.Filter, page assignment.Pagination) ([]*assignment.Assignment, error) {
	start := time.Now()
	defer observe("assignment.list", start)

	page = page.Normalize()
	conds := []string{}
	args := []any{}
	if filter.AssigneeID != nil {
		conds = append(conds, "assignee_id = ?")
		args = append(args, *filter.AssigneeID)
	}
	if filter.IsActive != nil {
		conds = append(conds, "is_active = ?")
		args = append(args, *filter.IsActive)
	}
	args = append(args, page.Limit, page.Offset())

	query := `SELECT ` + assignmentColumns + ` FROM assignments` + where(conds) +
		` ORDER BY created_at DESC LIMIT ? OFFSET ?`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		logger.Error("Repository: Ошибка получения списка назначений", err)
		return nil, fmt.Errorf("список назначений: %w", err)
	}
	defer rows.Close()

	res := []*assignment.Assignment{}
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("чтение назначения: %w", err)
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

func where(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

// ---- выполнения ----

func scanCompletion(row scanner, extra ...any) (*assignment.Completion, error) {
	c := &assignment.Completion{}
	var periodStart, periodEnd, completedAt string

	dest := []any{
		&c.UUID,
		&c.AssignmentID,
		&periodStart,
		&periodEnd,
		&c.CompletedByID,
		&c.CompletionNote,
		&c.IsOnTime,
		&completedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	var err error
	if c.PeriodStart, err = parseTime(periodStart); err != nil {
		return nil, err
	}
	if c.PeriodEnd, err = parseTime(periodEnd); err != nil {
		return nil, err
	}
	if c.CompletedAt, err = parseTime(completedAt); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Storage) FindExact(ctx context.Context, assignmentID uuid.UUID, periodStart, periodEnd time.Time) (*assignment.Completion, error) {
	start := time.Now()
	defer observe("completion.find", start)

	query := `SELECT uuid, assignment_id, period_start, period_end, completed_by_id,
				completion_note, is_on_time, completed_at
			FROM task_completions
			WHERE assignment_id = ? AND period_start = ? AND period_end = ?`

	c, err := scanCompletion(s.db.QueryRowContext(ctx, query, assignmentID, formatTime(periodStart), formatTime(periodEnd)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: Ошибка поиска выполнения", err, zap.String("assignment_id", assignmentID.String()))
		return nil, fmt.Errorf("поиск выполнения: %w", err)
	}
	return c, nil
}

func (s *Storage) Insert(ctx context.Context, c *assignment.Completion) error {
	start := time.Now()
	defer observe("completion.insert", start)

	query := `INSERT INTO task_completions (uuid, assignment_id, period_start, period_end,
				completed_by_id, completion_note, is_on_time, completed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		c.UUID,
		c.AssignmentID,
		formatTime(c.PeriodStart),
		formatTime(c.PeriodEnd),
		c.CompletedByID,
		c.CompletionNote,
		c.IsOnTime,
		formatTime(c.CompletedAt),
	)
	if err != nil {
		switch {
		case isConstraint(err, sqlite3.SQLITE_CONSTRAINT_UNIQUE, "UNIQUE"):
			logger.Debug("Repository: Выполнение за период уже записано",
				zap.String("assignment_id", c.AssignmentID.String()))
			return repo.ErrDuplicateCompletion
		case isConstraint(err, sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY, "FOREIGN KEY"):
			return repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось записать выполнение", err, zap.String("assignment_id", c.AssignmentID.String()))
		return fmt.Errorf("запись выполнения: %w", err)
	}
	return nil
}

func (s *Storage) ListCompletions(ctx context.Context, filter assignment.CompletionFilter, page assignment.Pagination) ([]*assignment.CompletionView, error) {
	start := time.Now()
	defer observe("completion.list", start)

	page = page.Normalize()
	conds := []string{}
	args := []any{}
	add := func(cond string, arg any) {
		conds = append(conds, cond)
		args = append(args, arg)
	}
	if filter.AssignmentID != nil {
		add("c.assignment_id = ?", *filter.AssignmentID)
	}
	if filter.CompletedByID != nil {
		add("c.completed_by_id = ?", *filter.CompletedByID)
	}
	if filter.From != nil {
		add("c.completed_at >= ?", formatTime(*filter.From))
	}
	if filter.To != nil {
		add("c.completed_at <= ?", formatTime(*filter.To))
	}
	if filter.PeriodStartFrom != nil {
		add("c.period_start >= ?", formatTime(*filter.PeriodStartFrom))
	}
	if filter.PeriodEndTo != nil {
		add("c.period_end <= ?", formatTime(*filter.PeriodEndTo))
	}
	args = append(args, page.Limit, page.Offset())

	query := `SELECT c.uuid, c.assignment_id, c.period_start, c.period_end, c.completed_by_id,
				c.completion_note, c.is_on_time, c.completed_at,
				COALESCE(a.title, ''), COALESCE(a.schedule_kind, '')
			FROM task_completions c
			LEFT JOIN assignments a ON a.uuid = c.assignment_id` + where(conds) +
		` ORDER BY c.completed_at DESC LIMIT ? OFFSET ?`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		logger.Error("Repository: Ошибка получения списка выполнений", err)
		return nil, fmt.Errorf("список выполнений: %w", err)
	}
	defer rows.Close()

	res := []*assignment.CompletionView{}
	for rows.Next() {
		var title, kind string
		c, err := scanCompletion(rows, &title, &kind)
		if err != nil {
			return nil, fmt.Errorf("чтение выполнения: %w", err)
		}
		res = append(res, &assignment.CompletionView{
			Completion:      *c,
			AssignmentTitle: title,
			ScheduleKind:    assignment.ScheduleKind(kind),
		})
	}
	return res, rows.Err()
}

// ---- пользователи ----

func (s *Storage) SaveUser(ctx context.Context, u *assignment.User) error {
	query := `INSERT INTO users (uuid, name, role, is_active)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (uuid) DO UPDATE
			SET name = excluded.name, role = excluded.role, is_active = excluded.is_active`

	_, err := s.db.ExecContext(ctx, query, u.UUID, u.Name, string(u.Role), u.IsActive)
	if err != nil {
		logger.Error("Repository: Не удалось сохранить пользователя", err, zap.String("user_id", u.UUID.String()))
		return fmt.Errorf("сохранение пользователя: %w", err)
	}
	return nil
}

func (s *Storage) GetUser(ctx context.Context, id uuid.UUID) (*assignment.User, error) {
	u := &assignment.User{}
	err := s.db.QueryRowContext(ctx, `SELECT uuid, name, role, is_active FROM users WHERE uuid = ?`, id).
		Scan(&u.UUID, &u.Name, &u.Role, &u.IsActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		return nil, fmt.Errorf("получение пользователя: %w", err)
	}
	return u, nil
}

func (s *Storage) ListUsers(ctx context.Context) ([]*assignment.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT uuid, name, role, is_active FROM users WHERE is_active = 1 ORDER BY name`)
	if err != nil {
		logger.Error("Repository: Ошибка получения списка пользователей", err)
		return nil, fmt.Errorf("список пользователей: %w", err)
	}
	defer rows.Close()

	res := []*assignment.User{}
	for rows.Next() {
		u := &assignment.User{}
		if err := rows.Scan(&u.UUID, &u.Name, &u.Role, &u.IsActive); err != nil {
			return nil, fmt.Errorf("чтение пользователя: %w", err)
		}
		res = append(res, u)
	}
	return res, rows.Err()
}

// ---- настройки ----

func (s *Storage) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", repo.ErrSettingNotFound
		}
		return "", fmt.Errorf("чтение настройки %s: %w", key, err)
	}
	return value, nil
}

func (s *Storage) Set(ctx context.Context, key, value string) error {
	query := `INSERT INTO settings (key, value, updated_at)
			VALUES (?, ?, ?)
			ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

	if _, err := s.db.ExecContext(ctx, query, key, value, formatTime(time.Now())); err != nil {
		logger.Error("Repository: Не удалось сохранить настройку", err, zap.String("key", key))
		return fmt.Errorf("запись настройки %s: %w", key, err)
	}
	return nil
}
