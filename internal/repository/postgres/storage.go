package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"routineTracker/internal/config"
	"routineTracker/internal/logger"
	"routineTracker/internal/models/assignment"
	repo "routineTracker/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const slowQuery = time.Millisecond * 100

// код нарушения уникального ограничения в PostgreSQL
const uniqueViolation = "23505"

type Storage struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, cfg config.DatabaseConfig) (*Storage, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		logger.Error("Repository: Ошибка загрузки конфига", err)
		return nil, fmt.Errorf("загрузка конфига: %w", err)
	}

	if cfg.MaxConnections > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConnections)
	}
	if cfg.MinConnections > 0 {
		poolConfig.MinConns = int32(cfg.MinConnections)
	}
	if cfg.IdleTimeout > 0 {
		poolConfig.MaxConnIdleTime = cfg.IdleTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Error("Repository: Ошибка создания пула", err)
		return nil, fmt.Errorf("создание пула: %w", err)
	}

	err = pool.Ping(ctx)
	if err != nil {
		pool.Close()
		logger.Error("Repository: Неудачная проверка ping", err)
		return nil, fmt.Errorf("проверка соединения ping: %w", err)
	}

	logger.Info("Repository: Успешное создание подключения к PostgreSQL")
	return &Storage{pool: pool}, nil
}

func (s *Storage) Close() {
	s.pool.Close()
	logger.Info("Repository: Закрытие всех соединений PostgreSQL")
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	err := s.pool.Ping(ctx)
	if err != nil {
		logger.Error("Repository: Неудачная проверка ping", err)
		return fmt.Errorf("проверка соединения ping: %w", err)
	}
	logger.Debug("Repository: Соединение стабильно")
	return nil
}

func observe(op string, start time.Time) {
	if elapsed := time.Since(start); elapsed > slowQuery {
		logger.Warn("Repository: Медленная операция", zap.String("op", op), zap.Duration("ms", elapsed))
	}
}

// ---- назначения ----

const assignmentColumns = `uuid, title, schedule_kind, start_date, end_date, assignee_id,
	assigned_by_id, is_active, is_paused, is_self_created, created_at, updated_at`

func scanAssignment(row pgx.Row) (*assignment.Assignment, error) {
	a := &assignment.Assignment{}
	err := row.Scan(
		&a.UUID,
		&a.Title,
		&a.ScheduleKind,
		&a.StartDate,
		&a.EndDate,
		&a.AssigneeID,
		&a.AssignedByID,
		&a.IsActive,
		&a.IsPaused,
		&a.IsSelfCreated,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	return a, err
}

func (s *Storage) Create(ctx context.Context, a *assignment.Assignment) error {
	start := time.Now()
	defer observe("assignment.create", start)

	if a.CreatedAt.IsZero() {
		a.CreatedAt = start
	}

	query := `INSERT INTO assignments (` + assignmentColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := s.pool.Exec(ctx, query,
		a.UUID,
		a.Title,
		a.ScheduleKind,
		a.StartDate,
		a.EndDate,
		a.AssigneeID,
		a.AssignedByID,
		a.IsActive,
		a.IsPaused,
		a.IsSelfCreated,
		a.CreatedAt,
		a.UpdatedAt,
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

	query := `UPDATE assignments
			SET title = $1,
				schedule_kind = $2,
				start_date = $3,
				end_date = $4,
				assignee_id = $5,
				is_active = $6,
				is_paused = $7,
				updated_at = COALESCE($8, NOW())
			WHERE uuid = $9
			RETURNING updated_at`

	err := s.pool.QueryRow(ctx, query,
		a.Title,
		a.ScheduleKind,
		a.StartDate,
		a.EndDate,
		a.AssigneeID,
		a.IsActive,
		a.IsPaused,
		a.UpdatedAt,
		a.UUID,
	).Scan(&a.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось обновить назначение", err, zap.String("assignment_id", a.UUID.String()))
		return fmt.Errorf("обновление назначения: %w", err)
	}
	return nil
}

func (s *Storage) GetByID(ctx context.Context, id uuid.UUID) (*assignment.Assignment, error) {
	start := time.Now()
	defer observe("assignment.get", start)

	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE uuid = $1`

	a, err := scanAssignment(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: Ошибка получения назначения", err, zap.String("assignment_id", id.String()))
		return nil, fmt.Errorf("получение назначения: %w", err)
	}
	return a, nil
}

// Delete удаляет назначение; выполнения удаляются каскадом по внешнему ключу
func (s *Storage) Delete(ctx context.Context, id uuid.UUID) error {
	start := time.Now()
	defer observe("assignment.delete", start)

	tag, err := s.pool.Exec(ctx, `DELETE FROM assignments WHERE uuid = $1`, id)
	if err != nil {
		logger.Error("Repository: Не удалось удалить назначение", err, zap.String("assignment_id", id.String()))
		return fmt.Errorf("удаление назначения: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (s *Storage) ListAssignments(ctx context.Context, filter assignment.Filter, page assignment.Pagination) ([]*assignment.Assignment, error) {
	start := time.Now()
	defer observe("assignment.list", start)

	page = page.Normalize()
	where := &whereBuilder{}
	if filter.AssigneeID != nil {
		where.add("assignee_id = ?", *filter.AssigneeID)
	}
	if filter.IsActive != nil {
		where.add("is_active = ?", *filter.IsActive)
	}

	query := `SELECT ` + assignmentColumns + ` FROM assignments` + where.sql() +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d OFFSET %d`, page.Limit, page.Offset())

	rows, err := s.pool.Query(ctx, query, where.args...)
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
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("чтение списка назначений: %w", err)
	}
	return res, nil
}

// ---- выполнения ----

func (s *Storage) FindExact(ctx context.Context, assignmentID uuid.UUID, periodStart, periodEnd time.Time) (*assignment.Completion, error) {
	start := time.Now()
	defer observe("completion.find", start)

	query := `SELECT uuid, assignment_id, period_start, period_end, completed_by_id,
				completion_note, is_on_time, completed_at
			FROM task_completions
			WHERE assignment_id = $1 AND period_start = $2 AND period_end = $3`

	c := &assignment.Completion{}
	err := s.pool.QueryRow(ctx, query, assignmentID, periodStart, periodEnd).Scan(
		&c.UUID,
		&c.AssignmentID,
		&c.PeriodStart,
		&c.PeriodEnd,
		&c.CompletedByID,
		&c.CompletionNote,
		&c.IsOnTime,
		&c.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
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
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.pool.Exec(ctx, query,
		c.UUID,
		c.AssignmentID,
		c.PeriodStart,
		c.PeriodEnd,
		c.CompletedByID,
		c.CompletionNote,
		c.IsOnTime,
		c.CompletedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			logger.Debug("Repository: Выполнение за период уже записано",
				zap.String("assignment_id", c.AssignmentID.String()))
			return repo.ErrDuplicateCompletion
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
	where := completionWhere(filter)

	query := `SELECT c.uuid, c.assignment_id, c.period_start, c.period_end, c.completed_by_id,
				c.completion_note, c.is_on_time, c.completed_at,
				COALESCE(a.title, ''), COALESCE(a.schedule_kind, '')
			FROM task_completions c
			LEFT JOIN assignments a ON a.uuid = c.assignment_id` + where.sql() +
		fmt.Sprintf(` ORDER BY c.completed_at DESC LIMIT %d OFFSET %d`, page.Limit, page.Offset())

	rows, err := s.pool.Query(ctx, query, where.args...)
	if err != nil {
		logger.Error("Repository: Ошибка получения списка выполнений", err)
		return nil, fmt.Errorf("список выполнений: %w", err)
	}
	defer rows.Close()

	res := []*assignment.CompletionView{}
	for rows.Next() {
		v := &assignment.CompletionView{}
		err := rows.Scan(
			&v.UUID,
			&v.AssignmentID,
			&v.PeriodStart,
			&v.PeriodEnd,
			&v.CompletedByID,
			&v.CompletionNote,
			&v.IsOnTime,
			&v.CompletedAt,
			&v.AssignmentTitle,
			&v.ScheduleKind,
		)
		if err != nil {
			return nil, fmt.Errorf("чтение выполнения: %w", err)
		}
		res = append(res, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("чтение списка выполнений: %w", err)
	}
	return res, nil
}

func completionWhere(f assignment.CompletionFilter) *whereBuilder {
	where := &whereBuilder{}
	if f.AssignmentID != nil {
		where.add("c.assignment_id = ?", *f.AssignmentID)
	}
	if f.CompletedByID != nil {
		where.add("c.completed_by_id = ?", *f.CompletedByID)
	}
	if f.From != nil {
		where.add("c.completed_at >= ?", *f.From)
	}
	if f.To != nil {
		where.add("c.completed_at <= ?", *f.To)
	}
	if f.PeriodStartFrom != nil {
		where.add("c.period_start >= ?", *f.PeriodStartFrom)
	}
	if f.PeriodEndTo != nil {
		where.add("c.period_end <= ?", *f.PeriodEndTo)
	}
	return where
}

// ---- пользователи ----

func (s *Storage) SaveUser(ctx context.Context, u *assignment.User) error {
	start := time.Now()
	defer observe("user.save", start)

	query := `INSERT INTO users (uuid, name, role, is_active)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (uuid) DO UPDATE
			SET name = EXCLUDED.name, role = EXCLUDED.role, is_active = EXCLUDED.is_active`

	_, err := s.pool.Exec(ctx, query, u.UUID, u.Name, u.Role, u.IsActive)
	if err != nil {
		logger.Error("Repository: Не удалось сохранить пользователя", err, zap.String("user_id", u.UUID.String()))
		return fmt.Errorf("сохранение пользователя: %w", err)
	}
	return nil
}

func (s *Storage) GetUser(ctx context.Context, id uuid.UUID) (*assignment.User, error) {
	start := time.Now()
	defer observe("user.get", start)

	u := &assignment.User{}
	err := s.pool.QueryRow(ctx, `SELECT uuid, name, role, is_active FROM users WHERE uuid = $1`, id).
		Scan(&u.UUID, &u.Name, &u.Role, &u.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: Ошибка получения пользователя", err, zap.String("user_id", id.String()))
		return nil, fmt.Errorf("получение пользователя: %w", err)
	}
	return u, nil
}

func (s *Storage) ListUsers(ctx context.Context) ([]*assignment.User, error) {
	start := time.Now()
	defer observe("user.list", start)

	rows, err := s.pool.Query(ctx, `SELECT uuid, name, role, is_active FROM users WHERE is_active ORDER BY name`)
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
	err := s.pool.QueryRow(ctx, `SELECT value FROM settings WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", repo.ErrSettingNotFound
		}
		return "", fmt.Errorf("чтение настройки %s: %w", key, err)
	}
	return value, nil
}

func (s *Storage) Set(ctx context.Context, key, value string) error {
	query := `INSERT INTO settings (key, value, updated_at)
			VALUES ($1, $2, NOW())
			ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`

	if _, err := s.pool.Exec(ctx, query, key, value); err != nil {
		logger.Error("Repository: Не удалось сохранить настройку", err, zap.String("key", key))
		return fmt.Errorf("запись настройки %s: %w", key, err)
	}
	return nil
}
