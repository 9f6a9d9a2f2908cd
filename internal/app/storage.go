package app

import (
	"context"
	"fmt"

	"routineTracker/internal/config"
	"routineTracker/internal/logger"
	"routineTracker/internal/models/assignment"
	"routineTracker/internal/repository/inmemory"
	"routineTracker/internal/repository/migrations"
	"routineTracker/internal/repository/postgres"
	"routineTracker/internal/repository/sqlite"
	"routineTracker/internal/service"

	"go.uber.org/zap"
)

// Storage - то, что умеет каждое хранилище: назначения, выполнения, настройки и справочник пользователей
type Storage interface {
	service.AssignmentRepository
	service.CompletionRepository
	service.SettingsRepository
	service.UserDirectory
	SaveUser(context.Context, *assignment.User) error
	Close()
}

var (
	_ Storage = (*inmemory.Storage)(nil)
	_ Storage = (*postgres.Storage)(nil)
	_ Storage = (*sqlite.Storage)(nil)
)

// OpenStorage выбирает хранилище по repository.type и готовит схему
func OpenStorage(ctx context.Context, cfg *config.Config) (Storage, error) {
	logger.Info("Repository: Выбор хранилища", zap.String("type", cfg.Repository.Type))

	switch cfg.Repository.Type {
	case config.RepositoryInMemory:
		return inmemory.NewStorage(), nil

	case config.RepositorySQLite:
		store, err := sqlite.Open(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("открытие sqlite: %w", err)
		}
		return store, nil

	case config.RepositoryPostgres:
		if err := migrations.UpPostgres(cfg.Database.URL); err != nil {
			return nil, fmt.Errorf("миграции postgres: %w", err)
		}
		store, err := postgres.New(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("подключение к postgres: %w", err)
		}
		return store, nil

	default:
		return nil, fmt.Errorf("неизвестный тип хранилища %q", cfg.Repository.Type)
	}
}

// Migrate применяет миграции без открытия долгоживущего хранилища
func Migrate(ctx context.Context, cfg *config.Config) error {
	switch cfg.Repository.Type {
	case config.RepositoryPostgres:
		return migrations.UpPostgres(cfg.Database.URL)
	case config.RepositorySQLite:
		// Open сам применяет миграции
		store, err := sqlite.Open(ctx, cfg.SQLite.Path)
		if err != nil {
			return err
		}
		store.Close()
		return nil
	default:
		logger.Info("Repository: Хранилищу в памяти миграции не нужны")
		return nil
	}
}

type Services struct {
	Assignments *service.AssignmentService
	Completions *service.CompletionService
	Reports     *service.ReportService
}

const reportWorkers = 4

func NewServices(store Storage, cfg *config.Config) *Services {
	resolver := service.NewStatusResolver(store)
	noteLimit := service.NewNoteLimit(store, cfg.Completion.MinNoteChars)

	return &Services{
		Assignments: service.NewAssignmentService(store, store, resolver),
		Completions: service.NewCompletionService(store, store, noteLimit),
		Reports:     service.NewReportService(store, store, store, reportWorkers),
	}
}
