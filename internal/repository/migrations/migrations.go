// Package migrations хранит схемы БД и применяет их через golang-migrate.
package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"

	"routineTracker/internal/logger"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed postgres/*.sql sqlite/*.sql
var migrationsFS embed.FS

// UpPostgres применяет миграции к базе по connection string вида postgres://...
func UpPostgres(connString string) error {
	src, err := iofs.New(migrationsFS, "postgres")
	if err != nil {
		return fmt.Errorf("источник миграций: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, pgxURL(connString))
	if err != nil {
		return fmt.Errorf("инициализация миграций: %w", err)
	}
	defer m.Close()

	return up(m, "postgres")
}

// UpSQLite применяет миграции к открытому соединению. Соединение остаётся открытым.
func UpSQLite(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "sqlite")
	if err != nil {
		return fmt.Errorf("источник миграций: %w", err)
	}

	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("драйвер миграций sqlite: %w", err)
	}

	// m.Close() закрыл бы и переданный *sql.DB, поэтому закрываем только источник
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("инициализация миграций: %w", err)
	}
	defer src.Close()

	return up(m, "sqlite")
}

func up(m *migrate.Migrate, dialect string) error {
	err := m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Error("Repository: Ошибка применения миграций", err, zap.String("dialect", dialect))
		return fmt.Errorf("применение миграций: %w", err)
	}

	version, dirty, verr := m.Version()
	if verr == nil {
		logger.Info("Repository: Миграции применены",
			zap.String("dialect", dialect),
			zap.Uint("version", version),
			zap.Bool("dirty", dirty))
	}
	return nil
}

// драйвер pgx/v5 в golang-migrate зарегистрирован под схемой pgx5
func pgxURL(connString string) string {
	for _, prefix := range []string{"postgresql://", "postgres://"} {
		if strings.HasPrefix(connString, prefix) {
			return "pgx5://" + strings.TrimPrefix(connString, prefix)
		}
	}
	return connString
}
