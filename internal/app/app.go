package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"routineTracker/internal/config"
	"routineTracker/internal/handlers"
	"routineTracker/internal/logger"
	"routineTracker/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

type App struct {
	config    *config.Config
	server    *http.Server
	router    *chi.Mux
	storage   Storage
	services  *Services
	shutdowns []func() // функции для graceful shutdown, вызываются в обратном порядке
}

func New(cfg *config.Config) *App {
	return &App{
		config:    cfg,
		shutdowns: make([]func(), 0),
	}
}

func (a *App) Init(ctx context.Context) (*App, error) {
	if err := logger.Init(a.config.Logging.Development); err != nil {
		return nil, fmt.Errorf("инициализация логгера: %w", err)
	}

	a.shutdowns = append(a.shutdowns, func() {
		logger.Info("Завершение работы логгирования...")
		logger.Sync()
	})

	storage, err := OpenStorage(ctx, a.config)
	if err != nil {
		a.shutdown()
		return nil, err
	}
	a.storage = storage
	a.shutdowns = append(a.shutdowns, storage.Close)

	a.services = NewServices(storage, a.config)
	a.router = a.newRouter()

	a.server = &http.Server{
		Addr:         a.config.GetServerAddr(),
		Handler:      a.router,
		ReadTimeout:  a.config.Server.ReadTimeout,
		WriteTimeout: a.config.Server.WriteTimeout,
	}

	return a, nil
}

func (a *App) newRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(middleware.RateLimit(a.config.Server.RateLimitRPM))

	if len(a.config.Server.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: a.config.Server.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID", middleware.UserIDHeader, middleware.UserRoleHeader},
			ExposedHeaders: []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
			MaxAge:         300,
		}))
	}

	h := handlers.NewHandler(a.services.Assignments, a.services.Completions, a.services.Reports)
	h.Routes(r)
	return r
}

// Handler отдаёт собранный роутер; удобно для httptest
func (a *App) Handler() http.Handler {
	return a.router
}

// Run слушает порт до сигнала остановки или отмены ctx, затем аккуратно гасит сервер
func (a *App) Run(ctx context.Context) error {
	defer a.shutdown()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Сервер запущен",
			zap.String("addr", a.server.Addr),
			zap.String("repository", a.config.Repository.Type))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			logger.Error("Ошибка сервера", err)
			return fmt.Errorf("запуск сервера: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Получен сигнал остановки, завершаем работу...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Ошибка при остановке сервера", err)
		return fmt.Errorf("остановка сервера: %w", err)
	}
	logger.Info("Сервер остановлен")
	return nil
}

func (a *App) shutdown() {
	for i := len(a.shutdowns) - 1; i >= 0; i-- {
		a.shutdowns[i]()
	}
	a.shutdowns = nil
}
