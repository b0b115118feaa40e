package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aidar/seminar-service/internal/config"
	"github.com/aidar/seminar-service/internal/handler"
	"github.com/aidar/seminar-service/internal/metrics"
	"github.com/aidar/seminar-service/internal/middleware"
	"github.com/aidar/seminar-service/internal/repository/postgres"
	"github.com/aidar/seminar-service/internal/service"
)

// App представляет приложение со всеми зависимостями
type App struct {
	config  *config.Config
	db      *pgxpool.Pool
	server  *http.Server
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New создает новый экземпляр приложения
func New(cfg *config.Config) (*App, error) {
	// Инициализируем структурированный логгер (JSON формат)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	app := &App{
		config:  cfg,
		logger:  logger,
		metrics: metrics.New(),
	}

	return app, nil
}

// Initialize инициализирует все компоненты приложения
func (a *App) Initialize(ctx context.Context) error {
	// Накатываем миграции до открытия пула
	if a.config.Database.AutoMigrate {
		if err := postgres.ApplyMigrations(ctx, a.config.Database.DSN()); err != nil {
			return fmt.Errorf("failed to apply migrations: %w", err)
		}
		a.logger.Info("Database migrations applied")
	}

	// Подключаемся к базе данных
	if err := a.connectDB(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// Настраиваем HTTP сервер и роутинг
	a.setupServer()

	a.logger.Info("Application initialized successfully")
	return nil
}

// connectDB устанавливает подключение к PostgreSQL с connection pool
func (a *App) connectDB(ctx context.Context) error {
	poolConfig, err := pgxpool.ParseConfig(a.config.Database.DSN())
	if err != nil {
		return fmt.Errorf("failed to parse database config: %w", err)
	}

	// Настраиваем размеры connection pool
	poolConfig.MaxConns = a.config.Database.MaxConns
	poolConfig.MinConns = a.config.Database.MinConns

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Проверяем подключение к БД
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	a.db = pool
	a.logger.Info("Connected to database")
	return nil
}

// setupServer инициализирует HTTP роутер и обработчики
func (a *App) setupServer() {
	// Инициализируем слой репозиториев (работа с БД)
	userRepo := postgres.NewUserRepository(a.db)
	seminarRepo := postgres.NewSeminarRepository(a.db)
	enrollmentRepo := postgres.NewEnrollmentRepository(a.db)

	// Инициализируем слой сервисов (бизнес-логика)
	userService := service.NewUserService(userRepo, enrollmentRepo)
	seminarService := service.NewSeminarService(
		seminarRepo,
		enrollmentRepo,
		userRepo,
		service.RetryPolicy{
			Attempts:  a.config.Enrollment.RetryAttempts,
			BaseDelay: a.config.Enrollment.RetryBaseDelay,
		},
		a.metrics,
		a.logger,
	)
	authService := service.NewAuthService(
		userRepo,
		a.config.JWT.Secret,
		a.config.JWT.GetExpiration(),
	)

	a.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", a.config.Server.Host, a.config.Server.Port),
		Handler:      NewRouter(authService, userService, seminarService, a.metrics),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	a.logger.Info("HTTP server configured", "addr", a.server.Addr)
}

// NewRouter собирает маршруты сервиса поверх готовых сервисов
func NewRouter(
	authService *service.AuthService,
	userService handler.UserService,
	seminarService handler.SeminarService,
	m *metrics.Metrics,
) http.Handler {
	// Инициализируем HTTP обработчики
	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(userService, authService)
	seminarHandler := handler.NewSeminarHandler(seminarService)

	// Инициализируем middleware для JWT авторизации
	authMiddleware := middleware.AuthMiddleware(authService)

	r := chi.NewRouter()

	// Глобальные middleware (применяются ко всем запросам)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))
	r.Use(middleware.Metrics(m))

	// Health check для мониторинга
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		handler.RespondWithJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", m.Handler())

	// Публичные эндпоинты (без авторизации)
	r.Post("/user/", userHandler.Register)
	r.Post("/user/login/", authHandler.Login)
	r.Get("/seminar/", seminarHandler.ListSeminars)
	r.Get("/seminar/{id}/", seminarHandler.GetSeminar)

	// Защищенные эндпоинты (требуют JWT токен в заголовке Authorization)
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)

		// Эндпоинты пользователей
		r.Get("/user/{id}/", userHandler.GetUser)
		r.Put("/user/me/", userHandler.UpdateMe)

		// Эндпоинты семинаров
		r.Post("/seminar/", seminarHandler.CreateSeminar)
		r.Put("/seminar/{id}/", seminarHandler.UpdateSeminar)
		r.Post("/seminar/{id}/user/", seminarHandler.JoinSeminar)
		r.Delete("/seminar/{id}/user/", seminarHandler.DropSeminar)
	})

	return r
}

// Handler возвращает корневой HTTP обработчик (используется в тестах)
func (a *App) Handler() http.Handler {
	return a.server.Handler
}

// Run запускает HTTP сервер
func (a *App) Run() error {
	a.logger.Info("Starting HTTP server", "addr", a.server.Addr)
	return a.server.ListenAndServe()
}

// Shutdown корректно останавливает приложение
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("Shutting down application")

	// Останавливаем HTTP сервер (ждем завершения текущих запросов)
	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	// Закрываем подключения к базе данных
	if a.db != nil {
		a.db.Close()
	}

	a.logger.Info("Application stopped gracefully")
	return nil
}
