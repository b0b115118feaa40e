package app_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/aidar/seminar-service/internal/app"
	"github.com/aidar/seminar-service/internal/config"
)

const (
	testDBName     = "seminar_service_test"
	testDBUser     = "test_user"
	testDBPassword = "test_password"
)

// testEnvironment содержит ресурсы для интеграционных тестов
type testEnvironment struct {
	container *postgres.PostgresContainer
	app       *app.App
	server    *httptest.Server
	db        *pgxpool.Pool
}

// setupTestEnvironment поднимает PostgreSQL в контейнере и приложение поверх него
func setupTestEnvironment(t *testing.T) *testEnvironment {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase(testDBName),
		postgres.WithUsername(testDBUser),
		postgres.WithPassword(testDBPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")

	env := &testEnvironment{container: pgContainer}
	t.Cleanup(func() { env.cleanup() })

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)

	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	cfg := &config.Config{
		Server: config.ServerConfig{
			Host: "127.0.0.1",
			Port: "0",
		},
		Database: config.DatabaseConfig{
			Host:        host,
			Port:        port.Port(),
			User:        testDBUser,
			Password:    testDBPassword,
			Name:        testDBName,
			SSLMode:     "disable",
			MaxConns:    25,
			MinConns:    2,
			AutoMigrate: true,
		},
		JWT: config.JWTConfig{
			Secret:          "test-jwt-secret-key-for-integration-tests",
			ExpirationHours: 1,
		},
		Enrollment: config.EnrollmentConfig{
			RetryAttempts:  10,
			RetryBaseDelay: 5 * time.Millisecond,
		},
	}

	// Миграции применяются внутри Initialize
	env.app, err = app.New(cfg)
	require.NoError(t, err, "Failed to create application")
	require.NoError(t, env.app.Initialize(ctx), "Failed to initialize application")

	env.server = httptest.NewServer(env.app.Handler())

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	env.db, err = pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	return env
}

func (te *testEnvironment) cleanup() {
	if te.server != nil {
		te.server.Close()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if te.app != nil {
		// Сервер приложения не запускался, закрываем только пул
		_ = te.app.Shutdown(shutdownCtx)
	}
	if te.db != nil {
		te.db.Close()
	}
	if te.container != nil {
		_ = te.container.Terminate(context.Background())
	}
}

// do выполняет запрос и декодирует JSON ответ в out (если out не nil)
func (te *testEnvironment) do(t *testing.T, method, path string, body any, token string, out any) int {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, te.server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := te.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

type registeredUser struct {
	ID    int64
	Token string
}

// register создает пользователя с заданной ролью и возвращает его токен
func (te *testEnvironment) register(t *testing.T, username, role string) registeredUser {
	t.Helper()

	var resp struct {
		User struct {
			ID int64 `json:"id"`
		} `json:"user"`
		Token string `json:"token"`
	}
	status := te.do(t, http.MethodPost, "/user/", map[string]any{
		"username": username,
		"email":    fmt.Sprintf("%s@example.com", username),
		"role":     role,
	}, "", &resp)
	require.Equal(t, http.StatusCreated, status, "register %s", username)
	require.NotEmpty(t, resp.Token)

	return registeredUser{ID: resp.User.ID, Token: resp.Token}
}
