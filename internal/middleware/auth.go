package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/render"

	"github.com/aidar/seminar-service/internal/domain"
	"github.com/aidar/seminar-service/internal/service"
)

// ContextKey это кастомный тип для ключей контекста
type ContextKey string

const (
	// UserIDKey ключ контекста для ID пользователя
	UserIDKey ContextKey = "user_id"
	// RoleKey ключ контекста для роли пользователя
	RoleKey ContextKey = "role"
)

// TokenValidator проверяет JWT токен
type TokenValidator interface {
	ValidateToken(tokenString string) (*service.Claims, error)
}

// AuthMiddleware создает middleware для валидации JWT токенов
func AuthMiddleware(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Получаем токен из заголовка Authorization
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				unauthorized(w, r, "missing authorization header")
				return
			}

			// Проверяем формат Bearer
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				unauthorized(w, r, "invalid authorization header format")
				return
			}

			claims, err := validator.ValidateToken(parts[1])
			if err != nil {
				unauthorized(w, r, domain.ErrInvalidToken.Message)
				return
			}

			// Добавляем claims в контекст
			ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
			ctx = context.WithValue(ctx, RoleKey, claims.Role)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, r *http.Request, message string) {
	render.Status(r, http.StatusUnauthorized)
	render.JSON(w, r, map[string]any{
		"error": map[string]string{
			"code":    string(domain.CodeUnauthorized),
			"message": message,
		},
	})
}

// WithUserID кладет ID пользователя в контекст (используется в тестах обработчиков)
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// GetUserIDFromContext извлекает ID пользователя из контекста
func GetUserIDFromContext(ctx context.Context) int64 {
	userID, ok := ctx.Value(UserIDKey).(int64)
	if !ok {
		return 0
	}
	return userID
}

// GetRoleFromContext извлекает роль пользователя из контекста
func GetRoleFromContext(ctx context.Context) domain.Role {
	role, ok := ctx.Value(RoleKey).(domain.Role)
	if !ok {
		return ""
	}
	return role
}
