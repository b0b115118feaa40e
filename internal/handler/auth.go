package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/aidar/seminar-service/internal/domain"
)

// Authenticator выдает токены по username
type Authenticator interface {
	Login(ctx context.Context, username string) (string, *domain.User, error)
}

// AuthHandler обрабатывает эндпоинты аутентификации
type AuthHandler struct {
	authService Authenticator
}

// NewAuthHandler создает новый AuthHandler
func NewAuthHandler(authService Authenticator) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// LoginRequest представляет тело запроса на логин
type LoginRequest struct {
	Username string `json:"username"`
}

// LoginResponse представляет тело ответа на логин
type LoginResponse struct {
	Token string `json:"token"`
}

// Login обрабатывает POST /user/login/
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, r, "invalid request body")
		return
	}

	if req.Username == "" {
		respondBadRequest(w, r, "username is required")
		return
	}

	token, _, err := h.authService.Login(r.Context(), req.Username)
	if err != nil {
		// Не раскрываем, существует ли пользователь
		if kind, ok := domain.KindOf(err); ok && kind == domain.KindNotFound {
			err = domain.ErrUnauthorized
		}
		HandleError(w, r, err)
		return
	}

	RespondWithJSON(w, r, http.StatusOK, LoginResponse{Token: token})
}
