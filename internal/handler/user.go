package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aidar/seminar-service/internal/domain"
	"github.com/aidar/seminar-service/internal/middleware"
)

// UserService операции с пользователями, которые использует обработчик
type UserService interface {
	Register(ctx context.Context, reg domain.Registration) (*domain.User, error)
	GetUser(ctx context.Context, userID int64) (*domain.User, error)
	UpdateMe(ctx context.Context, userID int64, patch domain.UserPatch) (*domain.User, error)
}

// TokenIssuer подписывает токен для пользователя
type TokenIssuer interface {
	IssueToken(user *domain.User) (string, error)
}

// UserHandler обрабатывает эндпоинты пользователей
type UserHandler struct {
	userService UserService
	tokens      TokenIssuer
}

// NewUserHandler создает новый UserHandler
func NewUserHandler(userService UserService, tokens TokenIssuer) *UserHandler {
	return &UserHandler{
		userService: userService,
		tokens:      tokens,
	}
}

// RegisterRequest представляет тело запроса на регистрацию
type RegisterRequest struct {
	Username   string `json:"username"`
	Email      string `json:"email"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Role       string `json:"role"`
	University string `json:"university"`
	Accepted   *bool  `json:"accepted"`
	Company    string `json:"company"`
	Year       *int   `json:"year"`
}

// RegisterResponse представляет ответ на регистрацию
type RegisterResponse struct {
	User  *domain.User `json:"user"`
	Token string       `json:"token"`
}

// UpdateMeRequest тело частичного обновления своего профиля
type UpdateMeRequest struct {
	Email      *string `json:"email"`
	FirstName  *string `json:"first_name"`
	LastName   *string `json:"last_name"`
	University *string `json:"university"`
	Company    *string `json:"company"`
	Year       *int    `json:"year"`
}

// Register обрабатывает POST /user/
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, r, "invalid request body")
		return
	}

	role, err := domain.ParseRole(req.Role)
	if err != nil {
		HandleError(w, r, err)
		return
	}

	reg := domain.Registration{
		Username:   req.Username,
		Email:      req.Email,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Role:       role,
		University: req.University,
		Accepted:   true, // Новые участники одобрены по умолчанию
		Company:    req.Company,
		Year:       req.Year,
	}
	if req.Accepted != nil {
		reg.Accepted = *req.Accepted
	}

	user, err := h.userService.Register(r.Context(), reg)
	if err != nil {
		HandleError(w, r, err)
		return
	}

	token, err := h.tokens.IssueToken(user)
	if err != nil {
		HandleError(w, r, err)
		return
	}

	RespondWithJSON(w, r, http.StatusCreated, RegisterResponse{User: user, Token: token})
}

// GetUser обрабатывает GET /user/{id}/, где id может быть "me"
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	var userID int64
	if chi.URLParam(r, "id") == "me" {
		userID = middleware.GetUserIDFromContext(r.Context())
	} else {
		id, ok := pathID(r, "id")
		if !ok {
			HandleError(w, r, domain.ErrUserNotFound)
			return
		}
		userID = id
	}

	user, err := h.userService.GetUser(r.Context(), userID)
	if err != nil {
		HandleError(w, r, err)
		return
	}

	RespondWithJSON(w, r, http.StatusOK, user)
}

// UpdateMe обрабатывает PUT /user/me/
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req UpdateMeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, r, "invalid request body")
		return
	}

	user, err := h.userService.UpdateMe(r.Context(), middleware.GetUserIDFromContext(r.Context()), domain.UserPatch{
		Email:      req.Email,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		University: req.University,
		Company:    req.Company,
		Year:       req.Year,
	})
	if err != nil {
		HandleError(w, r, err)
		return
	}

	RespondWithJSON(w, r, http.StatusOK, user)
}
