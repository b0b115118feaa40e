package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/aidar/seminar-service/internal/domain"
	"github.com/aidar/seminar-service/internal/middleware"
)

// SeminarService операции движка записи, которые использует обработчик
type SeminarService interface {
	CreateSeminar(ctx context.Context, requesterID int64, in domain.SeminarInput) (*domain.SeminarDetail, error)
	UpdateSeminar(ctx context.Context, requesterID, seminarID int64, patch domain.SeminarPatch) (*domain.SeminarDetail, error)
	ListSeminars(ctx context.Context, filter domain.SeminarFilter) ([]*domain.SeminarSummary, error)
	GetSeminar(ctx context.Context, seminarID int64) (*domain.SeminarDetail, error)
	JoinSeminar(ctx context.Context, requesterID, seminarID int64, role string) (*domain.SeminarDetail, error)
	DropSeminar(ctx context.Context, requesterID, seminarID int64) (*domain.SeminarDetail, error)
}

// SeminarHandler обрабатывает эндпоинты семинаров
type SeminarHandler struct {
	seminarService SeminarService
}

// NewSeminarHandler создает новый SeminarHandler
func NewSeminarHandler(seminarService SeminarService) *SeminarHandler {
	return &SeminarHandler{
		seminarService: seminarService,
	}
}

// SeminarRequest тело запроса на создание и изменение семинара.
// Указатели позволяют отличить отсутствующее поле от нулевого значения.
type SeminarRequest struct {
	Name     *string `json:"name"`
	Capacity *int    `json:"capacity"`
	Count    *int    `json:"count"`
	Time     *string `json:"time"`
	Online   *bool   `json:"online"`
}

func (req SeminarRequest) toInput() (domain.SeminarInput, error) {
	switch {
	case req.Name == nil:
		return domain.SeminarInput{}, domain.InvalidArgument("name is required")
	case req.Capacity == nil:
		return domain.SeminarInput{}, domain.InvalidArgument("capacity is required")
	case req.Count == nil:
		return domain.SeminarInput{}, domain.InvalidArgument("count is required")
	case req.Time == nil:
		return domain.SeminarInput{}, domain.InvalidArgument("time is required")
	}

	in := domain.SeminarInput{
		Name:     *req.Name,
		Capacity: *req.Capacity,
		Count:    *req.Count,
		Time:     *req.Time,
		Online:   true, // По умолчанию семинар онлайн
	}
	if req.Online != nil {
		in.Online = *req.Online
	}
	return in, nil
}

func (req SeminarRequest) toPatch() domain.SeminarPatch {
	return domain.SeminarPatch{
		Name:     req.Name,
		Capacity: req.Capacity,
		Count:    req.Count,
		Time:     req.Time,
		Online:   req.Online,
	}
}

// JoinRequest тело запроса на запись в семинар
type JoinRequest struct {
	Role string `json:"role"`
}

// CreateSeminar обрабатывает POST /seminar/
func (h *SeminarHandler) CreateSeminar(w http.ResponseWriter, r *http.Request) {
	// Участника отсекаем по роли из токена
	if role := middleware.GetRoleFromContext(r.Context()); role != "" && role != domain.RoleInstructor {
		HandleError(w, r, domain.ErrNotInstructor)
		return
	}

	var req SeminarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, r, "invalid request body")
		return
	}

	in, err := req.toInput()
	if err != nil {
		HandleError(w, r, err)
		return
	}

	seminar, err := h.seminarService.CreateSeminar(r.Context(), middleware.GetUserIDFromContext(r.Context()), in)
	if err != nil {
		HandleError(w, r, err)
		return
	}

	RespondWithJSON(w, r, http.StatusCreated, seminar)
}

// UpdateSeminar обрабатывает PUT /seminar/{id}/
func (h *SeminarHandler) UpdateSeminar(w http.ResponseWriter, r *http.Request) {
	seminarID, ok := pathID(r, "id")
	if !ok {
		HandleError(w, r, domain.ErrSeminarNotFound)
		return
	}

	var req SeminarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, r, "invalid request body")
		return
	}

	seminar, err := h.seminarService.UpdateSeminar(r.Context(), middleware.GetUserIDFromContext(r.Context()), seminarID, req.toPatch())
	if err != nil {
		HandleError(w, r, err)
		return
	}

	RespondWithJSON(w, r, http.StatusOK, seminar)
}

// ListSeminars обрабатывает GET /seminar/?name=...&order=earliest
func (h *SeminarHandler) ListSeminars(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := domain.SeminarFilter{
		Name: query.Get("name"),
	}
	// Неизвестный порядок молча игнорируем
	if domain.SeminarOrder(query.Get("order")) == domain.OrderEarliest {
		filter.Order = domain.OrderEarliest
	}

	seminars, err := h.seminarService.ListSeminars(r.Context(), filter)
	if err != nil {
		HandleError(w, r, err)
		return
	}

	RespondWithJSON(w, r, http.StatusOK, seminars)
}

// GetSeminar обрабатывает GET /seminar/{id}/
func (h *SeminarHandler) GetSeminar(w http.ResponseWriter, r *http.Request) {
	seminarID, ok := pathID(r, "id")
	if !ok {
		HandleError(w, r, domain.ErrSeminarNotFound)
		return
	}

	seminar, err := h.seminarService.GetSeminar(r.Context(), seminarID)
	if err != nil {
		HandleError(w, r, err)
		return
	}

	RespondWithJSON(w, r, http.StatusOK, seminar)
}

// JoinSeminar обрабатывает POST /seminar/{id}/user/
func (h *SeminarHandler) JoinSeminar(w http.ResponseWriter, r *http.Request) {
	seminarID, ok := pathID(r, "id")
	if !ok {
		HandleError(w, r, domain.ErrSeminarNotFound)
		return
	}

	var req JoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, r, "invalid request body")
		return
	}

	seminar, err := h.seminarService.JoinSeminar(r.Context(), middleware.GetUserIDFromContext(r.Context()), seminarID, req.Role)
	if err != nil {
		HandleError(w, r, err)
		return
	}

	RespondWithJSON(w, r, http.StatusCreated, seminar)
}

// DropSeminar обрабатывает DELETE /seminar/{id}/user/
func (h *SeminarHandler) DropSeminar(w http.ResponseWriter, r *http.Request) {
	seminarID, ok := pathID(r, "id")
	if !ok {
		HandleError(w, r, domain.ErrSeminarNotFound)
		return
	}

	seminar, err := h.seminarService.DropSeminar(r.Context(), middleware.GetUserIDFromContext(r.Context()), seminarID)
	if err != nil {
		HandleError(w, r, err)
		return
	}

	RespondWithJSON(w, r, http.StatusOK, seminar)
}
