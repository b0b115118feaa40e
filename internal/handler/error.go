package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/aidar/seminar-service/internal/domain"
)

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail содержит код и описание ошибки
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RespondWithError отправляет ответ с ошибкой
func RespondWithError(w http.ResponseWriter, r *http.Request, statusCode int, code, message string) {
	render.Status(r, statusCode)
	render.JSON(w, r, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// StatusForKind возвращает HTTP статус для вида доменной ошибки
func StatusForKind(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindInvalidArgument, domain.KindConflict:
		// Нарушение бизнес-правила отдаем как 400, как и ошибки валидации
		return http.StatusBadRequest
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// HandleError преобразует доменные ошибки в HTTP ответы
func HandleError(w http.ResponseWriter, r *http.Request, err error) {
	var de *domain.Error
	if !errors.As(err, &de) {
		// Детали внутренних ошибок наружу не отдаем
		slog.ErrorContext(r.Context(), "Unhandled error",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		RespondWithError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		return
	}

	// Клиент видит только сообщение доменной ошибки, без обернутых причин
	RespondWithError(w, r, StatusForKind(de.Kind), string(de.Code), de.Message)
}

// respondBadRequest отвечает 400 с кодом INVALID_ARGUMENT
func respondBadRequest(w http.ResponseWriter, r *http.Request, message string) {
	RespondWithError(w, r, http.StatusBadRequest, string(domain.CodeInvalidArgument), message)
}
