package models

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind классифицирует ошибки бизнес-логики.
type ErrorKind string

const (
	KindNotFound          ErrorKind = "not_found"          // Сущность не найдена
	KindInvalidTransition ErrorKind = "invalid_transition" // Нарушен запрет перехода статуса
	KindConflict          ErrorKind = "conflict"           // Нарушение уникальности или зависимостей
	KindUnauthorized      ErrorKind = "unauthorized"       // Недостаточно прав
	KindValidationFailed  ErrorKind = "validation_failed"  // Некорректные входные данные
)

// ErrorResponse описывает ошибку с кодом, видом и сообщением.
type ErrorResponse struct {
	StatusCode int       `json:"-"`
	Kind       ErrorKind `json:"-"`
	Message    string    `json:"reason"`
}

// Реализация метода Error() для удовлетворения интерфейса error.
func (e *ErrorResponse) Error() string {
	return e.Message
}

// NotFound сообщает об отсутствии сущности.
func NotFound(format string, args ...any) *ErrorResponse {
	return newKind(http.StatusNotFound, KindNotFound, format, args...)
}

// InvalidTransition сообщает о недопустимом переходе статуса.
func InvalidTransition(format string, args ...any) *ErrorResponse {
	return newKind(http.StatusConflict, KindInvalidTransition, format, args...)
}

// Conflict сообщает о нарушении уникальности или наличии зависимых записей.
func Conflict(format string, args ...any) *ErrorResponse {
	return newKind(http.StatusConflict, KindConflict, format, args...)
}

// Unauthorized сообщает, что у пользователя нет прав на действие.
func Unauthorized(format string, args ...any) *ErrorResponse {
	return newKind(http.StatusForbidden, KindUnauthorized, format, args...)
}

// Unauthenticated сообщает об отсутствии или невалидности токена.
func Unauthenticated(format string, args ...any) *ErrorResponse {
	return newKind(http.StatusUnauthorized, KindUnauthorized, format, args...)
}

// ValidationFailed сообщает о некорректных входных данных.
func ValidationFailed(format string, args ...any) *ErrorResponse {
	return newKind(http.StatusBadRequest, KindValidationFailed, format, args...)
}

// IsKind проверяет, что в цепочке ошибок есть ErrorResponse указанного вида.
func IsKind(err error, kind ErrorKind) bool {
	var errorResponse *ErrorResponse
	if errors.As(err, &errorResponse) {
		return errorResponse.Kind == kind
	}
	return false
}

func newKind(statusCode int, kind ErrorKind, format string, args ...any) *ErrorResponse {
	return &ErrorResponse{
		StatusCode: statusCode,
		Kind:       kind,
		Message:    fmt.Sprintf(format, args...),
	}
}
