package models

import "net/http"

// ErrorResponse описывает ошибку с кодом и сообщением.
type ErrorResponse struct {
	StatusCode int    `json:"-"`
	Message    string `json:"reason"`
}

// NewErrorResponse создает новую ошибку с кодом и сообщением.
func NewErrorResponse(statusCode int, message string) *ErrorResponse {
	return &ErrorResponse{
		StatusCode: statusCode,
		Message:    message}
}

// NewAuthenticationError - пользователь не найден в справочнике.
func NewAuthenticationError(message string) *ErrorResponse {
	return NewErrorResponse(http.StatusUnauthorized, message)
}

// NewAuthorizationError - пользователь существует, но прав на сущность нет.
func NewAuthorizationError(message string) *ErrorResponse {
	return NewErrorResponse(http.StatusForbidden, message)
}

// NewNotFoundError - сущность или версия не существует.
// Также используется, когда сущность скрыта от пользователя: отсутствие
// и запрет доступа для вызывающего неразличимы.
func NewNotFoundError(message string) *ErrorResponse {
	return NewErrorResponse(http.StatusNotFound, message)
}

// NewInvalidStateError - операция недопустима в текущем статусе сущности.
func NewInvalidStateError(message string) *ErrorResponse {
	return NewErrorResponse(http.StatusBadRequest, message)
}

// NewConflictError - нарушение уникальности или гонка на счетчике версий.
func NewConflictError(message string) *ErrorResponse {
	return NewErrorResponse(http.StatusConflict, message)
}

// NewInternalError - ошибка хранилища или другая внутренняя ошибка.
func NewInternalError(message string) *ErrorResponse {
	return NewErrorResponse(http.StatusInternalServerError, message)
}

// Реализация метода Error() для удовлетворения интерфейса error.
func (e *ErrorResponse) Error() string {
	return e.Message
}
