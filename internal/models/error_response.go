package models

import (
	"fmt"
	"net/http"
	"strings"
)

type ErrorKind string // Класс ошибки

const (
	ValidationErrorKind   ErrorKind = "ValidationError"
	InvalidStateKind      ErrorKind = "InvalidState"
	InvalidTransitionKind ErrorKind = "InvalidTransition"
	ForbiddenKind         ErrorKind = "Forbidden"
	NotFoundKind          ErrorKind = "NotFound"
	UnauthorizedKind      ErrorKind = "Unauthorized"
)

// ErrorResponse описывает ожидаемую ошибку с кодом, сообщением и деталями по полям.
type ErrorResponse struct {
	Kind       ErrorKind      `json:"-"`
	StatusCode int            `json:"-"`
	Message    string         `json:"message"`
	Errors     map[string]any `json:"errors"`
}

// NewErrorResponse создает новую ошибку с кодом и сообщением.
func NewErrorResponse(statusCode int, message string) *ErrorResponse {
	return &ErrorResponse{
		Kind:       kindForStatus(statusCode),
		StatusCode: statusCode,
		Message:    message,
		Errors:     map[string]any{"detail": message},
	}
}

// Реализация метода Error() для удовлетворения интерфейса error.
func (e *ErrorResponse) Error() string {
	return e.Message
}

// Is сравнивает ошибки по классу, чтобы работал errors.Is(err, models.ErrForbidden).
func (e *ErrorResponse) Is(target error) bool {
	t, ok := target.(*ErrorResponse)
	if !ok {
		return false
	}
	return t.Message == "" && t.Kind == e.Kind
}

// Эталоны для errors.Is.
var (
	ErrValidation        = &ErrorResponse{Kind: ValidationErrorKind}
	ErrInvalidState      = &ErrorResponse{Kind: InvalidStateKind}
	ErrInvalidTransition = &ErrorResponse{Kind: InvalidTransitionKind}
	ErrForbidden         = &ErrorResponse{Kind: ForbiddenKind}
	ErrNotFound          = &ErrorResponse{Kind: NotFoundKind}
	ErrUnauthorized      = &ErrorResponse{Kind: UnauthorizedKind}
)

// NewValidationError - ошибка входных данных для конкретного поля.
func NewValidationError(field, message string) *ErrorResponse {
	return &ErrorResponse{
		Kind:       ValidationErrorKind,
		StatusCode: http.StatusBadRequest,
		Message:    "Validation error.",
		Errors:     map[string]any{field: []string{message}},
	}
}

// NewFieldErrors - ошибка входных данных по нескольким полям.
func NewFieldErrors(fields map[string]string) *ErrorResponse {
	errs := make(map[string]any, len(fields))
	for k, v := range fields {
		errs[k] = []string{v}
	}
	return &ErrorResponse{
		Kind:       ValidationErrorKind,
		StatusCode: http.StatusBadRequest,
		Message:    "Validation error.",
		Errors:     errs,
	}
}

// NewInvalidState - операция недопустима в текущем состоянии.
func NewInvalidState(message string) *ErrorResponse {
	return &ErrorResponse{
		Kind:       InvalidStateKind,
		StatusCode: http.StatusBadRequest,
		Message:    message,
		Errors:     map[string]any{"detail": message},
	}
}

// NewInvalidTransition - запрошенный переход отсутствует в таблице, сообщение перечисляет допустимые.
func NewInvalidTransition[S ~string](from, to S, allowed []S) *ErrorResponse {
	names := make([]string, len(allowed))
	for i, a := range allowed {
		names[i] = string(a)
	}
	allowedText := "none (terminal state)"
	if len(names) > 0 {
		allowedText = strings.Join(names, ", ")
	}
	message := fmt.Sprintf("Cannot transition from %s to %s. Allowed transitions: %s.", from, to, allowedText)
	return &ErrorResponse{
		Kind:       InvalidTransitionKind,
		StatusCode: http.StatusBadRequest,
		Message:    message,
		Errors:     map[string]any{"status": []string{message}, "allowed": names},
	}
}

// NewForbidden - пользователь не имеет прав на ресурс.
func NewForbidden(message string) *ErrorResponse {
	return &ErrorResponse{
		Kind:       ForbiddenKind,
		StatusCode: http.StatusForbidden,
		Message:    message,
		Errors:     map[string]any{"detail": message},
	}
}

// NewNotFound - объект не найден или не виден пользователю.
func NewNotFound(message string) *ErrorResponse {
	return &ErrorResponse{
		Kind:       NotFoundKind,
		StatusCode: http.StatusNotFound,
		Message:    message,
		Errors:     map[string]any{"detail": message},
	}
}

// NewUnauthorized - пользователь не аутентифицирован.
func NewUnauthorized(message string) *ErrorResponse {
	return &ErrorResponse{
		Kind:       UnauthorizedKind,
		StatusCode: http.StatusUnauthorized,
		Message:    message,
		Errors:     map[string]any{"detail": message},
	}
}

func kindForStatus(statusCode int) ErrorKind {
	switch statusCode {
	case http.StatusForbidden:
		return ForbiddenKind
	case http.StatusNotFound:
		return NotFoundKind
	case http.StatusUnauthorized:
		return UnauthorizedKind
	default:
		return ValidationErrorKind
	}
}
