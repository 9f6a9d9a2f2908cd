package service

import (
	"errors"
	"fmt"
	"time"
)

const (
	CodeNotFound         = "NOT_FOUND"
	CodePermissionDenied = "PERMISSION_DENIED"
	CodeValidation       = "VALIDATION_ERROR"
	CodeAlreadyCompleted = "ALREADY_COMPLETED"
)

type BusinessError struct {
	Code    string
	Message string
	Details map[string]any
	Err     error
}

type Detail struct {
	Key     string
	Payload any
}

func (b *BusinessError) Error() string {
	if b.Err != nil {
		return fmt.Sprintf("[%s] %s: %s", b.Code, b.Message, b.Err.Error())
	}
	return fmt.Sprintf("[%s] %s", b.Code, b.Message)
}

func (b *BusinessError) Unwrap() error {
	return b.Err
}

func ToDetail(key string, payload any) Detail {
	return Detail{
		Key:     key,
		Payload: payload,
	}
}

func NewBusinessError(code string, message string, details ...Detail) *BusinessError {
	busErr := &BusinessError{
		Code:    code,
		Message: message,
		Details: make(map[string]any),
	}

	for _, detail := range details {
		busErr.Details[detail.Key] = detail.Payload
	}

	return busErr
}

func NewNotFound(resource string, id string) *BusinessError {
	return NewBusinessError(CodeNotFound,
		fmt.Sprintf("%s %s не найден(а)", resource, id),
		ToDetail("resource", resource),
		ToDetail("id", id),
	)
}

func NewValidationError(field, reason string) *BusinessError {
	return NewBusinessError(CodeValidation,
		fmt.Sprintf("Неверное значение поля '%s': %s", field, reason),
		ToDetail("field", field),
		ToDetail("reason", reason),
	)
}

func NewPermissionDenied(action, reason string) *BusinessError {
	return NewBusinessError(CodePermissionDenied,
		fmt.Sprintf("Нет прав на операцию '%s': %s", action, reason),
		ToDetail("action", action),
	)
}

func NewAlreadyCompleted(assignmentID string, start, end time.Time) *BusinessError {
	return NewBusinessError(CodeAlreadyCompleted,
		"Назначение уже выполнено за текущий период",
		ToDetail("assignment_id", assignmentID),
		ToDetail("period_start", start),
		ToDetail("period_end", end),
	)
}

// IsCode проверяет, что в цепочке ошибок есть BusinessError с указанным кодом
func IsCode(err error, code string) bool {
	var busErr *BusinessError
	if errors.As(err, &busErr) {
		return busErr.Code == code
	}
	return false
}
