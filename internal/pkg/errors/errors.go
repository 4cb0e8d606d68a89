package errors

import "errors"

// Общие ошибки приложения
var (
	// ErrNotFound используется, когда запись или ресурс не найдены.
	ErrNotFound = errors.New("record not found")

	// ErrUnauthorized используется для неверных учётных данных или токена.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrValidation используется для ошибок валидации входных данных.
	ErrValidation = errors.New("validation failed")

	// ErrConflict используется для конфликтов состояния (например, email уже активирован).
	ErrConflict = errors.New("resource state conflict")

	// ErrNotification используется, когда письмо не удалось отправить.
	// Операция, вызвавшая отправку, откатывается целиком.
	ErrNotification = errors.New("notification delivery failed")
)
