package errors

import "errors"

// Общие ошибки приложения
var (
	// ErrNotFound используется, когда комната или участник не найдены.
	ErrNotFound = errors.New("record not found")

	// ErrUnauthorized используется при несовпадении секрета ведущего.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidState используется для недопустимых переходов состояния комнаты
	// (например, повторный запуск таймера в активной комнате или advance завершенной викторины).
	ErrInvalidState = errors.New("invalid room state")

	// ErrValidation используется для ошибок валидации входных данных.
	ErrValidation = errors.New("validation failed")

	// ErrConflict используется для конфликтов состояния (например, повторное создание комнаты с тем же кодом).
	ErrConflict = errors.New("resource state conflict")

	// ErrOracleUnavailable сигнализирует о недоступности сервиса семантического сходства.
	// Эта ошибка никогда не доходит до клиента: валидатор откатывается на fuzzy-сравнение.
	ErrOracleUnavailable = errors.New("similarity oracle unavailable")
)
