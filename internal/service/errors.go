package service

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound - запрошенная сущность не существует
	ErrNotFound = errors.New("not found")
	// ErrConflict - операция нарушает уникальность
	ErrConflict = errors.New("conflict")
	// ErrInvalid - входные данные не прошли проверку
	ErrInvalid = errors.New("invalid input")
)

// Error несет сообщение для клиента и категорию ошибки
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Invalid возвращает ошибку проверки входных данных с сообщением для клиента
func Invalid(format string, args ...any) error {
	return newError(ErrInvalid, format, args...)
}
