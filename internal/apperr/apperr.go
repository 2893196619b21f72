package apperr

import (
	"errors"
	"net/http"
)

type Code string

const (
	CodeUnauthorized   Code = "UNAUTHORIZED"
	CodeForbidden      Code = "FORBIDDEN"
	CodeNotFound       Code = "NOT_FOUND"
	CodeQuotaExhausted Code = "QUOTA_EXHAUSTED"
	CodeInvalid        Code = "INVALID_ARGUMENT"
	CodeUnexpected     Code = "UNEXPECTED"
)

// HTTPStatus сопоставляет код с HTTP-статусом ответа.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeQuotaExhausted, CodeInvalid:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Error: доменная ошибка с машиночитаемым кодом.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Is сравнивает по коду, поэтому errors.Is(err, ErrNotFound) срабатывает
// и для обёрнутых экземпляров с другим текстом.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && e.Code == t.Code
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// Unexpected заворачивает ошибку хранилища/транспорта.
func Unexpected(message string, cause error) *Error {
	return Wrap(CodeUnexpected, message, cause)
}

// CodeOf возвращает код ошибки; всё, что не *Error, считается UNEXPECTED.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnexpected
}
