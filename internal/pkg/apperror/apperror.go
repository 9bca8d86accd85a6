package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden    ErrorCode = "FORBIDDEN"
	ErrCodeConflict     ErrorCode = "CONFLICT"
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation   ErrorCode = "VALIDATION_ERROR"
)

// GenericMessage отдаётся клиенту вместо текста внутренних ошибок.
const GenericMessage = "Something went wrong, please try again later."

// AppError - ошибка, которую можно безопасно показать вызывающей стороне.
// Cause хранит исходную ошибку только для логов.
type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is сравнивает ошибки по коду и сообщению, чтобы errors.Is работал с предопределёнными значениями.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code && t.Message == e.Message
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Cause:      err,
	}
}

// Internal оборачивает непредвиденную ошибку с общим сообщением.
func Internal(err error) *AppError {
	return Wrap(err, ErrCodeInternal, GenericMessage)
}

func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// From приводит любую ошибку к AppError; всё неизвестное считается внутренней ошибкой.
func From(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}

func IsNotFound(err error) bool {
	return hasCode(err, ErrCodeNotFound)
}

func IsForbidden(err error) bool {
	return hasCode(err, ErrCodeForbidden)
}

func IsValidation(err error) bool {
	return hasCode(err, ErrCodeValidation)
}

func hasCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

var (
	ErrDocumentNotFound  = New(ErrCodeNotFound, "This document does not exist!")
	ErrWorkerNotFound    = New(ErrCodeNotFound, "Worker not found.")
	ErrTemplateNotFound  = New(ErrCodeNotFound, "Template not found.")
	ErrAssetNotFound     = New(ErrCodeNotFound, "File not found.")
	ErrIncorrectPassword = New(ErrCodeForbidden, "Incorrect password!")
	ErrPhoneMismatch     = New(ErrCodeForbidden, "You do not the permission to view this document.")
	ErrInvalidOTP        = New(ErrCodeForbidden, "Invalid OTP.")
	ErrAccessRequired    = New(ErrCodeUnauthorized, "Access to this document has not been granted.")
	ErrAlreadySubmitted  = New(ErrCodeConflict, "This document has already been submitted!")
	ErrAssetInUse        = New(ErrCodeConflict, "This file is already attached to another document.")
	ErrNotRemoteDocument = New(ErrCodeValidation, "This document cannot be submitted remotely.")
	ErrUnauthorized      = New(ErrCodeUnauthorized, "Authorization required.")
)
