package common

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/fieldcrew-backend/internal/dto"
	"github.com/ignatzorin/fieldcrew-backend/internal/http/middleware"
	"github.com/ignatzorin/fieldcrew-backend/internal/logger"
	"github.com/ignatzorin/fieldcrew-backend/internal/pkg/apperror"
	"github.com/ignatzorin/fieldcrew-backend/internal/service"
)

var (
	// ErrAdminNotFound is returned when admin claims are not found in context
	ErrAdminNotFound = errors.New("администратор не найден в контексте")

	// ErrInvalidUUID is returned when UUID parsing fails
	ErrInvalidUUID = errors.New("неверный формат UUID")
)

// CurrentAdmin extracts admin claims from Gin context
func CurrentAdmin(c *gin.Context) (service.AdminClaims, error) {
	raw, exists := c.Get(middleware.ContextAdminKey)
	if !exists {
		return service.AdminClaims{}, ErrAdminNotFound
	}

	claims, ok := raw.(service.AdminClaims)
	if !ok {
		return service.AdminClaims{}, ErrAdminNotFound
	}

	return claims, nil
}

// DocumentGrant returns the document access token sent by the caller, if any
func DocumentGrant(c *gin.Context) string {
	return c.GetString(middleware.ContextGrantKey)
}

// ParseUUIDParam parses UUID from URL parameter
func ParseUUIDParam(c *gin.Context, paramName string) (uuid.UUID, error) {
	param := c.Param(paramName)
	if param == "" {
		return uuid.Nil, fmt.Errorf("параметр %s отсутствует", paramName)
	}

	parsed, err := uuid.Parse(param)
	if err != nil {
		return uuid.Nil, ErrInvalidUUID
	}

	return parsed, nil
}

// BindAndValidate binds JSON request and returns a validation AppError
func BindAndValidate(c *gin.Context, req interface{}) error {
	if err := c.ShouldBindJSON(req); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeValidation, "Invalid request body.")
	}
	return nil
}

// RespondError sends {ok: false, message}. Internal causes are logged and never sent to the client
func RespondError(c *gin.Context, err error) {
	appErr := apperror.From(err)

	entry := logger.Log.WithFields(logrus.Fields{
		"path":   c.FullPath(),
		"method": c.Request.Method,
		"code":   appErr.Code,
	})
	if appErr.Cause != nil {
		entry = entry.WithError(appErr.Cause)
	}
	if appErr.Code == apperror.ErrCodeInternal {
		entry.Error("внутренняя ошибка обработки запроса")
	} else {
		entry.Debug("запрос отклонён")
	}

	c.JSON(appErr.HTTPStatus, dto.ErrorResponse{OK: false, Message: appErr.Message})
}

// RespondOK sends {ok: true}
func RespondOK(c *gin.Context) {
	c.JSON(http.StatusOK, dto.OKResponse{OK: true})
}

// RespondJSON sends a JSON response with the given status code and data
func RespondJSON(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, data)
}

// RespondBadRequest sends a 400 response with the given message
func RespondBadRequest(c *gin.Context, message string) {
	if message == "" {
		message = "Invalid request."
	}
	RespondError(c, apperror.New(apperror.ErrCodeValidation, message))
}
