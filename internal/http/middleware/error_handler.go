package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/fieldcrew-backend/internal/logger"
	"github.com/ignatzorin/fieldcrew-backend/internal/pkg/apperror"
)

// ErrorHandler обрабатывает ошибки, оставленные хэндлерами в c.Errors.
// Внутренние ошибки маскируются, клиент получает только безопасное сообщение.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Проверяем, не был ли уже отправлен ответ
		if c.Writer.Written() || len(c.Errors) == 0 {
			return
		}

		appErr := apperror.From(c.Errors.Last().Err)

		entry := logger.Log.WithFields(logrus.Fields{
			"error":  c.Errors.Last().Error(),
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
			"code":   appErr.Code,
		})
		if appErr.Code == apperror.ErrCodeInternal {
			entry.Error("ошибка обработки запроса")
		} else {
			entry.Debug("запрос отклонён")
		}

		c.JSON(appErr.HTTPStatus, gin.H{"ok": false, "message": appErr.Message})
	}
}

// Recovery превращает panic в хэндлере во внутреннюю ошибку с общим сообщением.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.Log.WithFields(logrus.Fields{
			"panic":  recovered,
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		}).Error("panic в обработчике запроса")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"ok": false, "message": apperror.GenericMessage})
	})
}
