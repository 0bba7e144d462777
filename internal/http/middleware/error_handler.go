package middleware

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/servicehub-backend/internal/interface/http/response"
	"github.com/ignatzorin/servicehub-backend/internal/logger"
	"github.com/ignatzorin/servicehub-backend/internal/pkg/apperror"
)

// ErrorHandler обрабатывает ошибки, добавленные через c.Error, если ответ ещё не отправлен.
// Внутренние ошибки логируются, клиент получает только код и безопасное сообщение.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		fields := logrus.Fields{
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
			"code":   apperror.CodeOf(err),
		}
		entry := logger.Component("http").WithError(err).WithFields(fields)
		switch {
		case apperror.IsNotFound(err), apperror.IsValidation(err):
			entry.Debug("request error")
		case apperror.IsForbidden(err), apperror.IsConflict(err):
			// Чужая бронь или повторное действие стоит видеть в проде.
			entry.Warn("request error")
		case apperror.CodeOf(err) == apperror.ErrCodeInternal, apperror.CodeOf(err) == apperror.ErrCodeDatabaseError:
			entry.Error("request error")
		default:
			entry.Info("request error")
		}

		if c.Writer.Written() {
			return
		}
		response.Error(c, err)
	}
}

// Recovery перехватывает panic в обработчиках и отвечает 500.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Component("http").WithFields(logrus.Fields{
					"panic": r,
					"path":  c.Request.URL.Path,
					"stack": string(debug.Stack()),
				}).Error("handler panic recovered")

				if !c.Writer.Written() {
					c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
						Success: false,
						Error: &response.ErrorInfo{
							Code:    string(apperror.ErrCodeInternal),
							Message: "внутренняя ошибка сервера",
						},
					})
				}
			}
		}()
		c.Next()
	}
}

// RequestLogger пишет строку access-лога на каждый запрос.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Component("http").WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
			"ip":       c.ClientIP(),
		}).Info("request")
	}
}
