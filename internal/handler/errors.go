package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "github.com/yourusername/todo-api/internal/pkg/errors"
	"github.com/yourusername/todo-api/internal/service"
)

// errorMapping связывает sentinel ошибку с HTTP статусом и error_type
type errorMapping struct {
	target  error
	status  int
	errType string
	message string
}

// Порядок важен: более специфичные ошибки раньше общих.
var errorMappings = []errorMapping{
	{service.ErrAccountNotActivated, http.StatusUnauthorized, "account_not_activated", "Account not activated. Please verify your email first."},
	{service.ErrInvalidOrExpiredOTP, http.StatusBadRequest, "invalid_or_expired_otp", "Invalid or expired OTP code."},
	{service.ErrAlreadyActivated, http.StatusBadRequest, "already_activated", "Account is already activated."},
	{apperrors.ErrValidation, http.StatusUnprocessableEntity, "validation_error", "The given data was invalid."},
	{apperrors.ErrConflict, http.StatusConflict, "conflict", "Email already registered and activated."},
	{apperrors.ErrNotFound, http.StatusNotFound, "not_found", "Not found."},
	{apperrors.ErrUnauthorized, http.StatusUnauthorized, "invalid_credentials", "Invalid credentials."},
	{apperrors.ErrNotification, http.StatusInternalServerError, "notification_failed", "Failed to send the activation email. Please try again."},
}

// respondError пишет JSON ошибку по единой таблице соответствий.
// Подробности неизвестных ошибок только в логе.
func respondError(c *gin.Context, log *zap.Logger, err error) {
	for _, m := range errorMappings {
		if !errors.Is(err, m.target) {
			continue
		}
		body := gin.H{"error": m.message, "error_type": m.errType}
		if m.target == apperrors.ErrValidation {
			if d := errorDetail(err, m.target); d != "" {
				body["details"] = d
			}
		}
		if m.status >= http.StatusInternalServerError {
			log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		}
		c.AbortWithStatusJSON(m.status, body)
		return
	}

	log.Error("unexpected error", zap.String("method", c.Request.Method), zap.String("path", c.FullPath()), zap.Error(err))
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
		"error":      "Server Error",
		"error_type": "internal_server_error",
	})
}

// badRequestBody отвечает 422 на тело, которое не удалось разобрать
func badRequestBody(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{
		"error":      "The given data was invalid.",
		"error_type": "validation_error",
		"details":    "malformed request body",
	})
	_ = c.Error(err)
}

// errorDetail возвращает текст после "<sentinel>: "
func errorDetail(err, sentinel error) string {
	msg := err.Error()
	if i := strings.Index(msg, sentinel.Error()+": "); i >= 0 {
		return msg[i+len(sentinel.Error())+2:]
	}
	return ""
}
