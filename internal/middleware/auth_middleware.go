package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "github.com/yourusername/todo-api/internal/pkg/errors"
	"github.com/yourusername/todo-api/pkg/auth"
)

// Ключи контекста Gin, которые выставляет RequireAuth
const (
	ContextUserID = "user_id"
	ContextEmail  = "email"
	ContextJTI    = "jti"
)

// TokenAuthenticator проверяет bearer токен и возвращает его claims.
// Реализуется service.AuthService.
type TokenAuthenticator interface {
	Authenticate(ctx context.Context, token string) (*auth.JWTCustomClaims, error)
}

// AuthMiddleware обеспечивает аутентификацию для защищенных маршрутов
type AuthMiddleware struct {
	authenticator TokenAuthenticator
	log           *zap.Logger
}

// NewAuthMiddleware создает middleware поверх TokenAuthenticator
func NewAuthMiddleware(authenticator TokenAuthenticator, log *zap.Logger) *AuthMiddleware {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthMiddleware{authenticator: authenticator, log: log}
}

// RequireAuth пропускает запрос только с действующим токеном активной сессии
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, errType := bearerToken(c.GetHeader("Authorization"))
		if errType != "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthenticated.", "error_type": errType})
			return
		}

		claims, err := m.authenticator.Authenticate(c.Request.Context(), token)
		if err != nil {
			// сбой хранилища сессий не вина клиента
			if !errors.Is(err, apperrors.ErrUnauthorized) {
				m.log.Error("token check failed", zap.String("path", c.FullPath()), zap.Error(err))
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Server Error", "error_type": "internal_server_error"})
				return
			}
			m.log.Debug("token rejected", zap.String("path", c.FullPath()), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthenticated.", "error_type": "token_invalid"})
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextEmail, claims.Email)
		c.Set(ContextJTI, claims.ID)
		c.Next()
	}
}

// bearerToken достает токен из заголовка "Bearer <token>".
// Второе значение - error_type, пустой при успехе.
func bearerToken(header string) (string, string) {
	if header == "" {
		return "", "token_missing"
	}
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", "token_format"
	}
	return strings.TrimSpace(token), ""
}

// UserIDFromContext возвращает ID пользователя, выставленный RequireAuth
func UserIDFromContext(c *gin.Context) (uint, bool) {
	v, ok := c.Get(ContextUserID)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok && id != 0
}

// JTIFromContext возвращает jti текущего токена или пустую строку
func JTIFromContext(c *gin.Context) string {
	return c.GetString(ContextJTI)
}
