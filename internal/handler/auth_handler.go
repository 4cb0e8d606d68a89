package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/todo-api/internal/handler/dto"
	"github.com/yourusername/todo-api/internal/middleware"
	"github.com/yourusername/todo-api/internal/service"
)

// AuthHandler обрабатывает регистрацию, активацию по OTP и сессии
type AuthHandler struct {
	authService *service.AuthService
	log         *zap.Logger
}

// NewAuthHandler создает новый обработчик аутентификации
func NewAuthHandler(authService *service.AuthService, log *zap.Logger) *AuthHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthHandler{authService: authService, log: log}
}

// VerifyOTPRequest запрос на активацию аккаунта
type VerifyOTPRequest struct {
	Email   string `json:"email"`
	OTPCode string `json:"otp_code"`
}

// LoginRequest запрос на вход
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// EmailRequest запрос, содержащий только email
type EmailRequest struct {
	Email string `json:"email"`
}

// Register обрабатывает POST /api/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req service.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequestBody(c, err)
		return
	}

	res, err := h.authService.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, res)
}

// VerifyOTP обрабатывает POST /api/verify-otp
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequestBody(c, err)
		return
	}

	user, err := h.authService.VerifyOTP(c.Request.Context(), req.Email, req.OTPCode)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Account activated successfully. You can now log in.",
		"user":    dto.NewUserProfile(user),
	})
}

// Login обрабатывает POST /api/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequestBody(c, err)
		return
	}

	res, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.LoginResponse{
		Token:     res.Token,
		TokenType: res.TokenType,
		ExpiresAt: res.ExpiresAt,
		User:      dto.NewUserProfile(res.User),
	})
}

// ResendOTP обрабатывает POST /api/resend-otp
func (h *AuthHandler) ResendOTP(c *gin.Context) {
	var req EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequestBody(c, err)
		return
	}

	if err := h.authService.ResendOTP(c.Request.Context(), req.Email); err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "A new activation code has been sent to your email."})
}

// Logout отзывает текущий токен
func (h *AuthHandler) Logout(c *gin.Context) {
	userID, _ := middleware.UserIDFromContext(c)
	if err := h.authService.Logout(c.Request.Context(), userID, middleware.JTIFromContext(c)); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully."})
}

// Me возвращает профиль текущего пользователя
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthenticated.", "error_type": "token_missing"})
		return
	}

	user, err := h.authService.Me(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": dto.NewUserProfile(user)})
}
