package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yourusername/todo-api/internal/domain/entity"
)

const defaultIssuer = "todo-api"

var (
	ErrTokenMalformed = errors.New("token is malformed")
	ErrTokenExpired   = errors.New("token is expired")
	ErrTokenInvalid   = errors.New("token is invalid")
)

// JWTCustomClaims содержит пользовательские поля для токена
type JWTCustomClaims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// IssuedToken описывает только что подписанный токен
type IssuedToken struct {
	Token     string
	JTI       string
	ExpiresAt time.Time
}

// JWTService подписывает и проверяет HS256 токены доступа
type JWTService struct {
	secret []byte
	issuer string
	ttl    time.Duration
	log    *zap.Logger
	now    func() time.Time
}

// NewJWTService создает сервис JWT; expirationHrs <= 0 означает 24 часа
func NewJWTService(secret, issuer string, expirationHrs int, log *zap.Logger) (*JWTService, error) {
	if secret == "" {
		return nil, fmt.Errorf("JWT secret is required")
	}
	if issuer == "" {
		issuer = defaultIssuer
	}
	if expirationHrs <= 0 {
		expirationHrs = 24
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &JWTService{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    time.Duration(expirationHrs) * time.Hour,
		log:    log,
		now:    time.Now,
	}, nil
}

// TTL возвращает срок жизни выдаваемых токенов
func (s *JWTService) TTL() time.Duration { return s.ttl }

// GenerateToken создает новый токен со случайным jti
func (s *JWTService) GenerateToken(user *entity.User) (*IssuedToken, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)
	jti := uuid.NewString()

	claims := &JWTCustomClaims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Subject:   fmt.Sprintf("%d", user.ID),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		s.log.Error("failed to sign token", zap.Uint("user_id", user.ID), zap.Error(err))
		return nil, err
	}

	return &IssuedToken{Token: signed, JTI: jti, ExpiresAt: expiresAt}, nil
}

// ParseToken проверяет подпись, срок действия и издателя токена
func (s *JWTService) ParseToken(tokenString string) (*JWTCustomClaims, error) {
	claims := &JWTCustomClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		var ve *jwt.ValidationError
		if errors.As(err, &ve) {
			switch {
			case ve.Errors&jwt.ValidationErrorMalformed != 0:
				return nil, ErrTokenMalformed
			case ve.Errors&jwt.ValidationErrorExpired != 0:
				return nil, ErrTokenExpired
			}
		}
		s.log.Debug("token validation failed", zap.Error(err))
		return nil, ErrTokenInvalid
	}

	if !token.Valid || claims.ID == "" || claims.UserID == 0 || claims.Issuer != s.issuer {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
