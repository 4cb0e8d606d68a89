package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/todo-api/internal/config"
	"github.com/yourusername/todo-api/internal/domain/entity"
	"github.com/yourusername/todo-api/internal/domain/repository"
	apperrors "github.com/yourusername/todo-api/internal/pkg/errors"
	"github.com/yourusername/todo-api/pkg/auth"
)

const registerMessage = "Registration successful. Check your email for the activation code."

// AuthService управляет регистрацией, активацией по OTP и сессиями
type AuthService struct {
	store    repository.Store
	mailer   Mailer
	jwt      *auth.JWTService
	sessions repository.SessionCache
	otp      config.OTPConfig
	log      *zap.Logger
	now      func() time.Time
}

// NewAuthService создает сервис аутентификации. sessions может быть nil,
// тогда активная сессия проверяется только по базе.
func NewAuthService(
	store repository.Store,
	mailer Mailer,
	jwtService *auth.JWTService,
	sessions repository.SessionCache,
	otpCfg config.OTPConfig,
	log *zap.Logger,
) (*AuthService, error) {
	if store == nil {
		return nil, fmt.Errorf("Store is required for AuthService")
	}
	if mailer == nil {
		return nil, fmt.Errorf("Mailer is required for AuthService")
	}
	if jwtService == nil {
		return nil, fmt.Errorf("JWTService is required for AuthService")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{
		store:    store,
		mailer:   mailer,
		jwt:      jwtService,
		sessions: sessions,
		otp:      otpCfg,
		log:      log,
		now:      time.Now,
	}, nil
}

// RegisterInput содержит данные регистрации
type RegisterInput struct {
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
	Company   string `json:"company" validate:"max=255"`
	Email     string `json:"email" validate:"required,email,max=255"`
	Password  string `json:"password" validate:"required,min=6,max=72"`
}

func (in *RegisterInput) normalize() {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Company = strings.TrimSpace(in.Company)
	in.Email = strings.TrimSpace(in.Email)
}

// RegisterResult возвращается после успешной отправки кода
type RegisterResult struct {
	Message string `json:"message"`
	Email   string `json:"email"`
}

type verifyOTPInput struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"otp_code" validate:"required,len=6"`
}

type loginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type emailInput struct {
	Email string `json:"email" validate:"required,email"`
}

// LoginResult содержит выданный токен и профиль
type LoginResult struct {
	Token     string       `json:"token"`
	TokenType string       `json:"token_type"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *entity.User `json:"user"`
}

// Register создает (или перезаписывает неактивированного) пользователя и отправляет OTP.
// Ошибка отправки письма откатывает все изменения.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	in.normalize()
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	existing, err := s.store.Users().GetByEmail(ctx, in.Email)
	switch {
	case err == nil && existing.IsActivated:
		return nil, fmt.Errorf("%w: email is already registered", apperrors.ErrConflict)
	case err != nil && !errors.Is(err, apperrors.ErrNotFound):
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	user := &entity.User{
		Email:     in.Email,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Company:   in.Company,
	}
	if err := user.SetPassword(in.Password); err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	err = s.store.Do(ctx, func(tx repository.Store) error {
		now := s.now()
		if _, err := tx.OTPChallenges().DeleteExpired(ctx, now); err != nil {
			return err
		}
		if err := tx.Users().UpsertPending(ctx, user); err != nil {
			return err
		}
		return s.issueOTP(ctx, tx, user, now)
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrNotification) {
			s.log.Warn("registration rolled back: otp email not delivered",
				zap.String("email", in.Email), zap.Error(err))
		}
		return nil, err
	}

	s.log.Info("user registered, otp sent", zap.Uint("user_id", user.ID))
	return &RegisterResult{Message: registerMessage, Email: user.Email}, nil
}

// issueOTP заменяет неподтверждённые коды пользователя новым и отправляет письмо.
// Вызывается внутри транзакции; ошибка письма возвращается как ErrNotification.
func (s *AuthService) issueOTP(ctx context.Context, tx repository.Store, user *entity.User, now time.Time) error {
	if _, err := tx.OTPChallenges().DeleteUnverifiedByUserID(ctx, user.ID); err != nil {
		return err
	}

	code, err := generateOTP(s.otp.Min, s.otp.Max)
	if err != nil {
		return err
	}

	challenge := entity.NewOTPChallenge(user.ID, code, now, s.otp.TTL())
	if err := tx.OTPChallenges().Create(ctx, challenge); err != nil {
		return fmt.Errorf("failed to create otp challenge: %w", err)
	}

	if err := s.mailer.SendOTP(ctx, user.Email, code, user.DisplayName()); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrNotification, err)
	}
	return nil
}

// VerifyOTP активирует аккаунт по верному и неистекшему коду
func (s *AuthService) VerifyOTP(ctx context.Context, email, code string) (*entity.User, error) {
	in := verifyOTPInput{Email: strings.TrimSpace(email), Code: strings.TrimSpace(code)}
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	now := s.now()
	if _, err := s.store.OTPChallenges().DeleteExpired(ctx, now); err != nil {
		s.log.Warn("failed to sweep expired otp challenges", zap.Error(err))
	}

	user, err := s.store.Users().GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}

	challenge, err := s.store.OTPChallenges().FindActionable(ctx, user.ID, in.Code, now)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, ErrInvalidOrExpiredOTP
		}
		return nil, err
	}

	err = s.store.Do(ctx, func(tx repository.Store) error {
		if err := tx.OTPChallenges().MarkVerified(ctx, challenge.ID); err != nil {
			return err
		}
		if err := tx.Users().Activate(ctx, user.ID); err != nil {
			return err
		}
		_, err := tx.OTPChallenges().DeleteByUserID(ctx, user.ID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to activate user: %w", err)
	}

	user.IsActivated = true
	s.log.Info("user activated", zap.Uint("user_id", user.ID))
	return user, nil
}

// Login проверяет учетные данные, отзывает прежние токены и выдает один новый
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	in := loginInput{Email: strings.TrimSpace(email), Password: password}
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	user, err := s.store.Users().GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: invalid credentials", apperrors.ErrUnauthorized)
		}
		return nil, err
	}
	if !user.CheckPassword(in.Password) {
		return nil, fmt.Errorf("%w: invalid credentials", apperrors.ErrUnauthorized)
	}
	if !user.IsActivated {
		return nil, ErrAccountNotActivated
	}

	// прежняя сессия удаляется из кеша до отзыва в базе
	if err := s.clearSession(ctx, user.ID); err != nil {
		return nil, err
	}

	var issued *auth.IssuedToken
	err = s.store.Do(ctx, func(tx repository.Store) error {
		revoked, err := tx.AccessTokens().RevokeAllForUser(ctx, user.ID, entity.RevokeReasonNewSession)
		if err != nil {
			return err
		}
		if revoked > 0 {
			s.log.Debug("previous sessions revoked", zap.Uint("user_id", user.ID), zap.Int64("count", revoked))
		}

		issued, err = s.jwt.GenerateToken(user)
		if err != nil {
			return err
		}
		return tx.AccessTokens().Create(ctx, entity.NewAccessToken(user.ID, issued.JTI, issued.ExpiresAt))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	s.cacheSession(ctx, user.ID, issued.JTI, issued.ExpiresAt)

	s.log.Info("user logged in", zap.Uint("user_id", user.ID))
	return &LoginResult{
		Token:     issued.Token,
		TokenType: "Bearer",
		ExpiresAt: issued.ExpiresAt,
		User:      user,
	}, nil
}

// ResendOTP выпускает новый код для существующего неактивированного пользователя
func (s *AuthService) ResendOTP(ctx context.Context, email string) error {
	in := emailInput{Email: strings.TrimSpace(email)}
	if err := validateStruct(in); err != nil {
		return err
	}

	user, err := s.store.Users().GetByEmail(ctx, in.Email)
	if err != nil {
		return err
	}
	if user.IsActivated {
		return ErrAlreadyActivated
	}

	err = s.store.Do(ctx, func(tx repository.Store) error {
		now := s.now()
		if _, err := tx.OTPChallenges().DeleteExpired(ctx, now); err != nil {
			return err
		}
		return s.issueOTP(ctx, tx, user, now)
	})
	if err != nil {
		return err
	}

	s.log.Info("otp resent", zap.Uint("user_id", user.ID))
	return nil
}

// Logout отзывает только текущий токен. Пустой или неизвестный jti не ошибка.
// Ошибка очистки кеша сессий возвращается: отозванный jti не должен оставаться в кеше.
func (s *AuthService) Logout(ctx context.Context, userID uint, jti string) error {
	if jti == "" {
		return nil
	}
	if err := s.clearSession(ctx, userID); err != nil {
		return err
	}
	if err := s.store.AccessTokens().RevokeByJTI(ctx, jti, entity.RevokeReasonLogout); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	// параллельный запрос мог успеть закешировать сессию до отзыва
	return s.clearSession(ctx, userID)
}

// Me возвращает профиль пользователя
func (s *AuthService) Me(ctx context.Context, userID uint) (*entity.User, error) {
	return s.store.Users().GetByID(ctx, userID)
}

// Authenticate проверяет bearer токен и то, что он остается активной сессией
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (*auth.JWTCustomClaims, error) {
	claims, err := s.jwt.ParseToken(tokenString)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrUnauthorized, err)
	}

	if s.sessions != nil {
		cached, err := s.sessions.GetActiveSession(ctx, claims.UserID)
		switch {
		case err == nil && cached == claims.ID:
			return claims, nil
		case err != nil && !errors.Is(err, apperrors.ErrNotFound):
			s.log.Warn("session cache unavailable, falling back to database", zap.Error(err))
		}
	}

	token, err := s.store.AccessTokens().GetByJTI(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown token", apperrors.ErrUnauthorized)
		}
		return nil, err
	}
	if token.UserID != claims.UserID || !token.IsValid(s.now()) {
		return nil, fmt.Errorf("%w: token has been revoked", apperrors.ErrUnauthorized)
	}

	s.cacheSession(ctx, token.UserID, token.JTI, token.ExpiresAt)
	return claims, nil
}

// SweepExpiredChallenges удаляет просроченные коды всех пользователей
func (s *AuthService) SweepExpiredChallenges(ctx context.Context) (int64, error) {
	return s.store.OTPChallenges().DeleteExpired(ctx, s.now())
}

// PurgeExpiredTokens удаляет записи токенов с истекшим сроком
func (s *AuthService) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	return s.store.AccessTokens().DeleteExpired(ctx, s.now())
}

func (s *AuthService) clearSession(ctx context.Context, userID uint) error {
	if s.sessions == nil {
		return nil
	}
	if err := s.sessions.ClearActiveSession(ctx, userID); err != nil {
		s.log.Error("failed to clear cached session", zap.Uint("user_id", userID), zap.Error(err))
		return fmt.Errorf("failed to clear cached session: %w", err)
	}
	return nil
}

func (s *AuthService) cacheSession(ctx context.Context, userID uint, jti string, expiresAt time.Time) {
	if s.sessions == nil {
		return
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return
	}
	if err := s.sessions.SetActiveSession(ctx, userID, jti, ttl); err != nil {
		s.log.Warn("failed to cache session", zap.Uint("user_id", userID), zap.Error(err))
	}
}
