package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	pgRepo "github.com/yourusername/todo-api/internal/repository/postgres"
	"github.com/yourusername/todo-api/internal/service"
	"github.com/yourusername/todo-api/pkg/auth"
)

var sweepTimeout time.Duration

var sweepOTPCmd = &cobra.Command{
	Use:   "sweep-otp",
	Short: "Delete expired OTP challenges",
	Args:  cobra.NoArgs,
	RunE: withAuthService(func(ctx context.Context, e *env, svc *service.AuthService) error {
		n, err := svc.SweepExpiredChallenges(ctx)
		if err != nil {
			return err
		}
		e.log.Info("expired otp challenges deleted", zap.Int64("count", n))
		return nil
	}),
}

var purgeTokensCmd = &cobra.Command{
	Use:   "purge-tokens",
	Short: "Delete access token records that are past expiry",
	Args:  cobra.NoArgs,
	RunE: withAuthService(func(ctx context.Context, e *env, svc *service.AuthService) error {
		n, err := svc.PurgeExpiredTokens(ctx)
		if err != nil {
			return err
		}
		e.log.Info("expired access tokens deleted", zap.Int64("count", n))
		return nil
	}),
}

func init() {
	for _, c := range []*cobra.Command{sweepOTPCmd, purgeTokensCmd} {
		c.Flags().DurationVar(&sweepTimeout, "timeout", 30*time.Second, "maximum time for the cleanup query")
	}
}

// withAuthService собирает AuthService без почты и кеша сессий: очистке они не нужны
func withAuthService(fn func(ctx context.Context, e *env, svc *service.AuthService) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		jwtService, err := auth.NewJWTService(e.cfg.JWT.Secret, e.cfg.JWT.Issuer, e.cfg.JWT.ExpirationHrs, e.log)
		if err != nil {
			return err
		}
		svc, err := service.NewAuthService(pgRepo.NewStore(e.db), service.NewNoopMailer(e.log), jwtService, nil, e.cfg.OTP, e.log.Named("auth"))
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), sweepTimeout)
		defer cancel()
		return fn(ctx, e, svc)
	}
}
