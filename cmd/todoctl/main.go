// Command todoctl выполняет обслуживающие операции: миграции и очистку
// просроченных OTP-кодов и токенов.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/yourusername/todo-api/internal/config"
	"github.com/yourusername/todo-api/pkg/database"
	"github.com/yourusername/todo-api/pkg/logger"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "todoctl",
	Short:         "Maintenance tool for the todo API",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: failed to load .env: %v", err)
	}
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	defaultPath := os.Getenv("CONFIG_PATH")
	if defaultPath == "" {
		defaultPath = "config/config.yaml"
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultPath, "path to the YAML config file")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(sweepOTPCmd)
	rootCmd.AddCommand(purgeTokensCmd)
}

// env - то, что нужно любой подкоманде: конфиг, логгер и подключение к БД
type env struct {
	cfg *config.Config
	log *zap.Logger
	db  *gorm.DB
}

func openEnv() (*env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	zlog, err := logger.NewZapLogger(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: "stdout",
	})
	if err != nil {
		return nil, err
	}
	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString(), zlog.Named("gorm"), 0)
	if err != nil {
		zlog.Sync()
		return nil, err
	}
	return &env{cfg: cfg, log: zlog, db: db}, nil
}

func (e *env) Close() {
	if sqlDB, err := e.db.DB(); err == nil {
		sqlDB.Close()
	}
	e.log.Sync()
}
