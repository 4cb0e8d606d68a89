package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/yourusername/todo-api/internal/config"
	"github.com/yourusername/todo-api/internal/domain/repository"
	"github.com/yourusername/todo-api/internal/handler"
	"github.com/yourusername/todo-api/internal/middleware"
	pgRepo "github.com/yourusername/todo-api/internal/repository/postgres"
	redisRepo "github.com/yourusername/todo-api/internal/repository/redis"
	"github.com/yourusername/todo-api/internal/service"
	"github.com/yourusername/todo-api/pkg/auth"
	"github.com/yourusername/todo-api/pkg/database"
	"github.com/yourusername/todo-api/pkg/logger"
	"github.com/yourusername/todo-api/pkg/storage"
)

func main() {
	// .env не обязателен
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: failed to load .env: %v", err)
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		os.Exit(1)
	}

	zlog, err := logger.NewZapLogger(logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		Output:      cfg.Log.Output,
		FilePath:    cfg.Log.FilePath,
		Development: cfg.Log.Development,
	})
	if err != nil {
		log.Printf("Failed to build logger: %v", err)
		os.Exit(1)
	}
	defer zlog.Sync()

	if err := run(cfg, zlog); err != nil {
		zlog.Error("server stopped with error", zap.Error(err))
		zlog.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, zlog *zap.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.NewPostgresDB(
		cfg.Database.PostgresConnectionString(),
		zlog.Named("gorm"),
		time.Duration(cfg.Database.SlowQueryMs)*time.Millisecond,
	)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if err := database.MigrateDB(db, cfg.Database.MigrationsPath, zlog); err != nil {
		return err
	}

	// Redis нужен для rate limit и кеша сессий; без него сервис работает в деградированном режиме
	var redisClient redis.UniversalClient
	if cfg.Redis.Addr != "" || len(cfg.Redis.Addrs) > 0 {
		redisClient, err = database.NewUniversalRedisClient(ctx, cfg.Redis)
		if err != nil {
			zlog.Warn("redis unavailable, continuing without cache and rate limiting", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
			zlog.Info("connected to redis", zap.String("mode", cfg.Redis.Mode))
		}
	}

	blobs, err := newBlobStorage(ctx, cfg.Storage)
	if err != nil {
		return err
	}

	mailer, err := service.NewMailer(cfg.Mail, cfg.OTP.TTL(), zlog.Named("mail"))
	if err != nil {
		return err
	}

	jwtService, err := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.ExpirationHrs, zlog)
	if err != nil {
		return err
	}

	var sessions repository.SessionCache
	if redisClient != nil {
		cache, err := redisRepo.NewSessionCache(redisClient)
		if err != nil {
			return err
		}
		sessions = cache
	}

	store := pgRepo.NewStore(db)

	authService, err := service.NewAuthService(store, mailer, jwtService, sessions, cfg.OTP, zlog.Named("auth"))
	if err != nil {
		return err
	}
	todoService, err := service.NewTodoService(store, blobs, cfg.Todo, zlog.Named("todos"))
	if err != nil {
		return err
	}

	if gin.Mode() == gin.ReleaseMode {
		gin.DisableConsoleColor()
	}
	router := gin.New()
	router.Use(middleware.Recovery(zlog), middleware.RequestLogger(zlog.Named("http")))

	// В production не доверяем прокси-заголовкам, иначе только localhost
	trusted := []string{"127.0.0.1", "::1"}
	if gin.Mode() == gin.ReleaseMode {
		trusted = nil
	}
	if err := router.SetTrustedProxies(trusted); err != nil {
		zlog.Warn("failed to set trusted proxies", zap.Error(err))
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes := handler.Routes{
		Auth:        handler.NewAuthHandler(authService, zlog.Named("auth")),
		Todos:       handler.NewTodoHandler(todoService, cfg.Todo, zlog.Named("todos")),
		Health:      handler.NewHealthHandler(sqlDB, redisClient, zlog),
		RequireAuth: middleware.NewAuthMiddleware(authService, zlog).RequireAuth(),
	}
	if cfg.RateLimit.Enabled && redisClient != nil {
		limiter := middleware.NewRateLimiter(redisClient, zlog.Named("ratelimit"))
		routes.AuthLimit = limiter.Limit(middleware.AuthRateLimitPolicy(cfg.RateLimit))
	}
	routes.Register(router)

	// Настраиваем HTTP сервер с тайм-аутами для защиты от slow client attacks
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		zlog.Info("starting server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		zlog.Info("shutting down server", zap.String("signal", sig.String()))
	case err := <-serveErr:
		if err != nil {
			return err
		}
	}

	timeout := time.Duration(cfg.Server.ShutdownTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	zlog.Info("server exited properly")
	return nil
}

func newBlobStorage(ctx context.Context, cfg config.StorageConfig) (storage.Storage, error) {
	switch cfg.Driver {
	case "s3":
		return storage.NewS3Storage(ctx, storage.S3Options{
			Region:       cfg.S3.Region,
			Bucket:       cfg.S3.Bucket,
			AccessKey:    cfg.S3.AccessKey,
			SecretKey:    cfg.S3.SecretKey,
			Endpoint:     cfg.S3.Endpoint,
			UsePathStyle: cfg.S3.UsePathStyle,
		})
	default:
		return storage.NewLocalStorage(cfg.LocalRoot)
	}
}
