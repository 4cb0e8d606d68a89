package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config хранит все настройки приложения
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	OTP       OTPConfig
	Mail      MailConfig
	Storage   StorageConfig
	Todo      TodoConfig
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Log       LogConfig
	CORS      CORSConfig
}

// ServerConfig содержит настройки HTTP сервера
type ServerConfig struct {
	Port            string
	ReadTimeout     int `mapstructure:"read_timeout"`
	WriteTimeout    int `mapstructure:"write_timeout"`
	ShutdownTimeout int `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig содержит настройки подключения к PostgreSQL
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string

	MigrationsPath string `mapstructure:"migrations_path"`
	// SlowQueryMs: порог медленного запроса для логгера GORM (мс).
	SlowQueryMs int `mapstructure:"slow_query_ms"`
}

// RedisConfig содержит унифицированные настройки подключения к Redis
// Поддерживает режимы: single, sentinel, cluster
type RedisConfig struct {
	// Mode: Режим работы Redis ("single", "sentinel", "cluster"). По умолчанию "single".
	Mode string `mapstructure:"mode"`

	// Addrs: Список адресов Redis (хост:порт). Для 'single' используется первый адрес.
	Addrs []string `mapstructure:"addrs"`

	// Addr: Альтернативный адрес для режима 'single'.
	Addr string `mapstructure:"addr"`

	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	// MasterName: Имя мастер-сервера Redis (только для режима "sentinel")
	MasterName string `mapstructure:"master_name"`

	MaxRetries      int `mapstructure:"max_retries"`
	MinRetryBackoff int `mapstructure:"min_retry_backoff"`
	MaxRetryBackoff int `mapstructure:"max_retry_backoff"`
}

// JWTConfig содержит настройки JWT
type JWTConfig struct {
	Secret        string `mapstructure:"secret"`
	Issuer        string `mapstructure:"issuer"`
	ExpirationHrs int    `mapstructure:"expiration_hrs"`
}

// OTPConfig содержит настройки одноразовых кодов активации
type OTPConfig struct {
	Min        int `mapstructure:"min"`
	Max        int `mapstructure:"max"`
	TTLMinutes int `mapstructure:"ttl_minutes"`
}

// TTL возвращает время жизни кода
func (o OTPConfig) TTL() time.Duration {
	return time.Duration(o.TTLMinutes) * time.Minute
}

// MailConfig содержит настройки отправки писем.
// Provider: "resend", "smtp" или "noop".
type MailConfig struct {
	Provider string `mapstructure:"provider"`
	From     string `mapstructure:"from"`
	FromName string `mapstructure:"from_name"`

	ResendAPIKey string `mapstructure:"resend_api_key"`

	SMTP SMTPConfig `mapstructure:"smtp"`
}

// SMTPConfig содержит настройки SMTP. Если задан OAuth2 ClientID,
// используется XOAUTH2 вместо пароля.
type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`

	OAuth2ClientID     string `mapstructure:"oauth2_client_id"`
	OAuth2ClientSecret string `mapstructure:"oauth2_client_secret"`
	OAuth2RefreshToken string `mapstructure:"oauth2_refresh_token"`
	OAuth2TokenURL     string `mapstructure:"oauth2_token_url"`
}

// UsesOAuth2 сообщает, настроен ли XOAUTH2
func (s SMTPConfig) UsesOAuth2() bool {
	return s.OAuth2ClientID != ""
}

// StorageConfig содержит настройки хранилища файлов.
// Driver: "local" или "s3".
type StorageConfig struct {
	Driver    string `mapstructure:"driver"`
	LocalRoot string `mapstructure:"local_root"`

	S3 S3Config `mapstructure:"s3"`
}

// S3Config содержит настройки S3-совместимого хранилища
type S3Config struct {
	Region       string `mapstructure:"region"`
	Bucket       string `mapstructure:"bucket"`
	AccessKey    string `mapstructure:"access_key"`
	SecretKey    string `mapstructure:"secret_key"`
	Endpoint     string `mapstructure:"endpoint"`
	UsePathStyle bool   `mapstructure:"use_path_style"`
}

// TodoConfig содержит лимиты списка задач и вложений
type TodoConfig struct {
	PerPage         int    `mapstructure:"per_page"`
	MaxPerPage      int    `mapstructure:"max_per_page"`
	MaxFileSizeMB   int    `mapstructure:"max_file_size_mb"`
	MaxFilesPerReq  int    `mapstructure:"max_files_per_request"`
	AttachmentsPath string `mapstructure:"attachments_prefix"`
}

// MaxFileSize возвращает лимит размера одного файла в байтах
func (t TodoConfig) MaxFileSize() int64 {
	return int64(t.MaxFileSizeMB) << 20
}

// RateLimitConfig содержит лимиты для auth endpoints
type RateLimitConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxRequests   int  `mapstructure:"max_requests"`
	WindowSeconds int  `mapstructure:"window_seconds"`
}

// LogConfig содержит настройки zap логгера
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Format      string `mapstructure:"format"`
	Output      string `mapstructure:"output"`
	FilePath    string `mapstructure:"file_path"`
	Development bool   `mapstructure:"development"`
}

// CORSConfig содержит разрешённые источники
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// PostgresConnectionString формирует строку подключения к PostgreSQL
func (d *DatabaseConfig) PostgresConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// PostgresURL формирует URL для golang-migrate
func (d *DatabaseConfig) PostgresURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

func setDefaults(vip *viper.Viper) {
	vip.SetDefault("server.port", "8080")
	vip.SetDefault("server.read_timeout", 30)
	vip.SetDefault("server.write_timeout", 60)
	vip.SetDefault("server.shutdown_timeout", 10)

	vip.SetDefault("database.port", "5432")
	vip.SetDefault("database.sslmode", "disable")
	vip.SetDefault("database.migrations_path", "migrations")
	vip.SetDefault("database.slow_query_ms", 200)

	vip.SetDefault("redis.mode", "single")

	vip.SetDefault("jwt.issuer", "todo-api")
	vip.SetDefault("jwt.expiration_hrs", 24)

	vip.SetDefault("otp.min", 100000)
	vip.SetDefault("otp.max", 999999)
	vip.SetDefault("otp.ttl_minutes", 10)

	vip.SetDefault("mail.provider", "noop")
	vip.SetDefault("mail.from_name", "Todo App")
	vip.SetDefault("mail.smtp.port", 587)
	vip.SetDefault("mail.smtp.oauth2_token_url", "https://oauth2.googleapis.com/token")

	vip.SetDefault("storage.driver", "local")
	vip.SetDefault("storage.local_root", "storage")

	vip.SetDefault("todo.per_page", 15)
	vip.SetDefault("todo.max_per_page", 100)
	vip.SetDefault("todo.max_file_size_mb", 20)
	vip.SetDefault("todo.max_files_per_request", 10)
	vip.SetDefault("todo.attachments_prefix", "todo-pdfs")

	vip.SetDefault("rate_limit.enabled", true)
	vip.SetDefault("rate_limit.max_requests", 5)
	vip.SetDefault("rate_limit.window_seconds", 60)

	vip.SetDefault("log.level", "info")
	vip.SetDefault("log.format", "json")
	vip.SetDefault("log.output", "stdout")

	vip.SetDefault("cors.allow_origins", []string{"http://localhost:3000", "http://localhost:5173"})
}

// Load загружает конфигурацию из файла и переменных окружения
func Load(configPath string) (*Config, error) {
	vip := viper.New() // Новый экземпляр Viper, без глобального состояния

	setDefaults(vip)

	// Привязываем переменные окружения ЯВНО
	vip.BindEnv("database.host", "DATABASE_HOST")
	vip.BindEnv("database.port", "DATABASE_PORT")
	vip.BindEnv("database.user", "DATABASE_USER")
	vip.BindEnv("database.password", "DATABASE_PASSWORD")
	vip.BindEnv("database.dbname", "DATABASE_DBNAME")
	vip.BindEnv("database.sslmode", "DATABASE_SSLMODE")
	vip.BindEnv("database.migrations_path", "DATABASE_MIGRATIONS_PATH")

	vip.BindEnv("redis.mode", "REDIS_MODE")
	vip.BindEnv("redis.addrs", "REDIS_ADDRS")
	vip.BindEnv("redis.addr", "REDIS_ADDR")
	vip.BindEnv("redis.password", "REDIS_PASSWORD")
	vip.BindEnv("redis.db", "REDIS_DB")
	vip.BindEnv("redis.master_name", "REDIS_MASTER_NAME")

	vip.BindEnv("jwt.secret", "JWT_SECRET")
	vip.BindEnv("jwt.expiration_hrs", "JWT_EXPIRATION_HRS")

	vip.BindEnv("otp.min", "OTP_MIN")
	vip.BindEnv("otp.max", "OTP_MAX")
	vip.BindEnv("otp.ttl_minutes", "OTP_TTL_MINUTES")

	vip.BindEnv("mail.provider", "MAIL_PROVIDER")
	vip.BindEnv("mail.from", "MAIL_FROM")
	vip.BindEnv("mail.from_name", "MAIL_FROM_NAME")
	vip.BindEnv("mail.resend_api_key", "RESEND_API_KEY")
	vip.BindEnv("mail.smtp.host", "SMTP_HOST")
	vip.BindEnv("mail.smtp.port", "SMTP_PORT")
	vip.BindEnv("mail.smtp.username", "SMTP_USERNAME")
	vip.BindEnv("mail.smtp.password", "SMTP_PASSWORD")
	vip.BindEnv("mail.smtp.oauth2_client_id", "SMTP_OAUTH2_CLIENT_ID")
	vip.BindEnv("mail.smtp.oauth2_client_secret", "SMTP_OAUTH2_CLIENT_SECRET")
	vip.BindEnv("mail.smtp.oauth2_refresh_token", "SMTP_OAUTH2_REFRESH_TOKEN")

	vip.BindEnv("storage.driver", "STORAGE_DRIVER")
	vip.BindEnv("storage.local_root", "STORAGE_LOCAL_ROOT")
	vip.BindEnv("storage.s3.region", "S3_REGION")
	vip.BindEnv("storage.s3.bucket", "S3_BUCKET")
	vip.BindEnv("storage.s3.access_key", "S3_ACCESS_KEY")
	vip.BindEnv("storage.s3.secret_key", "S3_SECRET_KEY")
	vip.BindEnv("storage.s3.endpoint", "S3_ENDPOINT")
	vip.BindEnv("storage.s3.use_path_style", "S3_USE_PATH_STYLE")

	vip.BindEnv("rate_limit.enabled", "RATE_LIMIT_ENABLED")

	vip.BindEnv("log.level", "LOG_LEVEL")
	vip.BindEnv("log.format", "LOG_FORMAT")

	vip.BindEnv("server.port", "SERVER_PORT")

	if configPath != "" {
		vip.SetConfigFile(configPath)
		// Файл не обязателен, т.к. есть BindEnv и значения по умолчанию
		if err := vip.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); ok || os.IsNotExist(err) {
				log.Printf("Config file '%s' not found, using environment and defaults.", configPath)
			} else {
				log.Printf("Warning: failed to read config file '%s': %v", configPath, err)
			}
		}
	}

	var cfg Config
	if err := vip.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// REDIS_ADDRS приходит одной строкой через запятую
	if len(cfg.Redis.Addrs) == 1 && strings.Contains(cfg.Redis.Addrs[0], ",") {
		cfg.Redis.Addrs = strings.Split(cfg.Redis.Addrs[0], ",")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// validate проверяет обязательные параметры
func (c *Config) validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt secret is required in config (check JWT_SECRET env var)")
	}
	if c.Database.Host == "" || c.Database.DBName == "" || c.Database.User == "" {
		return fmt.Errorf("database configuration (host, dbname, user) is incomplete in config (check DATABASE_HOST, DATABASE_DBNAME, DATABASE_USER env vars)")
	}
	// коды всегда шестизначные
	if c.OTP.Min < 100000 || c.OTP.Max > 999999 || c.OTP.Max < c.OTP.Min {
		return fmt.Errorf("otp range [%d, %d] is invalid: both bounds must be 6-digit numbers", c.OTP.Min, c.OTP.Max)
	}

	switch c.Mail.Provider {
	case "noop":
	case "resend":
		if c.Mail.ResendAPIKey == "" || c.Mail.From == "" {
			return fmt.Errorf("mail provider resend requires RESEND_API_KEY and MAIL_FROM")
		}
	case "smtp":
		if c.Mail.SMTP.Host == "" || c.Mail.From == "" {
			return fmt.Errorf("mail provider smtp requires SMTP_HOST and MAIL_FROM")
		}
		if c.Mail.SMTP.UsesOAuth2() && (c.Mail.SMTP.OAuth2ClientSecret == "" || c.Mail.SMTP.OAuth2RefreshToken == "") {
			return fmt.Errorf("smtp xoauth2 requires client secret and refresh token")
		}
	default:
		return fmt.Errorf("unsupported mail provider: %s", c.Mail.Provider)
	}

	switch c.Storage.Driver {
	case "local":
		if c.Storage.LocalRoot == "" {
			return fmt.Errorf("storage driver local requires local_root")
		}
	case "s3":
		if c.Storage.S3.Bucket == "" || c.Storage.S3.Region == "" {
			return fmt.Errorf("storage driver s3 requires S3_BUCKET and S3_REGION")
		}
	default:
		return fmt.Errorf("unsupported storage driver: %s", c.Storage.Driver)
	}

	return nil
}
