package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("DATABASE_HOST", "localhost")
	t.Setenv("DATABASE_DBNAME", "todo")
	t.Setenv("DATABASE_USER", "todo")
}

func TestLoad_DefaultsFromEnvOnly(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "5432", cfg.Database.Port)
	assert.Equal(t, 100000, cfg.OTP.Min)
	assert.Equal(t, 999999, cfg.OTP.Max)
	assert.Equal(t, 10, cfg.OTP.TTLMinutes)
	assert.Equal(t, 15, cfg.Todo.PerPage)
	assert.Equal(t, int64(20<<20), cfg.Todo.MaxFileSize())
	assert.Equal(t, 10, cfg.Todo.MaxFilesPerReq)
	assert.Equal(t, "todo-pdfs", cfg.Todo.AttachmentsPath)
	assert.Equal(t, "noop", cfg.Mail.Provider)
	assert.Equal(t, "local", cfg.Storage.Driver)
	assert.True(t, cfg.RateLimit.Enabled)
}

func TestLoad_MissingJWTSecret(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("JWT_SECRET", "")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoad_ReadsYAMLFile(t *testing.T) {
	setRequiredEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := []byte(`
server:
  port: "9090"
otp:
  ttl_minutes: 5
todo:
  per_page: 25
`)
	require.NoError(t, os.WriteFile(path, yaml, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 5, cfg.OTP.TTLMinutes)
	assert.Equal(t, 25, cfg.Todo.PerPage)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SERVER_PORT", "7070")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: \"9090\"\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.Server.Port)
}

func TestLoad_MissingFileIsNotFatal(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
}

func TestLoad_ProviderRequirements(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "resend without key",
			env:     map[string]string{"MAIL_PROVIDER": "resend", "MAIL_FROM": "noreply@example.com"},
			wantErr: "RESEND_API_KEY",
		},
		{
			name:    "smtp without host",
			env:     map[string]string{"MAIL_PROVIDER": "smtp", "MAIL_FROM": "noreply@example.com"},
			wantErr: "SMTP_HOST",
		},
		{
			name: "smtp oauth2 without refresh token",
			env: map[string]string{
				"MAIL_PROVIDER":         "smtp",
				"MAIL_FROM":             "noreply@example.com",
				"SMTP_HOST":             "smtp.gmail.com",
				"SMTP_OAUTH2_CLIENT_ID": "client",
			},
			wantErr: "xoauth2",
		},
		{
			name:    "unknown mail provider",
			env:     map[string]string{"MAIL_PROVIDER": "pigeon"},
			wantErr: "unsupported mail provider",
		},
		{
			name:    "s3 without bucket",
			env:     map[string]string{"STORAGE_DRIVER": "s3", "S3_REGION": "eu-central-1"},
			wantErr: "S3_BUCKET",
		},
		{
			name:    "inverted otp range",
			env:     map[string]string{"OTP_MIN": "999999", "OTP_MAX": "100000"},
			wantErr: "otp range",
		},
		{
			name:    "four digit otp range",
			env:     map[string]string{"OTP_MIN": "1000", "OTP_MAX": "9999"},
			wantErr: "6-digit",
		},
		{
			name:    "seven digit otp max",
			env:     map[string]string{"OTP_MAX": "1000000"},
			wantErr: "6-digit",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load("")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDatabaseConfig_ConnectionStrings(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "todo", SSLMode: "disable"}

	assert.Equal(t, "host=db port=5432 user=u password=p dbname=todo sslmode=disable", d.PostgresConnectionString())
	assert.Equal(t, "postgres://u:p@db:5432/todo?sslmode=disable", d.PostgresURL())
}
