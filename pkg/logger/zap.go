package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config describes how the process logger is built.
type Config struct {
	// Level is one of debug, info, warn, error. Anything else means info.
	Level string
	// Format is json or console.
	Format string
	// Output is stdout, stderr or file.
	Output string
	// FilePath is used when Output is file.
	FilePath string
	// Development switches to the human-friendly encoder and adds caller info.
	Development bool
}

// NewZapLogger builds a zap logger from cfg.
func NewZapLogger(cfg Config) (*zap.Logger, error) {
	level := zap.NewAtomicLevelAt(parseLevel(cfg.Level))

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "@timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.LevelKey = "log.level"
	encoderConfig.MessageKey = "message"
	encoderConfig.CallerKey = "caller"

	if cfg.Development {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	var encoder zapcore.Encoder
	if cfg.Format == "console" {
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	var writeSyncer zapcore.WriteSyncer
	switch cfg.Output {
	case "stderr":
		writeSyncer = zapcore.AddSync(os.Stderr)
	case "file":
		if cfg.FilePath == "" {
			writeSyncer = zapcore.AddSync(os.Stdout)
			break
		}
		file, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, err
		}
		writeSyncer = zapcore.AddSync(file)
	default:
		writeSyncer = zapcore.AddSync(os.Stdout)
	}

	log := zap.New(zapcore.NewCore(encoder, writeSyncer, level))
	if cfg.Development {
		log = log.WithOptions(zap.AddCaller())
	}
	return log.WithOptions(zap.AddStacktrace(zapcore.ErrorLevel)), nil
}

// Default returns an info-level JSON logger on stdout.
func Default() *zap.Logger {
	log, err := NewZapLogger(Config{Level: "info", Format: "json", Output: "stdout"})
	if err != nil {
		return zap.NewExample()
	}
	return log
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
