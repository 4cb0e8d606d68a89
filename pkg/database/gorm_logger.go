package database

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// ZapGormLogger routes GORM logs to zap. Queries slower than SlowThreshold
// are logged at warn level.
type ZapGormLogger struct {
	log                       *zap.Logger
	LogLevel                  gormlogger.LogLevel
	SlowThreshold             time.Duration
	IgnoreRecordNotFoundError bool
}

func NewZapGormLogger(log *zap.Logger, level gormlogger.LogLevel, slowThreshold time.Duration, ignoreRecordNotFound bool) *ZapGormLogger {
	return &ZapGormLogger{
		log:                       log.Named("gorm").WithOptions(zap.AddCallerSkip(3)),
		LogLevel:                  level,
		SlowThreshold:             slowThreshold,
		IgnoreRecordNotFoundError: ignoreRecordNotFound,
	}
}

func (z *ZapGormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	newLogger := *z
	newLogger.LogLevel = level
	return &newLogger
}

func (z *ZapGormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if z.LogLevel < gormlogger.Info {
		return
	}
	z.log.Sugar().Infof(msg, data...)
}

func (z *ZapGormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if z.LogLevel < gormlogger.Warn {
		return
	}
	z.log.Sugar().Warnf(msg, data...)
}

func (z *ZapGormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if z.LogLevel < gormlogger.Error {
		return
	}
	z.log.Sugar().Errorf(msg, data...)
}

func (z *ZapGormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if z.LogLevel <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)

	switch {
	case err != nil && z.LogLevel >= gormlogger.Error && (!z.IgnoreRecordNotFoundError || !errors.Is(err, gorm.ErrRecordNotFound)):
		sql, rows := fc()
		z.log.Error("query failed",
			zap.Error(err),
			zap.Duration("elapsed", elapsed),
			zap.String("sql", sql),
			zap.Int64("rows", rows),
		)
	case z.SlowThreshold != 0 && elapsed > z.SlowThreshold && z.LogLevel >= gormlogger.Warn:
		sql, rows := fc()
		z.log.Warn("slow query",
			zap.Duration("elapsed", elapsed),
			zap.Duration("threshold", z.SlowThreshold),
			zap.String("sql", sql),
			zap.Int64("rows", rows),
		)
	case z.LogLevel >= gormlogger.Info:
		sql, rows := fc()
		z.log.Debug("query",
			zap.Duration("elapsed", elapsed),
			zap.String("sql", sql),
			zap.Int64("rows", rows),
		)
	}
}
